package cleaning

import (
	"fmt"
	"strings"

	"supplypulse/pkg/contracts/domain"
)

// Log is the ordered, append-only record of every cleaning step applied
// to one dataset. Steps are immutable once appended and are never
// removed or reordered, so before/after comparisons always reflect the
// actual execution order.
type Log struct {
	dataset domain.DatasetKind
	steps   []domain.CleaningStep
}

// NewLog creates an empty log for a dataset.
func NewLog(dataset domain.DatasetKind) *Log {
	return &Log{dataset: dataset}
}

// Dataset returns the dataset the log belongs to.
func (l *Log) Dataset() domain.DatasetKind { return l.dataset }

// append records one applied rule. Sequence numbers are assigned here,
// starting at 1.
func (l *Log) append(label, rationale, method, detail string, before, after int) {
	removed := before - after
	pct := 0.0
	if before > 0 {
		pct = float64(removed) / float64(before) * 100
	}
	l.steps = append(l.steps, domain.CleaningStep{
		Seq:        len(l.steps) + 1,
		Dataset:    l.dataset,
		Label:      label,
		RowsBefore: before,
		RowsAfter:  after,
		Removed:    removed,
		RemovedPct: pct,
		Rationale:  rationale,
		Method:     method,
		Detail:     detail,
	})
}

// Steps returns a copy of the recorded steps in execution order.
func (l *Log) Steps() []domain.CleaningStep {
	out := make([]domain.CleaningStep, len(l.steps))
	copy(out, l.steps)
	return out
}

// Len returns the number of recorded steps.
func (l *Log) Len() int { return len(l.steps) }

// TotalRemoved sums the removed rows across all steps.
func (l *Log) TotalRemoved() int {
	total := 0
	for _, s := range l.steps {
		total += s.Removed
	}
	return total
}

// FinalRows returns rows_after of the last step, or -1 for an empty log.
func (l *Log) FinalRows() int {
	if len(l.steps) == 0 {
		return -1
	}
	return l.steps[len(l.steps)-1].RowsAfter
}

// Summarize renders the log in natural order for audit output.
func (l *Log) Summarize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cleaning log for %s (%d steps, %d rows removed)\n", l.dataset, len(l.steps), l.TotalRemoved())
	for _, s := range l.steps {
		fmt.Fprintf(&b, "%2d. %-45s %6d -> %-6d (-%d, %.2f%%)\n", s.Seq, s.Label, s.RowsBefore, s.RowsAfter, s.Removed, s.RemovedPct)
		fmt.Fprintf(&b, "    rationale: %s\n", s.Rationale)
		if s.Detail != "" {
			fmt.Fprintf(&b, "    detail: %s\n", s.Detail)
		}
	}
	return b.String()
}
