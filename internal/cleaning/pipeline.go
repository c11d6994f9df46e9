package cleaning

import (
	"context"
	"log/slog"

	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Pipeline executes an ordered rule list against a raw table, producing
// a cleaned table and its log. The raw table is never mutated.
type Pipeline struct {
	dataset domain.DatasetKind
	rules   []Rule
	logger  *slog.Logger
}

// NewPipeline builds a pipeline for a dataset kind. A nil logger
// defaults to slog.Default().
func NewPipeline(dataset domain.DatasetKind, rules []Rule, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		dataset: dataset,
		rules:   rules,
		logger:  logger.With(slog.String("component", "cleaning"), slog.String("dataset", string(dataset))),
	}
}

// ForDataset returns the canonical pipeline for a dataset kind.
func ForDataset(dataset domain.DatasetKind, logger *slog.Logger) *Pipeline {
	switch dataset {
	case domain.DatasetFeedback:
		return NewPipeline(dataset, FeedbackRules(), logger)
	case domain.DatasetInventory:
		return NewPipeline(dataset, InventoryRules(), logger)
	case domain.DatasetTransactions:
		return NewPipeline(dataset, TransactionsRules(), logger)
	default:
		return NewPipeline(dataset, nil, logger)
	}
}

// Run applies the rules in order and returns the cleaned table with the
// append-only log of applied steps. Rules whose columns are absent are
// skipped and logged at debug level only.
func (p *Pipeline) Run(ctx context.Context, env Env, raw *table.Table) (*table.Table, *Log) {
	log := NewLog(p.dataset)
	current := raw

	p.logger.InfoContext(ctx, "cleaning started",
		slog.Int("rows", raw.NumRows()),
		slog.Int("rules", len(p.rules)))

	for _, rule := range p.rules {
		if !rule.applicable(env, current) {
			p.logger.DebugContext(ctx, "rule skipped",
				slog.String("rule", rule.Label),
				slog.Any("columns", rule.Columns))
			continue
		}

		before := current.NumRows()
		next, detail := rule.Apply(env, current)
		after := next.NumRows()
		log.append(rule.Label, rule.Rationale, rule.Method, detail, before, after)

		if removed := before - after; removed > 0 {
			p.logger.InfoContext(ctx, "rule applied",
				slog.String("rule", rule.Label),
				slog.Int("rows_before", before),
				slog.Int("rows_after", after),
				slog.Int("removed", removed))
		} else {
			p.logger.DebugContext(ctx, "rule applied",
				slog.String("rule", rule.Label),
				slog.Int("rows", after))
		}
		current = next
	}

	p.logger.InfoContext(ctx, "cleaning finished",
		slog.Int("rows_in", raw.NumRows()),
		slog.Int("rows_out", current.NumRows()),
		slog.Int("removed", raw.NumRows()-current.NumRows()),
		slog.Int("steps", log.Len()))

	if current == raw {
		// No rule ran; still hand back a private copy so the caller
		// owns its cleaned table.
		current = raw.Clone()
	}
	return current, log
}
