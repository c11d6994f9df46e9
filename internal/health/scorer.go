package health

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"supplypulse/internal/anomaly"
	"supplypulse/internal/cleaning"
	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Penalties groups every deduction the scorer can apply. Each dataset-
// specific penalty is charged once per detected issue class, not per
// offending row.
type Penalties struct {
	MissingDivisor float64
	PerDuplicate   float64

	InventoryNegativeStock float64
	InventoryNaNStock      float64

	FeedbackPairDuplicates      float64
	FeedbackImpossibleAges      float64
	FeedbackMissingSatisfaction float64

	TransactionsPhantom         float64
	TransactionsExtremeDelivery float64
	TransactionsBadDates        float64
}

// DefaultPenalties returns the calibrated penalty set.
func DefaultPenalties() Penalties {
	return Penalties{
		MissingDivisor:              10,
		PerDuplicate:                0.5,
		InventoryNegativeStock:      25,
		InventoryNaNStock:           10,
		FeedbackPairDuplicates:      20,
		FeedbackImpossibleAges:      15,
		FeedbackMissingSatisfaction: 15,
		TransactionsPhantom:         30,
		TransactionsExtremeDelivery: 20,
		TransactionsBadDates:        15,
	}
}

// missingSuggestionPct is the per-column missing percentage above which
// the report suggests reviewing the source extract.
const missingSuggestionPct = 30

// topValueCount caps the categorical top-values list per column.
const topValueCount = 3

// Scorer computes health reports for tables.
type Scorer struct {
	penalties Penalties
	logger    *slog.Logger
}

// NewScorer creates a scorer. A nil logger defaults to slog.Default().
func NewScorer(penalties Penalties, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		penalties: penalties,
		logger:    logger.With(slog.String("component", "health")),
	}
}

// Score walks the table once per concern and builds its report. The
// score starts at 100, loses the summed missing percentages divided by
// the divisor, half a point per duplicate row, and the dataset-specific
// penalties for the kind (skipped for unknown kinds), then clamps to
// [0,100]. Status is INVALID whenever a required column is absent,
// regardless of score.
func (s *Scorer) Score(ctx context.Context, t *table.Table, required []string, kind domain.DatasetKind) domain.HealthReport {
	report := domain.HealthReport{
		Dataset:         kind,
		Rows:            t.NumRows(),
		Columns:         t.NumCols(),
		MissingPct:      anomaly.MissingFraction(t),
		Duplicates:      anomaly.DuplicateCount(t),
		MissingRequired: anomaly.MissingRequired(t, required),
	}
	s.summarize(t, &report)
	report.DateParseFailures = dateParseFailures(t)

	score := 100.0
	for _, pct := range report.MissingPct {
		score -= pct / s.penalties.MissingDivisor
	}
	score -= s.penalties.PerDuplicate * float64(report.Duplicates)

	report.Issues = s.datasetIssues(t, kind)
	for _, issue := range report.Issues {
		score -= issue.Penalty
	}

	report.HealthScore = round2(math.Min(100, math.Max(0, score)))
	report.Status = domain.HealthOK
	if len(report.MissingRequired) > 0 {
		report.Status = domain.HealthInvalid
	}
	report.Suggestions = suggestions(report)

	s.logger.InfoContext(ctx, "dataset scored",
		slog.String("dataset", string(kind)),
		slog.Float64("score", report.HealthScore),
		slog.String("status", string(report.Status)),
		slog.Int("issues", len(report.Issues)))
	return report
}

// datasetIssues runs the kind-specific checks. Order is fixed so issue
// lists compare stably across runs.
func (s *Scorer) datasetIssues(t *table.Table, kind domain.DatasetKind) []domain.Issue {
	var issues []domain.Issue
	add := func(code, detail string, penalty float64) {
		issues = append(issues, domain.Issue{Code: code, Detail: detail, Penalty: penalty})
	}

	switch kind {
	case domain.DatasetInventory:
		if n := countMatching(t, domain.ColStock, func(v float64) bool { return v < 0 }); n > 0 {
			add("negative_stock", fmt.Sprintf("%d rows report negative stock, an unresolved accounting challenge", n), s.penalties.InventoryNegativeStock)
		}
		if n := countNulls(t, domain.ColStock); n > 0 {
			add("nan_stock", fmt.Sprintf("%d rows are missing a stock value", n), s.penalties.InventoryNaNStock)
		}
	case domain.DatasetFeedback:
		if t.HasColumn(domain.ColFeedbackID) && t.HasColumn(domain.ColTransactionID) {
			if n := anomaly.DuplicateCount(t, domain.ColFeedbackID, domain.ColTransactionID); n > 0 {
				add("repeated_feedback", fmt.Sprintf("%d rows repeat a feedback/transaction pair", n), s.penalties.FeedbackPairDuplicates)
			}
		}
		if n := countMatching(t, domain.ColCustomerAge, func(v float64) bool {
			return v < 0 || v > cleaning.MaxCustomerAge
		}); n > 0 {
			add("impossible_ages", fmt.Sprintf("%d rows carry ages outside [0,%d]", n, cleaning.MaxCustomerAge), s.penalties.FeedbackImpossibleAges)
		}
		if n := countNulls(t, domain.ColSatisfaction); n > 0 {
			add("missing_satisfaction", fmt.Sprintf("%d rows are missing a satisfaction score", n), s.penalties.FeedbackMissingSatisfaction)
		}
	case domain.DatasetTransactions:
		if n := countPhantom(t); n > 0 {
			add("phantom_skus", fmt.Sprintf("%d transactions reference products absent from inventory", n), s.penalties.TransactionsPhantom)
		}
		if n := countMatching(t, domain.ColDeliveryDays, func(v float64) bool { return v > cleaning.MaxDeliveryDays }); n > 0 {
			add("extreme_delivery", fmt.Sprintf("%d rows report deliveries beyond %d days", n, cleaning.MaxDeliveryDays), s.penalties.TransactionsExtremeDelivery)
		}
		if n := totalDateFailures(t); n > 0 {
			add("unparseable_dates", fmt.Sprintf("%d date cells could not be parsed", n), s.penalties.TransactionsBadDates)
		}
	}
	return issues
}

// summarize fills the per-column display summaries. A column is treated
// as numeric when at least half of its non-null cells coerce to a
// number; everything else is categorical.
func (s *Scorer) summarize(t *table.Table, report *domain.HealthReport) {
	if t.NumRows() == 0 {
		return
	}
	numeric := make(map[string]domain.NumericSummary)
	categorical := make(map[string]domain.CategoricalSummary)

	for _, col := range t.Columns() {
		values := t.ColumnValues(col)
		var floats []float64
		nonNull := 0
		for _, v := range values {
			if v == nil {
				continue
			}
			nonNull++
			if f, ok := table.AsFloat(v); ok {
				floats = append(floats, f)
			}
		}
		if nonNull == 0 {
			continue
		}
		if len(floats)*2 >= nonNull {
			numeric[col] = numericSummary(floats)
			continue
		}
		categorical[col] = categoricalSummary(values)
	}
	report.Numeric = numeric
	report.Categorical = categorical
}

func numericSummary(values []float64) domain.NumericSummary {
	out := domain.NumericSummary{Count: len(values)}
	if len(values) == 0 {
		return out
	}
	out.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		out.Std = stat.StdDev(values, nil)
	}
	out.Min, out.Max = values[0], values[0]
	zeros := 0
	for _, v := range values {
		if v < out.Min {
			out.Min = v
		}
		if v > out.Max {
			out.Max = v
		}
		if v == 0 {
			zeros++
		}
	}
	out.PercentZero = round2(float64(zeros) / float64(len(values)) * 100)
	return out
}

func categoricalSummary(values []any) domain.CategoricalSummary {
	counts := make(map[string]int)
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := table.AsString(v); ok {
			counts[s]++
		}
	}
	top := make([]domain.ValueCount, 0, len(counts))
	for value, count := range counts {
		top = append(top, domain.ValueCount{Value: value, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Value < top[j].Value
	})
	if len(top) > topValueCount {
		top = top[:topValueCount]
	}
	return domain.CategoricalSummary{Unique: len(counts), Top: top}
}

// dateParseFailures counts, per date-like column, the non-null cells
// that refuse to parse as dates. Columns with no failures are omitted.
func dateParseFailures(t *table.Table) map[string]int {
	out := make(map[string]int)
	for _, col := range t.Columns() {
		if !domain.IsDateColumn(col) {
			continue
		}
		n := 0
		for _, v := range t.ColumnValues(col) {
			if v == nil {
				continue
			}
			if _, ok := table.AsTime(v); !ok {
				n++
			}
		}
		if n > 0 {
			out[col] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func totalDateFailures(t *table.Table) int {
	total := 0
	for _, n := range dateParseFailures(t) {
		total += n
	}
	return total
}

// suggestions derives the display-only advice list from an otherwise
// complete report.
func suggestions(report domain.HealthReport) []string {
	var out []string
	cols := make([]string, 0, len(report.MissingPct))
	for col := range report.MissingPct {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if pct := report.MissingPct[col]; pct >= missingSuggestionPct {
			out = append(out, fmt.Sprintf("column %s is %.2f%% missing; review the source extract", col, pct))
		}
	}
	if report.Duplicates > 0 {
		out = append(out, fmt.Sprintf("%d duplicate rows detected; deduplicate the source export", report.Duplicates))
	}
	for _, col := range sortedKeys(report.DateParseFailures) {
		out = append(out, fmt.Sprintf("column %s has %d unparseable dates; check the export's date format", col, report.DateParseFailures[col]))
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func countMatching(t *table.Table, col string, match func(float64) bool) int {
	if !t.HasColumn(col) {
		return 0
	}
	n := 0
	for _, v := range t.FloatColumn(col) {
		if match(v) {
			n++
		}
	}
	return n
}

func countNulls(t *table.Table, col string) int {
	if !t.HasColumn(col) {
		return 0
	}
	n := 0
	for _, v := range t.ColumnValues(col) {
		if v == nil {
			n++
		}
	}
	return n
}

func countPhantom(t *table.Table) int {
	if !t.HasColumn(domain.ColPhantomTag) {
		return 0
	}
	n := 0
	for i := 0; i < t.NumRows(); i++ {
		if phantom, ok := t.Row(i).Bool(domain.ColPhantomTag); ok && phantom {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
