package cleaning

import (
	"fmt"
	"math"

	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Feedback cleaning thresholds. The age cutoffs are empirical limits
// carried over from the customer's data review, not re-derived.
const (
	MaxCustomerAge = 110
	MinCustomerAge = 13

	// SatisfactionScaleMax is the canonical upper bound of the
	// satisfaction score after normalization.
	SatisfactionScaleMax = 10
	// satisfactionPercentMax marks the 0-100 variant of the scale;
	// observed maxima in (10,100] are divided by 10.
	satisfactionPercentMax = 100
)

// FeedbackRules returns the ordered cleaning rules for the customer
// feedback dataset.
func FeedbackRules() []Rule {
	return []Rule{
		dropDuplicates("drop exact duplicate rows",
			"identical rows add no information and inflate volume metrics"),
		{
			Label:     "drop repeated feedback per transaction",
			Rationale: "a second comment on the same transaction supersedes the first; only the first is retained",
			Method:    "keep-first deduplication on (" + domain.ColFeedbackID + ", " + domain.ColTransactionID + ")",
			Columns:   []string{domain.ColFeedbackID, domain.ColTransactionID},
			Apply: func(_ Env, t *table.Table) (*table.Table, string) {
				return dropDuplicateRows(t, domain.ColFeedbackID, domain.ColTransactionID), ""
			},
		},
		dropRule("reject negative ages",
			"a negative age is biologically impossible and marks a corrupted record",
			[]string{domain.ColCustomerAge},
			func(r table.Row) bool { return numLT(r, domain.ColCustomerAge, 0) }),
		dropRule(fmt.Sprintf("reject ages above %d", MaxCustomerAge),
			"ages beyond the plausible human lifespan indicate entry errors",
			[]string{domain.ColCustomerAge},
			func(r table.Row) bool { return numGT(r, domain.ColCustomerAge, MaxCustomerAge) }),
		dropRule(fmt.Sprintf("reject ages below %d", MinCustomerAge),
			"customers younger than the tracked age floor are outside the survey population",
			[]string{domain.ColCustomerAge},
			func(r table.Row) bool { return numLT(r, domain.ColCustomerAge, MinCustomerAge) }),
		mapRule("normalize satisfaction sign",
			"a negative satisfaction score is data-entry noise; the magnitude carries the signal",
			"absolute value", domain.ColSatisfaction,
			func(v any) any {
				f, ok := table.AsFloat(v)
				if !ok {
					return nil
				}
				return math.Abs(f)
			}),
		{
			Label:     "rescale satisfaction to 0-10",
			Rationale: "mixed capture scales (0-10, 0-100, ad hoc) must be canonical before range checks",
			Method:    "scale detection on the observed maximum",
			Columns:   []string{domain.ColSatisfaction},
			Apply:     rescaleSatisfaction,
		},
		dropRule("reject null satisfaction",
			"a feedback row without a satisfaction score cannot enter satisfaction analytics",
			[]string{domain.ColSatisfaction},
			func(r table.Row) bool { return r.IsNull(domain.ColSatisfaction) }),
		dropRule(fmt.Sprintf("reject satisfaction outside [0,%d]", SatisfactionScaleMax),
			"scores outside the canonical scale after normalization are residual corruption",
			[]string{domain.ColSatisfaction},
			func(r table.Row) bool {
				v, ok := r.Float(domain.ColSatisfaction)
				return ok && (v < 0 || v > SatisfactionScaleMax)
			}),
	}
}

// rescaleSatisfaction detects the capture scale from the observed
// maximum: values in (10,100] are percent-style and divide by 10;
// values beyond 100 min-max rescale onto [0,10]. A degenerate spread
// (max == min) leaves the column untouched.
func rescaleSatisfaction(_ Env, t *table.Table) (*table.Table, string) {
	values := t.FloatColumn(domain.ColSatisfaction)
	if len(values) == 0 {
		return t.Clone(), "no numeric values observed"
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	switch {
	case max > satisfactionPercentMax:
		if max == min {
			return t.Clone(), fmt.Sprintf("degenerate spread (min == max == %.2f), left unscaled", max)
		}
		span := max - min
		out := t.MapColumn(domain.ColSatisfaction, func(v any) any {
			f, ok := table.AsFloat(v)
			if !ok {
				return nil
			}
			return (f - min) / span * SatisfactionScaleMax
		})
		return out, fmt.Sprintf("min-max rescaled from [%.2f, %.2f]", min, max)
	case max > SatisfactionScaleMax:
		out := t.MapColumn(domain.ColSatisfaction, func(v any) any {
			f, ok := table.AsFloat(v)
			if !ok {
				return nil
			}
			return f / 10
		})
		return out, fmt.Sprintf("0-100 scale detected (max %.2f), divided by 10", max)
	default:
		return t.Clone(), fmt.Sprintf("already on canonical scale (max %.2f)", max)
	}
}
