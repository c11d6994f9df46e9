package cleaning

import (
	"fmt"

	"supplypulse/internal/anomaly"
	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Inventory cleaning thresholds.
const (
	MinLeadTimeDays = 0
	MaxLeadTimeDays = 365
)

// InventoryRules returns the ordered cleaning rules for the central
// inventory dataset.
func InventoryRules() []Rule {
	return []Rule{
		parseDateColumns(),
		{
			Label:     fmt.Sprintf("bound lead time to [%d,%d] days", MinLeadTimeDays, MaxLeadTimeDays),
			Rationale: "replenishment promises beyond a year or below zero are contract noise, not planning input",
			Method:    "numeric coercion, then range filter",
			Columns:   []string{domain.ColLeadTimeDays},
			Apply: func(_ Env, t *table.Table) (*table.Table, string) {
				coerced := t.MapColumn(domain.ColLeadTimeDays, func(v any) any {
					if v == nil {
						return nil
					}
					f, ok := table.AsFloat(v)
					if !ok {
						return nil
					}
					return f
				})
				out := coerced.Filter(func(r table.Row) bool {
					v, ok := r.Float(domain.ColLeadTimeDays)
					if !ok {
						return true
					}
					return v >= MinLeadTimeDays && v <= MaxLeadTimeDays
				})
				return out, ""
			},
		},
		dropRule("reject non-positive unit costs",
			"a zero or negative cost cannot price a real product and poisons margin math",
			[]string{domain.ColUnitCost},
			func(r table.Row) bool {
				v, ok := r.Float(domain.ColUnitCost)
				return ok && v <= 0
			}),
		{
			Label:     "reject unit-cost outliers",
			Rationale: "costs far outside the surviving distribution are decimal-shift or currency errors",
			Method:    "IQR fences over remaining valid costs",
			Columns:   []string{domain.ColUnitCost},
			Apply: func(_ Env, t *table.Table) (*table.Table, string) {
				bounds, ok := anomaly.IQRBounds(t.FloatColumn(domain.ColUnitCost))
				if !ok {
					return t.Clone(), "no valid costs, fences unavailable"
				}
				out := t.Filter(func(r table.Row) bool {
					v, ok := r.Float(domain.ColUnitCost)
					if !ok {
						return true
					}
					return bounds.Contains(v)
				})
				return out, fmt.Sprintf("fences [%.2f, %.2f]", bounds.Lower, bounds.Upper)
			},
		},
		dropRule("drop negative stock without lead time",
			"negative stock with no lead-time signal leaves nothing to anchor a correction",
			[]string{domain.ColStock, domain.ColLeadTimeDays},
			func(r table.Row) bool {
				return numLT(r, domain.ColStock, 0) && r.IsNull(domain.ColLeadTimeDays)
			}),
		{
			Label:     "impute negative stock from category medians",
			Rationale: "negative stock alongside a live replenishment promise reads as a miscount worth correcting",
			Method:    "median of non-negative stock, cost-gated per category",
			Columns:   []string{domain.ColStock},
			Apply:     imputeNegativeStock,
		},
		dropRule("drop residual negative stock",
			"rows no median could correct stay unexplained accounting gaps",
			[]string{domain.ColStock},
			func(r table.Row) bool { return numLT(r, domain.ColStock, 0) }),
	}
}

// imputeNegativeStock replaces negative stock values with the median of
// non-negative stock. With a category column present the median is
// computed per category and the row's unit cost must sit inside that
// category's cost interquartile range to qualify; without one a single
// global median applies and the gate is skipped. Ineligible rows keep
// their negative stock for the residual drop that follows.
func imputeNegativeStock(_ Env, t *table.Table) (*table.Table, string) {
	byCategory := t.HasColumn(domain.ColCategory)
	gateOnCost := t.HasColumn(domain.ColUnitCost)

	stocks := make(map[string][]float64)
	costs := make(map[string][]float64)
	for i := 0; i < t.NumRows(); i++ {
		r := t.Row(i)
		key := ""
		if byCategory {
			key, _ = r.String(domain.ColCategory)
		}
		if v, ok := r.Float(domain.ColStock); ok && v >= 0 {
			stocks[key] = append(stocks[key], v)
		}
		if gateOnCost {
			if c, ok := r.Float(domain.ColUnitCost); ok {
				costs[key] = append(costs[key], c)
			}
		}
	}

	medians := make(map[string]float64, len(stocks))
	for key, vals := range stocks {
		if m, ok := anomaly.Median(vals); ok {
			medians[key] = m
		}
	}
	gates := make(map[string]anomaly.Bounds, len(costs))
	for key, vals := range costs {
		if b, ok := anomaly.IQRBounds(vals); ok {
			gates[key] = b
		}
	}

	imputed := 0
	out := t.MapRows(domain.ColStock, func(r table.Row, cell any) any {
		v, ok := table.AsFloat(cell)
		if !ok || v >= 0 {
			return cell
		}
		if t.HasColumn(domain.ColLeadTimeDays) && r.IsNull(domain.ColLeadTimeDays) {
			return cell
		}
		key := ""
		if byCategory {
			key, _ = r.String(domain.ColCategory)
		}
		median, ok := medians[key]
		if !ok {
			return cell
		}
		if gateOnCost {
			bounds, ok := gates[key]
			if !ok {
				return cell
			}
			cost, ok := r.Float(domain.ColUnitCost)
			if !ok || cost < bounds.Q1 || cost > bounds.Q3 {
				return cell
			}
		}
		imputed++
		return median
	})
	return out, fmt.Sprintf("%d imputed", imputed)
}
