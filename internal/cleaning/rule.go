package cleaning

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"supplypulse/internal/anomaly"
	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Env carries the per-run facts some rules depend on: the processing
// instant (future-date checks) and the cleaned inventory key set
// (phantom tagging). Rules never reach outside Env.
type Env struct {
	// Now is the processing instant for the run.
	Now time.Time
	// InventoryKeys holds the normalized product identifiers of the
	// cleaned inventory. Nil when inventory is unavailable, which
	// skips the rules that need it.
	InventoryKeys map[string]struct{}
}

// Rule is one named cleaning operation. Apply receives the current
// table and returns its successor plus a free-text detail for the log;
// it must not mutate the input.
type Rule struct {
	Label     string
	Rationale string
	Method    string

	// Columns the rule operates on. If any is missing from the table
	// the rule is skipped. An empty list means the rule decides
	// applicability itself.
	Columns []string

	// NeedsInventory marks rules that require Env.InventoryKeys.
	NeedsInventory bool

	Apply func(env Env, t *table.Table) (*table.Table, string)
}

// applicable reports whether the rule can run against the table.
func (r Rule) applicable(env Env, t *table.Table) bool {
	if r.NeedsInventory && env.InventoryKeys == nil {
		return false
	}
	for _, col := range r.Columns {
		if !t.HasColumn(col) {
			return false
		}
	}
	return true
}

// dropRule builds a row-filter rule: rows matching reject are removed,
// rows where the predicate cannot be evaluated are kept.
func dropRule(label, rationale string, cols []string, reject func(table.Row) bool) Rule {
	return Rule{
		Label:     label,
		Rationale: rationale,
		Method:    "row filter",
		Columns:   cols,
		Apply: func(_ Env, t *table.Table) (*table.Table, string) {
			return t.Filter(func(r table.Row) bool { return !reject(r) }), ""
		},
	}
}

// mapRule builds a column-transform rule. Transforms change cells, not
// row counts.
func mapRule(label, rationale, method string, col string, f func(any) any) Rule {
	return Rule{
		Label:     label,
		Rationale: rationale,
		Method:    method,
		Columns:   []string{col},
		Apply: func(_ Env, t *table.Table) (*table.Table, string) {
			return t.MapColumn(col, f), ""
		},
	}
}

// dropDuplicates builds a keep-first exact-duplicate rule over all
// columns.
func dropDuplicates(label, rationale string) Rule {
	return Rule{
		Label:     label,
		Rationale: rationale,
		Method:    "keep-first deduplication on all columns",
		Apply: func(_ Env, t *table.Table) (*table.Table, string) {
			return dropDuplicateRows(t), ""
		},
	}
}

// dropDuplicateRows removes every row flagged by the duplicate mask,
// keeping the first occurrence of each key.
func dropDuplicateRows(t *table.Table, subset ...string) *table.Table {
	mask := anomaly.DuplicateMask(t, subset...)
	return t.Filter(func(r table.Row) bool { return !mask[r.Index()] })
}

// parseDateColumns builds the shared first rule of the inventory and
// transactions cleaners: every date-like column is parsed in place,
// with unparseable cells nulled rather than rows removed.
func parseDateColumns() Rule {
	return Rule{
		Label:     "parse date columns",
		Rationale: "downstream age and recency math needs real dates, and a bad cell must not cost the whole row",
		Method:    "per-cell date parsing, failures nulled",
		Apply: func(_ Env, t *table.Table) (*table.Table, string) {
			out := t.Clone()
			var parsed []string
			failures := 0
			for _, col := range t.Columns() {
				if !domain.IsDateColumn(col) {
					continue
				}
				parsed = append(parsed, col)
				out = out.MapColumn(col, func(v any) any {
					if v == nil {
						return nil
					}
					ts, ok := table.AsTime(v)
					if !ok {
						failures++
						return nil
					}
					return ts
				})
			}
			if len(parsed) == 0 {
				return out, "no date-like columns present"
			}
			sort.Strings(parsed)
			return out, fmt.Sprintf("columns %s parsed, %d unparseable values nulled", strings.Join(parsed, ", "), failures)
		},
	}
}

// numLT reports v < limit for coercible cells; nulls and text never match.
func numLT(r table.Row, col string, limit float64) bool {
	v, ok := r.Float(col)
	return ok && v < limit
}

// numGT reports v > limit for coercible cells; nulls and text never match.
func numGT(r table.Row, col string, limit float64) bool {
	v, ok := r.Float(col)
	return ok && v > limit
}
