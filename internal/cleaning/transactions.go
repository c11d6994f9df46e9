package cleaning

import (
	"fmt"
	"strings"

	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Transactions cleaning thresholds.
const (
	// MaxDeliveryDays caps plausible delivery times; beyond it the row
	// is an outlier regardless of any statistical fence.
	MaxDeliveryDays = 999
	// PhantomDeliveryLimitDays is the joint cutoff for rows that are
	// both phantom-tagged and slow.
	PhantomDeliveryLimitDays = 120
	// ReturnDeliveryLimitDays is the joint cutoff for negative-quantity
	// rows with long delivery times.
	ReturnDeliveryLimitDays = 100
)

// TransactionsRules returns the ordered cleaning rules for the
// logistics transactions dataset.
func TransactionsRules() []Rule {
	return []Rule{
		parseDateColumns(),
		{
			Label:          "tag phantom product identifiers",
			Rationale:      "transactions naming products the inventory never recorded must stay visible, not vanish",
			Method:         "membership test against the cleaned inventory key set",
			Columns:        []string{domain.ColSKU},
			NeedsInventory: true,
			Apply:          tagPhantoms,
		},
		dropRule("drop unidentifiable products",
			"without a product identifier the row cannot join anything downstream",
			[]string{domain.ColSKU},
			func(r table.Row) bool {
				s, ok := r.String(domain.ColSKU)
				return !ok || strings.TrimSpace(s) == ""
			}),
		dropRule(fmt.Sprintf("reject delivery times beyond %d days", MaxDeliveryDays),
			"multi-year deliveries are sentinel values or corruption, implausible on their face",
			[]string{domain.ColDeliveryDays},
			func(r table.Row) bool { return numGT(r, domain.ColDeliveryDays, MaxDeliveryDays) }),
		dropRule(fmt.Sprintf("drop phantom rows slower than %d days", PhantomDeliveryLimitDays),
			"an unrecorded product that also took months to arrive reads as fraud or compound error",
			[]string{domain.ColPhantomTag, domain.ColDeliveryDays},
			func(r table.Row) bool {
				phantom, ok := r.Bool(domain.ColPhantomTag)
				return ok && phantom && numGT(r, domain.ColDeliveryDays, PhantomDeliveryLimitDays)
			}),
		dropRule("drop negative quantities without shipping cost",
			"a negative quantity with no shipping cost cannot be told apart from a broken return record",
			[]string{domain.ColQuantity, domain.ColShippingCost},
			func(r table.Row) bool {
				return numLT(r, domain.ColQuantity, 0) && r.IsNull(domain.ColShippingCost)
			}),
		dropRule(fmt.Sprintf("drop negative quantities delivered after %d days", ReturnDeliveryLimitDays),
			"a return that took months to deliver is logically inconsistent",
			[]string{domain.ColQuantity, domain.ColDeliveryDays},
			func(r table.Row) bool {
				return numLT(r, domain.ColQuantity, 0) && numGT(r, domain.ColDeliveryDays, ReturnDeliveryLimitDays)
			}),
		dropRule("drop residual negative quantities",
			"negative quantities that survived the joint checks still cannot be priced",
			[]string{domain.ColQuantity},
			func(r table.Row) bool { return numLT(r, domain.ColQuantity, 0) }),
		{
			Label:     "reject future sale dates",
			Rationale: "a sale recorded after the processing instant has not happened",
			Method:    "comparison against the processing instant",
			Columns:   []string{domain.ColSaleDate},
			Apply: func(env Env, t *table.Table) (*table.Table, string) {
				out := t.Filter(func(r table.Row) bool {
					ts, ok := r.Time(domain.ColSaleDate)
					if !ok {
						return true
					}
					return !ts.After(env.Now)
				})
				return out, ""
			},
		},
	}
}

// tagPhantoms appends (or recomputes) the phantom flag column: true
// when the trimmed identifier is absent from the inventory key set.
// Blank identifiers are tagged phantom; the drop that follows removes
// them anyway.
func tagPhantoms(env Env, t *table.Table) (*table.Table, string) {
	tagged := 0
	flag := func(r table.Row) any {
		s, ok := r.String(domain.ColSKU)
		key := strings.TrimSpace(s)
		if !ok || key == "" {
			tagged++
			return true
		}
		if _, found := env.InventoryKeys[key]; found {
			return false
		}
		tagged++
		return true
	}

	if t.HasColumn(domain.ColPhantomTag) {
		out := t.MapRows(domain.ColPhantomTag, func(r table.Row, _ any) any { return flag(r) })
		return out, fmt.Sprintf("%d tagged", tagged)
	}

	flags := make([]any, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		flags[i] = flag(t.Row(i))
	}
	out, err := t.WithColumn(domain.ColPhantomTag, flags)
	if err != nil {
		return t.Clone(), "tagging skipped: " + err.Error()
	}
	return out, fmt.Sprintf("%d tagged", tagged)
}
