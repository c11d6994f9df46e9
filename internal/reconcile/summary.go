package reconcile

import (
	"math"
	"sort"

	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// Summarize rolls a reconciled set up for reporting: totals, phantom
// share, revenue at risk and the per-status breakdown. Percentages are
// rounded to two decimals; an empty or revenue-free set reports 0%.
func Summarize(records []domain.ReconciledRecord) domain.ReconciliationSummary {
	summary := domain.ReconciliationSummary{Transactions: len(records)}

	counts := make(map[domain.SKUStatus]int)
	revenues := make(map[domain.SKUStatus]float64)
	for _, rec := range records {
		counts[rec.Status]++
		revenues[rec.Status] += rec.Revenue
		summary.TotalRevenue += rec.Revenue
	}
	summary.PhantomCount = counts[domain.SKUPhantom]
	summary.PhantomRevenue = revenues[domain.SKUPhantom]
	if summary.Transactions > 0 {
		summary.PhantomSharePct = round2(float64(summary.PhantomCount) / float64(summary.Transactions) * 100)
	}
	if summary.TotalRevenue > 0 {
		summary.RevenueAtRiskPct = round2(summary.PhantomRevenue / summary.TotalRevenue * 100)
	}

	for _, status := range []domain.SKUStatus{domain.SKUValid, domain.SKUPhantom} {
		n := counts[status]
		if n == 0 {
			continue
		}
		entry := domain.StatusSummary{
			Status:       status,
			Transactions: n,
			Revenue:      revenues[status],
			AvgRevenue:   revenues[status] / float64(n),
		}
		entry.SharePct = round2(float64(n) / float64(summary.Transactions) * 100)
		summary.ByStatus = append(summary.ByStatus, entry)
	}
	return summary
}

// InventoryOnly is the degraded analysis when transactions are absent:
// stock and valuation grouped by category.
func InventoryOnly(inventory *table.Table) domain.PartialSummary {
	summary := domain.PartialSummary{Mode: "inventory-only"}
	if inventory == nil {
		return summary
	}
	type acc struct {
		rows  int
		stock float64
		value float64
	}
	groups := make(map[string]*acc)
	for i := 0; i < inventory.NumRows(); i++ {
		row := inventory.Row(i)
		key, _ := row.String(domain.ColCategory)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.rows++
		stock, _ := row.Float(domain.ColStock)
		cost, _ := row.Float(domain.ColUnitCost)
		g.stock += stock
		g.value += stock * cost
	}
	summary.Groups = sortedGroups(groups, func(g *acc) domain.PartialGroupStat {
		return domain.PartialGroupStat{Rows: g.rows, Quantity: g.stock, Value: g.value}
	})
	return summary
}

// TransactionsOnly is the degraded analysis when inventory is absent:
// units and revenue grouped by destination city. Costs are unknowable
// without inventory, so no margin fields appear.
func TransactionsOnly(transactions *table.Table) domain.PartialSummary {
	summary := domain.PartialSummary{Mode: "transactions-only"}
	if transactions == nil {
		return summary
	}
	type acc struct {
		rows    int
		units   float64
		revenue float64
	}
	groups := make(map[string]*acc)
	for i := 0; i < transactions.NumRows(); i++ {
		row := transactions.Row(i)
		key, _ := row.String(domain.ColCity)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.rows++
		qty, _ := row.Float(domain.ColQuantity)
		price, _ := row.Float(domain.ColUnitPrice)
		g.units += qty
		g.revenue += qty * price
	}
	summary.Groups = sortedGroups(groups, func(g *acc) domain.PartialGroupStat {
		return domain.PartialGroupStat{Rows: g.rows, Quantity: g.units, Value: g.revenue}
	})
	return summary
}

// sortedGroups flattens a group map into stats ordered by key.
func sortedGroups[T any](groups map[string]*T, build func(*T) domain.PartialGroupStat) []domain.PartialGroupStat {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.PartialGroupStat, 0, len(keys))
	for _, k := range keys {
		stat := build(groups[k])
		stat.Key = k
		out = append(out, stat)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
