package aggregate

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"supplypulse/internal/anomaly"
	"supplypulse/internal/reconcile"
	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// minCorrelationPoints is the smallest city sample a correlation is
// reported for.
const minCorrelationPoints = 2

// Aggregator builds the cross-entity summaries.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger defaults to
// slog.Default().
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "aggregate"))}
}

// Warehouses surfaces warehouses operating blind: per warehouse, the
// mean days since the last physical review, the open-ticket rate, the
// mean satisfaction of joined feedback and the transaction count.
// Records without a warehouse (phantoms) are left out. Results are
// ordered by warehouse.
func (a *Aggregator) Warehouses(ctx context.Context, records []domain.ReconciledRecord, feedback *table.Table, now time.Time) []domain.WarehouseSummary {
	satisfaction := satisfactionByTransaction(feedback)

	type acc struct {
		transactions int
		tickets      int
		reviewDays   float64
		reviewN      int
		satisfaction float64
		satN         int
	}
	groups := make(map[string]*acc)
	for _, rec := range records {
		if rec.Warehouse == "" {
			continue
		}
		g, ok := groups[rec.Warehouse]
		if !ok {
			g = &acc{}
			groups[rec.Warehouse] = g
		}
		g.transactions++
		if rec.TicketOpen {
			g.tickets++
		}
		if rec.LastReview != nil {
			g.reviewDays += now.Sub(*rec.LastReview).Hours() / 24
			g.reviewN++
		}
		if sat, ok := satisfaction[rec.TransactionID]; ok {
			g.satisfaction += sat
			g.satN++
		}
	}

	keys := sortedKeys(groups)
	out := make([]domain.WarehouseSummary, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		summary := domain.WarehouseSummary{
			Warehouse:    key,
			Transactions: g.transactions,
			TicketRate:   float64(g.tickets) / float64(g.transactions),
		}
		if g.reviewN > 0 {
			summary.MeanDaysSinceReview = g.reviewDays / float64(g.reviewN)
		}
		if g.satN > 0 {
			summary.MeanSatisfaction = g.satisfaction / float64(g.satN)
		}
		out = append(out, summary)
	}

	a.logger.DebugContext(ctx, "warehouse summary built", slog.Int("warehouses", len(out)))
	return out
}

// CategoryParadoxes finds, per category, the SKUs sitting above the
// 75th stock percentile while below the 25th satisfaction percentile.
// Both thresholds come fresh from the SKUs observable in this record
// set. Categories without paradox SKUs are omitted; results are ordered
// by category.
func (a *Aggregator) CategoryParadoxes(ctx context.Context, records []domain.ReconciledRecord, inventory, feedback *table.Table) []domain.CategoryParadox {
	stocks := stockBySKU(inventory)
	satisfaction := satisfactionByTransaction(feedback)

	// Per-SKU view: stock, mean satisfaction and category, restricted
	// to SKUs with both signals.
	type skuView struct {
		category string
		stock    float64
		sat      float64
	}
	satSum := make(map[string]float64)
	satN := make(map[string]int)
	category := make(map[string]string)
	for _, rec := range records {
		sat, ok := satisfaction[rec.TransactionID]
		if !ok {
			continue
		}
		satSum[rec.SKU] += sat
		satN[rec.SKU]++
		if rec.Category != "" {
			category[rec.SKU] = rec.Category
		}
	}
	var views []skuView
	var stockVals, satVals []float64
	for sku, n := range satN {
		stock, ok := stocks[sku]
		if !ok {
			continue
		}
		v := skuView{category: category[sku], stock: stock, sat: satSum[sku] / float64(n)}
		views = append(views, v)
		stockVals = append(stockVals, v.stock)
		satVals = append(satVals, v.sat)
	}
	if len(views) == 0 {
		return nil
	}

	stockBounds, _ := anomaly.IQRBounds(stockVals)
	satBounds, _ := anomaly.IQRBounds(satVals)
	stockP75 := stockBounds.Q3
	satP25 := satBounds.Q1

	type acc struct {
		count int
		sat   float64
	}
	groups := make(map[string]*acc)
	for _, v := range views {
		if v.stock <= stockP75 || v.sat >= satP25 {
			continue
		}
		g, ok := groups[v.category]
		if !ok {
			g = &acc{}
			groups[v.category] = g
		}
		g.count++
		g.sat += v.sat
	}

	keys := sortedKeys(groups)
	out := make([]domain.CategoryParadox, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		out = append(out, domain.CategoryParadox{
			Category:         key,
			ParadoxSKUs:      g.count,
			MeanSatisfaction: g.sat / float64(g.count),
			StockP75:         stockP75,
			SatisfactionP25:  satP25,
		})
	}

	a.logger.DebugContext(ctx, "category paradox built",
		slog.Int("categories", len(out)),
		slog.Float64("stock_p75", stockP75),
		slog.Float64("satisfaction_p25", satP25))
	return out
}

// CityCorrelations ranks destination cities by the Pearson correlation
// between delivery time and joined satisfaction, most negative first
// (delivery dragging satisfaction down hardest). Cities with fewer than
// two joined points, or with a degenerate spread on either side, are
// omitted. Ties order by city.
func (a *Aggregator) CityCorrelations(ctx context.Context, records []domain.ReconciledRecord, feedback *table.Table) []domain.CityCorrelation {
	satisfaction := satisfactionByTransaction(feedback)

	type pair struct{ delivery, sat []float64 }
	groups := make(map[string]*pair)
	for _, rec := range records {
		if rec.City == "" {
			continue
		}
		sat, ok := satisfaction[rec.TransactionID]
		if !ok {
			continue
		}
		g, found := groups[rec.City]
		if !found {
			g = &pair{}
			groups[rec.City] = g
		}
		g.delivery = append(g.delivery, rec.DeliveryDays)
		g.sat = append(g.sat, sat)
	}

	out := make([]domain.CityCorrelation, 0, len(groups))
	for city, g := range groups {
		if len(g.delivery) < minCorrelationPoints {
			continue
		}
		r := stat.Correlation(g.delivery, g.sat, nil)
		if math.IsNaN(r) {
			continue
		}
		out = append(out, domain.CityCorrelation{
			City:         city,
			Transactions: len(g.delivery),
			Correlation:  r,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Correlation != out[j].Correlation {
			return out[i].Correlation < out[j].Correlation
		}
		return out[i].City < out[j].City
	})

	a.logger.DebugContext(ctx, "city correlations built", slog.Int("cities", len(out)))
	return out
}

// satisfactionByTransaction maps normalized transaction identifiers to
// the mean satisfaction of their feedback rows. A nil table yields an
// empty map, which downgrades satisfaction-dependent metrics to zero
// values rather than failing.
func satisfactionByTransaction(feedback *table.Table) map[string]float64 {
	out := make(map[string]float64)
	if feedback == nil || !feedback.HasColumn(domain.ColTransactionID) || !feedback.HasColumn(domain.ColSatisfaction) {
		return out
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := 0; i < feedback.NumRows(); i++ {
		row := feedback.Row(i)
		id, ok := row.String(domain.ColTransactionID)
		if !ok {
			continue
		}
		sat, ok := row.Float(domain.ColSatisfaction)
		if !ok {
			continue
		}
		sums[id] += sat
		counts[id]++
	}
	for id, n := range counts {
		out[id] = sums[id] / float64(n)
	}
	return out
}

// stockBySKU maps normalized inventory identifiers to stock, first row
// wins on duplicates. Identifiers normalize the same way the join does.
func stockBySKU(inventory *table.Table) map[string]float64 {
	out := make(map[string]float64)
	if inventory == nil {
		return out
	}
	for i := 0; i < inventory.NumRows(); i++ {
		row := inventory.Row(i)
		sku := reconcile.NormalizeSKU(row.Any(domain.ColSKU))
		if sku == "" {
			continue
		}
		if _, dup := out[sku]; dup {
			continue
		}
		if stock, ok := row.Float(domain.ColStock); ok {
			out[sku] = stock
		}
	}
	return out
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
