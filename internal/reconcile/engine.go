package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"supplypulse/internal/table"
	"supplypulse/pkg/contracts/domain"
)

// DeliveryGapThresholdDays flags transactions delivered later than the
// promised lead time by more than this many days.
const DeliveryGapThresholdDays = 2

// Per-transaction health penalties, charged flat and clamped to [0,100].
const (
	PenaltyPhantom        = 40
	PenaltyNegativeMargin = 30
	PenaltyDeliveryGap    = 20
	PenaltyOpenTicket     = 10
)

// inventoryFacts is the cost and dimension data one inventory row
// contributes to matching transactions.
type inventoryFacts struct {
	category   string
	warehouse  string
	unitCost   float64
	leadTime   float64
	lastReview *time.Time
}

// Engine reconciles transactions with inventory.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine. A nil logger defaults to slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With(slog.String("component", "reconcile"))}
}

// Reconcile left-joins transactions to inventory on the normalized
// product identifier and derives the financial and risk fields. Records
// come back in transaction row order. Absent numeric fields are
// backfilled with 0 so downstream arithmetic is total.
func (e *Engine) Reconcile(ctx context.Context, inventory, transactions *table.Table) []domain.ReconciledRecord {
	index := buildIndex(inventory)
	records := make([]domain.ReconciledRecord, 0, transactions.NumRows())
	phantoms := 0

	for i := 0; i < transactions.NumRows(); i++ {
		row := transactions.Row(i)
		rec := domain.ReconciledRecord{
			TransactionID: stringOrEmpty(row, domain.ColTransactionID),
			SKU:           NormalizeSKU(row.Any(domain.ColSKU)),
			Status:        domain.SKUPhantom,
			City:          stringOrEmpty(row, domain.ColCity),
			Quantity:      floatOrZero(row, domain.ColQuantity),
			UnitPrice:     floatOrZero(row, domain.ColUnitPrice),
			ShippingCost:  floatOrZero(row, domain.ColShippingCost),
			DeliveryDays:  floatOrZero(row, domain.ColDeliveryDays),
			TicketOpen:    ticketOpen(row),
		}
		if ts, ok := row.Time(domain.ColSaleDate); ok {
			rec.SaleDate = &ts
		}
		if facts, found := index[rec.SKU]; found {
			rec.Status = domain.SKUValid
			rec.Category = facts.category
			rec.Warehouse = facts.warehouse
			rec.UnitCost = facts.unitCost
			rec.LeadTimeDays = facts.leadTime
			rec.LastReview = facts.lastReview
		} else {
			phantoms++
		}

		derive(&rec)
		records = append(records, rec)
	}

	e.logger.InfoContext(ctx, "reconciliation complete",
		slog.Int("transactions", len(records)),
		slog.Int("inventory_keys", len(index)),
		slog.Int("phantoms", phantoms))
	return records
}

// derive fills the computed fields of a record in place.
func derive(rec *domain.ReconciledRecord) {
	rec.Revenue = rec.Quantity * rec.UnitPrice
	rec.TotalCost = rec.Quantity*rec.UnitCost + rec.ShippingCost
	rec.Margin = rec.Revenue - rec.TotalCost
	if rec.Revenue > 0 {
		rec.MarginPct = rec.Margin / rec.Revenue
	}
	rec.DeliveryGapDays = rec.DeliveryDays - rec.LeadTimeDays

	phantom := rec.Status == domain.SKUPhantom
	negativeMargin := rec.Margin < 0
	lateDelivery := rec.DeliveryGapDays > DeliveryGapThresholdDays
	rec.RiskFlag = phantom || negativeMargin || lateDelivery || rec.TicketOpen

	score := 100.0
	if phantom {
		score -= PenaltyPhantom
	}
	if negativeMargin {
		score -= PenaltyNegativeMargin
	}
	if lateDelivery {
		score -= PenaltyDeliveryGap
	}
	if rec.TicketOpen {
		score -= PenaltyOpenTicket
	}
	if score < 0 {
		score = 0
	}
	rec.HealthScore = score
}

// buildIndex maps normalized inventory identifiers to their facts. On a
// duplicate identifier the first row wins, keeping the join one-to-one.
func buildIndex(inventory *table.Table) map[string]inventoryFacts {
	index := make(map[string]inventoryFacts)
	if inventory == nil {
		return index
	}
	for i := 0; i < inventory.NumRows(); i++ {
		row := inventory.Row(i)
		key := NormalizeSKU(row.Any(domain.ColSKU))
		if key == "" {
			continue
		}
		if _, dup := index[key]; dup {
			continue
		}
		facts := inventoryFacts{
			category:  stringOrEmpty(row, domain.ColCategory),
			warehouse: stringOrEmpty(row, domain.ColWarehouse),
			unitCost:  floatOrZero(row, domain.ColUnitCost),
			leadTime:  floatOrZero(row, domain.ColLeadTimeDays),
		}
		if ts, ok := row.Time(domain.ColLastReviewDate); ok {
			facts.lastReview = &ts
		}
		index[key] = facts
	}
	return index
}

// InventoryKeySet returns the normalized identifier set of a cleaned
// inventory table, for phantom tagging during cleaning. Nil input
// yields nil, which downstream treats as "inventory unavailable".
func InventoryKeySet(inventory *table.Table) map[string]struct{} {
	if inventory == nil {
		return nil
	}
	keys := make(map[string]struct{}, inventory.NumRows())
	for i := 0; i < inventory.NumRows(); i++ {
		if key := NormalizeSKU(inventory.Row(i).Any(domain.ColSKU)); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// NormalizeSKU string-casts and trims a product identifier cell. Nil
// and uncastable cells normalize to "".
func NormalizeSKU(v any) string {
	s, ok := table.AsString(v)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringOrEmpty(r table.Row, col string) string {
	s, _ := r.String(col)
	return s
}

func floatOrZero(r table.Row, col string) float64 {
	f, _ := r.Float(col)
	return f
}

// ticketOpen reads the support-ticket flag, tolerating the bool, 0/1
// and text forms seen in source files.
func ticketOpen(r table.Row) bool {
	if b, ok := r.Bool(domain.ColSupportTicket); ok {
		return b
	}
	if f, ok := r.Float(domain.ColSupportTicket); ok {
		return f != 0
	}
	if s, ok := r.String(domain.ColSupportTicket); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "si", "sí", "yes", "abierto", "open":
			return true
		}
	}
	return false
}
