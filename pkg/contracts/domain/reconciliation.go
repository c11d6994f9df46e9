package domain

import "time"

// SKUStatus classifies a transaction after reconciliation against the
// inventory of record.
type SKUStatus string

const (
	// SKUValid means the transaction's product identifier exists in inventory.
	SKUValid SKUStatus = "VALID"
	// SKUPhantom means no inventory row carries the identifier. Set
	// membership only, no fuzzy matching.
	SKUPhantom SKUStatus = "PHANTOM"
)

// ReconciledRecord is one transaction enriched with inventory-derived
// cost data, phantom status and computed financial/risk fields.
type ReconciledRecord struct {
	TransactionID string    `json:"transaction_id"`
	SKU           string    `json:"sku_id"`
	Status        SKUStatus `json:"sku_status"`

	// Dimensions carried from the join for aggregation.
	Category   string     `json:"category,omitempty"`
	Warehouse  string     `json:"warehouse,omitempty"`
	City       string     `json:"city,omitempty"`
	SaleDate   *time.Time `json:"sale_date,omitempty"`
	LastReview *time.Time `json:"last_review,omitempty"`

	// Inputs after zero-backfill.
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	UnitCost     float64 `json:"unit_cost"`
	ShippingCost float64 `json:"shipping_cost"`
	DeliveryDays float64 `json:"delivery_days"`
	LeadTimeDays float64 `json:"lead_time_days"`
	TicketOpen   bool    `json:"ticket_open"`

	// Derived.
	Revenue         float64 `json:"revenue"`
	TotalCost       float64 `json:"total_cost"`
	Margin          float64 `json:"margin"`
	MarginPct       float64 `json:"margin_pct"`
	DeliveryGapDays float64 `json:"delivery_gap_days"`
	RiskFlag        bool    `json:"risk_flag"`
	HealthScore     float64 `json:"health_score"`
}

// StatusSummary is the per-status rollup behind the phantom visibility
// and financial impact reports.
type StatusSummary struct {
	Status       SKUStatus `json:"sku_status"`
	Transactions int       `json:"transactions"`
	Revenue      float64   `json:"revenue"`
	AvgRevenue   float64   `json:"avg_revenue"`
	SharePct     float64   `json:"share_pct"`
}

// ReconciliationSummary aggregates a reconciled set for reporting.
type ReconciliationSummary struct {
	Transactions     int             `json:"transactions"`
	PhantomCount     int             `json:"phantom_count"`
	PhantomSharePct  float64         `json:"phantom_share_pct"`
	TotalRevenue     float64         `json:"total_revenue"`
	PhantomRevenue   float64         `json:"phantom_revenue"`
	RevenueAtRiskPct float64         `json:"revenue_at_risk_pct"`
	ByStatus         []StatusSummary `json:"by_status"`
}

// WarehouseSummary surfaces warehouses operating blind: stale physical
// reviews paired with support tickets and weak satisfaction.
type WarehouseSummary struct {
	Warehouse           string  `json:"warehouse"`
	Transactions        int     `json:"transactions"`
	MeanDaysSinceReview float64 `json:"mean_days_since_review"`
	TicketRate          float64 `json:"ticket_rate"`
	MeanSatisfaction    float64 `json:"mean_satisfaction"`
}

// CategoryParadox is the per-category high-stock/low-satisfaction
// paradox: SKUs above the 75th stock percentile yet below the 25th
// satisfaction percentile.
type CategoryParadox struct {
	Category         string  `json:"category"`
	ParadoxSKUs      int     `json:"paradox_skus"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	StockP75         float64 `json:"stock_p75"`
	SatisfactionP25  float64 `json:"satisfaction_p25"`
}

// CityCorrelation ranks destination cities by the correlation between
// delivery time and satisfaction.
type CityCorrelation struct {
	City         string  `json:"city"`
	Transactions int     `json:"transactions"`
	Correlation  float64 `json:"correlation"`
}

// PartialSummary is the degraded single-dataset analysis produced when
// only one side of the reconciliation join is available.
type PartialSummary struct {
	Mode   string             `json:"mode"` // "inventory-only" or "transactions-only"
	Groups []PartialGroupStat `json:"groups"`
}

// PartialGroupStat is one group row of a PartialSummary.
type PartialGroupStat struct {
	Key      string  `json:"key"`
	Rows     int     `json:"rows"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}
