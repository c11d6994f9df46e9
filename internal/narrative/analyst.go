package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// systemPrompt frames the provider's role. The warehouse table is the
// only run data that crosses the wire.
const systemPrompt = "You are a supply-chain data analyst. You receive a " +
	"per-warehouse operational summary produced by a reconciliation run " +
	"and answer the user's question about it in clear business prose. " +
	"Base every statement strictly on the table provided."

// Completer is the provider-facing surface the Analyst needs. Client
// implements it; tests substitute their own.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Enabled() bool
}

// Analyst grounds narrative requests on a run result and delegates the
// wording to the completion provider.
type Analyst struct {
	completer Completer
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
}

// NewAnalyst wires an analyst to a completion provider.
func NewAnalyst(completer Completer, logger *slog.Logger) *Analyst {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Analyst{
		completer: completer,
		logger:    infrastructure.WithComponent(logger, "narrative.analyst"),
	}
}

// SetMetrics attaches business metrics. Optional; recording helpers
// tolerate nil.
func (a *Analyst) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	a.metrics = metrics
}

// Enabled reports whether narratives can be produced at all.
func (a *Analyst) Enabled() bool {
	return a.completer != nil && a.completer.Enabled()
}

// Narrate answers prompt against the run's warehouse summary. The
// result tables are read, never modified; provider failures come back
// as errors carrying the narrative sentinels.
func (a *Analyst) Narrate(ctx context.Context, result *domain.RunResult, prompt string) (string, error) {
	var warehouses []domain.WarehouseSummary
	if result != nil {
		warehouses = result.Warehouses
	}

	user := SerializeWarehouses(warehouses) + "\n\nQuestion: " + prompt

	infrastructure.AddSpanEvent(ctx, "narrative.requested", map[string]interface{}{
		"warehouses": len(warehouses),
		"prompt_len": len(prompt),
	})

	start := time.Now()
	text, err := a.completer.Complete(ctx, systemPrompt, user)
	infrastructure.RecordNarrativeMetrics(ctx, a.metrics, time.Since(start), err == nil)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return "", err
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"narrative.response_chars": len(text),
	})
	a.logger.InfoContext(ctx, "narrative produced",
		slog.Int("warehouses", len(warehouses)),
		slog.Int("prompt_len", len(prompt)))
	return text, nil
}

// SerializeWarehouses renders the warehouse summary as a plain-text
// table, one row per warehouse in the order aggregation produced.
func SerializeWarehouses(warehouses []domain.WarehouseSummary) string {
	var b strings.Builder
	b.WriteString("Warehouse operational summary\n")
	b.WriteString("warehouse | transactions | mean_days_since_review | ticket_rate | mean_satisfaction\n")
	if len(warehouses) == 0 {
		b.WriteString("(no warehouse rows; reconciliation produced no matched transactions)\n")
		return b.String()
	}
	for _, w := range warehouses {
		fmt.Fprintf(&b, "%s | %d | %.1f | %.2f | %.2f\n",
			w.Warehouse, w.Transactions, w.MeanDaysSinceReview, w.TicketRate, w.MeanSatisfaction)
	}
	return b.String()
}
