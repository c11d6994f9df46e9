package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"supplypulse/internal/config"
	"supplypulse/internal/infrastructure"
	"supplypulse/pkg/contracts/domain"
)

// Export artifact filenames. The Spanish names are the report names the
// customer's operations team already consumes and must not change.
const (
	FileReconciled       = "sku_reconciliation.csv"
	FilePhantomSummary   = "resumen_sku_fantasma.csv"
	FileFinancialImpact  = "impacto_financiero_sku_fantasma.csv"
	FileExecutiveSummary = "resumen_ejecutivo_sku_fantasma.csv"
	FileRiskSKUs         = "skus_en_riesgo.csv"
	FileHealthReport     = "health_report.json"
)

// CleaningLogFile returns the cleaning log filename for a dataset.
func CleaningLogFile(kind domain.DatasetKind) string {
	return fmt.Sprintf("cleaning_log_%s.csv", kind)
}

// ReportExporter writes the flat-file artifacts of a completed run.
type ReportExporter struct {
	csvWriter *CSVWriter
}

// NewReportExporter creates a new report exporter
func NewReportExporter(paths *config.Paths) *ReportExporter {
	return &ReportExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportAll writes every artifact the run result carries into outputDir
// and returns the filenames written, in order.
func (e *ReportExporter) ExportAll(ctx context.Context, result *domain.RunResult, outputDir string) ([]string, error) {
	logger := infrastructure.LoggerWithContext(ctx)

	var written []string

	if len(result.Reconciled) > 0 {
		if err := e.ExportReconciled(result.Reconciled, outputDir); err != nil {
			return written, err
		}
		written = append(written, FileReconciled)

		if err := e.ExportRiskSKUs(result.Reconciled, outputDir); err != nil {
			return written, err
		}
		written = append(written, FileRiskSKUs)
	}

	if result.Summary != nil {
		if err := e.ExportPhantomSummary(*result.Summary, outputDir); err != nil {
			return written, err
		}
		written = append(written, FilePhantomSummary)

		if err := e.ExportFinancialImpact(*result.Summary, outputDir); err != nil {
			return written, err
		}
		written = append(written, FileFinancialImpact)

		if err := e.ExportExecutiveSummary(*result.Summary, outputDir); err != nil {
			return written, err
		}
		written = append(written, FileExecutiveSummary)
	}

	for _, kind := range domain.AllDatasetKinds {
		steps, ok := result.CleaningLogs[kind]
		if !ok || len(steps) == 0 {
			continue
		}
		if err := e.ExportCleaningLog(kind, steps, outputDir); err != nil {
			return written, err
		}
		written = append(written, CleaningLogFile(kind))
	}

	if len(result.Health) > 0 {
		if err := e.ExportHealthReports(result.Health, outputDir); err != nil {
			return written, err
		}
		written = append(written, FileHealthReport)
	}

	logger.InfoContext(ctx, "run artifacts exported",
		"output_dir", outputDir,
		"files", len(written))
	return written, nil
}

// ExportReconciled streams the full reconciled table in source row order.
func (e *ReportExporter) ExportReconciled(records []domain.ReconciledRecord, outputDir string) error {
	filePath := filepath.Join(outputDir, FileReconciled)

	stream, err := e.csvWriter.CreateStreamWriter(filePath, reconciledHeaders())
	if err != nil {
		return fmt.Errorf("failed to create stream writer for reconciled table: %w", err)
	}

	for _, record := range records {
		if err := stream.WriteRecord(reconciledRow(record)); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write reconciled record: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close reconciled table: %w", err)
	}
	return nil
}

// ExportRiskSKUs writes the risk-flagged subset, most damaged first.
func (e *ReportExporter) ExportRiskSKUs(records []domain.ReconciledRecord, outputDir string) error {
	var flagged []domain.ReconciledRecord
	for _, record := range records {
		if record.RiskFlag {
			flagged = append(flagged, record)
		}
	}

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].HealthScore != flagged[j].HealthScore {
			return flagged[i].HealthScore < flagged[j].HealthScore
		}
		return flagged[i].TransactionID < flagged[j].TransactionID
	})

	var csvRecords [][]string
	for _, record := range flagged {
		csvRecords = append(csvRecords, reconciledRow(record))
	}

	filePath := filepath.Join(outputDir, FileRiskSKUs)
	if err := e.csvWriter.WriteSimpleCSV(filePath, reconciledHeaders(), csvRecords); err != nil {
		return fmt.Errorf("failed to write risk SKU list: %w", err)
	}
	return nil
}

// ExportPhantomSummary writes the status count report. Headers match the
// legacy report verbatim.
func (e *ReportExporter) ExportPhantomSummary(summary domain.ReconciliationSummary, outputDir string) error {
	var csvRecords [][]string
	for _, s := range summary.ByStatus {
		csvRecords = append(csvRecords, []string{
			string(s.Status),
			formatInt(int64(s.Transactions)),
		})
	}

	filePath := filepath.Join(outputDir, FilePhantomSummary)
	if err := e.csvWriter.WriteSimpleCSV(filePath, []string{"Estado SKU", "Cantidad"}, csvRecords); err != nil {
		return fmt.Errorf("failed to write phantom summary: %w", err)
	}
	return nil
}

// ExportFinancialImpact writes revenue by SKU status.
func (e *ReportExporter) ExportFinancialImpact(summary domain.ReconciliationSummary, outputDir string) error {
	var csvRecords [][]string
	for _, s := range summary.ByStatus {
		csvRecords = append(csvRecords, []string{
			string(s.Status),
			formatFloat(s.Revenue),
		})
	}

	filePath := filepath.Join(outputDir, FileFinancialImpact)
	if err := e.csvWriter.WriteSimpleCSV(filePath, []string{"sku_status", "ingreso"}, csvRecords); err != nil {
		return fmt.Errorf("failed to write financial impact: %w", err)
	}
	return nil
}

// ExportExecutiveSummary writes the per-status transaction and revenue
// rollup.
func (e *ReportExporter) ExportExecutiveSummary(summary domain.ReconciliationSummary, outputDir string) error {
	var csvRecords [][]string
	for _, s := range summary.ByStatus {
		csvRecords = append(csvRecords, []string{
			string(s.Status),
			formatInt(int64(s.Transactions)),
			formatFloat(s.Revenue),
			formatFloat(s.AvgRevenue),
		})
	}

	filePath := filepath.Join(outputDir, FileExecutiveSummary)
	headers := []string{"sku_status", "transacciones", "ingreso_total", "ingreso_promedio"}
	if err := e.csvWriter.WriteSimpleCSV(filePath, headers, csvRecords); err != nil {
		return fmt.Errorf("failed to write executive summary: %w", err)
	}
	return nil
}

// ExportCleaningLog writes one dataset's cleaning log in execution order.
func (e *ReportExporter) ExportCleaningLog(kind domain.DatasetKind, steps []domain.CleaningStep, outputDir string) error {
	headers := []string{
		"seq", "dataset", "step", "method", "rows_before", "rows_after",
		"removed", "removed_pct", "rationale", "detail",
	}

	var csvRecords [][]string
	for _, s := range steps {
		csvRecords = append(csvRecords, []string{
			formatInt(int64(s.Seq)),
			string(s.Dataset),
			s.Label,
			s.Method,
			formatInt(int64(s.RowsBefore)),
			formatInt(int64(s.RowsAfter)),
			formatInt(int64(s.Removed)),
			formatFloat(s.RemovedPct),
			s.Rationale,
			s.Detail,
		})
	}

	filePath := filepath.Join(outputDir, CleaningLogFile(kind))
	if err := e.csvWriter.WriteSimpleCSV(filePath, headers, csvRecords); err != nil {
		return fmt.Errorf("failed to write cleaning log for %s: %w", kind, err)
	}
	return nil
}

// ExportHealthReports writes every dataset health report to a single
// JSON document keyed by dataset kind.
func (e *ReportExporter) ExportHealthReports(reports map[domain.DatasetKind]*domain.HealthReport, outputDir string) error {
	fullPath := e.csvWriter.resolvePath(filepath.Join(outputDir, FileHealthReport))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal health reports: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write health reports: %w", err)
	}
	return nil
}

// reconciledHeaders returns the fixed column order of the reconciled
// table. Source columns keep the customer's headers; derived fields use
// the English names the rest of the system reports.
func reconciledHeaders() []string {
	return []string{
		domain.ColTransactionID,
		domain.ColSKU,
		"sku_status",
		domain.ColCategory,
		domain.ColWarehouse,
		domain.ColCity,
		domain.ColSaleDate,
		domain.ColLastReviewDate,
		domain.ColQuantity,
		domain.ColUnitPrice,
		domain.ColUnitCost,
		domain.ColShippingCost,
		domain.ColDeliveryDays,
		domain.ColLeadTimeDays,
		domain.ColSupportTicket,
		"revenue",
		"total_cost",
		"margin",
		"margin_pct",
		"delivery_gap_days",
		"risk_flag",
		"health_score",
	}
}

// reconciledRow converts a reconciled record to a CSV row
func reconciledRow(record domain.ReconciledRecord) []string {
	return []string{
		record.TransactionID,
		record.SKU,
		string(record.Status),
		record.Category,
		record.Warehouse,
		record.City,
		formatDate(record.SaleDate),
		formatDate(record.LastReview),
		formatFloat(record.Quantity),
		formatFloat(record.UnitPrice),
		formatFloat(record.UnitCost),
		formatFloat(record.ShippingCost),
		formatFloat(record.DeliveryDays),
		formatFloat(record.LeadTimeDays),
		formatBool(record.TicketOpen),
		formatFloat(record.Revenue),
		formatFloat(record.TotalCost),
		formatFloat(record.Margin),
		formatFloat(record.MarginPct),
		formatFloat(record.DeliveryGapDays),
		formatBool(record.RiskFlag),
		formatFloat(record.HealthScore),
	}
}
