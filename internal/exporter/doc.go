// Package exporter writes the flat-file artifacts of an analysis run.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility.
//
// ReportExporter: Writes the run artifacts into a run-scoped output
// directory: the full reconciled table, the risk-SKU list, the three
// Spanish phantom-SKU summaries the operations team consumes, one
// cleaning log per dataset and the health report JSON.
//
// Example usage:
//
//	reports := exporter.NewReportExporter(paths)
//
//	// Write everything a completed run produced
//	files, err := reports.ExportAll(ctx, result, runDir)
//
//	// Or write a single artifact
//	err = reports.ExportPhantomSummary(*result.Summary, runDir)
package exporter
