// Package aggregate computes the cross-entity rollups over reconciled
// records: per-warehouse blindness indicators, the per-category
// high-stock/low-satisfaction paradox, and per-city delivery versus
// satisfaction correlations. Every aggregator is a single deterministic
// pass; percentile thresholds are recomputed from the current set on
// every call.
package aggregate
