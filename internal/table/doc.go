// Package table provides the dynamic in-memory table that analysis runs
// operate on. A Table is read from CSV or XLSX with header-driven type
// inference and is treated as immutable by the cleaning pipeline: every
// transform returns a new Table (copy-on-transform), so a raw table is
// never mutated after its cleaned counterpart exists.
//
// Cell values are untyped (any) and restricted to nil, string, float64,
// bool and time.Time. Missing or unparseable source cells become nil and
// stay nil until a cleaning rule decides otherwise.
package table
