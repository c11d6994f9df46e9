// Package cleaning implements the deterministic multi-stage cleaning
// pipelines for the three source datasets. Cleaning rules are data: an
// ordered list of named, predicate-based row filters and column
// transforms per dataset kind, executed strictly in order so later
// rules observe the output of earlier ones.
//
// Every applied rule appends exactly one immutable step record to the
// run's cleaning log with before/after row counts, rationale and
// method, so each removed row is traceable to exactly one logged
// decision. A rule whose columns are absent from the table is skipped,
// never fatal; type-coercion failures null the offending cell instead
// of raising.
package cleaning
