// Package anomaly provides the reusable statistical primitives the
// dataset cleaners and the health scorer are built from: per-column
// missing fractions, keep-first duplicate detection, IQR outlier fences
// and required-column checks.
//
// Detectors never mutate their input and degrade to no-ops on
// degenerate input (an IQR over zero valid values yields no bounds)
// so no cleaning step can remove rows on the strength of a statistic
// that could not be computed.
package anomaly
