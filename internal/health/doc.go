// Package health scores dataset quality. The scorer walks one table,
// charges penalties for missing data, duplicates and dataset-specific
// anomalies, and emits a HealthReport with the clamped 0-100 score,
// display summaries and suggestions. Summaries and suggestions never
// feed back into the score.
package health
