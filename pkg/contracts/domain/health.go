package domain

// HealthStatus is the structural verdict of a health check.
type HealthStatus string

const (
	HealthOK      HealthStatus = "OK"
	HealthInvalid HealthStatus = "INVALID"
)

// NumericSummary describes one numeric column for display purposes.
// Summaries never affect the health score or control flow.
type NumericSummary struct {
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	PercentZero float64 `json:"percent_zero"`
}

// CategoricalSummary describes one text column for display purposes.
type CategoricalSummary struct {
	Unique int          `json:"unique"`
	Top    []ValueCount `json:"top"`
}

// ValueCount is one categorical value with its occurrence count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Issue is one dataset-specific anomaly found during scoring, with the
// penalty it contributed.
type Issue struct {
	Code    string  `json:"code"`
	Detail  string  `json:"detail"`
	Penalty float64 `json:"penalty"`
}

// HealthReport is the composite data-quality report for one dataset
// within a run. Read-only after creation.
type HealthReport struct {
	Dataset           DatasetKind                   `json:"dataset"`
	Rows              int                           `json:"rows"`
	Columns           int                           `json:"columns"`
	MissingPct        map[string]float64            `json:"missing_pct"`
	Duplicates        int                           `json:"duplicates"`
	Numeric           map[string]NumericSummary     `json:"numeric,omitempty"`
	Categorical       map[string]CategoricalSummary `json:"categorical,omitempty"`
	DateParseFailures map[string]int                `json:"date_parse_failures,omitempty"`
	MissingRequired   []string                      `json:"missing_required_cols,omitempty"`
	Issues            []Issue                       `json:"issues,omitempty"`
	Suggestions       []string                      `json:"suggestions,omitempty"`
	HealthScore       float64                       `json:"health_score"`
	Status            HealthStatus                  `json:"status"`
}
