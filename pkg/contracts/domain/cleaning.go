package domain

// CleaningStep is one atomic, logged row-filtering or value-correction
// operation within a dataset cleaner. Appended once per applied rule,
// in execution order, and never mutated afterwards.
type CleaningStep struct {
	Seq        int         `json:"seq"`
	Dataset    DatasetKind `json:"dataset"`
	Label      string      `json:"label"`
	RowsBefore int         `json:"rows_before"`
	RowsAfter  int         `json:"rows_after"`
	Removed    int         `json:"removed"`
	RemovedPct float64     `json:"removed_pct"`
	Rationale  string      `json:"rationale"`
	Method     string      `json:"method"`
	Detail     string      `json:"detail,omitempty"`
}
