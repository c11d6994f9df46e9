package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"supplypulse/internal/table"
)

// MissingFraction returns the percentage of null cells per column,
// rounded to two decimals. An empty table reports 0 for every column.
func MissingFraction(t *table.Table) map[string]float64 {
	out := make(map[string]float64, t.NumCols())
	rows := t.NumRows()
	for _, col := range t.Columns() {
		if rows == 0 {
			out[col] = 0
			continue
		}
		nulls := 0
		for _, v := range t.ColumnValues(col) {
			if v == nil {
				nulls++
			}
		}
		out[col] = round2(float64(nulls) / float64(rows) * 100)
	}
	return out
}

// DuplicateMask marks every row that repeats an earlier row, compared
// on subset (all columns when subset is empty). The first occurrence is
// never marked, matching keep-first semantics. Subset columns absent
// from the table are ignored; if none remain, no row is a duplicate.
func DuplicateMask(t *table.Table, subset ...string) []bool {
	cols := subset
	if len(cols) == 0 {
		cols = t.Columns()
	} else {
		present := cols[:0]
		for _, c := range cols {
			if t.HasColumn(c) {
				present = append(present, c)
			}
		}
		cols = present
	}

	mask := make([]bool, t.NumRows())
	if len(cols) == 0 {
		return mask
	}

	seen := make(map[string]struct{}, t.NumRows())
	var b strings.Builder
	for i := 0; i < t.NumRows(); i++ {
		b.Reset()
		row := t.Row(i)
		for _, c := range cols {
			fmt.Fprintf(&b, "%v\x1f", row.Any(c))
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			mask[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return mask
}

// DuplicateCount counts rows equal to an earlier row on subset (all
// columns when subset is empty).
func DuplicateCount(t *table.Table, subset ...string) int {
	n := 0
	for _, dup := range DuplicateMask(t, subset...) {
		if dup {
			n++
		}
	}
	return n
}

// Bounds is the classical IQR outlier fence [Q1-1.5·IQR, Q3+1.5·IQR].
type Bounds struct {
	Lower float64
	Upper float64
	Q1    float64
	Q3    float64
}

// Contains reports whether v falls inside the fence (inclusive).
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// IQRBounds computes the outlier fence over the given values. It
// reports false when no values are available, in which case callers
// must treat the detector as a no-op.
func IQRBounds(values []float64) (Bounds, bool) {
	if len(values) == 0 {
		return Bounds{}, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	return Bounds{
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
		Q1:    q1,
		Q3:    q3,
	}, true
}

// Median returns the interpolated median of values, false when empty.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil), true
}

// MissingRequired returns the required columns absent from the table,
// sorted for stable reporting. An empty result means the table is
// structurally valid.
func MissingRequired(t *table.Table, required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
