package table

import (
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted when coercing cells to dates, tried in order.
// Source files mix ISO dates with the day-first forms common in the
// customer's exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
}

// AsFloat coerces a cell to float64. Numeric strings are parsed, bools
// map to 0/1, nil and anything else report false.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString coerces a cell to its canonical string form. Nil reports
// false; numbers render without a trailing ".0" for integral values.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format("2006-01-02"), true
	default:
		return "", false
	}
}

// AsTime coerces a cell to a date. Strings are tried against the known
// layouts; unparseable values report false, mirroring coerce-to-null
// semantics.
func AsTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// inferCell converts a raw source string into a typed cell: blank
// becomes nil, numbers become float64, everything else stays a string.
// Dates are deliberately left as strings; the cleaning rules parse the
// date-like columns they care about.
func inferCell(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
