package sheets

import (
	"strconv"
	"strings"
)

// Record is a single schema-less row. Field values arrive as whatever JSON
// the remote side produced, most commonly strings and numbers.
type Record map[string]any

// Str returns the named field rendered as a string. Numeric values are
// formatted without an exponent so ids like 5 and "5" compare equal.
func (r Record) Str(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Float returns the named field as a number. String fields are parsed after
// trimming; anything non-numeric yields zero.
func (r Record) Float(field string) float64 {
	v, ok := r[field]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
