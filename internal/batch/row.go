package batch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one loosely typed input record, as decoded from JSON or read from a sheet.
type Row map[string]any

// String returns the trimmed text form of key, or "" when absent.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// Has reports whether key carries a non-blank value.
func (r Row) Has(key string) bool {
	return !isBlank(r[key])
}

// Float parses key as a number, accepting pt-BR "12.345,6" notation.
func (r Row) Float(key string) (float64, bool) {
	switch x := r[key].(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	s := r.String(key)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Bool interprets key as a yes/no flag.
func (r Row) Bool(key string) bool {
	if b, ok := r[key].(bool); ok {
		return b
	}
	switch strings.ToLower(r.String(key)) {
	case "true", "1", "sim", "s", "yes", "y", "x":
		return true
	}
	return false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
