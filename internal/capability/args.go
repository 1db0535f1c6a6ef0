package capability

import (
	"math"
	"strconv"
	"strings"
)

// String returns args[key] trimmed, or def when absent, blank or not a string.
func String(args map[string]any, key, def string) string {
	if s, ok := args[key].(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return def
}

// Bool accepts booleans and the strings "true"/"false".
func Bool(args map[string]any, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}

// Int accepts Go integers and JSON numbers. Fractions are truncated.
func Int(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
