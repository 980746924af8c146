package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	truthyWords = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "sim": true, "s": true, "on": true}
	falsyWords  = map[string]bool{"0": true, "false": true, "no": true, "n": true, "não": true, "nao": true, "off": true}
)

// Bool normalizes boolean-like input to a strict boolean. "1", "true", "yes",
// "sim", 1 and true are truthy; "0", "false", "no", "não", 0 and false are
// falsy. The second result is false when v is not boolean-like.
func Bool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case *bool:
		if t == nil {
			return false, false
		}
		return *t, true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if truthyWords[s] {
			return true, true
		}
		if falsyWords[s] {
			return false, true
		}
		return false, false
	}
	if f, ok := Float(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// Float converts numeric input, including numeric strings and json.Number,
// to float64.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders v for comparison and display. Nil becomes "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}

// IsBlank reports whether v carries no usable value: nil, an empty or
// whitespace-only string, or an empty slice or map.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
