package loader

import (
	"fmt"
	"reflect"
)

const maxExpandDepth = 20

// TryDecode parses s when it holds serialized structured data. Scalars and
// plain text report false.
func TryDecode(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	v, err := ParseRoot(s)
	if err != nil || !isStructured(v) {
		return nil, false
	}
	return v, true
}

// Expand replaces string leaves that hold serialized data, such as a JSON
// column exported as text, with their decoded structure. Typed maps and
// slices become map[string]any and []any.
func Expand(node any) any {
	return expand(node, 0)
}

// ExpandRows expands every row.
func ExpandRows(rows []any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = Expand(r)
	}
	return out
}

func expand(node any, depth int) any {
	if depth > maxExpandDepth {
		return node
	}
	switch v := node.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, x := range v {
			out[k] = expand(x, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = expand(x, depth+1)
		}
		return out
	case string:
		if decoded, ok := TryDecode(v); ok {
			return expand(decoded, depth+1)
		}
		return v
	}

	rv := reflect.ValueOf(node)
	switch rv.Kind() { //nolint:exhaustive // only containers are rewritten
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = expand(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return node
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = expand(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return expand(rv.Elem().Interface(), depth+1)
	default:
		return node
	}
}

func isStructured(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() { //nolint:exhaustive // only containers count
	case reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}
