// Package fieldpath resolves column fields against row values. Rows can be
// maps, slices, structs, or pointers to them; fields can be dotted
// ("customer.name") or bracketed ("items[0].sku").
package fieldpath

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Lookup resolves path against row. The second result is false when any step
// of the path is missing; a present field holding nil resolves to (nil, true).
func Lookup(row any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := row
	for _, step := range Split(path) {
		next, ok := step1(cur, step)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Get is Lookup without the presence flag.
func Get(row any, path string) any {
	v, _ := Lookup(row, path)
	return v
}

// Split breaks a path into steps, handling both dot and bracket notation:
//
//	"items.0"            -> ["items", "0"]
//	"items[0].tags"      -> ["items", "0", "tags"]
//	`labels["app.kind"]` -> ["labels", "app.kind"]
func Split(path string) []string {
	var parts []string
	var current strings.Builder

	for i := 0; i < len(path); i++ {
		ch := path[i]
		switch ch {
		case '.':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		case '[':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j < len(path) {
				parts = append(parts, unquote(path[i+1:j]))
				i = j
			}
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func unquote(key string) string {
	if len(key) > 1 && (key[0] == '"' || key[0] == '\'') && key[len(key)-1] == key[0] {
		return key[1 : len(key)-1]
	}
	return key
}

func step1(cur any, key string) (any, bool) {
	switch t := cur.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := t[key]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	}

	rv := reflect.ValueOf(cur)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() { //nolint:exhaustive // only container kinds can be descended into
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		return structField(rv, key)
	default:
		return nil, false
	}
}

// structField matches the json tag first, then the Go field name, then a
// case-insensitive field name so "id" finds ID.
func structField(rv reflect.Value, key string) (any, bool) {
	typ := rv.Type()
	fallback := -1
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("json"), ",")[0]
		if tagName == "-" {
			continue
		}
		if tagName == key || field.Name == key {
			return rv.Field(i).Interface(), true
		}
		if fallback < 0 && strings.EqualFold(field.Name, key) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return rv.Field(fallback).Interface(), true
	}
	return nil, false
}

// Set assigns v at path inside a map-based row, creating intermediate maps as
// needed. Struct rows are not writable through this helper.
func Set(row map[string]any, path string, v any) error {
	steps := Split(path)
	if len(steps) == 0 {
		return fmt.Errorf("empty field path")
	}
	cur := row
	for _, step := range steps[:len(steps)-1] {
		next, ok := cur[step]
		if !ok || next == nil {
			m := map[string]any{}
			cur[step] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot descend into %T at %q", next, step)
		}
		cur = m
	}
	cur[steps[len(steps)-1]] = v
	return nil
}

// Fields lists the top-level field names of a row in a stable order: sorted
// map keys, or struct fields in declaration order using json names.
func Fields(row any) []string {
	switch t := row.(type) {
	case nil:
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() { //nolint:exhaustive // only maps and structs have named fields
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, fmt.Sprint(k.Interface()))
		}
		sort.Strings(keys)
		return keys
	case reflect.Struct:
		typ := rv.Type()
		keys := make([]string, 0, typ.NumField())
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := strings.Split(field.Tag.Get("json"), ",")[0]
			if name == "-" {
				continue
			}
			if name == "" {
				name = field.Name
			}
			keys = append(keys, name)
		}
		return keys
	default:
		return nil
	}
}

// TypeName returns the bare type name of a struct row ("BlogPost" for
// *models.BlogPost). Maps and scalars have no type name.
func TypeName(row any) string {
	t := reflect.TypeOf(row)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}
	return t.Name()
}

// Normalize converts arbitrary Go values into the JSON-compatible shapes
// expression evaluation can handle: structs become maps, typed slices become
// []any. Maps and scalars are returned as-is.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	kind := rv.Kind()
	if kind == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
		kind = rv.Kind()
	}

	switch kind { //nolint:exhaustive // remaining kinds go through JSON
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return rv.Interface(), nil
	case reflect.Map:
		if m, ok := rv.Interface().(map[string]any); ok {
			return m, nil
		}
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element [%d]: %w", i, err)
			}
			out[i] = elem
		}
		return out, nil
	}

	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, fmt.Errorf("cannot marshal %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot unmarshal %T: %w", v, err)
	}
	return out, nil
}
