package table

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/markup"
)

// Spec declares one column, filter or action as data. On the wire the
// variant options sit next to type, key and label.
type Spec struct {
	Type    string
	Key     string
	Label   string
	Options map[string]any
}

// SpecFromMap reads a flattened spec.
func SpecFromMap(raw map[string]any) Spec {
	s := Spec{Options: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "type":
			s.Type = str(v)
		case "key":
			s.Key = str(v)
		case "label":
			s.Label = str(v)
		default:
			s.Options[k] = v
		}
	}
	return s
}

// SpecFromNode reads a markup node. Column and filter nodes without a key
// use their field.
func SpecFromNode(n markup.Node) Spec {
	s := Spec{Type: n.Type(), Key: n.Key, Label: n.String("label"), Options: n.Options()}
	if s.Key == "" {
		s.Key = n.String("field")
	}
	return s
}

// Map flattens the spec.
func (s Spec) Map() map[string]any {
	out := make(map[string]any, len(s.Options)+3)
	for k, v := range s.Options {
		out[k] = v
	}
	out["type"] = s.Type
	out["key"] = s.Key
	if s.Label != "" {
		out["label"] = s.Label
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (s Spec) MarshalJSON() ([]byte, error) { return json.Marshal(s.Map()) }

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SpecFromMap(raw)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Spec) MarshalYAML() (any, error) { return s.Map(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Spec) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = SpecFromMap(raw)
	return nil
}

// String returns a string option.
func (s Spec) String(name string) string { return str(s.Options[name]) }

// StringOr returns a string option or def when it is empty.
func (s Spec) StringOr(name, def string) string {
	if v := s.String(name); v != "" {
		return v
	}
	return def
}

// Bool returns a boolean option.
func (s Spec) Bool(name string) bool {
	b, _ := s.Options[name].(bool)
	return b
}

// Int returns an integer option.
func (s Spec) Int(name string) int {
	switch v := s.Options[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns a numeric option and whether it was set.
func (s Spec) Float(name string) (float64, bool) {
	switch v := s.Options[name].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Strings returns a list option. A single string is a one-element list.
func (s Spec) Strings(name string) []string {
	switch v := s.Options[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, str(x))
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// StringMap returns a string-to-string option.
func (s Spec) StringMap(name string) map[string]string {
	switch v := s.Options[name].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, x := range v {
			out[k] = str(x)
		}
		return out
	}
	return nil
}

// Decode converts a structured option into dst.
func (s Spec) Decode(name string, dst any) error {
	v, ok := s.Options[name]
	if !ok || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: option %s: %w", s.Key, name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: option %s: %w", s.Key, name, err)
	}
	return nil
}

// Permission parses the "permission" option.
func (s Spec) Permission() (authz.Requirement, error) {
	req, err := authz.ParseRequirement(s.Options["permission"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Key, err)
	}
	return req, nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// PropsConfig is the configuration half of a table definition.
type PropsConfig struct {
	Columns       []Spec `json:"columns,omitempty" yaml:"columns,omitempty"`
	Filters       []Spec `json:"filters,omitempty" yaml:"filters,omitempty"`
	Actions       []Spec `json:"actions,omitempty" yaml:"actions,omitempty"`
	BulkActions   []Spec `json:"bulkActions,omitempty" yaml:"bulkActions,omitempty"`
	HeaderActions []Spec `json:"headerActions,omitempty" yaml:"headerActions,omitempty"`
}

// Empty reports whether nothing is configured.
func (p PropsConfig) Empty() bool {
	return len(p.Columns) == 0 && len(p.Filters) == 0 && len(p.Actions) == 0 &&
		len(p.BulkActions) == 0 && len(p.HeaderActions) == 0
}
