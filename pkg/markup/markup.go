// Package markup decodes the declarative half of a table definition: a tree
// of nodes written in YAML or JSON, the way client markup nests Column,
// Filters and Actions elements.
//
//	- kind: Column
//	  key: name
//	  sortable: true
//	- kind: Filters
//	  children:
//	    - kind: Filter
//	      type: select
//	      field: status
//
// Node kinds outside Recognized are kept in the tree but ignored.
package markup

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidNode is returned for nodes that cannot be decoded.
var ErrInvalidNode = errors.New("invalid markup node")

// Node kinds.
const (
	KindColumn       = "Column"
	KindRows         = "Rows"
	KindFilters      = "Filters"
	KindActions      = "Actions"
	KindFilter       = "Filter"
	KindAction       = "Action"
	KindBulkAction   = "BulkAction"
	KindHeaderAction = "HeaderAction"
)

// Recognized lists the top-level kinds that make markup valid.
var Recognized = []string{KindColumn, KindRows, KindFilters, KindActions}

// Node is one markup element. Attributes other than kind, key and children
// land in Attrs.
type Node struct {
	Kind     string         `json:"kind" yaml:"kind"`
	Key      string         `json:"key,omitempty" yaml:"key,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Children []Node         `json:"children,omitempty" yaml:"children,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler. Attributes may be written flat
// on the node or under "attrs".
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %w: expected a mapping", value.Line, ErrInvalidNode)
	}
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: %w: %w", value.Line, ErrInvalidNode, err)
	}

	kind, _ := raw["kind"].(string)
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("line %d: %w: missing kind", value.Line, ErrInvalidNode)
	}
	*n = Node{Kind: kind}
	if key, ok := raw["key"]; ok && key != nil {
		n.Key = fmt.Sprint(key)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value != "children" {
			continue
		}
		if value.Content[i+1].Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: %w: children must be a list", value.Content[i+1].Line, ErrInvalidNode)
		}
		if err := value.Content[i+1].Decode(&n.Children); err != nil {
			return err
		}
	}

	for k, v := range raw {
		switch k {
		case "kind", "key", "children":
			continue
		case "attrs":
			nested, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("line %d: %w: attrs must be a mapping", value.Line, ErrInvalidNode)
			}
			for nk, nv := range nested {
				n.set(nk, nv)
			}
		default:
			n.set(k, v)
		}
	}
	return nil
}

func (n *Node) set(k string, v any) {
	if n.Attrs == nil {
		n.Attrs = map[string]any{}
	}
	n.Attrs[k] = v
}

// Nodes is a markup tree.
type Nodes []Node

// Parse decodes a YAML or JSON document holding a list of nodes, a single
// node, or a mapping with a "nodes" or "markup" list.
func Parse(data []byte) (Nodes, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	return decode(doc.Content[0])
}

// Decode reads nodes from an already-parsed YAML node.
func Decode(value *yaml.Node) (Nodes, error) {
	if value == nil || value.Kind == 0 {
		return nil, nil
	}
	if value.Kind == yaml.DocumentNode {
		if len(value.Content) == 0 {
			return nil, nil
		}
		value = value.Content[0]
	}
	return decode(value)
}

func decode(root *yaml.Node) (Nodes, error) {
	switch root.Kind {
	case yaml.SequenceNode:
		var out Nodes
		if err := root.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			switch root.Content[i].Value {
			case "nodes", "markup":
				return decode(root.Content[i+1])
			}
		}
		var n Node
		if err := root.Decode(&n); err != nil {
			return nil, err
		}
		return Nodes{n}, nil
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("line %d: %w: expected a list or mapping", root.Line, ErrInvalidNode)
}

// IsRecognized reports whether kind is one of the recognized top-level
// kinds.
func IsRecognized(kind string) bool {
	for _, k := range Recognized {
		if k == kind {
			return true
		}
	}
	return false
}

// HasRecognized reports whether at least one recognized node is present.
func (ns Nodes) HasRecognized() bool {
	for _, n := range ns {
		if IsRecognized(n.Kind) {
			return true
		}
	}
	return false
}

// Columns returns the Column nodes, top-level and inside Rows, in order.
func (ns Nodes) Columns() []Node {
	var out []Node
	for _, n := range ns {
		switch n.Kind {
		case KindColumn:
			out = append(out, n)
		case KindRows:
			for _, c := range n.Children {
				if c.Kind == KindColumn {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// ColumnKeys returns the keys of every declared column in order.
func (ns Nodes) ColumnKeys() []string {
	cols := ns.Columns()
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if k := c.ColumnKey(); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Filters returns the Filter children of every Filters node.
func (ns Nodes) Filters() []Node {
	return ns.children(KindFilters, KindFilter)
}

// Actions returns the row actions declared under Actions.
func (ns Nodes) Actions() []Node {
	return ns.children(KindActions, KindAction)
}

// BulkActions returns the bulk actions declared under Actions.
func (ns Nodes) BulkActions() []Node {
	return ns.children(KindActions, KindBulkAction)
}

// HeaderActions returns the header actions declared under Actions.
func (ns Nodes) HeaderActions() []Node {
	return ns.children(KindActions, KindHeaderAction)
}

func (ns Nodes) children(parent, kind string) []Node {
	var out []Node
	for _, n := range ns {
		if n.Kind != parent {
			continue
		}
		for _, c := range n.Children {
			if c.Kind == kind {
				out = append(out, c)
			}
		}
	}
	return out
}

// Ignored lists the kinds present at the top level that are not
// recognized, sorted and deduplicated.
func (ns Nodes) Ignored() []string {
	seen := map[string]bool{}
	for _, n := range ns {
		if !IsRecognized(n.Kind) {
			seen[n.Kind] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ColumnKey is the node's key, or its field when no key is given.
func (n Node) ColumnKey() string {
	if n.Key != "" {
		return n.Key
	}
	return n.String("field")
}

// String returns a string attribute, or "".
func (n Node) String(name string) string {
	if v, ok := n.Attrs[name]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// Type is the variant tag of the node's column, filter or action.
func (n Node) Type() string {
	return n.String("type")
}

// Options returns the attributes without type and label, for handing to a
// variant factory.
func (n Node) Options() map[string]any {
	out := make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		if k == "type" || k == "label" {
			continue
		}
		out[k] = v
	}
	return out
}
