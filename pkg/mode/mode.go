// Package mode classifies a table definition by where its schema comes from
// and reconciles the two sources into one ordered list.
//
// Detection is pure: it depends only on its inputs and keeps no state
// between renders.
package mode

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/markup"
)

// Mode is the table's source classification.
type Mode string

// Modes.
const (
	Dynamic     Mode = "dynamic"
	Declarative Mode = "declarative"
	Hybrid      Mode = "hybrid"
)

// Priority is the source that wins a conflicting key.
type Priority string

// Priorities. Merge is reported when a merge strategy overrides the
// mode's default priority.
const (
	PriorityChildren Priority = "children"
	PriorityProps    Priority = "props"
	PriorityMerge    Priority = "merge"
)

// TableMode is the result of classifying one render's inputs.
type TableMode struct {
	HasMarkup      bool     `json:"hasMarkup" yaml:"hasMarkup" msgpack:"hasMarkup"`
	HasPropsConfig bool     `json:"hasPropsConfig" yaml:"hasPropsConfig" msgpack:"hasPropsConfig"`
	Mode           Mode     `json:"mode" yaml:"mode" msgpack:"mode"`
	Priority       Priority `json:"priority" yaml:"priority" msgpack:"priority"`
}

// String implements fmt.Stringer.
func (m TableMode) String() string {
	return fmt.Sprintf("%s (priority: %s)", m.Mode, m.Priority)
}

// Props summarizes the configuration source.
type Props struct {
	Columns []string
	Filters int
	Actions int
}

// HasConfig reports whether at least one column, filter or action is
// declared through configuration.
func (p Props) HasConfig() bool {
	return len(p.Columns) > 0 || p.Filters > 0 || p.Actions > 0
}

// Classify maps the two presence flags onto a mode.
func Classify(hasMarkup, hasPropsConfig bool) TableMode {
	m := TableMode{HasMarkup: hasMarkup, HasPropsConfig: hasPropsConfig}
	switch {
	case hasMarkup && hasPropsConfig:
		m.Mode, m.Priority = Hybrid, PriorityChildren
	case hasMarkup:
		m.Mode, m.Priority = Declarative, PriorityChildren
	default:
		m.Mode, m.Priority = Dynamic, PriorityProps
	}
	return m
}

// Detection is a classified mode and the column keys both sources declare.
type Detection struct {
	TableMode
	Conflicts ConflictSet `json:"conflicts" yaml:"conflicts" msgpack:"conflicts"`
}

// Detect classifies nodes and props. Only recognized markup nodes count;
// other kinds are ignored.
func Detect(nodes markup.Nodes, props Props) Detection {
	tm := Classify(nodes.HasRecognized(), props.HasConfig())
	return Detection{
		TableMode: tm,
		Conflicts: Intersect(nodes.ColumnKeys(), props.Columns),
	}
}

// ConflictSet is the ordered set of keys declared by both sources, in the
// markup's declaration order.
type ConflictSet []string

// Intersect returns the keys of a that also appear in b, deduplicated and
// in a's order. The result is never nil.
func Intersect(a, b []string) ConflictSet {
	inB := make(map[string]bool, len(b))
	for _, k := range b {
		inB[k] = true
	}
	out := ConflictSet{}
	seen := map[string]bool{}
	for _, k := range a {
		if inB[k] && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	return out
}

// Has reports whether key conflicts.
func (c ConflictSet) Has(key string) bool {
	for _, k := range c {
		if k == key {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (c ConflictSet) String() string {
	return "{" + strings.Join(c, ", ") + "}"
}
