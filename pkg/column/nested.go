package column

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// DefaultSummary is the collapsed text of a nested cell.
const DefaultSummary = "{n} items"

// Nested renders a related collection as a sub-table. Its column list is
// held by value; a nested column never points back at its parent table.
type Nested struct {
	Base
	// Relationship is the row field holding the related records. The column
	// key is used when empty.
	Relationship string
	Columns      []Column
	// Lazy defers the sub-table to a follow-up request; only the summary is
	// rendered.
	Lazy    bool
	Summary string
}

// NewNested returns a nested column over relationship.
func NewNested(key, label, relationship string, cols ...Column) *Nested {
	n := &Nested{Base: newBase(key, label, TypeNested), Relationship: relationship, Columns: cols}
	n.Field = relationship
	return n
}

// Format implements Column.
func (n *Nested) Format(v any, env Env) value.Value {
	items, ok := toSlice(v)
	if !ok {
		return value.Raw{V: v}
	}
	p := value.NewPayload("nested",
		"relationship", n.relationship(),
		"count", len(items),
		"summary", n.summary(len(items)),
		"lazy", n.Lazy,
	)
	if n.Lazy {
		return p
	}

	visible := Filter(n.Columns, env.Permissions)
	descriptors := make([]Descriptor, len(visible))
	for i, c := range visible {
		descriptors[i] = Describe(c)
	}
	rows := make([]map[string]value.Value, len(items))
	for i, item := range items {
		cells := make(map[string]value.Value, len(visible))
		for _, c := range visible {
			cells[c.Meta().Key] = FormatValue(c, item, env)
		}
		rows[i] = cells
	}
	return p.With("columns", descriptors).With("rows", rows)
}

// Options implements Column.
func (n *Nested) Options() map[string]any {
	out := compact(map[string]any{
		"relationship": n.relationship(),
		"lazy":         n.Lazy,
		"summary":      n.Summary,
	})
	if len(n.Columns) > 0 {
		cols := make([]Descriptor, len(n.Columns))
		for i, c := range n.Columns {
			cols[i] = Describe(c)
		}
		out["columns"] = cols
	}
	return out
}

func (n *Nested) relationship() string {
	if n.Relationship != "" {
		return n.Relationship
	}
	return n.Key
}

func (n *Nested) summary(count int) string {
	tmpl := n.Summary
	if tmpl == "" {
		tmpl = DefaultSummary
	}
	return strings.ReplaceAll(tmpl, "{n}", strconv.Itoa(count))
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
