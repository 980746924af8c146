package column

import (
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// RenderFunc builds the per-row content of an actions cell. The table
// compiler installs it, since resolving actions needs the action layer.
type RenderFunc func(row any, env Env) any

// Actions is the column hosting row actions.
type Actions struct {
	Base
	// Keys restricts the cell to these row actions; empty means all.
	Keys   []string
	Render RenderFunc
}

// NewActions returns a right-aligned actions column.
func NewActions(key, label string) *Actions {
	if key == "" {
		key = "actions"
	}
	b := newBase(key, label, TypeActions)
	b.Align = AlignRight
	return &Actions{Base: b}
}

// FormatRow implements RowFormatter.
func (a *Actions) FormatRow(row any, env Env) value.Value {
	var items any = []any{}
	if a.Render != nil {
		items = a.Render(row, env)
	}
	return value.NewPayload("actions", "actions", items)
}

// Format implements Column.
func (a *Actions) Format(v any, _ Env) value.Value {
	return value.Raw{V: v}
}

// Options implements Column.
func (a *Actions) Options() map[string]any {
	return compact(map[string]any{"keys": a.Keys})
}
