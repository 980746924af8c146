package column

import (
	"fmt"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// UpdateFunc persists a new value for row. It reports whether the row was
// changed.
type UpdateFunc func(row any, newValue any) (bool, error)

// Option is one choice of a select-style editor.
type Option struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Editable is a column whose cells can be changed in place.
type Editable struct {
	Base
	// Input is the editor kind: "text", "number", "select", "toggle".
	Input    string
	Choices  []Option
	Update   UpdateFunc
	Disabled bool
	// Rules are validation hints passed to the client as-is.
	Rules []string
}

// NewEditable returns an editable column with a text input.
func NewEditable(key, label string, update UpdateFunc) *Editable {
	return &Editable{Base: newBase(key, label, TypeEditable), Input: "text", Update: update}
}

// CanUpdate reports whether ExecuteUpdate may be called.
func (e *Editable) CanUpdate() bool {
	return !e.Disabled && e.Update != nil
}

// ExecuteUpdate stores newValue on row through the configured updater.
func (e *Editable) ExecuteUpdate(row any, newValue any) (changed bool, err error) {
	if !e.CanUpdate() {
		return false, fmt.Errorf("%s: %w", e.Key, ErrNotEditable)
	}
	defer func() {
		if r := recover(); r != nil {
			changed, err = false, fmt.Errorf("update %s panicked: %v", e.Key, r)
		}
	}()
	return e.Update(row, newValue)
}

// Format implements Column.
func (e *Editable) Format(v any, _ Env) value.Value {
	p := value.NewPayload("editable",
		"value", v,
		"input", e.Input,
		"editable", e.CanUpdate(),
	)
	if len(e.Choices) > 0 {
		p = p.With("options", e.Choices)
	}
	return p
}

// Options implements Column.
func (e *Editable) Options() map[string]any {
	out := compact(map[string]any{"input": e.Input, "disabled": e.Disabled, "rules": e.Rules})
	if len(e.Choices) > 0 {
		out["options"] = e.Choices
	}
	return out
}
