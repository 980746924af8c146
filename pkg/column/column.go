// Package column describes table fields and turns one raw cell value into a
// render-ready value.
//
// Formatting runs in a fixed order. The column's explicit cast runs first, or
// automatic cast selection when the column allows it. Then the column's own
// formatter runs, unless the cast already produced a value.Payload, which is
// passed through untouched.
package column

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridkit/internal/expr"
	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// ValueType is the variant tag of a column.
type ValueType string

// Column variants.
const (
	TypeText     ValueType = "text"
	TypeNumber   ValueType = "number"
	TypeCurrency ValueType = "currency"
	TypeDate     ValueType = "date"
	TypeBoolean  ValueType = "boolean"
	TypeStatus   ValueType = "status"
	TypeBadge    ValueType = "badge"
	TypeImage    ValueType = "image"
	TypeCompound ValueType = "compound"
	TypeNested   ValueType = "nested"
	TypeEditable ValueType = "editable"
	TypeActions  ValueType = "actions"
)

// Types lists every column variant in declaration order.
var Types = []ValueType{
	TypeText, TypeNumber, TypeCurrency, TypeDate, TypeBoolean, TypeStatus,
	TypeBadge, TypeImage, TypeCompound, TypeNested, TypeEditable, TypeActions,
}

// Alignment values.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

var (
	// ErrNotEditable is returned by Editable.ExecuteUpdate when the column
	// has no updater or is disabled.
	ErrNotEditable = errors.New("column is not editable")
	// ErrUnknownType is returned by Hydrate for an unrecognized value type.
	ErrUnknownType = errors.New("unknown column type")
)

// Base is the descriptor shared by every column variant. Key is the identity
// used to match columns across declaration sources.
type Base struct {
	Key        string
	Label      string
	Type       ValueType
	Field      string // row path; Key when empty
	Cast       cast.Cast
	AutoCast   bool
	Sortable   bool
	Searchable bool
	Hidden     bool
	Permission authz.Requirement
	Order      int
	Width      string
	Align      string
	// Placeholder replaces absent or nil cell values.
	Placeholder string
	// VisibleFunc and VisibleWhen (a CEL expression over user) further
	// restrict visibility after the permission check.
	VisibleFunc func(p authz.Permissions) bool
	VisibleWhen string
}

// Meta returns the shared descriptor.
func (b *Base) Meta() *Base { return b }

// FieldPath returns the row path the column reads.
func (b *Base) FieldPath() string {
	if b.Field != "" {
		return b.Field
	}
	return b.Key
}

// Column is implemented by every variant.
type Column interface {
	Meta() *Base
	// Format is the variant's default formatter. It only sees values that are
	// not already a payload.
	Format(v any, env Env) value.Value
	// Options returns the variant-specific wire fields.
	Options() map[string]any
}

// RowFormatter is implemented by columns that build their cell from the
// whole row rather than one field.
type RowFormatter interface {
	FormatRow(row any, env Env) value.Value
}

// Env is everything formatting may consult besides the value.
type Env struct {
	Engine      *cast.Engine
	Cast        cast.Context
	Permissions authz.Permissions
	Log         logr.Logger
}

func (e Env) logger() logr.Logger {
	if e.Log.GetSink() == nil {
		return logr.Discard()
	}
	return e.Log
}

// FormatValue runs the full pipeline for c on row. It never panics and never
// fails: broken casts or formatters degrade to the original value.
func FormatValue(c Column, row any, env Env) (out value.Value) {
	meta := c.Meta()
	defer func() {
		if r := recover(); r != nil {
			env.logger().Info("column formatter panicked; keeping raw value",
				"column", meta.Key, "panic", fmt.Sprint(r))
			out = value.Raw{V: fieldpath.Get(row, meta.FieldPath())}
		}
	}()

	if rf, ok := c.(RowFormatter); ok {
		return rf.FormatRow(row, env)
	}

	raw, found := fieldpath.Lookup(row, meta.FieldPath())
	if !found || raw == nil {
		return value.Raw{V: meta.Placeholder}
	}
	if p, ok := value.Of(raw).(value.Payload); ok {
		return p
	}

	ctx := env.Cast
	ctx.Row = row
	ctx.Column = meta.Key
	ctx.TypeHint = string(meta.Type)
	working := raw
	if env.Engine != nil {
		switch {
		case meta.Cast != nil:
			working = env.Engine.Apply(meta.Cast, raw, ctx)
		case meta.AutoCast:
			working, _ = env.Engine.Auto(raw, ctx)
		}
	}

	switch v := value.Of(working).(type) {
	case value.Payload:
		return v
	case value.Raw:
		return c.Format(v.V, env)
	}
	return value.Raw{V: working}
}

// Visible reports whether the column is shown to the holder of p. Hidden
// columns, failed permission checks, and failing or panicking predicates all
// hide the column.
func Visible(c Column, p authz.Permissions) (visible bool) {
	meta := c.Meta()
	if meta.Hidden || !p.Allows(meta.Permission) {
		return false
	}
	defer func() {
		if recover() != nil {
			visible = false
		}
	}()
	if meta.VisibleFunc != nil && !meta.VisibleFunc(p) {
		return false
	}
	if meta.VisibleWhen != "" {
		ev, err := expr.Default()
		if err != nil {
			return false
		}
		ok, err := ev.EvalBool(meta.VisibleWhen, expr.Vars{User: p.Map()})
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// Filter returns the columns visible to p, in order.
func Filter(cols []Column, p authz.Permissions) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if Visible(c, p) {
			out = append(out, c)
		}
	}
	return out
}

func newBase(key, label string, typ ValueType) Base {
	return Base{Key: key, Label: label, Type: typ}
}
