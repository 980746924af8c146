package action

import (
	"fmt"

	"github.com/oakwood-commons/gridkit/pkg/column"
)

// DefaultBulkMessage is the confirmation bulk actions start with.
const DefaultBulkMessage = "Apply this action to {count} selected items?"

// BulkFunc runs a bulk action over the selected items.
type BulkFunc func(items []any, ctx Context) error

// Bulk acts on a selection of rows. Its predicates receive the selection
// as a []any, and its confirmation message may use {count}.
type Bulk struct {
	Base
	Endpoint string
	Handler  BulkFunc
}

// NewBulk returns a POST bulk action with the default confirmation.
func NewBulk(key, label string, handler BulkFunc) *Bulk {
	b := newBase(KindBulk, key, label, MethodPost)
	b.Confirmation = &Confirmation{Title: label, Message: DefaultBulkMessage}
	return &Bulk{Base: b, Handler: handler}
}

// Target implements Action.
func (b *Bulk) Target(_ any, _ Context) (string, error) {
	return b.Endpoint, nil
}

// ResolveBulk resolves a for a selection. A nil selection leaves the
// {count} placeholder for the client to fill.
func ResolveBulk(a Action, items []any, ctx Context) (Resolved, bool) {
	if items == nil {
		return Resolve(a, nil, ctx)
	}
	return Resolve(a, items, ctx)
}

// Execute runs the handler over items after checking visibility and
// enablement.
func (b *Bulk) Execute(items []any, ctx Context) (err error) {
	if b.Handler == nil {
		return fmt.Errorf("%s: %w", b.Key, ErrNoHandler)
	}
	if err := guard(b, items, ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bulk action %s panicked: %v", b.Key, r)
		}
	}()
	return b.Handler(items, ctx)
}

// InlineEdit exposes an editable column as an in-place edit action. It is
// visible when the column's permission allows it and enabled when the
// column can be updated.
type InlineEdit struct {
	Base
	Column   *column.Editable
	Endpoint string
}

// NewInlineEdit returns a PATCH action editing col.
func NewInlineEdit(col *column.Editable) *InlineEdit {
	b := newBase(KindCallback, "edit:"+col.Key, col.Label, MethodPatch)
	b.Permission = col.Permission
	b.Icon = "pencil"
	b.EnabledFunc = func(any, Context) bool { return col.CanUpdate() }
	return &InlineEdit{Base: b, Column: col}
}

// Target implements Action.
func (e *InlineEdit) Target(item any, _ Context) (string, error) {
	if e.Endpoint == "" {
		return "", nil
	}
	return Expand(e.Endpoint, item)
}

// Execute stores newValue on row through the column's updater.
func (e *InlineEdit) Execute(row, newValue any, ctx Context) (bool, error) {
	if !e.Column.CanUpdate() {
		return false, fmt.Errorf("%s: %w", e.Column.Key, column.ErrNotEditable)
	}
	if err := guard(e, row, ctx); err != nil {
		return false, err
	}
	return e.Column.ExecuteUpdate(row, newValue)
}
