// Package action compiles declarative row, bulk and header actions into
// authorization-gated affordances. Resolution is visibility first: a hidden
// action is never evaluated for enablement and never serialized.
package action

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/gridkit/internal/expr"
	"github.com/oakwood-commons/gridkit/pkg/authz"
)

// Kind is the action variant tag.
type Kind string

// Action kinds.
const (
	KindRoute    Kind = "route"
	KindURL      Kind = "url"
	KindCallback Kind = "callback"
	KindModal    Kind = "modal"
	KindBulk     Kind = "bulk"
	KindHeader   Kind = "header"
	KindRow      Kind = "row"
	KindRelation Kind = "relation"
)

// Kinds lists every action kind.
var Kinds = []Kind{KindRoute, KindURL, KindCallback, KindModal, KindBulk, KindHeader, KindRow, KindRelation}

// Mode is how the client opens an action's target.
type Mode string

// Modes.
const (
	ModeModal     Mode = "modal"
	ModeSlideover Mode = "slideover"
)

// HTTP methods used by the constructors.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

var (
	// ErrRouteNotFound is returned by routers for unknown route names.
	ErrRouteNotFound = errors.New("route not found")
	// ErrMissingParameter means a route or URL template could not be filled
	// from the item.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrForbidden means the action is hidden from the current user.
	ErrForbidden = errors.New("action not permitted")
	// ErrDisabled means the action is visible but not enabled for the item.
	ErrDisabled = errors.New("action disabled")
	// ErrNoHandler means an action was executed without a handler.
	ErrNoHandler = errors.New("action has no handler")
)

// Predicate decides visibility or enablement for one item. Bulk actions
// receive the selected items as a []any.
type Predicate func(item any, ctx Context) bool

// Context carries the per-request collaborators actions consult.
type Context struct {
	Permissions authz.Permissions
	Router      Router
	Log         logr.Logger
}

func (c Context) logger() logr.Logger {
	if c.Log.GetSink() == nil {
		return logr.Discard()
	}
	return c.Log
}

// Confirmation asks the user before the action runs. Title and Message may
// reference item fields as {field}; bulk messages also accept {count}.
type Confirmation struct {
	Title   string `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty"`
	Message string `json:"message" yaml:"message" msgpack:"message"`
	Confirm string `json:"confirm,omitempty" yaml:"confirm,omitempty" msgpack:"confirm,omitempty"`
	Cancel  string `json:"cancel,omitempty" yaml:"cancel,omitempty" msgpack:"cancel,omitempty"`
}

// ModalConfig describes the dialog a modal or slide-over action opens.
type ModalConfig struct {
	Size  string `json:"size,omitempty" yaml:"size,omitempty" msgpack:"size,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty" msgpack:"title,omitempty"`
}

// Base is shared by every action.
type Base struct {
	Key     string
	Label   string
	Icon    string
	Variant string
	Kind    Kind
	Method  string

	Permission authz.Requirement
	Hidden     bool
	Disabled   bool

	VisibleFunc Predicate
	EnabledFunc Predicate
	// VisibleWhen, EnabledWhen and DisabledWhen are expressions over row and
	// user, used by declarative markup in place of closures.
	VisibleWhen  string
	EnabledWhen  string
	DisabledWhen string

	Confirmation *Confirmation
	Mode         Mode
	Modal        *ModalConfig
	NewTab       bool
}

// Meta returns the shared descriptor.
func (b *Base) Meta() *Base { return b }

// Confirm sets the confirmation dialog.
func (b *Base) Confirm(title, message string) {
	b.Confirmation = &Confirmation{Title: title, Message: message}
}

func newBase(kind Kind, key, label, method string) Base {
	return Base{Key: key, Label: label, Kind: kind, Method: method}
}

// Action is implemented by every action variant.
type Action interface {
	Meta() *Base
	// Target returns the URL the action points at for item. An empty URL
	// with a nil error means the action has no URL.
	Target(item any, ctx Context) (string, error)
}

// Resolved is the wire form of an action for one item.
type Resolved struct {
	Key          string        `json:"key" yaml:"key" msgpack:"key"`
	Label        string        `json:"label" yaml:"label" msgpack:"label"`
	Kind         Kind          `json:"kind" yaml:"kind" msgpack:"kind"`
	Icon         string        `json:"icon,omitempty" yaml:"icon,omitempty" msgpack:"icon,omitempty"`
	Variant      string        `json:"variant,omitempty" yaml:"variant,omitempty" msgpack:"variant,omitempty"`
	URL          *string       `json:"url" yaml:"url" msgpack:"url"`
	Method       string        `json:"method" yaml:"method" msgpack:"method"`
	Enabled      bool          `json:"enabled" yaml:"enabled" msgpack:"enabled"`
	Confirmation *Confirmation `json:"confirmation" yaml:"confirmation" msgpack:"confirmation"`
	Mode         Mode          `json:"mode,omitempty" yaml:"mode,omitempty" msgpack:"mode,omitempty"`
	Modal        *ModalConfig  `json:"modal,omitempty" yaml:"modal,omitempty" msgpack:"modal,omitempty"`
	NewTab       bool          `json:"newTab,omitempty" yaml:"newTab,omitempty" msgpack:"newTab,omitempty"`
	Count        *int          `json:"count,omitempty" yaml:"count,omitempty" msgpack:"count,omitempty"`
}

// IsVisible reports whether a is shown for item. Static hiding and the
// permission requirement are checked before any predicate runs. Failing or
// panicking predicates hide the action.
func IsVisible(a Action, item any, ctx Context) bool {
	b := a.Meta()
	if b.Hidden || !ctx.Permissions.Allows(b.Permission) {
		return false
	}
	if b.VisibleFunc != nil && !call(b.VisibleFunc, b.Key, item, ctx) {
		return false
	}
	if b.VisibleWhen != "" {
		ok, err := eval(b.VisibleWhen, item, ctx)
		if err != nil {
			ctx.logger().V(1).Info("visibleWhen failed", "action", b.Key, "error", err.Error())
			return false
		}
		return ok
	}
	return true
}

// IsEnabled reports whether a may be triggered for item. Callers are
// expected to check IsVisible first; Resolve does.
func IsEnabled(a Action, item any, ctx Context) bool {
	b := a.Meta()
	if b.Disabled {
		return false
	}
	if b.EnabledFunc != nil && !call(b.EnabledFunc, b.Key, item, ctx) {
		return false
	}
	if b.EnabledWhen != "" {
		ok, err := eval(b.EnabledWhen, item, ctx)
		if err != nil || !ok {
			return false
		}
	}
	if b.DisabledWhen != "" {
		disabled, err := eval(b.DisabledWhen, item, ctx)
		if err != nil || disabled {
			return false
		}
	}
	return true
}

// Resolve computes the wire form of a for item. It reports false, without
// evaluating enablement, when the action is hidden. A target that cannot be
// resolved yields a nil URL.
func Resolve(a Action, item any, ctx Context) (Resolved, bool) {
	if !IsVisible(a, item, ctx) {
		return Resolved{}, false
	}
	b := a.Meta()
	r := Resolved{
		Key:     b.Key,
		Label:   b.Label,
		Kind:    b.Kind,
		Icon:    b.Icon,
		Variant: b.Variant,
		Method:  b.Method,
		Enabled: IsEnabled(a, item, ctx),
		Mode:    b.Mode,
		Modal:   b.Modal,
		NewTab:  b.NewTab,
	}
	if r.Method == "" {
		r.Method = MethodGet
	}

	target, err := safeTarget(a, item, ctx)
	switch {
	case err != nil:
		ctx.logger().V(1).Info("action target unresolved", "action", b.Key, "error", err.Error())
	case target != "":
		r.URL = &target
	}

	var count *int
	if items, ok := item.([]any); ok && b.Kind == KindBulk {
		n := len(items)
		count = &n
		r.Count = count
	}
	r.Confirmation = b.Confirmation.render(item, count)
	return r, true
}

// ResolveAll resolves every action for item, omitting hidden ones.
func ResolveAll(actions []Action, item any, ctx Context) []Resolved {
	out := make([]Resolved, 0, len(actions))
	for _, a := range actions {
		if r, ok := Resolve(a, item, ctx); ok {
			out = append(out, r)
		}
	}
	return out
}

func (c *Confirmation) render(item any, count *int) *Confirmation {
	if c == nil {
		return nil
	}
	vars := map[string]string{}
	if count != nil {
		vars["count"] = fmt.Sprint(*count)
	}
	out := *c
	out.Title = expandLoose(c.Title, item, vars)
	out.Message = expandLoose(c.Message, item, vars)
	return &out
}

func call(p Predicate, key string, item any, ctx Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ctx.logger().V(1).Info("action predicate panicked", "action", key, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	return p(item, ctx)
}

func eval(src string, item any, ctx Context) (bool, error) {
	ev, err := expr.Default()
	if err != nil {
		return false, err
	}
	return ev.EvalBool(src, expr.Vars{Row: item, User: ctx.Permissions.Map()})
}

func safeTarget(a Action, item any, ctx Context) (target string, err error) {
	defer func() {
		if r := recover(); r != nil {
			target, err = "", fmt.Errorf("target of %s panicked: %v", a.Meta().Key, r)
		}
	}()
	return a.Target(item, ctx)
}

// guard checks that a may run for item.
func guard(a Action, item any, ctx Context) error {
	key := a.Meta().Key
	if !IsVisible(a, item, ctx) {
		return fmt.Errorf("%s: %w", key, ErrForbidden)
	}
	if !IsEnabled(a, item, ctx) {
		return fmt.Errorf("%s: %w", key, ErrDisabled)
	}
	return nil
}
