// Package cast implements the value transformers that run on a raw cell value
// before column formatting.
//
// A column either has an explicit cast, which always runs, or it relies on
// automatic selection: every registered automatic cast whose CanCast accepts
// the value competes, the highest Priority wins, and ties go to the cast that
// was registered first. A cast that fails or panics never breaks rendering;
// the Engine logs the failure and keeps the original value.
package cast

import (
	"errors"
	"time"
)

// Canonical priorities of the built-in casts.
const (
	PriorityDate     = 85
	PriorityCurrency = 80
	PriorityStatus   = 70
	PriorityExpr     = 40
	PriorityClosure  = 30
)

// ErrNotCastable is returned by Cast when the value is outside what the cast
// understands. The engine treats it like any other failure.
var ErrNotCastable = errors.New("value is not castable")

// Cast transforms one raw cell value.
type Cast interface {
	// Type is the variant tag ("date", "currency", ...).
	Type() string
	// Priority orders casts competing for the same value; higher wins.
	Priority() int
	// Automatic casts take part in heuristic selection. Others only run when
	// attached to a column explicitly.
	Automatic() bool
	// Config describes the cast's options. It is part of the cache key.
	Config() map[string]any
	// CanCast reports whether the cast understands v. hint is the column's
	// value type, or "" when unknown.
	CanCast(v any, hint string) bool
	// Cast transforms v. The result may be a plain value or a value.Payload.
	Cast(v any, ctx Context) (any, error)
}

// Cacheable is implemented by casts whose output depends only on the value,
// their config, and the locale fields of the Context.
type Cacheable interface {
	Cacheable() bool
}

// Context carries everything a cast may consult besides the value itself.
type Context struct {
	Row      any
	Column   string
	TypeHint string
	Locale   string
	Currency string
	Location *time.Location
	// User is the current user as exposed to expressions.
	User map[string]any
}

// Base carries the identity shared by every cast.
type Base struct {
	Name string
	Rank int
	Auto bool
}

// Type returns the variant tag.
func (b Base) Type() string { return b.Name }

// Priority returns the selection rank.
func (b Base) Priority() int { return b.Rank }

// Automatic reports whether the cast takes part in heuristic selection.
func (b Base) Automatic() bool { return b.Auto }

func (c Context) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}
