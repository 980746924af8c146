package cast

import (
	"fmt"
	"reflect"
)

// TransformFunc is a user-supplied transformation.
type TransformFunc func(v any, ctx Context) (any, error)

// Predicate decides whether a value takes a branch.
type Predicate func(v any, ctx Context) bool

// Closure wraps a TransformFunc. Its builder methods return modified copies,
// so a shared Closure is never mutated by a caller refining it.
type Closure struct {
	Base
	fn     TransformFunc
	match  func(v any, hint string) bool
	cached bool
	steps  int
}

// NewClosure returns a non-automatic cast running fn.
func NewClosure(name string, fn TransformFunc) *Closure {
	if name == "" {
		name = "closure"
	}
	return &Closure{Base: Base{Name: name, Rank: PriorityClosure}, fn: fn, steps: 1}
}

// Config implements Cast. Closures are opaque, so only the shape is reported.
func (c *Closure) Config() map[string]any {
	return map[string]any{"name": c.Name, "steps": c.steps, "fn": fmt.Sprintf("%p", c.fn)}
}

// Cacheable implements Cacheable.
func (c *Closure) Cacheable() bool { return c.cached }

// CanCast defers to the matcher set by AutoWhen; without one every value is
// accepted.
func (c *Closure) CanCast(v any, hint string) bool {
	if c.match == nil {
		return true
	}
	return c.match(v, hint)
}

// Cast implements Cast.
func (c *Closure) Cast(v any, ctx Context) (any, error) {
	if c.fn == nil {
		return v, nil
	}
	return c.fn(v, ctx)
}

func (c *Closure) clone() *Closure {
	cp := *c
	return &cp
}

// WithPriority returns a copy with a different rank.
func (c *Closure) WithPriority(p int) *Closure {
	cp := c.clone()
	cp.Rank = p
	return cp
}

// AutoWhen returns a copy that takes part in automatic selection for values
// accepted by match.
func (c *Closure) AutoWhen(match func(v any, hint string) bool) *Closure {
	cp := c.clone()
	cp.Auto = true
	cp.match = match
	return cp
}

// Cached returns a copy whose results may be memoized. Only use it when fn is
// a pure function of its value and the locale fields of the context.
func (c *Closure) Cached() *Closure {
	cp := c.clone()
	cp.cached = true
	return cp
}

// Then returns a copy that feeds this closure's output into next.
func (c *Closure) Then(next TransformFunc) *Closure {
	prev := c.fn
	cp := c.clone()
	cp.steps++
	cp.fn = func(v any, ctx Context) (any, error) {
		out, err := callFn(prev, v, ctx)
		if err != nil {
			return nil, err
		}
		return next(out, ctx)
	}
	return cp
}

// When returns a copy that runs then when cond holds and otherwise when it
// does not. A nil branch passes the value through.
func (c *Closure) When(cond Predicate, then, otherwise TransformFunc) *Closure {
	return c.Then(func(v any, ctx Context) (any, error) {
		if cond(v, ctx) {
			return callFn(then, v, ctx)
		}
		return callFn(otherwise, v, ctx)
	})
}

// Map returns a copy that replaces values found in mapping. Keys are
// compared with their string form so that 1 and "1" both match "1".
func (c *Closure) Map(mapping map[string]any) *Closure {
	return c.Then(func(v any, _ Context) (any, error) {
		if out, ok := mapping[fmt.Sprint(v)]; ok {
			return out, nil
		}
		return v, nil
	})
}

// Filter returns a copy that replaces values rejected by keep with fallback.
func (c *Closure) Filter(keep Predicate, fallback any) *Closure {
	return c.Then(func(v any, ctx Context) (any, error) {
		if keep(v, ctx) {
			return v, nil
		}
		return fallback, nil
	})
}

// Pipeline chains fns into one closure.
func Pipeline(name string, fns ...TransformFunc) *Closure {
	c := NewClosure(name, nil)
	c.steps = 0
	for _, fn := range fns {
		c = c.Then(fn)
	}
	return c
}

func callFn(fn TransformFunc, v any, ctx Context) (any, error) {
	if fn == nil {
		return v, nil
	}
	return fn(v, ctx)
}

// Equals is a Predicate comparing against want.
func Equals(want any) Predicate {
	return func(v any, _ Context) bool { return reflect.DeepEqual(v, want) }
}
