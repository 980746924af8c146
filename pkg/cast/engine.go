package cast

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Registry holds casts in registration order. Registration order is the
// tie-breaker for automatic selection, so it is never re-sorted.
type Registry struct {
	mu    sync.RWMutex
	casts []Cast
}

// NewRegistry returns a registry holding casts in the given order.
func NewRegistry(casts ...Cast) *Registry {
	r := &Registry{}
	for _, c := range casts {
		r.Register(c)
	}
	return r
}

// DefaultRegistry registers the built-in automatic casts.
func DefaultRegistry() *Registry {
	return NewRegistry(NewDate(), NewCurrency(), NewStatus(nil))
}

// Register appends c. A nil cast is ignored.
func (r *Registry) Register(c Cast) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casts = append(r.casts, c)
}

// All returns the registered casts in registration order.
func (r *Registry) All() []Cast {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Cast, len(r.casts))
	copy(out, r.casts)
	return out
}

// Lookup returns the first registered cast with the given type.
func (r *Registry) Lookup(typ string) (Cast, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.casts {
		if c.Type() == typ {
			return c, true
		}
	}
	return nil, false
}

// Select returns the automatic cast with the highest priority among those
// accepting v. On equal priority the earlier registration wins.
func (r *Registry) Select(v any, hint string) (Cast, bool) {
	var best Cast
	for _, c := range r.All() {
		if !c.Automatic() || !safeCanCast(c, v, hint) {
			continue
		}
		if best == nil || c.Priority() > best.Priority() {
			best = c
		}
	}
	return best, best != nil
}

func safeCanCast(c Cast, v any, hint string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return c.CanCast(v, hint)
}

// Engine runs casts with failure isolation and optional render-scoped
// memoization.
type Engine struct {
	registry  *Registry
	cache     *Cache
	log       logr.Logger
	automatic bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used to report cast failures.
func WithLogger(log logr.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithCache enables memoization through c. Pass a fresh cache per render.
func WithCache(c *Cache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithAutomatic toggles automatic selection for the whole engine.
func WithAutomatic(enabled bool) EngineOption {
	return func(e *Engine) { e.automatic = enabled }
}

// NewEngine returns an engine over reg. A nil registry behaves as empty.
func NewEngine(reg *Registry, opts ...EngineOption) *Engine {
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Engine{registry: reg, log: logr.Discard(), automatic: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine selects from.
func (e *Engine) Registry() *Registry { return e.registry }

// Cache returns the engine's cache, or nil.
func (e *Engine) Cache() *Cache { return e.cache }

// Apply runs c on v. On error or panic the original v is returned.
func (e *Engine) Apply(c Cast, v any, ctx Context) any {
	if c == nil {
		return v
	}
	key, cacheable := e.cacheKey(c, v, ctx)
	if cacheable {
		if out, ok := e.cache.Get(key); ok {
			return out
		}
	}
	out, err := run(c, v, ctx)
	if err != nil {
		e.log.Info("cast failed; keeping original value",
			"cast", c.Type(), "column", ctx.Column, "error", err.Error())
		return v
	}
	if cacheable {
		e.cache.Put(key, out)
	}
	return out
}

// Auto selects and applies the best automatic cast. The returned cast is nil
// when automatic selection is disabled or nothing matched.
func (e *Engine) Auto(v any, ctx Context) (any, Cast) {
	if !e.automatic {
		return v, nil
	}
	c, ok := e.registry.Select(v, ctx.TypeHint)
	if !ok {
		return v, nil
	}
	return e.Apply(c, v, ctx), c
}

func (e *Engine) cacheKey(c Cast, v any, ctx Context) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	cc, ok := c.(Cacheable)
	if !ok || !cc.Cacheable() {
		return "", false
	}
	return cacheKey(c, v, ctx)
}

func run(c Cast, v any, ctx Context) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cast %s panicked: %v", c.Type(), r)
		}
	}()
	return c.Cast(v, ctx)
}
