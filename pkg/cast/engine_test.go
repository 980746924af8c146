package cast

import (
	"errors"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

type stubCast struct {
	Base
	accept bool
	out    any
	err    error
	panics bool
	calls  int
}

func (s *stubCast) Config() map[string]any { return map[string]any{"name": s.Name} }
func (s *stubCast) CanCast(any, string) bool { return s.accept }
func (s *stubCast) Cacheable() bool { return true }
func (s *stubCast) Cast(any, Context) (any, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.out, s.err
}

func stub(name string, rank int, out any) *stubCast {
	return &stubCast{Base: Base{Name: name, Rank: rank, Auto: true}, accept: true, out: out}
}

func TestRegistrySelect(t *testing.T) {
	t.Run("highest priority wins", func(t *testing.T) {
		low, high := stub("low", 10, "l"), stub("high", 90, "h")
		c, ok := NewRegistry(low, high).Select("x", "")
		require.True(t, ok)
		assert.Equal(t, "high", c.Type())
	})

	t.Run("tie goes to first registered", func(t *testing.T) {
		first, second := stub("first", 50, 1), stub("second", 50, 2)
		c, ok := NewRegistry(first, second).Select("x", "")
		require.True(t, ok)
		assert.Equal(t, "first", c.Type())
	})

	t.Run("rejecting and manual casts are skipped", func(t *testing.T) {
		rejecting := stub("rejecting", 99, nil)
		rejecting.accept = false
		manual := stub("manual", 98, nil)
		manual.Auto = false
		fallback := stub("fallback", 1, nil)
		c, ok := NewRegistry(rejecting, manual, fallback).Select("x", "")
		require.True(t, ok)
		assert.Equal(t, "fallback", c.Type())
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, ok := NewRegistry().Select("x", "")
		assert.False(t, ok)
	})
}

func TestDefaultRegistryPrefersDateOverCurrency(t *testing.T) {
	c, ok := DefaultRegistry().Select("2024-03-01", "currency")
	require.True(t, ok)
	assert.Equal(t, "date", c.Type())

	c, ok = DefaultRegistry().Select("active", "")
	require.True(t, ok)
	assert.Equal(t, "status", c.Type())

	_, ok = DefaultRegistry().Select(42, "")
	assert.False(t, ok, "plain numbers are not money without a hint")
}

func TestEngineApplyKeepsOriginalOnFailure(t *testing.T) {
	var logged []string
	log := funcr.New(func(prefix, args string) { logged = append(logged, args) }, funcr.Options{})
	engine := NewEngine(nil, WithLogger(log))

	failing := stub("failing", 1, nil)
	failing.err = errors.New("bad input")
	assert.Equal(t, "raw", engine.Apply(failing, "raw", Context{Column: "amount"}))

	panicking := stub("panicking", 1, nil)
	panicking.panics = true
	assert.Equal(t, 7, engine.Apply(panicking, 7, Context{}))

	require.Len(t, logged, 2)
	assert.Contains(t, logged[0], "bad input")
	assert.Contains(t, logged[0], "amount")
}

func TestEngineCache(t *testing.T) {
	c := stub("upper", 1, "X")
	cache := NewCache()
	engine := NewEngine(NewRegistry(c), WithCache(cache))

	for range 3 {
		assert.Equal(t, "X", engine.Apply(c, "x", Context{Locale: "en-US"}))
	}
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 1, cache.Len())

	engine.Apply(c, "x", Context{Locale: "pt-BR"})
	assert.Equal(t, 2, c.calls, "locale is part of the key")

	engine.Apply(c, map[string]any{"a": 1}, Context{})
	engine.Apply(c, map[string]any{"a": 1}, Context{})
	assert.Equal(t, 4, c.calls, "composite values are never memoized")

	hits, _ := cache.Stats()
	assert.Equal(t, int64(2), hits)
}

func TestEngineAutoDisabled(t *testing.T) {
	engine := NewEngine(DefaultRegistry(), WithAutomatic(false))
	out, c := engine.Auto("active", Context{})
	assert.Nil(t, c)
	assert.Equal(t, "active", out)
}

func TestEngineAutoStatusBadge(t *testing.T) {
	engine := NewEngine(DefaultRegistry())
	out, c := engine.Auto("active", Context{})
	require.NotNil(t, c)
	p, ok := out.(value.Payload)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"type":    "badge",
		"variant": "success",
		"label":   "Ativo",
		"value":   "active",
	}, p.Map())
}
