package cast

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		ok   bool
		year int
	}{
		{"iso date", "2024-03-01", true, 2024},
		{"rfc3339", "2024-03-01T10:00:00Z", true, 2024},
		{"sql datetime", "2024-03-01 10:00:00", true, 2024},
		{"day first", "01/03/2024", true, 2024},
		{"epoch seconds", int64(1709287200), true, 2024},
		{"epoch millis", float64(1709287200000), true, 2024},
		{"small number", 42, false, 0},
		{"year out of range", "2150-01-01", false, 0},
		{"word", "active", false, 0},
		{"bool", true, false, 0},
		{"time", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), true, 2020},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime(tt.in, nil, time.UTC)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.year, got.Year())
			}
		})
	}
}

func TestDateCast(t *testing.T) {
	d := NewDate()
	d.Format = "02/01/2006"
	out, err := d.Cast("2024-03-01", Context{})
	require.NoError(t, err)
	p := out.(value.Payload)
	assert.Equal(t, "date", p.Type)
	assert.Equal(t, "01/03/2024", p.Fields["formatted"])
	assert.Equal(t, "2024-03-01T00:00:00Z", p.Fields["value"])

	_, err = d.Cast("nope", Context{})
	assert.ErrorIs(t, err, ErrNotCastable)
}

func TestDateCanCast(t *testing.T) {
	d := NewDate()
	tests := []struct {
		name string
		in   any
		hint string
		want bool
	}{
		{"iso string unhinted", "2023-11-14", "", true},
		{"time value unhinted", time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC), "", true},
		{"epoch on text column", 1700000000, "text", false},
		{"epoch unhinted", int64(1700000000), "", false},
		{"epoch millis unhinted", float64(1700000000000), "", false},
		{"epoch on date column", 1700000000, "date", true},
		{"epoch millis on timestamp column", float64(1700000000000), "timestamp", true},
		{"small number on date column", 42, "date", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.CanCast(tt.in, tt.hint))
		})
	}

	_, ok := DefaultRegistry().Select(1700000000, "")
	assert.False(t, ok, "large ids are not auto-cast")

	out, err := d.Cast(1700000000, Context{})
	require.NoError(t, err, "explicit date casts still take epoch numbers")
	assert.Equal(t, "2023-11-14", out.(value.Payload).Fields["formatted"])
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"R$ 1.234,56", 1234.56, true},
		{"$1,234.56", 1234.56, true},
		{"USD 12", 12, true},
		{"1,234", 1234, true},
		{"-€ 3,5", -3.5, true},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestCurrencyCanCast(t *testing.T) {
	c := NewCurrency()
	assert.True(t, c.CanCast("R$ 1.234,56", ""))
	assert.True(t, c.CanCast("$10", ""))
	assert.True(t, c.CanCast(10.5, "price"))
	assert.False(t, c.CanCast(10.5, ""))
	assert.False(t, c.CanCast(true, "currency"))
	assert.False(t, c.CanCast("hello", "money"))
}

func TestManualMoney(t *testing.T) {
	assert.Equal(t, "USD 1,234.50", ManualMoney(1234.5, MoneyFormat{Decimals: 2}))
	assert.Equal(t, "R$ 1.234,50", ManualMoney(1234.5, MoneyFormat{Decimals: 2, Symbol: "R$", Thousands: ".", Decimal: ","}))
	assert.Equal(t, "-$5", ManualMoney(-5, MoneyFormat{Symbol: "$"}))
}

func TestFormatMoney(t *testing.T) {
	out, err := FormatMoney(1234.5, MoneyFormat{Locale: "en-US", Currency: "USD", Decimals: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "1,234.50")
	assert.Contains(t, out, "$")

	out, err = FormatMoney(1234.5, MoneyFormat{Locale: "en-US", Currency: "NOPE", Decimals: 2})
	require.Error(t, err)
	assert.Equal(t, "NOPE 1,234.50", out)
}

func TestCurrencyCastUsesContextDefaults(t *testing.T) {
	out, err := NewCurrency().Cast(99.9, Context{Locale: "en-US", Currency: "eur"})
	require.NoError(t, err)
	p := out.(value.Payload)
	assert.Equal(t, "currency", p.Type)
	assert.Equal(t, "EUR", p.Fields["currency"])
	assert.Equal(t, 99.9, p.Fields["value"])
	assert.True(t, strings.Contains(p.Fields["formatted"].(string), "99.90"))
}

type priority int

func (p priority) Label() string   { return [...]string{"Low", "High"}[p] }
func (p priority) Variant() string { return [...]string{"secondary", "danger"}[p] }
func (p priority) Value() any      { return int(p) }

func TestStatusCast(t *testing.T) {
	s := NewStatus(nil)

	t.Run("keys differing only in case", func(t *testing.T) {
		mixed := NewStatus(map[string]StatusOption{
			"Open": {Variant: "info", Label: "Open (title)"},
			"OPEN": {Variant: "danger", Label: "Open (upper)"},
			"open": {Variant: "success", Label: "Open (lower)"},
		})
		noLower := NewStatus(map[string]StatusOption{
			"Open": {Variant: "info", Label: "Open (title)"},
			"OPEN": {Variant: "danger", Label: "Open (upper)"},
		})
		for range 50 {
			opt, ok := mixed.lookup("oPeN")
			require.True(t, ok)
			assert.Equal(t, "Open (lower)", opt.Label)

			opt, ok = mixed.lookup("OPEN")
			require.True(t, ok)
			assert.Equal(t, "Open (upper)", opt.Label, "exact key wins")

			opt, ok = noLower.lookup("open")
			require.True(t, ok)
			assert.Equal(t, "Open (upper)", opt.Label, "smallest folded key wins")
		}
	})

	t.Run("case insensitive lookup", func(t *testing.T) {
		require.True(t, s.CanCast("ACTIVE", ""))
		out, err := s.Cast("ACTIVE", Context{})
		require.NoError(t, err)
		assert.Equal(t, "Ativo", out.(value.Payload).Fields["label"])
	})

	t.Run("unknown without default", func(t *testing.T) {
		assert.False(t, s.CanCast("mystery", ""))
		_, err := s.Cast("mystery", Context{})
		assert.ErrorIs(t, err, ErrNotCastable)
	})

	t.Run("unknown with default", func(t *testing.T) {
		custom := NewStatus(map[string]StatusOption{})
		custom.Default = &StatusOption{Variant: "info"}
		out, err := custom.Cast("in_review", Context{})
		require.NoError(t, err)
		p := out.(value.Payload)
		assert.Equal(t, "info", p.Fields["variant"])
		assert.Equal(t, "In review", p.Fields["label"])
	})

	t.Run("enum-like value", func(t *testing.T) {
		require.True(t, s.CanCast(priority(1), ""))
		out, err := s.Cast(priority(1), Context{})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"type": "badge", "value": 1, "variant": "danger", "label": "High"}, out.(value.Payload).Map())
	})
}

func TestClosureBuilders(t *testing.T) {
	upper := NewClosure("upper", func(v any, _ Context) (any, error) {
		return strings.ToUpper(value.String(v)), nil
	})

	mapped := upper.Map(map[string]any{"A": "alpha"})
	out, err := mapped.Cast("a", Context{})
	require.NoError(t, err)
	assert.Equal(t, "alpha", out)

	out, err = upper.Cast("a", Context{})
	require.NoError(t, err)
	assert.Equal(t, "A", out, "builders never mutate the receiver")

	guarded := upper.When(Equals("X"), func(any, Context) (any, error) { return "ex", nil }, nil)
	out, _ = guarded.Cast("x", Context{})
	assert.Equal(t, "ex", out)
	out, _ = guarded.Cast("y", Context{})
	assert.Equal(t, "Y", out)

	filtered := upper.Filter(func(v any, _ Context) bool { return v != "" }, "-")
	out, _ = filtered.Cast("", Context{})
	assert.Equal(t, "-", out)

	assert.False(t, upper.Automatic())
	auto := upper.AutoWhen(func(v any, _ string) bool {
		_, ok := v.(string)
		return ok
	})
	assert.True(t, auto.Automatic())
	assert.False(t, auto.CanCast(1, ""))
	assert.Equal(t, PriorityClosure, auto.Priority())
	assert.Equal(t, 99, auto.WithPriority(99).Priority())
}

func TestPipelineStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	reached := false
	p := Pipeline("p",
		func(any, Context) (any, error) { return nil, boom },
		func(v any, _ Context) (any, error) {
			reached = true
			return v, nil
		},
	)
	_, err := p.Cast(1, Context{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, reached)
}

func TestExprCast(t *testing.T) {
	c, err := NewExpr(`row.first + " " + value`)
	require.NoError(t, err)
	assert.False(t, c.Automatic())
	out, err := c.Cast("Lovelace", Context{Row: map[string]any{"first": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", out)

	_, err = NewExpr(`row.`)
	assert.Error(t, err)
}
