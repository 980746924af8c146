package filter

import (
	"strings"
	"time"

	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// bounds reads a two-sided request value: a map with min/max, from/to or
// start/end keys, or a two-element list.
func bounds(v any) (lo, hi any) {
	switch t := v.(type) {
	case map[string]any:
		for _, pair := range [][2]string{{"min", "max"}, {"from", "to"}, {"start", "end"}} {
			l, lok := t[pair[0]]
			h, hok := t[pair[1]]
			if lok || hok {
				return l, h
			}
		}
	case []any:
		if len(t) > 0 {
			lo = t[0]
		}
		if len(t) > 1 {
			hi = t[1]
		}
	case []string:
		if len(t) > 0 {
			lo = t[0]
		}
		if len(t) > 1 {
			hi = t[1]
		}
	}
	return lo, hi
}

// NumberRange filters a numeric column between inclusive bounds. Either
// bound may be omitted.
type NumberRange struct {
	Base
	Min, Max *float64
	Step     float64
}

// NewNumberRange returns a number range filter.
func NewNumberRange(field, label string) *NumberRange {
	return &NumberRange{Base: newBase("number_range", field, label)}
}

// Operator implements Filter.
func (n *NumberRange) Operator() Operator { return OpRange }

func (n *NumberRange) parse(v any) (lo, hi *float64) {
	l, h := bounds(v)
	if f, ok := value.Float(l); ok && !value.IsBlank(l) {
		lo = &f
	}
	if f, ok := value.Float(h); ok && !value.IsBlank(h) {
		hi = &f
	}
	return lo, hi
}

// HasValue implements Filter.
func (n *NumberRange) HasValue(v any) bool {
	lo, hi := n.parse(v)
	return lo != nil || hi != nil
}

// Apply implements Filter.
func (n *NumberRange) Apply(q query.Builder, v any) query.Builder {
	lo, hi := n.parse(v)
	if lo != nil {
		q = q.Where(n.Field, query.OpGte, *lo)
	}
	if hi != nil {
		q = q.Where(n.Field, query.OpLte, *hi)
	}
	return q
}

// Options implements Filter.
func (n *NumberRange) Options() map[string]any {
	out := map[string]any{}
	if n.Min != nil {
		out["min"] = *n.Min
	}
	if n.Max != nil {
		out["max"] = *n.Max
	}
	if n.Step != 0 {
		out["step"] = n.Step
	}
	return out
}

// DateRange filters a date column between inclusive bounds. With only a
// start it applies ">=", with only an end "<=", and with neither nothing.
// A date-only end bound covers its whole day.
type DateRange struct {
	Base
	Location *time.Location
}

// NewDateRange returns a date range filter.
func NewDateRange(field, label string) *DateRange {
	return &DateRange{Base: newBase("date_range", field, label)}
}

// Operator implements Filter.
func (d *DateRange) Operator() Operator { return OpRange }

func (d *DateRange) parse(v any) (start, end *time.Time) {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	l, h := bounds(v)
	if t, ok := cast.ParseTime(l, nil, loc); ok {
		start = &t
	}
	if t, ok := cast.ParseTime(h, nil, loc); ok {
		if s, isString := h.(string); isString && len(strings.TrimSpace(s)) <= len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Second)
		}
		end = &t
	}
	return start, end
}

// HasValue implements Filter.
func (d *DateRange) HasValue(v any) bool {
	start, end := d.parse(v)
	return start != nil || end != nil
}

// Apply implements Filter.
func (d *DateRange) Apply(q query.Builder, v any) query.Builder {
	start, end := d.parse(v)
	if start != nil {
		q = q.Where(d.Field, query.OpGte, *start)
	}
	if end != nil {
		q = q.Where(d.Field, query.OpLte, *end)
	}
	return q
}

// Options implements Filter.
func (d *DateRange) Options() map[string]any { return nil }
