package column

import (
	"strconv"
	"time"

	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Date formats time-like cells.
type Date struct {
	Base
	// Layout is a Go time layout.
	Layout string
	// Relative adds a humanized distance from now ("3 days ago").
	Relative bool
	now      func() time.Time
}

// NewDate returns a date column using the ISO date layout.
func NewDate(key, label string) *Date {
	return &Date{Base: newBase(key, label, TypeDate), Layout: "2006-01-02"}
}

// Format implements Column. Values that do not parse pass through.
func (d *Date) Format(v any, env Env) value.Value {
	loc := env.Cast.Location
	if loc == nil {
		loc = time.UTC
	}
	t, ok := cast.ParseTime(v, nil, loc)
	if !ok {
		return value.Raw{V: v}
	}
	t = t.In(loc)
	layout := d.Layout
	if layout == "" {
		layout = "2006-01-02"
	}
	p := value.NewPayload("date",
		"value", t.Format(time.RFC3339),
		"formatted", t.Format(layout),
		"timestamp", t.Unix(),
	)
	if d.Relative {
		now := time.Now
		if d.now != nil {
			now = d.now
		}
		p = p.With("relative", relative(now().Sub(t)))
	}
	return p
}

// Options implements Column.
func (d *Date) Options() map[string]any {
	return compact(map[string]any{"format": d.Layout, "relative": d.Relative})
}

func relative(d time.Duration) string {
	future := d < 0
	if future {
		d = -d
	}
	var n int
	var unit string
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		n, unit = int(d/time.Minute), "minute"
	case d < 24*time.Hour:
		n, unit = int(d/time.Hour), "hour"
	case d < 30*24*time.Hour:
		n, unit = int(d/(24*time.Hour)), "day"
	case d < 365*24*time.Hour:
		n, unit = int(d/(30*24*time.Hour)), "month"
	default:
		n, unit = int(d/(365*24*time.Hour)), "year"
	}
	if n != 1 {
		unit += "s"
	}
	if future {
		return "in " + strconv.Itoa(n) + " " + unit
	}
	return strconv.Itoa(n) + " " + unit + " ago"
}
