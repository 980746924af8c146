package cast

import (
	"math"
	"strings"
	"time"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Accepted year range for anything DateCast treats as a date.
const (
	MinYear = 1970
	MaxYear = 2100
)

// DefaultDateLayouts are tried in order when parsing date strings.
var DefaultDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// Date parses date-like strings, time values, and epoch numbers.
type Date struct {
	Base
	// Format is the Go layout of the formatted output.
	Format string
	// Layouts are the accepted input layouts.
	Layouts []string
}

// NewDate returns a Date cast with the canonical priority.
func NewDate() *Date {
	return &Date{
		Base:    Base{Name: "date", Rank: PriorityDate, Auto: true},
		Format:  "2006-01-02",
		Layouts: DefaultDateLayouts,
	}
}

// Config implements Cast.
func (d *Date) Config() map[string]any {
	return map[string]any{"format": d.Format, "layouts": d.Layouts}
}

// Cacheable implements Cacheable.
func (d *Date) Cacheable() bool { return true }

var dateHints = map[string]bool{"date": true, "datetime": true, "timestamp": true}

// CanCast accepts strings and time values that parse to a time within
// [MinYear, MaxYear]. Epoch numbers are accepted only on columns hinted as
// dates; elsewhere they are ids and counters.
func (d *Date) CanCast(v any, hint string) bool {
	switch v.(type) {
	case string, time.Time, *time.Time:
	default:
		if !dateHints[hint] {
			return false
		}
	}
	_, ok := ParseTime(v, d.Layouts, time.UTC)
	return ok
}

// Cast produces a "date" payload with the ISO value, the formatted text and
// the unix timestamp.
func (d *Date) Cast(v any, ctx Context) (any, error) {
	t, ok := ParseTime(v, d.Layouts, ctx.location())
	if !ok {
		return nil, ErrNotCastable
	}
	t = t.In(ctx.location())
	format := d.Format
	if format == "" {
		format = "2006-01-02"
	}
	return value.NewPayload("date",
		"value", t.Format(time.RFC3339),
		"formatted", t.Format(format),
		"timestamp", t.Unix(),
	), nil
}

// ParseTime interprets v as a point in time. Strings are parsed with layouts
// (in loc when they carry no zone), numbers are unix seconds, or milliseconds
// when they have 13 digits. Results outside [MinYear, MaxYear] are rejected,
// as are numbers with fewer than 10 digits, which are far more likely to be
// counts or ids than timestamps.
func ParseTime(v any, layouts []string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		t = *x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		parsed, ok := parseLayouts(s, layouts, loc)
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	case bool, nil:
		return time.Time{}, false
	default:
		f, ok := value.Float(v)
		if !ok || f <= 0 || f != math.Trunc(f) {
			return time.Time{}, false
		}
		switch {
		case f >= 1e12:
			t = time.UnixMilli(int64(f)).UTC()
		case f >= 1e9:
			t = time.Unix(int64(f), 0).UTC()
		default:
			return time.Time{}, false
		}
	}
	if t.IsZero() || t.Year() < MinYear || t.Year() > MaxYear {
		return time.Time{}, false
	}
	return t, true
}

func parseLayouts(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
