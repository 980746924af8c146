package column

import (
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Text is a plain column. It takes part in automatic cast selection by
// default.
type Text struct {
	Base
	// Limit truncates the displayed text to this many terminal cells.
	Limit    int
	Copyable bool
	Prefix   string
	Suffix   string
	Wrap     bool
}

// NewText returns a text column.
func NewText(key, label string) *Text {
	b := newBase(key, label, TypeText)
	b.AutoCast = true
	return &Text{Base: b}
}

// Format implements Column.
func (t *Text) Format(v any, _ Env) value.Value {
	s := value.String(v)
	if s == "" {
		return value.Raw{V: t.Placeholder}
	}
	display := t.Prefix + s + t.Suffix
	truncated := false
	if t.Limit > 0 && runewidth.StringWidth(display) > t.Limit {
		display = runewidth.Truncate(display, t.Limit, "…")
		truncated = true
	}
	if !truncated && !t.Copyable {
		return value.Raw{V: display}
	}
	p := value.NewPayload("text", "value", s, "formatted", display)
	if truncated {
		p = p.With("truncated", true)
	}
	if t.Copyable {
		p = p.With("copyable", true)
	}
	return p
}

// Options implements Column.
func (t *Text) Options() map[string]any {
	return compact(map[string]any{
		"limit":    t.Limit,
		"copyable": t.Copyable,
		"prefix":   t.Prefix,
		"suffix":   t.Suffix,
		"wrap":     t.Wrap,
	})
}

// compact drops zero values so optional fields stay off the wire.
func compact(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if t == "" {
				delete(m, k)
			}
		case bool:
			if !t {
				delete(m, k)
			}
		case int:
			if t == 0 {
				delete(m, k)
			}
		case map[string]string:
			if len(t) == 0 {
				delete(m, k)
			}
		case []string:
			if len(t) == 0 {
				delete(m, k)
			}
		}
	}
	return m
}
