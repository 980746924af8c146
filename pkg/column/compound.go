package column

import (
	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Line styles understood by the renderer.
const (
	StyleDefault = "default"
	StyleMuted   = "muted"
	StyleBold    = "bold"
	StyleSmall   = "small"
	StyleCode    = "code"
)

// Line is one secondary text line of a compound cell.
type Line struct {
	Field string `json:"field" yaml:"field"`
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
}

// Compound composes an avatar, a title and secondary lines from several row
// fields.
type Compound struct {
	Base
	AvatarField string
	TitleField  string
	TitleStyle  string
	Lines       []Line
}

// NewCompound returns a compound column whose title reads the column key.
func NewCompound(key, label string) *Compound {
	return &Compound{Base: newBase(key, label, TypeCompound), TitleStyle: StyleBold}
}

// FormatRow implements RowFormatter.
func (c *Compound) FormatRow(row any, _ Env) value.Value {
	titleField := c.TitleField
	if titleField == "" {
		titleField = c.FieldPath()
	}
	title := value.String(fieldpath.Get(row, titleField))
	if title == "" {
		title = c.Placeholder
	}
	lines := make([]any, 0, len(c.Lines))
	for _, l := range c.Lines {
		text := value.String(fieldpath.Get(row, l.Field))
		if text == "" {
			continue
		}
		style := l.Style
		if style == "" {
			style = StyleMuted
		}
		lines = append(lines, map[string]any{"text": text, "style": style})
	}
	p := value.NewPayload("compound", "title", map[string]any{"text": title, "style": styleOr(c.TitleStyle, StyleBold)})
	if c.AvatarField != "" {
		if avatar := value.String(fieldpath.Get(row, c.AvatarField)); avatar != "" {
			p = p.With("avatar", avatar)
		}
	}
	return p.With("lines", lines)
}

// Format implements Column. Compound cells are built by FormatRow.
func (c *Compound) Format(v any, _ Env) value.Value {
	return value.Raw{V: v}
}

// Options implements Column.
func (c *Compound) Options() map[string]any {
	out := compact(map[string]any{
		"avatarField": c.AvatarField,
		"titleField":  c.TitleField,
		"titleStyle":  c.TitleStyle,
	})
	if len(c.Lines) > 0 {
		out["lines"] = c.Lines
	}
	return out
}

func styleOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
