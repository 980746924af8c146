package column

import (
	"strings"

	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Image renders a URL cell as an image.
type Image struct {
	Base
	// BaseURL is prepended to relative sources.
	BaseURL  string
	AltField string
	Fallback string
	Size     int
	Rounded  bool
}

// NewImage returns a centered image column.
func NewImage(key, label string) *Image {
	b := newBase(key, label, TypeImage)
	b.Align = AlignCenter
	return &Image{Base: b, Size: 40}
}

// Format implements Column.
func (i *Image) Format(v any, env Env) value.Value {
	src := strings.TrimSpace(value.String(v))
	if src == "" {
		src = i.Fallback
	}
	if src == "" {
		return value.Raw{V: i.Placeholder}
	}
	if i.BaseURL != "" && !isAbsoluteURL(src) {
		src = strings.TrimRight(i.BaseURL, "/") + "/" + strings.TrimLeft(src, "/")
	}
	alt := i.Label
	if i.AltField != "" {
		if a := value.String(fieldpath.Get(env.Cast.Row, i.AltField)); a != "" {
			alt = a
		}
	}
	p := value.NewPayload("image", "src", src, "alt", nonEmpty(alt))
	if i.Size > 0 {
		p = p.With("size", i.Size)
	}
	if i.Rounded {
		p = p.With("rounded", true)
	}
	return p
}

// Options implements Column.
func (i *Image) Options() map[string]any {
	out := compact(map[string]any{
		"baseUrl":  i.BaseURL,
		"altField": i.AltField,
		"fallback": i.Fallback,
		"rounded":  i.Rounded,
	})
	out["size"] = i.Size
	return out
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "//") || strings.HasPrefix(s, "data:")
}
