package mode

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Diagnostics reports configuration problems. They never fail a render;
// Blocking tells the caller that the current policy asks for the table to
// be replaced by an error state.
type Diagnostics struct {
	Warnings        []string `json:"warnings" yaml:"warnings" msgpack:"warnings"`
	Recommendations []string `json:"recommendations" yaml:"recommendations" msgpack:"recommendations"`
	Notes           []string `json:"notes,omitempty" yaml:"notes,omitempty" msgpack:"notes,omitempty"`
	Blocking        bool     `json:"blocking" yaml:"blocking" msgpack:"blocking"`
}

// Empty reports whether there is nothing to show.
func (d Diagnostics) Empty() bool {
	return len(d.Warnings) == 0 && len(d.Recommendations) == 0 && len(d.Notes) == 0
}

// Merge appends other's entries to d.
func (d Diagnostics) Merge(other Diagnostics) Diagnostics {
	return Diagnostics{
		Warnings:        append(append([]string(nil), d.Warnings...), other.Warnings...),
		Recommendations: append(append([]string(nil), d.Recommendations...), other.Recommendations...),
		Notes:           append(append([]string(nil), d.Notes...), other.Notes...),
		Blocking:        d.Blocking || other.Blocking,
	}
}

// Markdown renders the diagnostics as a short markdown report.
func (d Diagnostics) Markdown() string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	if d.Blocking {
		b.WriteString("## Table configuration error\n\n")
	} else {
		b.WriteString("## Table configuration\n\n")
	}
	section(&b, "Warnings", d.Warnings)
	section(&b, "Recommendations", d.Recommendations)
	section(&b, "Notes", d.Notes)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("### " + title + "\n\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

// HTML renders the markdown report as an HTML fragment suitable for a
// banner.
func (d Diagnostics) HTML() string {
	md := d.Markdown()
	if md == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return string(markdown.Render(doc, renderer))
}
