package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/oakwood-commons/gridkit/internal/formatter"
	"github.com/oakwood-commons/gridkit/internal/limiter"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

type renderOptions struct {
	noColor     bool
	width       int
	showActions bool
	rowNumbers  string
	page        limiter.Page
	windowed    bool
}

// writeContract encodes c, or renders it as a terminal table when output
// is "table".
func writeContract(w io.Writer, c *table.Contract, output string, f table.Format, opts renderOptions) error {
	if output != outputTable {
		return c.Encode(w, f)
	}
	width := opts.width
	if width <= 0 {
		width = terminalWidth()
	}
	var b strings.Builder
	b.WriteString(formatter.RenderSummary(c, opts.noColor))
	b.WriteString("\n")
	if len(c.Columns) > 0 {
		b.WriteString(formatter.RenderContract(c, formatter.Options{
			NoColor:        opts.noColor,
			TotalWidth:     width,
			RowNumberStyle: rowNumberStyle(opts.rowNumbers),
			ShowActions:    opts.showActions,
		}))
	}
	if opts.windowed {
		fmt.Fprintf(&b, "(%s)\n", opts.page)
	}
	if d := renderDiagnostics(c, opts.noColor); d != "" {
		b.WriteString("\n" + d)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderDiagnostics(c *table.Contract, noColor bool) string {
	return formatter.RenderDiagnostics(c.Diagnostics, noColor)
}

func rowNumberStyle(s string) string {
	switch s {
	case formatter.RowNumbers, formatter.RowIndex, formatter.RowBullet:
		return s
	}
	return formatter.RowNone
}
