package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

// Row number styles.
const (
	RowNumbers = "numbered"
	RowIndex   = "index"
	RowBullet  = "bullet"
	RowNone    = "none"
)

const (
	sepWidth    = 2
	minColWidth = 3
	maxColWidth = 40
)

// ColumnHint carries the display hints of one column.
type ColumnHint struct {
	// MaxWidth caps the column width in cells. 0 means no cap.
	MaxWidth int
	// Priority orders shrinking: lower values shrink first.
	Priority int
	// Align is "right" or left by default.
	Align string
}

// Options configures columnar rendering.
type Options struct {
	NoColor bool
	// TotalWidth is the width to fit. 0 uses the terminal width.
	TotalWidth     int
	RowNumberStyle string
	// ShowActions adds a column listing each row's enabled actions when the
	// table has no actions column.
	ShowActions bool
}

// Grid is a table of display strings.
type Grid struct {
	Headers []string
	Hints   []ColumnHint
	Rows    [][]string
}

// GridOf flattens a compiled table into display strings. Column order and
// labels follow the descriptors.
func GridOf(c *table.Contract, showActions bool) Grid {
	g := Grid{}
	for i, d := range c.Columns {
		g.Headers = append(g.Headers, d.DisplayLabel())
		g.Hints = append(g.Hints, HintOf(d, len(c.Columns)-i))
	}
	withActions := showActions && !hasActionsColumn(c.Columns) && anyRowActions(c.Rows)
	if withActions {
		g.Headers = append(g.Headers, "Actions")
		g.Hints = append(g.Hints, ColumnHint{})
	}
	for _, r := range c.Rows {
		cells := make([]string, 0, len(g.Headers))
		for _, d := range c.Columns {
			v, ok := r.Cells[d.Key]
			if !ok {
				cells = append(cells, d.Placeholder)
				continue
			}
			cells = append(cells, CellText(v))
		}
		if withActions {
			cells = append(cells, actionLabels(r.Actions))
		}
		g.Rows = append(g.Rows, cells)
	}
	return g
}

// HintOf derives a hint from a descriptor. A width of "12" or "12ch" caps
// the column; pixel and percentage widths are ignored.
func HintOf(d column.Descriptor, priority int) ColumnHint {
	h := ColumnHint{Priority: priority, Align: d.Align}
	if n, err := strconv.Atoi(strings.TrimSuffix(d.Width, "ch")); err == nil && n > 0 {
		h.MaxWidth = n
	}
	return h
}

func hasActionsColumn(cols []column.Descriptor) bool {
	for _, d := range cols {
		if d.Type == column.TypeActions {
			return true
		}
	}
	return false
}

func anyRowActions(rows []table.Row) bool {
	for _, r := range rows {
		if len(r.Actions) > 0 {
			return true
		}
	}
	return false
}

// RenderContract renders the rows of a compiled table.
func RenderContract(c *table.Contract, opts Options) string {
	return RenderGrid(GridOf(c, opts.ShowActions), opts)
}

// RenderGrid renders a grid with a header, a rule and one line per row.
func RenderGrid(g Grid, opts Options) string {
	if len(g.Headers) == 0 {
		return ""
	}
	for len(g.Hints) < len(g.Headers) {
		g.Hints = append(g.Hints, ColumnHint{})
	}
	total := opts.TotalWidth
	if total <= 0 {
		total = TerminalWidth()
	}
	style := opts.RowNumberStyle
	if style == "" {
		style = RowNumbers
	}

	numWidth := 0
	if style != RowNone {
		numWidth = len(strconv.Itoa(len(g.Rows))) + 2
		if style == RowBullet {
			numWidth = 3
		}
		total -= numWidth + sepWidth
	}
	widths := columnWidths(g, total)

	var b strings.Builder
	sep := strings.Repeat(" ", sepWidth)

	parts := make([]string, 0, len(widths)+1)
	if numWidth > 0 {
		parts = append(parts, paint(headerStyle, padRight("#", numWidth), opts.NoColor))
	}
	for i, h := range g.Headers {
		parts = append(parts, paint(headerStyle, padRight(h, widths[i]), opts.NoColor))
	}
	b.WriteString(strings.Join(parts, sep) + "\n")

	ruleWidth := sum(widths) + (len(widths)-1)*sepWidth
	if numWidth > 0 {
		ruleWidth += numWidth + sepWidth
	}
	b.WriteString(paint(separatorStyle, strings.Repeat("─", ruleWidth), opts.NoColor) + "\n")

	for n, row := range g.Rows {
		parts = parts[:0]
		if numWidth > 0 {
			parts = append(parts, paint(keyStyle, padRight(rowNumber(style, n), numWidth), opts.NoColor))
		}
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if g.Hints[i].Align == "right" {
				cell = padLeft(cell, widths[i])
			} else {
				cell = padRight(cell, widths[i])
			}
			parts = append(parts, paint(valueStyle, cell, opts.NoColor))
		}
		b.WriteString(strings.Join(parts, sep) + "\n")
	}
	return b.String()
}

func rowNumber(style string, n int) string {
	switch style {
	case RowIndex:
		return fmt.Sprintf("[%d]", n)
	case RowBullet:
		return "•"
	}
	return strconv.Itoa(n + 1)
}

func paint(s interface{ Render(...string) string }, text string, noColor bool) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

// columnWidths sizes each column to its content, applies hint caps, and
// shrinks the lowest-priority columns until the grid fits.
func columnWidths(g Grid, available int) []int {
	widths := make([]int, len(g.Headers))
	for i, h := range g.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range g.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	for i, h := range g.Hints {
		if h.MaxWidth > 0 && widths[i] > h.MaxWidth {
			widths[i] = max(h.MaxWidth, minColWidth)
		}
	}

	usable := available - (len(widths)-1)*sepWidth
	if usable <= 0 || sum(widths) <= usable {
		return widths
	}
	for i := range widths {
		widths[i] = min(widths[i], maxColWidth)
	}
	return shrinkByPriority(widths, usable, g.Hints)
}

func shrinkByPriority(widths []int, usable int, hints []ColumnHint) []int {
	excess := sum(widths) - usable
	if excess <= 0 {
		return widths
	}
	order := make([]int, len(widths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return hints[order[a]].Priority < hints[order[b]].Priority
	})
	for _, i := range order {
		if excess <= 0 {
			break
		}
		shrink := min(widths[i]-minColWidth, excess)
		if shrink <= 0 {
			continue
		}
		widths[i] -= shrink
		excess -= shrink
	}
	return widths
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
