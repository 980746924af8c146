package formatter

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/table"
)

// RenderSummary renders the facts about a compile that sit around the rows:
// mode, conflicts, sort, filters and table-level actions.
func RenderSummary(c *table.Contract, noColor bool) string {
	pairs := [][2]string{
		{"table", c.Table},
		{"mode", c.Mode.String()},
	}
	if c.Strategy != "" {
		pairs = append(pairs, [2]string{"strategy", string(c.Strategy)})
	}
	if len(c.Conflicts) > 0 {
		pairs = append(pairs, [2]string{"conflicts", c.Conflicts.String()})
	}
	if c.Sort != nil {
		pairs = append(pairs, [2]string{"sort", c.Sort.Column + " " + c.Sort.Direction})
	}
	if len(c.AppliedFilters) > 0 {
		pairs = append(pairs, [2]string{"filters", strings.Join(c.AppliedFilters, ", ")})
	}
	if s := actionLabels(c.HeaderActions); s != "" {
		pairs = append(pairs, [2]string{"header actions", s})
	}
	if s := actionLabels(c.BulkActions); s != "" {
		pairs = append(pairs, [2]string{"bulk actions", s})
	}
	pairs = append(pairs, [2]string{"rows", fmt.Sprint(len(c.Rows))})

	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, len(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(paint(keyStyle, padRight(p[0], keyWidth), noColor))
		b.WriteString(strings.Repeat(" ", sepWidth))
		b.WriteString(p[1] + "\n")
	}
	return b.String()
}

// RenderDiagnostics lists diagnostics one per line, prefixed by their
// severity. It returns "" when there is nothing to report.
func RenderDiagnostics(d mode.Diagnostics, noColor bool) string {
	if d.Empty() {
		return ""
	}
	var b strings.Builder
	write := func(label string, items []string) {
		for _, item := range items {
			b.WriteString(paint(keyStyle, label, noColor) + " " + item + "\n")
		}
	}
	if d.Blocking {
		b.WriteString(paint(headerStyle, "table configuration error", noColor) + "\n")
	}
	write("warning:", d.Warnings)
	write("hint:", d.Recommendations)
	write("note:", d.Notes)
	return b.String()
}
