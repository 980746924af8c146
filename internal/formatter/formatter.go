// Package formatter renders compiled tables for a terminal.
package formatter

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"reflect"
	"strings"

	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/table"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

var (
	defaultHeaderFG   = lipgloss.Color("12")
	defaultHeaderBG   = lipgloss.Color("236")
	defaultKeyColor   = lipgloss.Color("14")
	defaultValueColor = lipgloss.Color("248")
	defaultSeparator  = lipgloss.Color("240")

	headerStyle    lipgloss.Style
	keyStyle       lipgloss.Style
	valueStyle     lipgloss.Style
	separatorStyle lipgloss.Style
)

// TableColors controls the rendered colors. Nil fields use the defaults.
type TableColors struct {
	HeaderFG       color.Color
	HeaderBG       color.Color
	KeyColor       color.Color
	ValueColor     color.Color
	SeparatorColor color.Color
}

func or(c, fallback color.Color) color.Color {
	if c == nil {
		return fallback
	}
	return c
}

// SetTableTheme overrides the package styles.
func SetTableTheme(tc TableColors) {
	headerStyle = lipgloss.NewStyle().Bold(true).
		Foreground(or(tc.HeaderFG, defaultHeaderFG)).
		Background(or(tc.HeaderBG, defaultHeaderBG))
	keyStyle = lipgloss.NewStyle().Foreground(or(tc.KeyColor, defaultKeyColor))
	valueStyle = lipgloss.NewStyle().Foreground(or(tc.ValueColor, defaultValueColor))
	separatorStyle = lipgloss.NewStyle().Foreground(or(tc.SeparatorColor, defaultSeparator))
}

//nolint:gochecknoinits // default theme for package consumers
func init() {
	SetTableTheme(TableColors{})
}

// CellText returns the single-line display text of a compiled cell. Action
// lists show their enabled labels.
func CellText(v value.Value) string {
	if p, ok := v.(value.Payload); ok && p.Type == "actions" {
		items, _ := p.Get("actions")
		return actionLabels(items)
	}
	return Stringify(table.Cell(v))
}

func actionLabels(items any) string {
	list, ok := items.([]action.Resolved)
	if !ok {
		return Stringify(items)
	}
	labels := make([]string, 0, len(list))
	for _, a := range list {
		if a.Enabled {
			labels = append(labels, a.Label)
		}
	}
	return strings.Join(labels, ", ")
}

// Stringify returns a compact single-line representation of v.
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return flatten(t)
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	case value.Value:
		return CellText(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() { //nolint:exhaustive // only containers are marshaled
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

// flatten keeps table rows on one line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// truncate cuts s to maxLen display cells, ending with an ellipsis when
// there is room for one.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}

func padRight(s string, width int) string {
	s = truncate(s, width)
	return runewidth.FillRight(s, width)
}

func padLeft(s string, width int) string {
	s = truncate(s, width)
	return runewidth.FillLeft(s, width)
}

// TerminalWidth returns the width of stdout, or 120 when it is not a
// terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120
	}
	return width
}
