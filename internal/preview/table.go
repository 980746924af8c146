package preview

import (
	"fmt"
	"image/color"
	"strings"

	bubtable "charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// Column and Row alias the bubbles types so callers need not import them.
type (
	Column = bubtable.Column
	Row    = bubtable.Row
)

// Table is a filterable table over typed rows.
type Table[V any] struct {
	table    bubtable.Model
	styles   bubtable.Styles
	rows     []V
	filter   string
	filtered []V
	columns  []Column

	toRow   func(V) Row
	keyFunc func(V) string

	width   int
	height  int
	noColor bool

	headerFG   color.Color
	selectedBG color.Color
}

// NewTable builds a table. toRow renders a value; keyFunc returns the text a
// filter is matched against.
func NewTable[V any](columns []Column, toRow func(V) Row, keyFunc func(V) string) *Table[V] {
	t := bubtable.New(
		bubtable.WithColumns(columns),
		bubtable.WithFocused(true),
		bubtable.WithHeight(5),
	)
	s := bubtable.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Bold(true).
		PaddingLeft(0).
		PaddingRight(1)
	s.Selected = s.Selected.PaddingLeft(0).PaddingRight(0)
	s.Cell = lipgloss.NewStyle().PaddingLeft(0).PaddingRight(1)
	t.SetStyles(s)

	return &Table[V]{
		table:   t,
		styles:  s,
		columns: columns,
		toRow:   toRow,
		keyFunc: keyFunc,
		width:   80,
		height:  10,
	}
}

// SetRows replaces the rows and reapplies the filter.
func (m *Table[V]) SetRows(rows []V) {
	m.rows = rows
	m.applyFilter()
}

// SetColumns replaces the columns.
func (m *Table[V]) SetColumns(columns []Column) {
	m.columns = columns
	m.table.SetColumns(columns)
}

// Rows returns the rows that pass the filter.
func (m *Table[V]) Rows() []V {
	return m.filtered
}

// AllRows returns every row.
func (m *Table[V]) AllRows() []V {
	return m.rows
}

// SetFilter keeps the rows whose key contains filter, ignoring case.
func (m *Table[V]) SetFilter(filter string) {
	m.filter = filter
	m.applyFilter()
}

// Filter returns the filter text.
func (m *Table[V]) Filter() string {
	return m.filter
}

func (m *Table[V]) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter))
	if needle == "" {
		m.filtered = m.rows
	} else {
		m.filtered = nil
		for _, row := range m.rows {
			if strings.Contains(strings.ToLower(m.keyFunc(row)), needle) {
				m.filtered = append(m.filtered, row)
			}
		}
	}
	rows := make([]Row, len(m.filtered))
	for i, row := range m.filtered {
		rows[i] = m.toRow(row)
	}
	m.table.SetRows(rows)
	if m.Cursor() >= len(m.filtered) && len(m.filtered) > 0 {
		m.SetCursor(0)
	}
}

// Cursor returns the cursor position.
func (m *Table[V]) Cursor() int {
	return m.table.Cursor()
}

// SetCursor moves the cursor.
func (m *Table[V]) SetCursor(pos int) {
	m.table.SetCursor(pos)
}

// SelectedRow returns the row under the cursor, or nil.
func (m *Table[V]) SelectedRow() *V {
	c := m.Cursor()
	if c < 0 || c >= len(m.filtered) {
		return nil
	}
	return &m.filtered[c]
}

// SetSize sets the table dimensions.
func (m *Table[V]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(height)
}

// SetNoColor switches to reverse video for the selection.
func (m *Table[V]) SetNoColor(noColor bool) {
	m.noColor = noColor
	m.applyColorScheme()
}

// SetColors sets the header foreground and selection background.
func (m *Table[V]) SetColors(headerFG, selectedBG color.Color) {
	m.headerFG = headerFG
	m.selectedBG = selectedBG
	m.applyColorScheme()
}

func (m *Table[V]) applyColorScheme() {
	s := m.styles
	if m.noColor {
		s.Header = s.Header.UnsetForeground().UnsetBackground()
		s.Selected = s.Selected.UnsetForeground().UnsetBackground().Reverse(true)
		s.Cell = s.Cell.UnsetForeground().UnsetBackground()
	} else {
		if m.headerFG != nil {
			s.Header = s.Header.Foreground(m.headerFG)
		}
		if m.selectedBG != nil {
			s.Selected = s.Selected.Background(m.selectedBG)
		}
	}
	m.table.SetStyles(s)
	m.styles = s
}

// Update forwards navigation keys to the table.
func (m *Table[V]) Update(msg tea.Msg) (*Table[V], tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table.
func (m *Table[V]) View() string {
	return m.table.View()
}

// String implements fmt.Stringer.
func (m *Table[V]) String() string {
	return fmt.Sprintf("Table[rows=%d, filtered=%d, cursor=%d, filter=%q]",
		len(m.rows), len(m.filtered), m.Cursor(), m.filter)
}
