// Package preview is an interactive terminal browser for a compiled table.
package preview

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/gridkit/internal/formatter"
	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/table"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// ReloadMsg replaces the browsed table, for example after a watched file
// changed. A non-nil Err is shown in the status line and the previous table
// stays.
type ReloadMsg struct {
	Contract *table.Contract
	Err      error
}

type pane int

const (
	paneRows pane = iota
	paneDetail
	paneDiagnostics
)

// chrome is the number of lines around the table: title, search, status.
const chrome = 4

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model browses the rows of a compiled table. "/" filters rows, enter
// shows the selected row with its actions, d shows diagnostics, q quits.
type Model struct {
	contract *table.Contract
	grid     formatter.Grid
	rows     *Table[int]
	search   textinput.Model

	searching bool
	pane      pane
	status    string
	err       error
	noColor   bool
	width     int
	height    int
	quitting  bool
}

// New builds a model over c.
func New(c *table.Contract, noColor bool) *Model {
	si := textinput.New()
	si.Placeholder = "search rows"
	si.CharLimit = 200
	si.Prompt = "/"
	si.SetWidth(40)

	m := &Model{search: si, noColor: noColor, width: 80, height: 24}
	m.rows = NewTable[int](nil, m.rowCells, m.rowText)
	m.rows.SetNoColor(noColor)
	m.SetContract(c)
	return m
}

// SetContract replaces the browsed table, keeping the filter.
func (m *Model) SetContract(c *table.Contract) {
	m.contract = c
	m.grid = formatter.GridOf(c, true)
	idx := make([]int, len(m.grid.Rows))
	for i := range idx {
		idx[i] = i
	}
	m.rows.SetColumns(m.columns())
	m.rows.SetRows(idx)
	m.status = fmt.Sprintf("%s: %d rows, %s", c.Table, len(c.Rows), c.Mode)
}

func (m *Model) rowCells(i int) Row {
	return Row(m.grid.Rows[i])
}

func (m *Model) rowText(i int) string {
	return strings.Join(m.grid.Rows[i], " ")
}

// columns sizes each column to its content within the window width.
func (m *Model) columns() []Column {
	cols := make([]Column, len(m.grid.Headers))
	budget := max(m.width/max(len(cols), 1), 6)
	for i, h := range m.grid.Headers {
		w := runewidth.StringWidth(h)
		for _, r := range m.grid.Rows {
			if i < len(r) {
				w = max(w, runewidth.StringWidth(r[i]))
			}
		}
		if hint := m.grid.Hints[i]; hint.MaxWidth > 0 {
			w = min(w, hint.MaxWidth)
		}
		cols[i] = Column{Title: h, Width: min(w, budget)}
	}
	return cols
}

// Contract returns the browsed table.
func (m *Model) Contract() *table.Contract {
	return m.contract
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.rows.SetColumns(m.columns())
		m.rows.SetSize(m.width, max(m.height-chrome, 3))
		return m, nil
	case ReloadMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.SetContract(msg.Contract)
		m.rows.SetSize(m.width, max(m.height-chrome, 3))
		return m, nil
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.searching {
		switch key {
		case "enter", "esc":
			m.searching = false
			m.search.Blur()
			if key == "esc" {
				m.search.SetValue("")
				m.rows.SetFilter("")
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.rows.SetFilter(m.search.Value())
		return m, cmd
	}
	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.pane = paneRows
		return m, nil
	case "/":
		m.searching = true
		m.pane = paneRows
		return m, m.search.Focus()
	case "enter":
		if m.pane == paneDetail {
			m.pane = paneRows
		} else if m.rows.SelectedRow() != nil {
			m.pane = paneDetail
		}
		return m, nil
	case "d":
		if m.pane == paneDiagnostics {
			m.pane = paneRows
		} else {
			m.pane = paneDiagnostics
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.rows, cmd = m.rows.Update(msg)
	return m, cmd
}

// Selected returns the row under the cursor, or nil.
func (m *Model) Selected() *table.Row {
	i := m.rows.SelectedRow()
	if i == nil || *i >= len(m.contract.Rows) {
		return nil
	}
	return &m.contract.Rows[*i]
}

// Render returns the screen as text.
func (m *Model) Render() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.paint(titleStyle, m.contract.Table) + "\n")
	switch m.pane {
	case paneDetail:
		b.WriteString(m.detail())
	case paneDiagnostics:
		if d := formatter.RenderDiagnostics(m.contract.Diagnostics, m.noColor); d != "" {
			b.WriteString(d)
		} else {
			b.WriteString("no diagnostics\n")
		}
	default:
		b.WriteString(m.rows.View() + "\n")
	}
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}
	if m.err != nil {
		b.WriteString(m.paint(errorStyle, m.err.Error()) + "\n")
	}
	b.WriteString(m.paint(statusStyle, m.status+"  enter: row  /: search  d: diagnostics  q: quit"))
	return b.String()
}

// View implements tea.Model.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	return v
}

func (m *Model) detail() string {
	row := m.Selected()
	if row == nil {
		return "no row selected\n"
	}
	var b strings.Builder
	if row.ID != nil {
		fmt.Fprintf(&b, "id: %v\n", row.ID)
	}
	for i, d := range m.contract.Columns {
		if v, ok := row.Cells[d.Key]; ok {
			fmt.Fprintf(&b, "%s: %s\n", m.grid.Headers[i], formatter.CellText(v))
		}
	}
	actions := row.Actions
	if len(actions) == 0 {
		actions = cellActions(row)
	}
	for _, a := range actions {
		fmt.Fprintf(&b, "  [%s] %s\n", a.Label, describe(a))
	}
	return b.String()
}

// cellActions collects the actions rendered inside an actions column.
func cellActions(row *table.Row) []action.Resolved {
	keys := make([]string, 0, len(row.Cells))
	for k := range row.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []action.Resolved
	for _, k := range keys {
		p, ok := row.Cells[k].(value.Payload)
		if !ok || p.Type != "actions" {
			continue
		}
		items, _ := p.Get("actions")
		if list, ok := items.([]action.Resolved); ok {
			out = append(out, list...)
		}
	}
	return out
}

func describe(a action.Resolved) string {
	parts := []string{a.Method}
	if a.URL != nil {
		parts = append(parts, *a.URL)
	}
	if !a.Enabled {
		parts = append(parts, "(disabled)")
	}
	if a.Confirmation != nil {
		parts = append(parts, "(confirm)")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (m *Model) paint(s lipgloss.Style, text string) string {
	if m.noColor {
		return text
	}
	return s.Render(text)
}

// Run browses c until the user quits. Values sent on reload replace the
// table while it runs.
func Run(ctx context.Context, c *table.Contract, reload <-chan ReloadMsg, noColor bool, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	prog := tea.NewProgram(New(c, noColor), opts...)
	if reload != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-reload:
					if !ok {
						return
					}
					prog.Send(msg)
				}
			}
		}()
	}
	_, err := prog.Run()
	return err
}

// Dump writes the initial screen without starting a program, for
// snapshots and non-interactive terminals.
func Dump(w io.Writer, c *table.Contract, width, height int) error {
	m := New(c, true)
	m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	_, err := io.WriteString(w, m.Render()+"\n")
	return err
}
