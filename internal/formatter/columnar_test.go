package formatter

import (
	"strings"
	"testing"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/mode"
)

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRenderContract(t *testing.T) {
	out := RenderContract(sampleContract(), Options{NoColor: true, TotalWidth: 120, ShowActions: true})
	ls := lines(out)
	require.Len(t, ls, 3)

	assert.True(t, strings.HasPrefix(ls[0], "#"))
	for _, h := range []string{"ID", "Title", "Status", "Body", "Actions"} {
		assert.Contains(t, ls[0], h)
	}
	assert.True(t, strings.HasPrefix(ls[1], "─"))
	assert.Equal(t, runewidth.StringWidth(strings.TrimRight(ls[0], " ")), runewidth.StringWidth(strings.TrimRight(ls[1], " ")))
	assert.Contains(t, ls[2], "Published")
	assert.Contains(t, ls[2], "Edit")
	assert.NotContains(t, ls[2], "Delete")
}

func TestRenderGrid(t *testing.T) {
	g := Grid{
		Headers: []string{"name", "age"},
		Rows:    [][]string{{"Alice", "30"}, {"Bob", "5"}},
	}

	t.Run("numbered", func(t *testing.T) {
		ls := lines(RenderGrid(g, Options{NoColor: true, TotalWidth: 80}))
		require.Len(t, ls, 4)
		assert.True(t, strings.HasPrefix(ls[2], "1"))
		assert.True(t, strings.HasPrefix(ls[3], "2"))
	})

	t.Run("index", func(t *testing.T) {
		out := RenderGrid(g, Options{NoColor: true, TotalWidth: 80, RowNumberStyle: RowIndex})
		assert.Contains(t, out, "[0]")
		assert.Contains(t, out, "[1]")
	})

	t.Run("bullet", func(t *testing.T) {
		out := RenderGrid(g, Options{NoColor: true, TotalWidth: 80, RowNumberStyle: RowBullet})
		assert.Equal(t, 2, strings.Count(out, "•"))
	})

	t.Run("none", func(t *testing.T) {
		ls := lines(RenderGrid(g, Options{NoColor: true, TotalWidth: 80, RowNumberStyle: RowNone}))
		assert.True(t, strings.HasPrefix(ls[0], "name"))
	})

	t.Run("right aligned", func(t *testing.T) {
		aligned := g
		aligned.Hints = []ColumnHint{{}, {Align: "right"}}
		ls := lines(RenderGrid(aligned, Options{NoColor: true, TotalWidth: 80, RowNumberStyle: RowNone}))
		assert.True(t, strings.HasSuffix(ls[3], "  5"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, RenderGrid(Grid{}, Options{NoColor: true}))
	})

	t.Run("color", func(t *testing.T) {
		out := RenderGrid(g, Options{TotalWidth: 80})
		assert.Contains(t, out, "Alice")
	})
}

func TestColumnWidthsShrinkLowPriorityFirst(t *testing.T) {
	g := Grid{
		Headers: []string{"keep", "shrink"},
		Hints:   []ColumnHint{{Priority: 2}, {Priority: 1}},
		Rows:    [][]string{{strings.Repeat("a", 20), strings.Repeat("b", 20)}},
	}
	widths := columnWidths(g, 32)
	assert.Equal(t, []int{20, 10}, widths)
}

func TestColumnWidthsHonorMaxWidth(t *testing.T) {
	g := Grid{
		Headers: []string{"a"},
		Hints:   []ColumnHint{{MaxWidth: 5}},
		Rows:    [][]string{{"abcdefghij"}},
	}
	assert.Equal(t, []int{5}, columnWidths(g, 100))
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(sampleContract(), true)
	assert.Contains(t, out, "posts")
	assert.Contains(t, out, "declarative (priority: children)")
	assert.Contains(t, out, "title asc")
	assert.Contains(t, out, "New post")
	assert.NotContains(t, out, "bulk actions")
}

func TestRenderDiagnostics(t *testing.T) {
	assert.Empty(t, RenderDiagnostics(mode.Diagnostics{}, true))

	out := RenderDiagnostics(mode.Diagnostics{
		Warnings:        []string{"column \"title\" is declared twice"},
		Recommendations: []string{"pick one source"},
		Blocking:        true,
	}, true)
	ls := lines(out)
	require.Len(t, ls, 3)
	assert.Equal(t, "table configuration error", ls[0])
	assert.True(t, strings.HasPrefix(ls[1], "warning:"))
	assert.True(t, strings.HasPrefix(ls[2], "hint:"))
}
