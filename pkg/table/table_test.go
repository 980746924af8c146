package table

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/filter"
	"github.com/oakwood-commons/gridkit/pkg/markup"
	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/settings"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

func spec(typ, key string, opts map[string]any) Spec {
	if opts == nil {
		opts = map[string]any{}
	}
	return Spec{Type: typ, Key: key, Options: opts}
}

func posts() []any {
	return []any{
		map[string]any{"id": 1, "title": "Hello", "status": "active", "views": 10},
		map[string]any{"id": 2, "title": "Draft", "status": "draft", "views": 3},
	}
}

func compile(t *testing.T, def *Definition, req Request) *Contract {
	t.Helper()
	c, err := New(nil, WithParallelism(2)).Compile(context.Background(), def, req)
	require.NoError(t, err)
	return c
}

func TestBadgeEndToEnd(t *testing.T) {
	def := &Definition{
		Name: "posts",
		Props: PropsConfig{Columns: []Spec{
			spec("badge", "status", map[string]any{
				"variants": map[string]any{"active": "success", "draft": "warning"},
				"labels":   map[string]any{"active": "Ativo", "draft": "Rascunho"},
			}),
		}},
	}
	out := compile(t, def, Request{Rows: []any{
		map[string]any{"id": 1, "status": "active"},
		map[string]any{"id": 2, "status": "draft"},
	}})

	require.Len(t, out.Rows, 2)
	assert.Equal(t, mode.Dynamic, out.Mode.Mode)
	assert.Equal(t, map[string]any{"type": "badge", "variant": "success", "label": "Ativo", "value": "active"},
		out.Rows[0].Cells["status"].(value.Payload).Map())
	assert.Equal(t, map[string]any{"type": "badge", "variant": "warning", "label": "Rascunho", "value": "draft"},
		out.Rows[1].Cells["status"].(value.Payload).Map())
	assert.Equal(t, 1, out.Rows[0].ID)
}

func TestHybridConflicts(t *testing.T) {
	nodes, err := markup.Parse([]byte(`
- kind: Column
  key: title
  label: Title
- kind: Column
  key: status
  label: Markup status
`))
	require.NoError(t, err)
	def := &Definition{
		Name:   "posts",
		Markup: nodes,
		Props: PropsConfig{Columns: []Spec{
			{Type: "text", Key: "status", Label: "Props status", Options: map[string]any{}},
			{Type: "number", Key: "views", Options: map[string]any{}},
		}},
	}

	tests := []struct {
		strategy mode.Strategy
		label    string
		keys     []string
		warnings int
	}{
		{"", "Markup status", []string{"title", "status", "views"}, 1},
		{mode.PropsPriority, "Props status", []string{"status", "views", "title"}, 1},
		{mode.PermissiveMerge, "Markup status", []string{"title", "status", "views"}, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			d := *def
			d.Strategy = tt.strategy
			out := compile(t, &d, Request{Rows: posts()})

			assert.Equal(t, mode.Hybrid, out.Mode.Mode)
			assert.Equal(t, mode.ConflictSet{"status"}, out.Conflicts)
			var keys []string
			for _, c := range out.Columns {
				keys = append(keys, c.Key)
				if c.Key == "status" {
					assert.Equal(t, tt.label, c.Label)
				}
			}
			assert.Equal(t, tt.keys, keys)
			assert.Len(t, out.Diagnostics.Warnings, tt.warnings)
			assert.Len(t, out.Rows, 2)
		})
	}
}

func TestStrictMergeBlocks(t *testing.T) {
	nodes := markup.Nodes{{Kind: markup.KindColumn, Key: "status"}}
	def := &Definition{
		Name:           "posts",
		Markup:         nodes,
		Props:          PropsConfig{Columns: []Spec{spec("text", "status", nil)}},
		Strategy:       mode.StrictMerge,
		AllowConflicts: new(bool),
	}
	out := compile(t, def, Request{Rows: posts()})
	assert.True(t, out.Diagnostics.Blocking)
	assert.Empty(t, out.Rows)
	assert.Empty(t, out.Columns)
	assert.Contains(t, out.Diagnostics.Markdown(), "status")
}

func TestActionsAreResolvedPerRow(t *testing.T) {
	routes := action.Routes{"posts.edit": "/posts/{post}/edit"}
	def := &Definition{
		Name:   "posts",
		Entity: "posts",
		Routes: routes,
		Props: PropsConfig{
			Columns: []Spec{spec("text", "title", nil), spec("actions", "actions", nil)},
			Actions: []Spec{
				spec("route", "edit", map[string]any{"route": "posts.edit", "permission": "posts.update"}),
				spec("url", "preview", map[string]any{"url": "/preview/{id}", "visibleWhen": "row.status == 'active'"}),
				spec("callback", "delete", map[string]any{"hidden": true}),
			},
			BulkActions:   []Spec{{Key: "archive", Label: "Archive", Options: map[string]any{}}},
			HeaderActions: []Spec{{Key: "create", Label: "New post", Options: map[string]any{"url": "/posts/new"}}},
		},
	}
	out := compile(t, def, Request{
		Rows:        posts(),
		Permissions: authz.Permissions{UserPermissions: []string{"posts.update"}},
		Selected:    []any{posts()[0]},
	})

	cell := func(i int) []action.Resolved {
		p, ok := out.Rows[i].Cells["actions"].(value.Payload)
		require.True(t, ok)
		list, _ := p.Get("actions")
		return list.([]action.Resolved)
	}
	first := cell(0)
	require.Len(t, first, 2, "hidden actions are omitted")
	assert.Equal(t, "/posts/1/edit", *first[0].URL)
	assert.Equal(t, "/preview/1", *first[1].URL)
	second := cell(1)
	require.Len(t, second, 1)
	assert.Equal(t, "edit", second[0].Key)
	assert.Nil(t, out.Rows[0].Actions, "actions live in the actions column")

	require.Len(t, out.BulkActions, 1)
	assert.Equal(t, "Apply this action to 1 selected items?", out.BulkActions[0].Confirmation.Message)
	require.Len(t, out.HeaderActions, 1)
	assert.Equal(t, "/posts/new", *out.HeaderActions[0].URL)

	out = compile(t, def, Request{Rows: posts()})
	assert.Len(t, cell(0), 1, "edit requires posts.update")
}

func TestRowActionsWithoutColumn(t *testing.T) {
	def := &Definition{
		Name:    "posts",
		Props:   PropsConfig{Columns: []Spec{spec("text", "title", nil)}},
		Actions: []action.Action{action.NewRoute("show", "Show", "posts.show")},
	}
	out := compile(t, def, Request{Rows: posts()})
	require.Len(t, out.Rows[0].Actions, 1)
	assert.Nil(t, out.Rows[0].Actions[0].URL, "unresolvable routes give a null url")
}

func TestSortOnlySortableColumns(t *testing.T) {
	def := &Definition{
		Name: "posts",
		Props: PropsConfig{Columns: []Spec{
			spec("text", "title", map[string]any{"sortable": true}),
			spec("number", "views", nil),
		}},
	}
	out := compile(t, def, Request{Rows: posts(), Sort: "title", Direction: "ASC", ApplyQuery: true})
	require.NotNil(t, out.Sort)
	assert.Equal(t, Sort{Column: "title", Direction: "asc"}, *out.Sort)
	assert.Equal(t, 2, out.Rows[0].ID, "Draft sorts before Hello")

	out = compile(t, def, Request{Rows: posts(), Sort: "views"})
	assert.Nil(t, out.Sort)
	assert.Empty(t, out.Query.Orders())
	assert.Len(t, out.Diagnostics.Notes, 1)
}

func TestFiltersNarrowRows(t *testing.T) {
	def := &Definition{
		Name: "posts",
		Props: PropsConfig{
			Columns: []Spec{spec("text", "title", nil)},
			Filters: []Spec{
				spec("select", "status", map[string]any{"choices": []any{
					map[string]any{"value": "active", "label": "Active"},
				}}),
				spec("text", "title", map[string]any{"permission": "admin"}),
			},
		},
	}
	out := compile(t, def, Request{
		Rows:       posts(),
		Filters:    map[string]any{"status": "active"},
		ApplyQuery: true,
	})
	require.Len(t, out.Filters, 1, "filters the user may not use are omitted")
	assert.True(t, out.Filters[0].Active)
	assert.Equal(t, []string{"status"}, out.AppliedFilters)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, 1, out.Rows[0].ID)
}

func TestAutoColumns(t *testing.T) {
	out := compile(t, &Definition{Name: "raw"}, Request{Rows: posts()})
	var keys []string
	for _, c := range out.Columns {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"id", "status", "title", "views"}, keys)
}

func TestAutoColumnsKeepNumericIDs(t *testing.T) {
	rows := []any{map[string]any{"id": 1700000000, "createdAt": "2023-11-14T10:00:00Z"}}
	out := compile(t, &Definition{Name: "events"}, Request{Rows: rows})

	id := out.Rows[0].Cells["id"]
	_, isPayload := id.(value.Payload)
	assert.False(t, isPayload, "numeric id must not be auto-cast, got %#v", id)
	assert.Equal(t, "1700000000", value.Unwrap(id))

	created, ok := out.Rows[0].Cells["createdAt"].(value.Payload)
	require.True(t, ok)
	assert.Equal(t, "date", created.Type)
}

func TestHiddenColumnsAreOmitted(t *testing.T) {
	def := &Definition{
		Name: "posts",
		Props: PropsConfig{Columns: []Spec{
			spec("text", "title", nil),
			spec("text", "secret", map[string]any{"permission": "admin"}),
			spec("text", "internal", map[string]any{"visible": false}),
		}},
	}
	out := compile(t, def, Request{Rows: posts()})
	require.Len(t, out.Columns, 1)
	_, ok := out.Rows[0].Cells["secret"]
	assert.False(t, ok)
}

func TestBrokenSpecsBecomeWarnings(t *testing.T) {
	def := &Definition{
		Name: "posts",
		Props: PropsConfig{
			Columns: []Spec{spec("text", "title", nil), spec("sparkline", "trend", nil)},
			Actions: []Spec{spec("url", "open", map[string]any{"visibleWhen": "row.("})},
		},
	}
	out := compile(t, def, Request{Rows: posts()})
	assert.Len(t, out.Columns, 1)
	assert.Len(t, out.Diagnostics.Warnings, 2)
	assert.NotEmpty(t, out.Diagnostics.Recommendations)
	assert.False(t, out.Diagnostics.Blocking)
}

func TestColumnCastOption(t *testing.T) {
	def := &Definition{
		Name: "orders",
		Props: PropsConfig{Columns: []Spec{
			spec("text", "placed", map[string]any{"cast": map[string]any{"type": "date", "format": "02/01/2006"}}),
			spec("text", "total", map[string]any{"cast": map[string]any{"type": "expr", "expression": "value * 2"}}),
		}},
	}
	out := compile(t, def, Request{Rows: []any{map[string]any{"id": 7, "placed": "2024-03-05", "total": 21}}})
	placed := out.Rows[0].Cells["placed"].(value.Payload)
	formatted, _ := placed.Get("formatted")
	assert.Equal(t, "05/03/2024", formatted)
	assert.Equal(t, "42", value.Unwrap(out.Rows[0].Cells["total"]))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Column(spec("sparkline", "x", nil))
	assert.True(t, errors.Is(err, ErrUnknownVariant))

	c, err := r.Column(Spec{Key: "name", Options: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, column.TypeText, c.Meta().Type)

	r.RegisterCast("upper", func(Spec) (cast.Cast, error) {
		return cast.NewClosure("upper", func(v any, _ cast.Context) (any, error) { return v, nil }), nil
	})
	assert.Contains(t, r.Variants()["casts"], "upper")
	assert.NotContains(t, DefaultRegistry().Variants()["casts"], "upper", "registries are independent")

	f, err := r.Filter(spec("relation", "author", map[string]any{"relation": "hasMany"}))
	require.NoError(t, err)
	rel := f.(*filter.Relation)
	assert.Equal(t, filter.HasMany, rel.Kind)
	assert.Equal(t, "author", rel.Relationship)

	a, err := r.Action(spec("modal", "quick", map[string]any{"url": "/q/{id}", "slideover": true, "confirm": "Sure?"}))
	require.NoError(t, err)
	assert.Equal(t, action.ModeSlideover, a.Meta().Mode)
	assert.Equal(t, "Sure?", a.Meta().Confirmation.Message)
}

func TestEncode(t *testing.T) {
	def := &Definition{
		Name:  "posts",
		Props: PropsConfig{Columns: []Spec{spec("badge", "status", nil)}},
	}
	out := compile(t, def, Request{Rows: posts()[:1]})

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, out.Encode(&buf, f))

			var got map[string]any
			switch f {
			case FormatJSON:
				require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			case FormatYAML:
				require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
			case FormatMsgpack:
				require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &got))
			}
			assert.Equal(t, "posts", got["table"])
			rows := got["rows"].([]any)
			cells := rows[0].(map[string]any)["cells"].(map[string]any)
			assert.Equal(t, "badge", cells["status"].(map[string]any)["type"])
			assert.Contains(t, got, "diagnostics")
		})
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Error(t, out.Encode(&bytes.Buffer{}, "xml"))
}

func TestCompileHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Compile(ctx, &Definition{Name: "posts"}, Request{Rows: posts()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpecDecoding(t *testing.T) {
	var def Definition
	require.NoError(t, yaml.Unmarshal([]byte(`
name: users
props:
  columns:
    - type: badge
      key: role
      label: Role
      variants: {admin: danger}
markup:
  - kind: Column
    field: email
`), &def))
	require.Len(t, def.Props.Columns, 1)
	assert.Equal(t, "Role", def.Props.Columns[0].Label)
	assert.Equal(t, map[string]any{"admin": "danger"}, def.Props.Columns[0].Options["variants"])
	assert.Equal(t, mode.Hybrid, def.Detect().Mode)

	s := SpecFromNode(def.Markup[0])
	assert.Equal(t, "email", s.Key)
}

func TestFromSettings(t *testing.T) {
	opts, err := FromSettings(nil)
	require.NoError(t, err)
	assert.Empty(t, opts)

	run := settings.NewCliParams()
	run.Strategy = string(mode.StrictMerge)
	run.AllowConflicts = false
	opts, err = FromSettings(run)
	require.NoError(t, err)
	c := New(nil, opts...)
	assert.Equal(t, mode.StrictMerge, c.strategy)
	assert.False(t, c.allowConflicts)
	assert.Equal(t, "en-US", c.locale)

	run.Timezone = "Mars/Olympus"
	_, err = FromSettings(run)
	require.Error(t, err)
}
