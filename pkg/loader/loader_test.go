package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/mode"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Format
	}{
		{name: "json object", input: `{"id": 1}`, want: FormatJSON},
		{name: "pretty json array", input: "[\n  {\"id\": 1},\n  {\"id\": 2}\n]", want: FormatJSON},
		{name: "ndjson", input: "{\"id\": 1}\n{\"id\": 2}\n", want: FormatNDJSON},
		{name: "toml section", input: "[table]\nname = \"posts\"", want: FormatTOML},
		{name: "toml assignments", input: "name = \"posts\"\nentity = \"post\"", want: FormatTOML},
		{name: "yaml mapping", input: "name: posts\nentity: post", want: FormatYAML},
		{name: "yaml list", input: "- id: 1\n- id: 2", want: FormatYAML},
		{name: "multi document yaml", input: "---\nid: 1\n---\nid: 2", want: FormatYAML},
		{name: "yaml block with brackets", input: "note: |\n  [draft]\n  text", want: FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.input))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Parse("  \n")
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("ndjson yields one document per line", func(t *testing.T) {
		docs, err := Parse("{\"id\": 1}\n{\"id\": 2}\nplain")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, map[string]any{"id": float64(1)}, docs[0])
		assert.Equal(t, "plain", docs[2])
	})

	t.Run("multi document yaml", func(t *testing.T) {
		docs, err := Parse("---\nid: 1\n---\nid: 2\n")
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"id": 1}, map[string]any{"id": 2}}, docs)
	})

	t.Run("toml", func(t *testing.T) {
		root, err := ParseRoot("[table]\nname = \"posts\"")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"table": map[string]any{"name": "posts"}}, root)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Parse(`{"id": `)
		require.Error(t, err)
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile(t *testing.T) {
	t.Run("extension wins", func(t *testing.T) {
		path := writeFile(t, "rows.jsonl", "{\"id\": 1}\n")
		doc, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": float64(1)}, doc)
	})

	t.Run("content detection when the extension does not parse", func(t *testing.T) {
		path := writeFile(t, "rows.json", "- id: 1\n- id: 2\n")
		doc, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"id": 1}, map[string]any{"id": 2}}, doc)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.yaml", "\n")
		_, err := ReadFile(path)
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestRows(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		want []any
	}{
		{name: "list", doc: []any{map[string]any{"id": 1}}, want: []any{map[string]any{"id": 1}}},
		{name: "wrapped under data", doc: map[string]any{"data": []any{"a"}, "total": 1}, want: []any{"a"}},
		{name: "single mapping", doc: map[string]any{"id": 1}, want: []any{map[string]any{"id": 1}}},
		{name: "nil", doc: nil, want: []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Rows(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}

	_, err := Rows("text")
	require.ErrorIs(t, err, ErrNotRows)
}

func TestReadRows(t *testing.T) {
	path := writeFile(t, "rows.yaml", "rows:\n  - id: 1\n    title: Hello\n")
	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": 1, "title": "Hello"}}, rows)
}

const definitionYAML = `
name: posts
entity: post
mergeStrategy: props-priority
allowConflicts: false
routes:
  post.edit: /posts/{post}/edit
markup:
  - kind: Column
    key: title
    label: Title
props:
  columns:
    - key: status
      type: badge
      label: Status
  filters:
    - key: status
      type: select
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition(definitionYAML)
	require.NoError(t, err)

	assert.Equal(t, "posts", def.Name)
	assert.Equal(t, "post", def.Entity)
	assert.Equal(t, mode.PropsPriority, def.Strategy)
	require.NotNil(t, def.AllowConflicts)
	assert.False(t, *def.AllowConflicts)
	assert.Equal(t, "/posts/{post}/edit", def.Routes["post.edit"])
	assert.Equal(t, []string{"title"}, def.Markup.ColumnKeys())
	require.Len(t, def.Props.Columns, 1)
	assert.Equal(t, "badge", def.Props.Columns[0].Type)
	assert.Equal(t, "Status", def.Props.Columns[0].Label)
	require.Len(t, def.Props.Filters, 1)
}

func TestDecodeDefinition(t *testing.T) {
	t.Run("bare list is markup", func(t *testing.T) {
		def, err := DecodeDefinition([]any{
			map[string]any{"kind": "Column", "key": "title"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"title"}, def.Markup.ColumnKeys())
	})

	t.Run("scalar is rejected", func(t *testing.T) {
		_, err := DecodeDefinition("posts")
		require.Error(t, err)
	})
}

func TestReadDefinitionAndMarkup(t *testing.T) {
	defPath := writeFile(t, "posts.json", `{"name": "posts", "markup": [{"kind": "Column", "key": "id"}]}`)
	def, err := ReadDefinition(defPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, def.Markup.ColumnKeys())

	markupPath := writeFile(t, "markup.yaml", "- kind: Column\n  key: title\n- kind: Column\n  key: status\n")
	require.NoError(t, ReadMarkup(def, markupPath))
	assert.Equal(t, []string{"title", "status"}, def.Markup.ColumnKeys())
}

// {"alg":"none"}.{"sub":"u1","permissions":["posts.update"],"roles":["super-admin"]}.sig
const userJWT = "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MSIsInBlcm1pc3Npb25zIjpbInBvc3RzLnVwZGF0ZSJdLCJyb2xlcyI6WyJzdXBlci1hZG1pbiJdfQ.c2ln"

func TestParseUser(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		user, err := ParseUser(userJWT)
		require.NoError(t, err)
		assert.Equal(t, []string{"posts.update"}, user.UserPermissions)
		assert.True(t, user.IsSuperAdmin)
		assert.Equal(t, "u1", user.Attributes["sub"])
	})

	t.Run("claims mapping", func(t *testing.T) {
		user, err := ParseUser(`{"scope": "posts.view posts.update"}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"posts.view", "posts.update"}, user.UserPermissions)
		assert.False(t, user.IsSuperAdmin)
	})

	t.Run("permissions mapping", func(t *testing.T) {
		user, err := ParseUser("userPermissions:\n  - posts.delete\nisSuperAdmin: false\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"posts.delete"}, user.UserPermissions)
		assert.True(t, user.Has("posts.delete"))
		assert.False(t, user.Has("posts.update"))
	})

	t.Run("list is rejected", func(t *testing.T) {
		_, err := ParseUser("- a\n- b\n")
		require.Error(t, err)
	})
}

func TestReadUser(t *testing.T) {
	user, err := ReadUser(userJWT)
	require.NoError(t, err)
	assert.True(t, user.IsSuperAdmin)

	path := writeFile(t, "user.yaml", "isSuperAdmin: true\n")
	user, err = ReadUser(path)
	require.NoError(t, err)
	assert.True(t, user.IsSuperAdmin)
}

func TestExpand(t *testing.T) {
	rows := []any{
		map[string]any{
			"id":     1,
			"meta":   `{"tags": ["a", "b"]}`,
			"title":  "Hello",
			"counts": map[string]int{"views": 3},
			"blob":   []byte("raw"),
		},
	}
	out := ExpandRows(rows)
	row := out[0].(map[string]any)

	assert.Equal(t, map[string]any{"tags": []any{"a", "b"}}, row["meta"])
	assert.Equal(t, "Hello", row["title"])
	assert.Equal(t, map[string]any{"views": 3}, row["counts"])
	assert.Equal(t, []byte("raw"), row["blob"])
}

func TestTryDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "json object", input: `{"a": 1}`, ok: true},
		{name: "json list", input: `[1, 2]`, ok: true},
		{name: "plain text", input: "Hello", ok: false},
		{name: "number", input: "42", ok: false},
		{name: "empty", input: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := TryDecode(tt.input)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
