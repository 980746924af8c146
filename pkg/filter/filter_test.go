package filter

import (
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/query"
)

func clauses(t *testing.T, b query.Builder) []query.Clause {
	t.Helper()
	q, ok := query.Of(b)
	require.True(t, ok)
	return q.Clauses
}

func TestTextModes(t *testing.T) {
	tests := []struct {
		mode TextMode
		op   string
		want any
	}{
		{Contains, query.OpLike, "%ada%"},
		{StartsWith, query.OpLike, "ada%"},
		{EndsWith, query.OpLike, "%ada"},
		{Exact, query.OpEq, "ada"},
		{Regex, query.OpRegexp, "ada"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f := NewText("name", "Name")
			f.Mode = tt.mode
			got := clauses(t, f.Apply(query.New(), "  ada "))
			require.Len(t, got, 1)
			assert.Equal(t, tt.op, got[0].Op)
			assert.Equal(t, tt.want, got[0].Value)
		})
	}
}

func TestTextMatchesWildcardsLiterally(t *testing.T) {
	rows := []any{
		map[string]any{"sku": "axb"},
		map[string]any{"sku": "a_b"},
		map[string]any{"sku": "a%b"},
	}
	tests := map[string]struct {
		input string
		want  []any
	}{
		"underscore": {"a_b", []any{rows[1]}},
		"percent":    {"a%b", []any{rows[2]}},
		"plain":      {"x", []any{rows[0]}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			q, ok := query.Of(NewText("sku", "").Apply(query.New(), tt.input))
			require.True(t, ok)
			assert.Equal(t, tt.want, q.Apply(rows))
		})
	}
}

func TestTextHasValue(t *testing.T) {
	f := NewText("name", "")
	assert.False(t, f.HasValue(nil))
	assert.False(t, f.HasValue("   "))
	assert.True(t, f.HasValue("a"))

	f.MinLength = 3
	assert.False(t, f.HasValue("ab"))

	f.Mode = Regex
	assert.False(t, f.HasValue("(unclosed"))
	assert.Empty(t, clauses(t, f.Apply(query.New(), "(unclosed")))
}

func TestBooleanNormalization(t *testing.T) {
	f := NewBoolean("active", "")
	for _, in := range []any{"sim", "1", true, 1, "yes", "on", "TRUE"} {
		got := clauses(t, f.Apply(query.New(), in))
		require.Len(t, got, 1, "%v", in)
		assert.Equal(t, true, got[0].Value, "%v", in)
	}
	for _, in := range []any{"não", "nao", "0", false, 0, "no", "off"} {
		got := clauses(t, f.Apply(query.New(), in))
		require.Len(t, got, 1, "%v", in)
		assert.Equal(t, false, got[0].Value, "%v", in)
	}
	assert.False(t, f.HasValue("maybe"))
	assert.Empty(t, clauses(t, f.Apply(query.New(), "maybe")))
}

func TestSelect(t *testing.T) {
	f := NewSelect("status", "", Option{Value: "draft", Label: "Draft"})
	got := clauses(t, f.Apply(query.New(), "draft"))
	assert.Equal(t, query.KindWhere, got[0].Kind)

	got = clauses(t, f.Apply(query.New(), []any{"draft", "", "published"}))
	assert.Equal(t, query.KindIn, got[0].Kind)
	assert.Equal(t, []any{"draft", "published"}, got[0].Values)

	assert.False(t, f.HasValue([]any{"", nil}))
}

func TestNumberRange(t *testing.T) {
	f := NewNumberRange("price", "")
	got := clauses(t, f.Apply(query.New(), map[string]any{"min": "10", "max": 20}))
	require.Len(t, got, 2)
	assert.Equal(t, query.OpGte, got[0].Op)
	assert.Equal(t, 10.0, got[0].Value)
	assert.Equal(t, query.OpLte, got[1].Op)

	got = clauses(t, f.Apply(query.New(), []any{nil, 5}))
	require.Len(t, got, 1)
	assert.Equal(t, query.OpLte, got[0].Op)

	assert.False(t, f.HasValue(map[string]any{"min": "", "max": nil}))
}

func TestDateRange(t *testing.T) {
	f := NewDateRange("created_at", "")

	t.Run("start only is exactly one >= constraint", func(t *testing.T) {
		got := clauses(t, f.Apply(query.New(), map[string]any{"start": "2024-03-01"}))
		require.Len(t, got, 1)
		assert.Equal(t, query.OpGte, got[0].Op)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got[0].Value)
	})

	t.Run("end only covers the whole day", func(t *testing.T) {
		got := clauses(t, f.Apply(query.New(), map[string]any{"end": "2024-03-31"}))
		require.Len(t, got, 1)
		assert.Equal(t, query.OpLte, got[0].Op)
		assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), got[0].Value)
	})

	t.Run("neither bound is a no-op", func(t *testing.T) {
		assert.False(t, f.HasValue(map[string]any{"start": "", "end": "soon"}))
		assert.Empty(t, clauses(t, f.Apply(query.New(), map[string]any{})))
	})

	t.Run("matches in memory", func(t *testing.T) {
		q, _ := query.Of(f.Apply(query.New(), []any{"2024-03-01", "2024-03-31"}))
		assert.True(t, q.Match(map[string]any{"created_at": "2024-03-31 18:00:00"}))
		assert.False(t, q.Match(map[string]any{"created_at": "2024-02-29"}))
	})
}

func TestRelation(t *testing.T) {
	t.Run("belongs to filters the foreign key", func(t *testing.T) {
		got := clauses(t, NewRelation("author", BelongsTo, "").Apply(query.New(), 7))
		require.Len(t, got, 1)
		assert.Equal(t, "author_id", got[0].Field)
		assert.Equal(t, 7, got[0].Value)
	})

	t.Run("has many requires an existing related row", func(t *testing.T) {
		f := NewRelation("tags", BelongsToMany, "")
		f.RelatedKey = "slug"
		got := clauses(t, f.Apply(query.New(), []any{"go", "rust"}))
		require.Len(t, got, 1)
		assert.Equal(t, query.KindHas, got[0].Kind)
		assert.Equal(t, []query.Clause{{Kind: query.KindIn, Field: "slug", Values: []any{"go", "rust"}}}, got[0].Scope.Clauses)

		q, _ := query.Of(f.Apply(query.New(), "go"))
		assert.True(t, q.Match(map[string]any{"tags": []any{map[string]any{"slug": "go"}}}))
		assert.False(t, q.Match(map[string]any{"tags": []any{}}))
	})

	t.Run("morph spans every target by default", func(t *testing.T) {
		got := clauses(t, NewRelation("commentable", MorphTo, "").Apply(query.New(), 3))
		require.Len(t, got, 1)
		assert.Equal(t, query.KindMorph, got[0].Kind)
		assert.Equal(t, []string{"*"}, got[0].Types)
	})
}

func TestSetApply(t *testing.T) {
	status := NewSelect("status", "")
	search := NewText("title", "")
	search.Key = "q"
	broken := NewCustom("broken", "", func(query.Builder, any) query.Builder { panic("boom") })
	withDefault := NewBoolean("active", "")
	withDefault.Default = "sim"

	set := Set{status, search, broken, withDefault}
	b, applied := set.Apply(query.New(), map[string]any{"q": "go", "broken": "x"}, logr.Discard())
	assert.Equal(t, []string{"q", "active"}, applied)
	assert.Len(t, clauses(t, b), 2)
}

func TestDescribe(t *testing.T) {
	f := NewText("title", "Title")
	d := Describe(f, "go")
	assert.Equal(t, "title", d.ID)
	assert.True(t, d.Active)
	assert.Equal(t, TargetField, d.AppliesTo)
	assert.Equal(t, OpLike, d.Operator)

	inactive := Describe(f, "")
	assert.False(t, inactive.Active)
	assert.Nil(t, inactive.Value)

	rel := Describe(NewRelation("author", BelongsTo, ""), nil)
	assert.Equal(t, TargetRelationship, rel.AppliesTo)

	anon := NewText("body", "")
	anon.Key = ""
	assert.Equal(t, anon.ID(), Describe(anon, nil).ID, "generated ids are stable")
	assert.Len(t, anon.ID(), 36)
}

func TestVisible(t *testing.T) {
	f := NewSelect("owner", "")
	f.Permission = authz.Require("users.view")
	assert.False(t, Visible(f, authz.Permissions{}))
	assert.True(t, Visible(f, authz.Permissions{UserPermissions: []string{"users.view"}}))
}
