package action

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/column"
)

type BlogPost struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func (p BlogPost) RouteKey() any { return p.Slug }

type Invoice struct {
	Number string `json:"number"`
}

func (i Invoice) PrimaryKey() any { return i.Number }

var routes = Routes{
	"posts.show":    "/posts/{blogPost}",
	"posts.edit":    "/posts/{id}/edit",
	"invoices.show": "/invoices/{invoice}",
	"users.show":    "/users/{user}",
	"authors.show":  "/authors/{author}",
	"posts.index":   "/posts/{page?}",
}

func ctxWith(perms ...string) Context {
	return Context{Permissions: authz.Permissions{UserPermissions: perms}, Router: routes}
}

func TestHiddenActionSkipsEnablement(t *testing.T) {
	enabledCalls := 0
	hidden := NewURL("delete", "Delete", "/posts/{id}")
	hidden.VisibleFunc = func(any, Context) bool { return false }
	hidden.EnabledFunc = func(any, Context) bool {
		enabledCalls++
		return true
	}
	shown := NewURL("view", "View", "/posts/{id}")

	got := ResolveAll([]Action{hidden, shown}, map[string]any{"id": 1}, ctxWith())
	require.Len(t, got, 1)
	assert.Equal(t, "view", got[0].Key)
	assert.Zero(t, enabledCalls)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "delete")
	assert.NotContains(t, string(data), "hidden")
}

func TestVisibility(t *testing.T) {
	a := NewURL("edit", "Edit", "/posts/{id}")
	a.Permission = authz.Require("posts.edit", "posts.manage")

	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{"no permission", ctxWith(), false},
		{"any required permission", ctxWith("posts.manage"), true},
		{"super admin", Context{Permissions: authz.Permissions{IsSuperAdmin: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(a, nil, tt.ctx))
		})
	}

	t.Run("panicking predicate hides", func(t *testing.T) {
		b := NewURL("x", "X", "/")
		b.VisibleFunc = func(any, Context) bool { panic("boom") }
		assert.False(t, IsVisible(b, nil, ctxWith()))
	})

	t.Run("expression predicate", func(t *testing.T) {
		b := NewURL("publish", "Publish", "/")
		b.VisibleWhen = `row.status == "draft"`
		assert.True(t, IsVisible(b, map[string]any{"status": "draft"}, ctxWith()))
		assert.False(t, IsVisible(b, map[string]any{"status": "published"}, ctxWith()))
	})
}

func TestEnablement(t *testing.T) {
	a := NewCallback("archive", "Archive", nil)
	a.DisabledWhen = `row.archived`
	assert.True(t, IsEnabled(a, map[string]any{"archived": false}, ctxWith()))
	assert.False(t, IsEnabled(a, map[string]any{"archived": true}, ctxWith()))

	a.DisabledWhen = ""
	a.EnabledWhen = `"posts.archive" in user.permissions`
	assert.False(t, IsEnabled(a, nil, ctxWith()))
	assert.True(t, IsEnabled(a, nil, ctxWith("posts.archive")))

	r, ok := Resolve(a, nil, ctxWith())
	require.True(t, ok)
	assert.False(t, r.Enabled)
	assert.Equal(t, MethodPost, r.Method)
	assert.Nil(t, r.URL)
}

func TestRouteParameterInference(t *testing.T) {
	tests := []struct {
		name  string
		route string
		item  any
		want  string
	}{
		{"type name and route key", "posts.show", BlogPost{ID: 3, Slug: "hello-world"}, "/posts/hello-world"},
		{"primary key", "invoices.show", &Invoice{Number: "INV-7"}, "/invoices/INV-7"},
		{"untyped row falls back to id", "posts.edit", map[string]any{"id": 9}, "/posts/9/edit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := Resolve(NewRoute("show", "Show", tt.route), tt.item, ctxWith())
			require.True(t, ok)
			require.NotNil(t, r.URL)
			assert.Equal(t, tt.want, *r.URL)
		})
	}

	t.Run("explicit params read fields", func(t *testing.T) {
		a := NewRoute("show", "Show", "users.show")
		a.Params = map[string]string{"user": "author.id"}
		a.Query = map[string]any{"tab": "posts"}
		r, _ := Resolve(a, map[string]any{"author": map[string]any{"id": 4}}, ctxWith())
		require.NotNil(t, r.URL)
		assert.Equal(t, "/users/4?tab=posts", *r.URL)
	})

	assert.Equal(t, "blogPost", ParamName(BlogPost{}, ""))
	assert.Equal(t, "orderItem", ParamName(nil, "order_items"))
	assert.Equal(t, "id", ParamName(map[string]any{}, ""))
}

func TestUnresolvableRouteGivesNullURL(t *testing.T) {
	for name, a := range map[string]Action{
		"unknown route":   NewRoute("x", "X", "nope"),
		"missing key":     NewRoute("x", "X", "posts.edit"),
		"missing field":   NewURL("x", "X", "/posts/{slug}"),
		"broken relation": NewRelation("x", "X", "author", "users.show"),
	} {
		t.Run(name, func(t *testing.T) {
			r, ok := Resolve(a, map[string]any{"title": "t"}, ctxWith())
			require.True(t, ok)
			assert.Nil(t, r.URL)

			data, err := json.Marshal(r)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"url":null`)
		})
	}

	_, err := routes.URL("nope", nil)
	assert.True(t, errors.Is(err, ErrRouteNotFound))

	r, ok := Resolve(NewRoute("x", "X", "posts.edit"), map[string]any{"id": 1}, Context{})
	require.True(t, ok)
	assert.Nil(t, r.URL, "no router")
}

func TestRoutesOptionalParameter(t *testing.T) {
	got, err := routes.URL("posts.index", nil)
	require.NoError(t, err)
	assert.Equal(t, "/posts/", got)

	got, err = routes.URL("posts.index", map[string]any{"page": 2})
	require.NoError(t, err)
	assert.Equal(t, "/posts/2", got)
}

func TestRelationAction(t *testing.T) {
	a := NewRelation("author", "Author", "author", "authors.show")
	r, ok := Resolve(a, map[string]any{"author": map[string]any{"id": 12}}, ctxWith())
	require.True(t, ok)
	require.NotNil(t, r.URL)
	assert.Equal(t, "/authors/12", *r.URL)
	assert.Equal(t, KindRelation, r.Kind)
}

func TestBulk(t *testing.T) {
	var got []any
	a := NewBulk("delete", "Delete selected", func(items []any, _ Context) error {
		got = items
		return nil
	})
	a.Endpoint = "/posts/bulk-delete"

	t.Run("count fills the confirmation", func(t *testing.T) {
		r, ok := ResolveBulk(a, []any{1, 2, 3}, ctxWith())
		require.True(t, ok)
		assert.Equal(t, "Apply this action to 3 selected items?", r.Confirmation.Message)
		require.NotNil(t, r.Count)
		assert.Equal(t, 3, *r.Count)
		assert.Equal(t, "/posts/bulk-delete", *r.URL)
	})

	t.Run("no selection keeps the template", func(t *testing.T) {
		r, ok := ResolveBulk(a, nil, ctxWith())
		require.True(t, ok)
		assert.Equal(t, DefaultBulkMessage, r.Confirmation.Message)
		assert.Nil(t, r.Count)
		assert.Equal(t, DefaultBulkMessage, a.Confirmation.Message, "descriptor is not mutated")
	})

	t.Run("execute receives the selection", func(t *testing.T) {
		require.NoError(t, a.Execute([]any{"a", "b"}, ctxWith()))
		assert.Equal(t, []any{"a", "b"}, got)
	})

	t.Run("execute respects permissions", func(t *testing.T) {
		a.Permission = authz.Require("posts.delete")
		defer func() { a.Permission = nil }()
		err := a.Execute([]any{"a"}, ctxWith())
		assert.True(t, errors.Is(err, ErrForbidden))
	})
}

func TestModal(t *testing.T) {
	a := NewModal("quick", "Quick view", "/posts/{id}/preview").SlideOver()
	a.Modal.Size = "lg"
	r, ok := Resolve(a, map[string]any{"id": 5}, ctxWith())
	require.True(t, ok)
	assert.Equal(t, ModeSlideover, r.Mode)
	assert.Equal(t, &ModalConfig{Size: "lg", Title: "Quick view"}, r.Modal)
	assert.Equal(t, "/posts/5/preview", *r.URL)
}

func TestConfirmationUsesItemFields(t *testing.T) {
	a := NewCallback("delete", "Delete", func(any, Context) error { return nil })
	a.Confirm("Delete post", `Delete "{title}"?`)
	r, _ := Resolve(a, map[string]any{"title": "Hello"}, ctxWith())
	assert.Equal(t, `Delete "Hello"?`, r.Confirmation.Message)
	assert.Equal(t, "Delete post", r.Confirmation.Title)
}

func TestCallbackExecute(t *testing.T) {
	a := NewCallback("ping", "Ping", func(any, Context) error { panic("boom") })
	assert.Error(t, a.Execute(nil, ctxWith()))

	a.Disabled = true
	assert.True(t, errors.Is(a.Execute(nil, ctxWith()), ErrDisabled))

	assert.True(t, errors.Is(NewCallback("n", "N", nil).Execute(nil, ctxWith()), ErrNoHandler))
}

func TestHeaderAction(t *testing.T) {
	a := NewHeader("create", "New post", "posts.index")
	r, ok := Resolve(a, nil, ctxWith())
	require.True(t, ok)
	assert.Equal(t, "/posts/", *r.URL)

	link := &Header{Base: newBase(KindHeader, "docs", "Docs", MethodGet), Href: "https://example.com"}
	link.NewTab = true
	r, _ = Resolve(link, nil, ctxWith())
	assert.Equal(t, "https://example.com", *r.URL)
	assert.True(t, r.NewTab)
}

func TestInlineEdit(t *testing.T) {
	row := map[string]any{"title": "old"}
	col := column.NewEditable("title", "Title", func(r any, v any) (bool, error) {
		r.(map[string]any)["title"] = v
		return true, nil
	})
	col.Permission = authz.Require("posts.edit")
	edit := NewInlineEdit(col)

	_, err := edit.Execute(row, "new", ctxWith())
	assert.True(t, errors.Is(err, ErrForbidden))

	changed, err := edit.Execute(row, "new", ctxWith("posts.edit"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "new", row["title"])

	col.Disabled = true
	r, ok := Resolve(edit, row, ctxWith("posts.edit"))
	require.True(t, ok)
	assert.False(t, r.Enabled)
	_, err = edit.Execute(row, "x", ctxWith("posts.edit"))
	assert.True(t, errors.Is(err, column.ErrNotEditable))
}
