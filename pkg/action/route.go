package action

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Router turns a named route and its parameters into a URL.
type Router interface {
	URL(name string, params map[string]any) (string, error)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(name string, params map[string]any) (string, error)

// URL implements Router.
func (f RouterFunc) URL(name string, params map[string]any) (string, error) {
	return f(name, params)
}

// Routes is a Router over a static table of patterns such as
// "/posts/{post}/edit". A trailing "?" marks an optional parameter.
// Parameters the pattern does not use become the query string.
type Routes map[string]string

var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// URL implements Router.
func (r Routes) URL(name string, params map[string]any) (string, error) {
	pattern, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrRouteNotFound)
	}
	used := map[string]bool{}
	var missing []string
	out := placeholder.ReplaceAllStringFunc(pattern, func(m string) string {
		key := m[1 : len(m)-1]
		optional := strings.HasSuffix(key, "?")
		key = strings.TrimSuffix(key, "?")
		used[key] = true
		v, ok := params[key]
		if !ok || value.IsBlank(v) {
			if !optional {
				missing = append(missing, key)
			}
			return ""
		}
		return url.PathEscape(value.String(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("route %q: %w: %s", name, ErrMissingParameter, strings.Join(missing, ", "))
	}

	extra := url.Values{}
	for k, v := range params {
		if !used[k] && !value.IsBlank(v) {
			extra.Set(k, value.String(v))
		}
	}
	if len(extra) > 0 {
		out += "?" + extra.Encode()
	}
	return out, nil
}

// Names lists the route names in order.
func (r Routes) Names() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RouteKeyer is implemented by entities addressed in URLs by something
// other than their primary key, such as a slug.
type RouteKeyer interface {
	RouteKey() any
}

// PrimaryKeyer is implemented by entities whose primary key is not the
// "id" field.
type PrimaryKeyer interface {
	PrimaryKey() any
}

// ParamName is the route parameter an entity binds to: the camel-cased
// singular of entity, or of the item's type name when entity is empty.
// Untyped items bind to "id".
func ParamName(item any, entity string) string {
	if entity == "" {
		entity = fieldpath.TypeName(item)
	}
	if entity == "" {
		return "id"
	}
	return inflect.CamelizeDownFirst(inflect.Singularize(entity))
}

// KeyOf returns the value identifying item in a URL: its route key, its
// primary key, or its "id" field.
func KeyOf(item any) any {
	switch t := item.(type) {
	case RouteKeyer:
		return t.RouteKey()
	case PrimaryKeyer:
		return t.PrimaryKey()
	}
	return fieldpath.Get(item, "id")
}

// InferParams binds item to its route parameter.
func InferParams(item any, entity string) (map[string]any, error) {
	key := KeyOf(item)
	if value.IsBlank(key) {
		return nil, fmt.Errorf("%s: %w", ParamName(item, entity), ErrMissingParameter)
	}
	return map[string]any{ParamName(item, entity): key}, nil
}

// Route points at a named route. Without Params the single parameter is
// inferred from the item; with Params each route parameter is read from
// the named field path of the item.
type Route struct {
	Base
	Name string
	// Entity overrides the entity name used for parameter inference.
	Entity string
	Params map[string]string
	// Query holds literal parameters added to every URL.
	Query map[string]any
}

// NewRoute returns a GET action on route name.
func NewRoute(key, label, name string) *Route {
	return &Route{Base: newBase(KindRoute, key, label, MethodGet), Name: name}
}

// Target implements Action.
func (r *Route) Target(item any, ctx Context) (string, error) {
	params, err := r.params(item)
	if err != nil {
		return "", err
	}
	return routeURL(ctx, r.Name, params)
}

func (r *Route) params(item any) (map[string]any, error) {
	var params map[string]any
	if len(r.Params) == 0 {
		inferred, err := InferParams(item, r.Entity)
		if err != nil {
			return nil, err
		}
		params = inferred
	} else {
		params = make(map[string]any, len(r.Params)+len(r.Query))
		for name, path := range r.Params {
			v, ok := fieldpath.Lookup(item, path)
			if !ok || value.IsBlank(v) {
				return nil, fmt.Errorf("%s from %q: %w", name, path, ErrMissingParameter)
			}
			params[name] = v
		}
	}
	for k, v := range r.Query {
		if _, taken := params[k]; !taken {
			params[k] = v
		}
	}
	return params, nil
}

// Relation links to the record a row is related to, such as a post's
// author. The related record's parameter is inferred from Entity, or from
// the singular relationship name for untyped rows.
type Relation struct {
	Base
	Relationship string
	Name         string
	Entity       string
}

// NewRelation returns a GET action on the related record's route.
func NewRelation(key, label, relationship, route string) *Relation {
	return &Relation{Base: newBase(KindRelation, key, label, MethodGet), Relationship: relationship, Name: route}
}

// Target implements Action.
func (r *Relation) Target(item any, ctx Context) (string, error) {
	related, ok := fieldpath.Lookup(item, r.Relationship)
	if !ok || value.IsBlank(related) {
		return "", fmt.Errorf("relation %s: %w", r.Relationship, ErrMissingParameter)
	}
	entity := r.Entity
	if entity == "" && fieldpath.TypeName(related) == "" {
		entity = r.Relationship
	}
	params, err := InferParams(related, entity)
	if err != nil {
		return "", err
	}
	return routeURL(ctx, r.Name, params)
}

func routeURL(ctx Context, name string, params map[string]any) (string, error) {
	if ctx.Router == nil {
		return "", fmt.Errorf("%q: no router: %w", name, ErrRouteNotFound)
	}
	return ctx.Router.URL(name, params)
}

// Expand fills {field} placeholders in tmpl from item, path-escaping each
// value. A placeholder with no value is an error.
func Expand(tmpl string, item any) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		path := m[1 : len(m)-1]
		v, ok := fieldpath.Lookup(item, path)
		if !ok || value.IsBlank(v) {
			missing = append(missing, path)
			return m
		}
		return url.PathEscape(value.String(v))
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
	}
	return out, nil
}

// expandLoose fills placeholders from vars, then from item, and leaves
// unknown ones in place.
func expandLoose(tmpl string, item any, vars map[string]string) string {
	if tmpl == "" {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		if v, ok := fieldpath.Lookup(item, key); ok && v != nil {
			return value.String(v)
		}
		return m
	})
}
