// Package query is the storage-agnostic query description that filters
// augment. The core never runs a query: it only records clauses. Query can be
// evaluated in memory with Match and Sort, or rendered to SQL.
package query

import (
	"strings"
)

// Comparison operators understood by Where.
const (
	OpEq      = "="
	OpNotEq   = "!="
	OpGt      = ">"
	OpGte     = ">="
	OpLt      = "<"
	OpLte     = "<="
	OpLike    = "like"
	OpNotLike = "not like"
	OpRegexp  = "regexp"
)

// LikeEscape precedes a literal "%", "_" or itself in a LIKE pattern.
// It is written as the ESCAPE character of rendered SQL.
const LikeEscape = '!'

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike quotes the LIKE wildcards in s so it matches only itself.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Builder is the chainable interface filters write to. Implementations may
// wrap any storage engine.
type Builder interface {
	Where(field, op string, v any) Builder
	WhereIn(field string, values []any) Builder
	// WhereHas keeps rows with at least one related record matching scope.
	WhereHas(relation string, scope func(Builder) Builder) Builder
	// WhereHasMorph is WhereHas across the given polymorphic target types;
	// "*" means every type.
	WhereHasMorph(relation string, types []string, scope func(Builder) Builder) Builder
	OrderBy(field, dir string) Builder
}

// Kind identifies a clause.
type Kind string

// Clause kinds.
const (
	KindWhere   Kind = "where"
	KindIn      Kind = "in"
	KindHas     Kind = "has"
	KindMorph   Kind = "morph"
	KindOrderBy Kind = "orderBy"
)

// Clause is one recorded constraint.
type Clause struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	Op       string   `json:"op,omitempty" yaml:"op,omitempty"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Values   []any    `json:"values,omitempty" yaml:"values,omitempty"`
	Relation string   `json:"relation,omitempty" yaml:"relation,omitempty"`
	Types    []string `json:"types,omitempty" yaml:"types,omitempty"`
	Scope    *Query   `json:"scope,omitempty" yaml:"scope,omitempty"`
	Dir      string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Query is an immutable list of clauses. Every Builder method returns a new
// Query; the receiver is never modified.
type Query struct {
	Clauses []Clause `json:"clauses" yaml:"clauses"`
}

var _ Builder = Query{}

// New returns an empty query.
func New() Query { return Query{} }

func (q Query) with(c Clause) Query {
	clauses := make([]Clause, len(q.Clauses), len(q.Clauses)+1)
	copy(clauses, q.Clauses)
	return Query{Clauses: append(clauses, c)}
}

// Where implements Builder.
func (q Query) Where(field, op string, v any) Builder {
	op = strings.ToLower(strings.TrimSpace(op))
	if op == "" || op == "==" {
		op = OpEq
	}
	if op == "<>" {
		op = OpNotEq
	}
	return q.with(Clause{Kind: KindWhere, Field: field, Op: op, Value: v})
}

// WhereIn implements Builder.
func (q Query) WhereIn(field string, values []any) Builder {
	return q.with(Clause{Kind: KindIn, Field: field, Values: values})
}

// WhereHas implements Builder.
func (q Query) WhereHas(relation string, scope func(Builder) Builder) Builder {
	return q.with(Clause{Kind: KindHas, Relation: relation, Scope: buildScope(scope)})
}

// WhereHasMorph implements Builder.
func (q Query) WhereHasMorph(relation string, types []string, scope func(Builder) Builder) Builder {
	return q.with(Clause{Kind: KindMorph, Relation: relation, Types: types, Scope: buildScope(scope)})
}

// OrderBy implements Builder.
func (q Query) OrderBy(field, dir string) Builder {
	dir = strings.ToLower(dir)
	if dir != Desc {
		dir = Asc
	}
	return q.with(Clause{Kind: KindOrderBy, Field: field, Dir: dir})
}

// Len returns the number of clauses.
func (q Query) Len() int { return len(q.Clauses) }

// Of unwraps a Builder produced by this package. Foreign builders yield an
// empty query and false.
func Of(b Builder) (Query, bool) {
	switch t := b.(type) {
	case Query:
		return t, true
	case *Query:
		if t == nil {
			return Query{}, false
		}
		return *t, true
	}
	return Query{}, false
}

func buildScope(scope func(Builder) Builder) *Query {
	if scope == nil {
		return nil
	}
	built, _ := Of(scope(New()))
	return &built
}

// Wheres returns the filtering clauses, without ordering.
func (q Query) Wheres() []Clause {
	out := make([]Clause, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		if c.Kind != KindOrderBy {
			out = append(out, c)
		}
	}
	return out
}

// Orders returns the ordering clauses.
func (q Query) Orders() []Clause {
	var out []Clause
	for _, c := range q.Clauses {
		if c.Kind == KindOrderBy {
			out = append(out, c)
		}
	}
	return out
}
