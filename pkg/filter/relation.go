package filter

import (
	"github.com/go-openapi/inflect"

	"github.com/oakwood-commons/gridkit/pkg/query"
)

// RelationKind is the shape of the relationship a filter crosses.
type RelationKind string

// Relationship kinds.
const (
	BelongsTo     RelationKind = "belongsTo"
	HasMany       RelationKind = "hasMany"
	BelongsToMany RelationKind = "belongsToMany"
	MorphTo       RelationKind = "morph"
)

// Relation filters rows through a relationship. BelongsTo compares the
// foreign key column; HasMany and BelongsToMany require a matching related
// row to exist; MorphTo requires one across every listed target type.
type Relation struct {
	Base
	Relationship string
	Kind         RelationKind
	// ForeignKey is the BelongsTo column, "<relationship>_id" by default.
	ForeignKey string
	// RelatedKey is the related-row field compared with the value, "id" by
	// default.
	RelatedKey string
	// MorphTypes restricts MorphTo targets. Empty means every type.
	MorphTypes []string
	Choices    []Option
	Multiple   bool
}

// NewRelation returns a relationship filter.
func NewRelation(relationship string, kind RelationKind, label string) *Relation {
	r := &Relation{Base: newBase("relation", relationship, label), Relationship: relationship, Kind: kind}
	return r
}

// Operator implements Filter.
func (r *Relation) Operator() Operator {
	if r.Multiple {
		return OpIn
	}
	return OpEq
}

// HasValue implements Filter.
func (r *Relation) HasValue(v any) bool {
	return len(listOf(v)) > 0
}

func (r *Relation) foreignKey() string {
	if r.ForeignKey != "" {
		return r.ForeignKey
	}
	return inflect.ForeignKey(r.Relationship)
}

func (r *Relation) relatedKey() string {
	if r.RelatedKey != "" {
		return r.RelatedKey
	}
	return "id"
}

// Apply implements Filter.
func (r *Relation) Apply(q query.Builder, v any) query.Builder {
	items := listOf(v)
	if len(items) == 0 {
		return q
	}
	match := func(field string) func(query.Builder) query.Builder {
		return func(b query.Builder) query.Builder {
			if len(items) == 1 {
				return b.Where(field, query.OpEq, items[0])
			}
			return b.WhereIn(field, items)
		}
	}

	switch r.Kind {
	case HasMany, BelongsToMany:
		return q.WhereHas(r.Relationship, match(r.relatedKey()))
	case MorphTo:
		types := r.MorphTypes
		if len(types) == 0 {
			types = []string{"*"}
		}
		return q.WhereHasMorph(r.Relationship, types, match(r.relatedKey()))
	}
	return match(r.foreignKey())(q)
}

// Options implements Filter.
func (r *Relation) Options() map[string]any {
	out := map[string]any{
		"relationship": r.Relationship,
		"relation":     string(r.Kind),
		"multiple":     r.Multiple,
	}
	if len(r.MorphTypes) > 0 {
		out["morphTypes"] = r.MorphTypes
	}
	if len(r.Choices) > 0 {
		out["choices"] = r.Choices
	}
	return out
}

// ApplyFunc is a user-supplied query mutation.
type ApplyFunc func(q query.Builder, v any) query.Builder

// Custom delegates to a function.
type Custom struct {
	Base
	Fn      ApplyFunc
	Present func(v any) bool
}

// NewCustom returns a filter running fn.
func NewCustom(key, label string, fn ApplyFunc) *Custom {
	return &Custom{Base: newBase("custom", key, label), Fn: fn}
}

// Operator implements Filter.
func (c *Custom) Operator() Operator { return OpEq }

// HasValue implements Filter.
func (c *Custom) HasValue(v any) bool {
	if c.Present != nil {
		return c.Present(v)
	}
	return scalarPresent(v)
}

// Apply implements Filter.
func (c *Custom) Apply(q query.Builder, v any) query.Builder {
	if c.Fn == nil || !c.HasValue(v) {
		return q
	}
	return c.Fn(q, v)
}

// Options implements Filter.
func (c *Custom) Options() map[string]any { return nil }
