// Package filter turns declarative filter specifications into query
// mutations. A filter only touches the query when HasValue accepts the
// request value; otherwise Apply is the identity.
package filter

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Operator is the comparison a filter performs.
type Operator string

// Operators.
const (
	OpEq         Operator = "eq"
	OpLike       Operator = "like"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegex      Operator = "regex"
	OpRange      Operator = "range"
	OpIn         Operator = "in"
)

// Target says whether a filter constrains a column or a relationship.
type Target string

// Targets.
const (
	TargetField        Target = "field"
	TargetRelationship Target = "relationship"
)

// Filter is implemented by every filter variant.
type Filter interface {
	Meta() *Base
	Operator() Operator
	// HasValue reports whether v is a usable request value.
	HasValue(v any) bool
	// Apply constrains q with v. It returns q unchanged when HasValue(v) is
	// false.
	Apply(q query.Builder, v any) query.Builder
	// Options returns the variant-specific wire fields.
	Options() map[string]any
}

// Base is shared by every filter.
type Base struct {
	Key         string
	Field       string
	Label       string
	Type        string
	Placeholder string
	Default     any
	Permission  authz.Requirement
	Hidden      bool
}

// Meta returns the shared descriptor.
func (b *Base) Meta() *Base { return b }

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/oakwood-commons/gridkit/filter"))

// ID returns the filter key, or a stable id derived from the field when no
// key was declared.
func (b *Base) ID() string {
	if b.Key != "" {
		return b.Key
	}
	return uuid.NewSHA1(idNamespace, []byte(b.Type+":"+b.Field)).String()
}

func newBase(typ, field, label string) Base {
	return Base{Key: field, Field: field, Label: label, Type: typ}
}

// Descriptor is the wire form of a filter.
type Descriptor struct {
	ID          string         `json:"id" yaml:"id" msgpack:"id"`
	Field       string         `json:"field" yaml:"field" msgpack:"field"`
	Label       string         `json:"label" yaml:"label" msgpack:"label"`
	Type        string         `json:"type" yaml:"type" msgpack:"type"`
	Operator    Operator       `json:"operator" yaml:"operator" msgpack:"operator"`
	AppliesTo   Target         `json:"appliesTo" yaml:"appliesTo" msgpack:"appliesTo"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty" msgpack:"placeholder,omitempty"`
	Value       any            `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Active      bool           `json:"active" yaml:"active" msgpack:"active"`
	Options     map[string]any `json:"options,omitempty" yaml:"options,omitempty" msgpack:"options,omitempty"`
}

// Describe returns the wire form of f with its current request value.
func Describe(f Filter, current any) Descriptor {
	b := f.Meta()
	target := TargetField
	if _, ok := f.(*Relation); ok {
		target = TargetRelationship
	}
	d := Descriptor{
		ID:          b.ID(),
		Field:       b.Field,
		Label:       b.Label,
		Type:        b.Type,
		Operator:    f.Operator(),
		AppliesTo:   target,
		Placeholder: b.Placeholder,
		Options:     f.Options(),
	}
	if safeHasValue(f, current) {
		d.Value = current
		d.Active = true
	}
	return d
}

// Visible reports whether the holder of p may use f.
func Visible(f Filter, p authz.Permissions) bool {
	b := f.Meta()
	return !b.Hidden && p.Allows(b.Permission)
}

// Set is an ordered list of filters.
type Set []Filter

// Lookup returns the request value addressed to f: by id, then by field,
// then the filter default.
func Lookup(f Filter, values map[string]any) any {
	b := f.Meta()
	if v, ok := values[b.ID()]; ok {
		return v
	}
	if v, ok := values[b.Field]; ok {
		return v
	}
	return b.Default
}

// Apply runs every filter that has a value, in order, and returns the
// constrained builder with the ids of the filters that took effect. A filter
// that panics is skipped.
func (s Set) Apply(q query.Builder, values map[string]any, log logr.Logger) (query.Builder, []string) {
	var applied []string
	for _, f := range s {
		v := Lookup(f, values)
		if !safeHasValue(f, v) {
			continue
		}
		next, err := safeApply(f, q, v)
		if err != nil {
			if log.GetSink() != nil {
				log.Info("filter failed; skipping", "filter", f.Meta().ID(), "error", err.Error())
			}
			continue
		}
		q = next
		applied = append(applied, f.Meta().ID())
	}
	return q, applied
}

func safeHasValue(f Filter, v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return f.HasValue(v)
}

func safeApply(f Filter, q query.Builder, v any) (out query.Builder, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = q, fmt.Errorf("filter %s panicked: %v", f.Meta().ID(), r)
		}
	}()
	return f.Apply(q, v), nil
}

// scalarPresent is the default HasValue rule: non-nil and not blank.
func scalarPresent(v any) bool {
	return !value.IsBlank(v)
}

// listOf normalizes single values and lists into a non-blank []any.
func listOf(v any) []any {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	case []int:
		for _, n := range t {
			items = append(items, n)
		}
	default:
		items = []any{v}
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		if !value.IsBlank(item) {
			out = append(out, item)
		}
	}
	return out
}
