package filter

import (
	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Option is one selectable value.
type Option struct {
	Value any    `json:"value" yaml:"value" msgpack:"value"`
	Label string `json:"label" yaml:"label" msgpack:"label"`
}

// Select filters a column by one or several allowed values.
type Select struct {
	Base
	Choices  []Option
	Multiple bool
}

// NewSelect returns a single-choice select filter.
func NewSelect(field, label string, choices ...Option) *Select {
	return &Select{Base: newBase("select", field, label), Choices: choices}
}

// Operator implements Filter.
func (s *Select) Operator() Operator {
	if s.Multiple {
		return OpIn
	}
	return OpEq
}

// HasValue implements Filter.
func (s *Select) HasValue(v any) bool {
	return len(listOf(v)) > 0
}

// Apply implements Filter.
func (s *Select) Apply(q query.Builder, v any) query.Builder {
	items := listOf(v)
	switch {
	case len(items) == 0:
		return q
	case s.Multiple || len(items) > 1:
		return q.WhereIn(s.Field, items)
	}
	return q.Where(s.Field, query.OpEq, items[0])
}

// Options implements Filter.
func (s *Select) Options() map[string]any {
	out := map[string]any{"multiple": s.Multiple}
	if len(s.Choices) > 0 {
		out["choices"] = s.Choices
	}
	return out
}

// Boolean filters a column by a normalized boolean. "1", "true", "yes",
// "sim", "on", 1 and true select true; their negations select false.
type Boolean struct {
	Base
	TrueLabel  string
	FalseLabel string
}

// NewBoolean returns a boolean filter.
func NewBoolean(field, label string) *Boolean {
	return &Boolean{Base: newBase("boolean", field, label), TrueLabel: "Sim", FalseLabel: "Não"}
}

// Operator implements Filter.
func (b *Boolean) Operator() Operator { return OpEq }

// HasValue implements Filter. Input that is not boolean-like has no value.
func (b *Boolean) HasValue(v any) bool {
	_, ok := value.Bool(v)
	return ok
}

// Apply implements Filter.
func (b *Boolean) Apply(q query.Builder, v any) query.Builder {
	truth, ok := value.Bool(v)
	if !ok {
		return q
	}
	return q.Where(b.Field, query.OpEq, truth)
}

// Options implements Filter.
func (b *Boolean) Options() map[string]any {
	return map[string]any{"choices": []Option{
		{Value: true, Label: b.TrueLabel},
		{Value: false, Label: b.FalseLabel},
	}}
}
