package filter

import (
	"regexp"
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// TextMode is how a text filter compares.
type TextMode string

// Text modes.
const (
	Contains   TextMode = "contains"
	StartsWith TextMode = "startsWith"
	EndsWith   TextMode = "endsWith"
	Exact      TextMode = "exact"
	Regex      TextMode = "regex"
)

// Text filters a column by a search string.
type Text struct {
	Base
	Mode TextMode
	// MinLength ignores shorter inputs.
	MinLength int
}

// NewText returns a contains-mode text filter on field.
func NewText(field, label string) *Text {
	return &Text{Base: newBase("text", field, label), Mode: Contains}
}

// Operator implements Filter.
func (t *Text) Operator() Operator {
	switch t.Mode {
	case StartsWith:
		return OpStartsWith
	case EndsWith:
		return OpEndsWith
	case Exact:
		return OpEq
	case Regex:
		return OpRegex
	}
	return OpLike
}

// HasValue implements Filter. Regex input must compile.
func (t *Text) HasValue(v any) bool {
	s := strings.TrimSpace(value.String(v))
	if s == "" || len([]rune(s)) < t.MinLength {
		return false
	}
	if t.Mode == Regex {
		_, err := regexp.Compile(s)
		return err == nil
	}
	return true
}

// Apply implements Filter.
func (t *Text) Apply(q query.Builder, v any) query.Builder {
	if !t.HasValue(v) {
		return q
	}
	s := strings.TrimSpace(value.String(v))
	switch t.Mode {
	case StartsWith:
		return q.Where(t.Field, query.OpLike, query.EscapeLike(s)+"%")
	case EndsWith:
		return q.Where(t.Field, query.OpLike, "%"+query.EscapeLike(s))
	case Exact:
		return q.Where(t.Field, query.OpEq, s)
	case Regex:
		return q.Where(t.Field, query.OpRegexp, s)
	}
	return q.Where(t.Field, query.OpLike, "%"+query.EscapeLike(s)+"%")
}

// Options implements Filter.
func (t *Text) Options() map[string]any {
	out := map[string]any{"mode": string(t.Mode)}
	if t.MinLength > 0 {
		out["minLength"] = t.MinLength
	}
	return out
}
