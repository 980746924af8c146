package query

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Match reports whether row satisfies every filtering clause of q.
func (q Query) Match(row any) bool {
	for _, c := range q.Clauses {
		if !c.match(row) {
			return false
		}
	}
	return true
}

// Apply returns the rows matching q, sorted by its ordering clauses. The
// input slice is not modified.
func (q Query) Apply(rows []any) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	q.Sort(out)
	return out
}

// Sort orders rows in place by the ordering clauses, stably.
func (q Query) Sort(rows []any) {
	orders := q.Orders()
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			c := compare(fieldpath.Get(rows[i], o.Field), fieldpath.Get(rows[j], o.Field))
			if c == 0 {
				continue
			}
			if o.Dir == Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (c Clause) match(row any) bool {
	switch c.Kind {
	case KindWhere:
		got, ok := fieldpath.Lookup(row, c.Field)
		if !ok {
			return c.Op == OpNotEq || c.Op == OpNotLike
		}
		return compareOp(got, c.Op, c.Value)
	case KindIn:
		got, ok := fieldpath.Lookup(row, c.Field)
		if !ok {
			return false
		}
		for _, want := range c.Values {
			if compare(got, want) == 0 {
				return true
			}
		}
		return false
	case KindHas:
		related, ok := fieldpath.Lookup(row, c.Relation)
		if !ok {
			return false
		}
		return anyMatches(related, c.Scope)
	case KindMorph:
		related, ok := fieldpath.Lookup(row, c.Relation)
		if !ok || related == nil {
			return false
		}
		if !morphTypeAllowed(row, c.Relation, related, c.Types) {
			return false
		}
		return anyMatches(related, c.Scope)
	default:
		return true
	}
}

func anyMatches(related any, scope *Query) bool {
	items := asItems(related)
	for _, item := range items {
		if scope == nil || scope.Match(item) {
			return true
		}
	}
	return false
}

func asItems(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// morphTypeAllowed reads the target type from "<relation>_type" on the row,
// then from a "type" field on the related record, then from its Go type name.
func morphTypeAllowed(row any, relation string, related any, types []string) bool {
	if len(types) == 0 {
		return true
	}
	typ := value.String(fieldpath.Get(row, relation+"_type"))
	if typ == "" {
		typ = value.String(fieldpath.Get(related, "type"))
	}
	if typ == "" {
		typ = fieldpath.TypeName(related)
	}
	for _, t := range types {
		if t == "*" || strings.EqualFold(t, typ) || strings.EqualFold(t, lastSegment(typ)) {
			return true
		}
	}
	return false
}

func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, `\.`); i >= 0 {
		return s[i+1:]
	}
	return s
}

func compareOp(got any, op string, want any) bool {
	switch op {
	case OpEq:
		return compare(got, want) == 0
	case OpNotEq:
		return compare(got, want) != 0
	case OpGt:
		return bothSet(got, want) && compare(got, want) > 0
	case OpGte:
		return bothSet(got, want) && compare(got, want) >= 0
	case OpLt:
		return bothSet(got, want) && compare(got, want) < 0
	case OpLte:
		return bothSet(got, want) && compare(got, want) <= 0
	case OpLike:
		return like(value.String(got), value.String(want))
	case OpNotLike:
		return !like(value.String(got), value.String(want))
	case OpRegexp:
		re, err := regexp.Compile(value.String(want))
		if err != nil {
			return false
		}
		return re.MatchString(value.String(got))
	}
	return false
}

// like implements SQL LIKE with % and _ wildcards and LikeEscape,
// case-insensitively.
func like(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
			continue
		}
		switch r {
		case LikeEscape:
			escaped = true
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func bothSet(a, b any) bool {
	return a != nil && b != nil
}

// compare orders numbers numerically, times chronologically, booleans with
// false first, and everything else by string form.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aBool || bBool {
		ab, okA := value.Bool(a)
		bb, okB := value.Bool(b)
		if okA && okB {
			return compareBool(ab, bb)
		}
	}
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := cast.ParseTime(a, nil, time.UTC); ok {
		if tb, ok := cast.ParseTime(b, nil, time.UTC); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func numeric(v any) (float64, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return value.Float(v)
}
