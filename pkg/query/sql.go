package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"
)

// Dialect selects placeholder and operator spelling.
type Dialect string

// Supported dialects.
const (
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ErrInvalidIdentifier is returned when a field or table name cannot be
// rendered safely.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Relation describes how a related table joins the base table.
type Relation struct {
	Table      string
	ForeignKey string
	OwnerKey   string
}

// SQLOptions configures rendering.
type SQLOptions struct {
	Dialect Dialect
	// Table is the base table.
	Table string
	// Relations overrides the conventional join of WhereHas relations:
	// table named after the relation, "<singular base table>_id" foreign key,
	// "id" owner key.
	Relations map[string]Relation
	// MorphTables maps polymorphic type names to tables. Types without an
	// entry use the pluralized, underscored type name.
	MorphTables map[string]string
}

// SQL renders the filtering clauses as a WHERE expression and the ordering
// clauses as an ORDER BY list. Both are empty when q has no such clauses.
func (q Query) SQL(opts SQLOptions) (where, orderBy string, args []any, err error) {
	r := &renderer{opts: opts}
	where, err = r.conditions(q.Wheres())
	if err != nil {
		return "", "", nil, err
	}
	var orders []string
	for _, o := range q.Orders() {
		if !identPattern.MatchString(o.Field) {
			return "", "", nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, o.Field)
		}
		orders = append(orders, o.Field+" "+strings.ToUpper(o.Dir))
	}
	return where, strings.Join(orders, ", "), r.args, nil
}

// Select renders a complete SELECT statement over opts.Table.
func (q Query) Select(opts SQLOptions, columns ...string) (string, []any, error) {
	if !identPattern.MatchString(opts.Table) {
		return "", nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, opts.Table)
	}
	cols := "*"
	if len(columns) > 0 {
		for _, c := range columns {
			if !identPattern.MatchString(c) {
				return "", nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, c)
			}
		}
		cols = strings.Join(columns, ", ")
	}
	where, orderBy, args, err := q.SQL(opts)
	if err != nil {
		return "", nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, opts.Table)
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
	return b.String(), args, nil
}

// Fetch runs the SELECT for q on db and returns the rows as maps. It is the
// bridge for callers whose rows live in a SQL database; the driver is the
// caller's choice.
func Fetch(ctx context.Context, db *sql.DB, q Query, opts SQLOptions, columns ...string) ([]map[string]any, error) {
	stmt, args, err := q.Select(opts, columns...)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", opts.Table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", opts.Table, err)
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			if b, ok := vals[i].([]byte); ok {
				row[n] = string(b)
				continue
			}
			row[n] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type renderer struct {
	opts SQLOptions
	args []any
}

func (r *renderer) placeholder(v any) string {
	r.args = append(r.args, v)
	if r.opts.Dialect == Postgres {
		return "$" + strconv.Itoa(len(r.args))
	}
	return "?"
}

func (r *renderer) conditions(clauses []Clause) (string, error) {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		part, err := r.clause(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " AND "), nil
}

func (r *renderer) clause(c Clause) (string, error) {
	switch c.Kind {
	case KindWhere:
		if !identPattern.MatchString(c.Field) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, c.Field)
		}
		return r.where(c)
	case KindIn:
		if !identPattern.MatchString(c.Field) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, c.Field)
		}
		if len(c.Values) == 0 {
			return "1 = 0", nil
		}
		ph := make([]string, len(c.Values))
		for i, v := range c.Values {
			ph[i] = r.placeholder(v)
		}
		return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(ph, ", ")), nil
	case KindHas, KindMorph:
		if !identPattern.MatchString(c.Relation) || !identPattern.MatchString(r.opts.Table) {
			return "", fmt.Errorf("%w: relation %q of table %q", ErrInvalidIdentifier, c.Relation, r.opts.Table)
		}
		if c.Kind == KindHas {
			return r.has(c)
		}
		return r.morph(c)
	}
	return "", fmt.Errorf("unsupported clause %q", c.Kind)
}

func (r *renderer) where(c Clause) (string, error) {
	if c.Value == nil {
		switch c.Op {
		case OpEq:
			return c.Field + " IS NULL", nil
		case OpNotEq:
			return c.Field + " IS NOT NULL", nil
		}
	}
	switch c.Op {
	case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte:
		op := c.Op
		if op == OpNotEq {
			op = "<>"
		}
		return fmt.Sprintf("%s %s %s", c.Field, op, r.placeholder(c.Value)), nil
	case OpLike:
		return fmt.Sprintf("%s LIKE %s ESCAPE '%c'", c.Field, r.placeholder(c.Value), LikeEscape), nil
	case OpNotLike:
		return fmt.Sprintf("%s NOT LIKE %s ESCAPE '%c'", c.Field, r.placeholder(c.Value), LikeEscape), nil
	case OpRegexp:
		op := "REGEXP"
		if r.opts.Dialect == Postgres {
			op = "~"
		}
		return fmt.Sprintf("%s %s %s", c.Field, op, r.placeholder(c.Value)), nil
	}
	return "", fmt.Errorf("unsupported operator %q", c.Op)
}

func (r *renderer) relation(name string) Relation {
	rel := r.opts.Relations[name]
	if rel.Table == "" {
		rel.Table = inflect.Tableize(name)
	}
	if rel.ForeignKey == "" {
		rel.ForeignKey = inflect.Underscore(inflect.Singularize(r.opts.Table)) + "_id"
	}
	if rel.OwnerKey == "" {
		rel.OwnerKey = "id"
	}
	return rel
}

func (r *renderer) exists(table, join string, scope *Query) (string, error) {
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	cond := join
	if scope != nil && len(scope.Wheres()) > 0 {
		inner, err := r.conditions(scope.Wheres())
		if err != nil {
			return "", err
		}
		cond += " AND " + inner
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s)", table, cond), nil
}

func (r *renderer) has(c Clause) (string, error) {
	rel := r.relation(c.Relation)
	join := fmt.Sprintf("%s.%s = %s.%s", rel.Table, rel.ForeignKey, r.opts.Table, rel.OwnerKey)
	return r.exists(rel.Table, join, c.Scope)
}

func (r *renderer) morph(c Clause) (string, error) {
	types := c.Types
	if len(types) == 0 || (len(types) == 1 && types[0] == "*") {
		types = make([]string, 0, len(r.opts.MorphTables))
		for t := range r.opts.MorphTables {
			types = append(types, t)
		}
		sort.Strings(types)
	}
	if len(types) == 0 {
		return "1 = 0", nil
	}
	alts := make([]string, 0, len(types))
	for _, t := range types {
		table := r.opts.MorphTables[t]
		if table == "" {
			table = inflect.Tableize(lastSegment(t))
		}
		typeCond := fmt.Sprintf("%s.%s_type = %s", r.opts.Table, c.Relation, r.placeholder(t))
		join := fmt.Sprintf("%s.id = %s.%s_id", table, r.opts.Table, c.Relation)
		ex, err := r.exists(table, join, c.Scope)
		if err != nil {
			return "", err
		}
		alts = append(alts, "("+typeCond+" AND "+ex+")")
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return "(" + strings.Join(alts, " OR ") + ")", nil
}
