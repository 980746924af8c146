// Package table compiles table definitions into the wire contract a grid
// client renders: it detects the declaration mode, reconciles markup with
// configuration, formats every cell, applies filters and sorting, and
// resolves actions for the current user.
package table

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oakwood-commons/gridkit/internal/fieldpath"
	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/filter"
	"github.com/oakwood-commons/gridkit/pkg/logger"
	"github.com/oakwood-commons/gridkit/pkg/mode"
	"github.com/oakwood-commons/gridkit/pkg/query"
	"github.com/oakwood-commons/gridkit/pkg/settings"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Compiler turns definitions into contracts. It holds no per-render state
// and is safe for concurrent use.
type Compiler struct {
	registry       *Registry
	casts          *cast.Registry
	log            *logr.Logger
	locale         string
	currency       string
	location       *time.Location
	automatic      bool
	cacheCasts     bool
	parallelism    int
	strategy       mode.Strategy
	allowConflicts bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the fallback logger used when the compile context
// carries none.
func WithLogger(log logr.Logger) Option {
	return func(c *Compiler) { c.log = &log }
}

// WithLocale sets the locale and currency handed to casts.
func WithLocale(locale, currency string) Option {
	return func(c *Compiler) { c.locale, c.currency = locale, currency }
}

// WithLocation sets the time zone dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(c *Compiler) { c.location = loc }
}

// WithAutomaticCasts toggles heuristic cast selection.
func WithAutomaticCasts(enabled bool) Option {
	return func(c *Compiler) { c.automatic = enabled }
}

// WithCastCache toggles render-scoped memoization of cast results.
func WithCastCache(enabled bool) Option {
	return func(c *Compiler) { c.cacheCasts = enabled }
}

// WithParallelism bounds the number of rows formatted at once. Values
// below one mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(c *Compiler) { c.parallelism = n }
}

// WithStrategy sets the default merge strategy for hybrid tables.
func WithStrategy(s mode.Strategy) Option {
	return func(c *Compiler) { c.strategy = s }
}

// WithAllowConflicts sets whether strict-merge conflicts still render.
func WithAllowConflicts(allow bool) Option {
	return func(c *Compiler) { c.allowConflicts = allow }
}

// WithCasts replaces the automatic cast registry.
func WithCasts(r *cast.Registry) Option {
	return func(c *Compiler) { c.casts = r }
}

// FromSettings maps run settings onto compiler options. It fails only on an
// unknown timezone.
func FromSettings(run *settings.Run) ([]Option, error) {
	if run == nil {
		return nil, nil
	}
	loc, err := run.Location()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLocale(run.Locale, run.Currency),
		WithLocation(loc),
		WithAutomaticCasts(run.AutomaticCasts),
		WithCastCache(run.CacheCasts),
		WithParallelism(run.ParallelRows),
		WithStrategy(mode.Strategy(run.Strategy)),
		WithAllowConflicts(run.AllowConflicts),
	}, nil
}

// New returns a compiler over reg. A nil registry means DefaultRegistry.
func New(reg *Registry, opts ...Option) *Compiler {
	if reg == nil {
		reg = DefaultRegistry()
	}
	c := &Compiler{
		registry:       reg,
		casts:          cast.DefaultRegistry(),
		locale:         "en-US",
		currency:       "USD",
		location:       time.UTC,
		automatic:      true,
		cacheCasts:     true,
		allowConflicts: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.parallelism < 1 {
		c.parallelism = runtime.GOMAXPROCS(0)
	}
	return c
}

// Registry returns the variant registry.
func (c *Compiler) Registry() *Registry { return c.registry }

// Request is the per-render input.
type Request struct {
	Rows        []any
	Permissions authz.Permissions
	// Filters holds request values keyed by filter id or field.
	Filters map[string]any
	// Sort names a column key; it is ignored unless the column is sortable.
	Sort      string
	Direction string
	// Selected is the bulk selection. Nil leaves {count} unexpanded.
	Selected []any
	// Router resolves named routes; the definition's routes are used when
	// nil.
	Router action.Router
	// ApplyQuery evaluates the compiled query against Rows in memory.
	// Without it the caller is expected to have fetched matching rows.
	ApplyQuery bool
}

// Compile produces the contract of def for req. Configuration problems are
// reported in the contract's diagnostics; only a cancelled context fails a
// compile.
func (c *Compiler) Compile(ctx context.Context, def *Definition, req Request) (*Contract, error) {
	if def == nil {
		return nil, fmt.Errorf("compile: nil definition")
	}
	renderID := uuid.NewString()
	if c.log != nil && !logger.InContext(ctx) {
		ctx = logger.WithLogger(ctx, c.log)
	}
	ctx, log := logger.ForRender(ctx, def.Name, renderID)

	det := def.Detect()
	log = log.WithValues(logger.ModeKey, string(det.Mode))
	log.V(1).Info("compiling table", "rows", len(req.Rows), "priority", string(det.Priority))

	fromMarkup, diag := c.registry.markupSources(def)
	fromProps, propsDiag := c.registry.propsSources(def)
	diag = diag.Merge(propsDiag)

	opts := mode.Options{Strategy: c.strategy, AllowConflicts: c.allowConflicts}
	if def.Strategy != "" {
		opts.Strategy = def.Strategy
	}
	if def.AllowConflicts != nil {
		opts.AllowConflicts = *def.AllowConflicts
	}

	cols := mode.Reconcile(det.TableMode, fromMarkup.columns, fromProps.columns, columnKeys, opts)
	filters := mode.Reconcile(det.TableMode, fromMarkup.filters, fromProps.filters, filterKeys, opts)
	rowActions := mode.Reconcile(det.TableMode, fromMarkup.actions, fromProps.actions, actionKeys, opts)
	bulk := mode.Reconcile(det.TableMode, fromMarkup.bulkActions, fromProps.bulkActions, actionKeys, opts)
	header := mode.Reconcile(det.TableMode, fromMarkup.headerActions, fromProps.headerActions, actionKeys, opts)
	for _, d := range []mode.Diagnostics{cols.Diagnostics, filters.Diagnostics, rowActions.Diagnostics, bulk.Diagnostics, header.Diagnostics} {
		diag = diag.Merge(d)
	}
	for _, r := range cols.Resolutions {
		log.Info("column declared by both sources", "column", r.Key, "winner", string(r.Winner), "strategy", string(cols.Strategy))
	}
	if ignored := def.Markup.Ignored(); len(ignored) > 0 {
		log.V(1).Info("ignoring unrecognized markup nodes", "kinds", ignored)
	}

	tm := det.TableMode
	tm.Priority = cols.Priority
	out := &Contract{
		Table:       def.Name,
		RenderID:    renderID,
		Mode:        tm,
		Conflicts:   det.Conflicts,
		Strategy:    cols.Strategy,
		Resolutions: cols.Resolutions,
		Columns:     []column.Descriptor{},
		Filters:     []filter.Descriptor{},
		Rows:        []Row{},
	}
	if diag.Blocking {
		log.Info("table blocked by unresolved conflicts", "conflicts", det.Conflicts.String())
		out.Diagnostics = diag
		out.BulkActions, out.HeaderActions = []action.Resolved{}, []action.Resolved{}
		return out, nil
	}

	columns := cols.Items
	if len(columns) == 0 && det.Mode == mode.Dynamic && len(req.Rows) > 0 {
		columns = autoColumns(req.Rows[0])
		log.V(1).Info("inferred columns from row shape", "columns", len(columns))
	}
	visible := column.Filter(columns, req.Permissions)
	for _, col := range visible {
		out.Columns = append(out.Columns, column.Describe(col))
	}

	var set filter.Set
	for _, f := range filters.Items {
		if filter.Visible(f, req.Permissions) {
			set = append(set, f)
			out.Filters = append(out.Filters, filter.Describe(f, filter.Lookup(f, req.Filters)))
		}
	}
	var b query.Builder = query.New()
	b, out.AppliedFilters = set.Apply(b, req.Filters, log)
	if out.AppliedFilters == nil {
		out.AppliedFilters = []string{}
	}

	if req.Sort != "" {
		b, out.Sort, diag = applySort(b, visible, req.Sort, req.Direction, diag)
	}
	q, _ := query.Of(b)
	out.Query = q

	rows := req.Rows
	if req.ApplyQuery {
		rows = q.Apply(rows)
	}

	actx := action.Context{Permissions: req.Permissions, Router: req.Router, Log: log}
	if actx.Router == nil && len(def.Routes) > 0 {
		actx.Router = def.Routes
	}

	formatted, err := c.formatRows(ctx, log, rows, visible, rowActions.Items, actx)
	if err != nil {
		return nil, err
	}
	out.Rows = formatted

	out.BulkActions = make([]action.Resolved, 0, len(bulk.Items))
	for _, a := range bulk.Items {
		if r, ok := action.ResolveBulk(a, req.Selected, actx); ok {
			out.BulkActions = append(out.BulkActions, r)
		}
	}
	out.HeaderActions = action.ResolveAll(header.Items, nil, actx)
	out.Diagnostics = diag
	log.V(1).Info("compiled table", "columns", len(out.Columns), "rows", len(out.Rows))
	return out, nil
}

var (
	columnKeys = mode.Keyed[column.Column]{
		Key:   func(c column.Column) string { return c.Meta().Key },
		Order: func(c column.Column) int { return c.Meta().Order },
	}
	filterKeys = mode.Keyed[filter.Filter]{
		Key:  func(f filter.Filter) string { return f.Meta().ID() },
		Noun: "filter",
	}
	actionKeys = mode.Keyed[action.Action]{
		Key:  func(a action.Action) string { return a.Meta().Key },
		Noun: "action",
	}
)

// autoColumns infers text columns from the shape of a row.
func autoColumns(row any) []column.Column {
	fields := fieldpath.Fields(row)
	out := make([]column.Column, 0, len(fields))
	for _, f := range fields {
		out = append(out, column.NewText(f, ""))
	}
	return out
}

// applySort orders by the requested column when it is visible and
// sortable.
func applySort(b query.Builder, visible []column.Column, key, dir string, diag mode.Diagnostics) (query.Builder, *Sort, mode.Diagnostics) {
	dir = strings.ToLower(dir)
	if dir != query.Desc {
		dir = query.Asc
	}
	for _, col := range visible {
		m := col.Meta()
		if m.Key != key {
			continue
		}
		if !m.Sortable {
			break
		}
		return b.OrderBy(m.FieldPath(), dir), &Sort{Column: key, Direction: dir}, diag
	}
	diag.Notes = append(diag.Notes, fmt.Sprintf("sort on %q ignored: no visible sortable column has that key", key))
	return b, nil, diag
}

// formatRows formats every row, in parallel and in order.
func (c *Compiler) formatRows(ctx context.Context, log logr.Logger, rows []any, cols []column.Column, actions []action.Action, actx action.Context) ([]Row, error) {
	engineOpts := []cast.EngineOption{cast.WithLogger(log), cast.WithAutomatic(c.automatic)}
	if c.cacheCasts {
		engineOpts = append(engineOpts, cast.WithCache(cast.NewCache()))
	}
	env := column.Env{
		Engine: cast.NewEngine(c.casts, engineOpts...),
		Cast: cast.Context{
			Locale:   c.locale,
			Currency: c.currency,
			Location: c.location,
			User:     actx.Permissions.Map(),
		},
		Permissions: actx.Permissions,
		Log:         log,
	}

	hasActionsColumn := false
	for _, col := range cols {
		if _, ok := col.(*column.Actions); ok {
			hasActionsColumn = true
		}
	}

	out := make([]Row, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = formatRow(row, cols, actions, env, actx, hasActionsColumn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("formatting rows: %w", err)
	}
	if cache := env.Engine.Cache(); cache != nil {
		hits, misses := cache.Stats()
		log.V(1).Info("cast cache", "hits", hits, "misses", misses, "entries", cache.Len())
	}
	return out, nil
}

func formatRow(row any, cols []column.Column, actions []action.Action, env column.Env, actx action.Context, hasActionsColumn bool) Row {
	r := Row{ID: action.KeyOf(row), Cells: make(map[string]value.Value, len(cols))}
	for _, col := range cols {
		key := col.Meta().Key
		if ac, ok := col.(*column.Actions); ok && ac.Render == nil {
			r.Cells[key] = value.NewPayload("actions", "actions", action.ResolveAll(pick(actions, ac.Keys), row, actx))
			continue
		}
		r.Cells[key] = column.FormatValue(col, row, env)
	}
	if !hasActionsColumn {
		r.Actions = action.ResolveAll(actions, row, actx)
	}
	return r
}

// pick returns the actions named by keys, in key order. Empty keys means
// all of them.
func pick(actions []action.Action, keys []string) []action.Action {
	if len(keys) == 0 {
		return actions
	}
	byKey := make(map[string]action.Action, len(actions))
	for _, a := range actions {
		byKey[a.Meta().Key] = a
	}
	out := make([]action.Action, 0, len(keys))
	for _, k := range keys {
		if a, ok := byKey[k]; ok {
			out = append(out, a)
		}
	}
	return out
}
