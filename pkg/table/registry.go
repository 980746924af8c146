package table

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oakwood-commons/gridkit/internal/expr"
	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/filter"
)

// ErrUnknownVariant is returned when a spec names a type nothing is
// registered for.
var ErrUnknownVariant = errors.New("unknown variant")

// Factories build descriptors from specs.
type (
	CastFactory   func(s Spec) (cast.Cast, error)
	ColumnFactory func(s Spec, r *Registry) (column.Column, error)
	FilterFactory func(s Spec) (filter.Filter, error)
	ActionFactory func(s Spec) (action.Action, error)
)

// Registry maps variant tags to factories. It is passed to the compiler
// explicitly; there is no package-level registry.
type Registry struct {
	mu      sync.RWMutex
	casts   map[string]CastFactory
	columns map[string]ColumnFactory
	filters map[string]FilterFactory
	actions map[string]ActionFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		casts:   map[string]CastFactory{},
		columns: map[string]ColumnFactory{},
		filters: map[string]FilterFactory{},
		actions: map[string]ActionFactory{},
	}
}

// DefaultRegistry returns a new registry holding every built-in variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterCast("date", buildDateCast)
	r.RegisterCast("currency", buildCurrencyCast)
	r.RegisterCast("status", buildStatusCast)
	r.RegisterCast("expr", buildExprCast)

	for _, t := range column.Types {
		r.RegisterColumn(string(t), hydrateColumn)
	}

	r.RegisterFilter("text", buildTextFilter)
	r.RegisterFilter("select", buildSelectFilter)
	r.RegisterFilter("boolean", buildBooleanFilter)
	r.RegisterFilter("number_range", buildNumberRangeFilter)
	r.RegisterFilter("date_range", buildDateRangeFilter)
	r.RegisterFilter("relation", buildRelationFilter)

	r.RegisterAction(string(action.KindRoute), buildRouteAction)
	r.RegisterAction(string(action.KindURL), buildURLAction)
	r.RegisterAction(string(action.KindCallback), buildCallbackAction)
	r.RegisterAction(string(action.KindModal), buildModalAction)
	r.RegisterAction(string(action.KindBulk), buildBulkAction)
	r.RegisterAction(string(action.KindHeader), buildHeaderAction)
	r.RegisterAction(string(action.KindRow), buildRowAction)
	r.RegisterAction(string(action.KindRelation), buildRelationAction)
	return r
}

// RegisterCast adds or replaces a cast factory.
func (r *Registry) RegisterCast(typ string, f CastFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.casts[typ] = f
}

// RegisterColumn adds or replaces a column factory.
func (r *Registry) RegisterColumn(typ string, f ColumnFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.columns[typ] = f
}

// RegisterFilter adds or replaces a filter factory.
func (r *Registry) RegisterFilter(typ string, f FilterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[typ] = f
}

// RegisterAction adds or replaces an action factory.
func (r *Registry) RegisterAction(typ string, f ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[typ] = f
}

// Variants lists the registered tags per kind, sorted.
func (r *Registry) Variants() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"casts":   sortedKeys(r.casts),
		"columns": sortedKeys(r.columns),
		"filters": sortedKeys(r.filters),
		"actions": sortedKeys(r.actions),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Cast builds a cast from s.
func (r *Registry) Cast(s Spec) (cast.Cast, error) {
	r.mu.RLock()
	f, ok := r.casts[s.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cast %q: %w", s.Type, ErrUnknownVariant)
	}
	return f(s)
}

// Column builds a column from s. An empty type is a text column.
func (r *Registry) Column(s Spec) (column.Column, error) {
	if s.Type == "" {
		s.Type = string(column.TypeText)
	}
	r.mu.RLock()
	f, ok := r.columns[s.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("column %s: type %q: %w", s.Key, s.Type, ErrUnknownVariant)
	}
	return f(s, r)
}

// Filter builds a filter from s. An empty type is a text filter.
func (r *Registry) Filter(s Spec) (filter.Filter, error) {
	if s.Type == "" {
		s.Type = "text"
	}
	r.mu.RLock()
	f, ok := r.filters[s.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("filter %s: type %q: %w", s.Key, s.Type, ErrUnknownVariant)
	}
	return f(s)
}

// Action builds an action from s. An empty type is a URL action.
func (r *Registry) Action(s Spec) (action.Action, error) {
	if s.Type == "" {
		s.Type = string(action.KindURL)
	}
	r.mu.RLock()
	f, ok := r.actions[s.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("action %s: type %q: %w", s.Key, s.Type, ErrUnknownVariant)
	}
	return f(s)
}

func checkExpr(key string, sources ...string) error {
	ev, err := expr.Default()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src == "" {
			continue
		}
		if err := ev.Check(src); err != nil {
			return fmt.Errorf("%s: %q: %w", key, src, err)
		}
	}
	return nil
}

// casts

func buildDateCast(s Spec) (cast.Cast, error) {
	d := cast.NewDate()
	d.Format = s.StringOr("format", d.Format)
	if layouts := s.Strings("layouts"); len(layouts) > 0 {
		d.Layouts = layouts
	}
	return d, nil
}

func buildCurrencyCast(s Spec) (cast.Cast, error) {
	c := cast.NewCurrency()
	c.Locale = s.String("locale")
	c.MoneyFormat.Currency = s.String("currency")
	c.Symbol = s.String("symbol")
	if _, ok := s.Options["decimals"]; ok {
		c.Decimals = s.Int("decimals")
	}
	return c, nil
}

func buildStatusCast(s Spec) (cast.Cast, error) {
	var statuses map[string]cast.StatusOption
	if err := s.Decode("statuses", &statuses); err != nil {
		return nil, err
	}
	st := cast.NewStatus(statuses)
	st.CaseSensitive = s.Bool("caseSensitive")
	if _, ok := s.Options["default"]; ok {
		var def cast.StatusOption
		if err := s.Decode("default", &def); err != nil {
			return nil, err
		}
		st.Default = &def
	}
	return st, nil
}

func buildExprCast(s Spec) (cast.Cast, error) {
	e, err := cast.NewExpr(s.String("expression"))
	if err != nil {
		return nil, fmt.Errorf("expr cast: %w", err)
	}
	return e, nil
}

// castSpec reads a column's "cast" option: a type name or a spec map.
func castSpec(v any) (Spec, bool) {
	switch t := v.(type) {
	case string:
		if t != "" {
			return Spec{Type: t, Options: map[string]any{}}, true
		}
	case map[string]any:
		return SpecFromMap(t), true
	}
	return Spec{}, false
}

// columns

func hydrateColumn(s Spec, r *Registry) (column.Column, error) {
	c, err := column.Hydrate(column.DescriptorFromMap(s.Map()))
	if err != nil {
		return nil, err
	}
	m := c.Meta()
	if err := checkExpr(m.Key, m.VisibleWhen); err != nil {
		return nil, err
	}
	if cs, ok := castSpec(s.Options["cast"]); ok {
		ct, err := r.Cast(cs)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", m.Key, err)
		}
		m.Cast = ct
	}
	return c, nil
}

// filters

func applyFilterBase(b *filter.Base, s Spec) error {
	if s.Key != "" {
		b.Key = s.Key
	}
	b.Placeholder = s.String("placeholder")
	b.Default = s.Options["default"]
	b.Hidden = s.Bool("hidden")
	perm, err := s.Permission()
	if err != nil {
		return err
	}
	b.Permission = perm
	return nil
}

func filterField(s Spec) string {
	return s.StringOr("field", s.Key)
}

func buildTextFilter(s Spec) (filter.Filter, error) {
	f := filter.NewText(filterField(s), s.Label)
	if mode := s.String("mode"); mode != "" {
		f.Mode = filter.TextMode(mode)
	}
	f.MinLength = s.Int("minLength")
	return f, applyFilterBase(&f.Base, s)
}

func buildSelectFilter(s Spec) (filter.Filter, error) {
	f := filter.NewSelect(filterField(s), s.Label)
	if err := s.Decode("choices", &f.Choices); err != nil {
		return nil, err
	}
	f.Multiple = s.Bool("multiple")
	return f, applyFilterBase(&f.Base, s)
}

func buildBooleanFilter(s Spec) (filter.Filter, error) {
	f := filter.NewBoolean(filterField(s), s.Label)
	f.TrueLabel = s.StringOr("trueLabel", f.TrueLabel)
	f.FalseLabel = s.StringOr("falseLabel", f.FalseLabel)
	return f, applyFilterBase(&f.Base, s)
}

func buildNumberRangeFilter(s Spec) (filter.Filter, error) {
	f := filter.NewNumberRange(filterField(s), s.Label)
	if v, ok := s.Float("min"); ok {
		f.Min = &v
	}
	if v, ok := s.Float("max"); ok {
		f.Max = &v
	}
	if v, ok := s.Float("step"); ok {
		f.Step = v
	}
	return f, applyFilterBase(&f.Base, s)
}

func buildDateRangeFilter(s Spec) (filter.Filter, error) {
	f := filter.NewDateRange(filterField(s), s.Label)
	if tz := s.String("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", s.Key, err)
		}
		f.Location = loc
	}
	return f, applyFilterBase(&f.Base, s)
}

func buildRelationFilter(s Spec) (filter.Filter, error) {
	rel := s.StringOr("relationship", filterField(s))
	f := filter.NewRelation(rel, filter.RelationKind(s.StringOr("relation", string(filter.BelongsTo))), s.Label)
	f.ForeignKey = s.String("foreignKey")
	f.RelatedKey = s.String("relatedKey")
	f.MorphTypes = s.Strings("morphTypes")
	f.Multiple = s.Bool("multiple")
	if err := s.Decode("choices", &f.Choices); err != nil {
		return nil, err
	}
	return f, applyFilterBase(&f.Base, s)
}

// actions

func applyActionBase(b *action.Base, s Spec) error {
	b.Icon = s.String("icon")
	b.Variant = s.String("variant")
	b.Method = s.StringOr("method", b.Method)
	b.Hidden = s.Bool("hidden")
	b.Disabled = s.Bool("disabled")
	b.NewTab = s.Bool("newTab")
	b.VisibleWhen = s.String("visibleWhen")
	b.EnabledWhen = s.String("enabledWhen")
	b.DisabledWhen = s.String("disabledWhen")
	if err := checkExpr(b.Key, b.VisibleWhen, b.EnabledWhen, b.DisabledWhen); err != nil {
		return err
	}
	perm, err := s.Permission()
	if err != nil {
		return err
	}
	b.Permission = perm

	switch v := s.Options["confirm"].(type) {
	case string:
		b.Confirm(b.Label, v)
	case map[string]any:
		var c action.Confirmation
		if err := s.Decode("confirm", &c); err != nil {
			return err
		}
		b.Confirmation = &c
	}
	if m := s.String("mode"); m != "" {
		b.Mode = action.Mode(m)
	}
	if _, ok := s.Options["modal"]; ok {
		var mc action.ModalConfig
		if err := s.Decode("modal", &mc); err != nil {
			return err
		}
		b.Modal = &mc
	}
	return nil
}

func buildRouteAction(s Spec) (action.Action, error) {
	a := action.NewRoute(s.Key, s.Label, s.String("route"))
	a.Entity = s.String("entity")
	a.Params = s.StringMap("params")
	if q, ok := s.Options["query"].(map[string]any); ok {
		a.Query = q
	}
	return a, applyActionBase(&a.Base, s)
}

func buildURLAction(s Spec) (action.Action, error) {
	a := action.NewURL(s.Key, s.Label, s.StringOr("url", s.String("href")))
	return a, applyActionBase(&a.Base, s)
}

func buildCallbackAction(s Spec) (action.Action, error) {
	a := action.NewCallback(s.Key, s.Label, nil)
	a.Endpoint = s.String("endpoint")
	return a, applyActionBase(&a.Base, s)
}

func buildModalAction(s Spec) (action.Action, error) {
	a := action.NewModal(s.Key, s.Label, s.StringOr("url", s.String("href")))
	if s.Bool("slideover") {
		a.SlideOver()
	}
	a.Modal.Size = s.StringOr("size", a.Modal.Size)
	a.Modal.Title = s.StringOr("title", a.Modal.Title)
	return a, applyActionBase(&a.Base, s)
}

func buildBulkAction(s Spec) (action.Action, error) {
	a := action.NewBulk(s.Key, s.Label, nil)
	a.Endpoint = s.String("endpoint")
	return a, applyActionBase(&a.Base, s)
}

func buildHeaderAction(s Spec) (action.Action, error) {
	a := action.NewHeader(s.Key, s.Label, s.String("route"))
	a.Href = s.StringOr("url", s.String("href"))
	if p, ok := s.Options["params"].(map[string]any); ok {
		a.Params = p
	}
	return a, applyActionBase(&a.Base, s)
}

func buildRowAction(s Spec) (action.Action, error) {
	tmpl := s.StringOr("url", s.String("href"))
	a := action.NewRow(s.Key, s.Label, func(item any, _ action.Context) (string, error) {
		if tmpl == "" {
			return "", nil
		}
		return action.Expand(tmpl, item)
	})
	return a, applyActionBase(&a.Base, s)
}

func buildRelationAction(s Spec) (action.Action, error) {
	a := action.NewRelation(s.Key, s.Label, s.StringOr("relationship", s.Key), s.String("route"))
	a.Entity = s.String("entity")
	return a, applyActionBase(&a.Base, s)
}
