package table

import (
	"github.com/oakwood-commons/gridkit/pkg/action"
	"github.com/oakwood-commons/gridkit/pkg/column"
	"github.com/oakwood-commons/gridkit/pkg/filter"
	"github.com/oakwood-commons/gridkit/pkg/markup"
	"github.com/oakwood-commons/gridkit/pkg/mode"
)

// Definition is everything declared about one table: the markup tree, the
// configuration object, and descriptors built in code. Code-built
// descriptors belong to the configuration source.
type Definition struct {
	Name   string `json:"name" yaml:"name"`
	Entity string `json:"entity,omitempty" yaml:"entity,omitempty"`

	Markup markup.Nodes `json:"markup,omitempty" yaml:"markup,omitempty"`
	Props  PropsConfig  `json:"props,omitempty" yaml:"props,omitempty"`

	Strategy       mode.Strategy `json:"mergeStrategy,omitempty" yaml:"mergeStrategy,omitempty"`
	AllowConflicts *bool         `json:"allowConflicts,omitempty" yaml:"allowConflicts,omitempty"`
	Routes         action.Routes `json:"routes,omitempty" yaml:"routes,omitempty"`

	Columns       []column.Column `json:"-" yaml:"-"`
	Filters       []filter.Filter `json:"-" yaml:"-"`
	Actions       []action.Action `json:"-" yaml:"-"`
	BulkActions   []action.Action `json:"-" yaml:"-"`
	HeaderActions []action.Action `json:"-" yaml:"-"`
}

// props summarizes the configuration source for mode detection.
func (d *Definition) props() mode.Props {
	p := mode.Props{
		Filters: len(d.Props.Filters) + len(d.Filters),
		Actions: len(d.Props.Actions) + len(d.Props.BulkActions) + len(d.Props.HeaderActions) +
			len(d.Actions) + len(d.BulkActions) + len(d.HeaderActions),
	}
	for _, s := range d.Props.Columns {
		p.Columns = append(p.Columns, s.Key)
	}
	for _, c := range d.Columns {
		p.Columns = append(p.Columns, c.Meta().Key)
	}
	return p
}

// Detect classifies the definition without compiling it.
func (d *Definition) Detect() mode.Detection {
	return mode.Detect(d.Markup, d.props())
}

// sources holds the descriptors built from one declaration source.
type sources struct {
	columns       []column.Column
	filters       []filter.Filter
	actions       []action.Action
	bulkActions   []action.Action
	headerActions []action.Action
}

// build turns specs into descriptors. A spec that fails to build is
// skipped and reported as a warning. Route actions without an entity use
// the table's.
func (r *Registry) build(entity string, cols, filters, actions, bulk, header []Spec) (sources, mode.Diagnostics) {
	var (
		out  sources
		diag mode.Diagnostics
	)
	warn := func(err error) {
		diag.Warnings = append(diag.Warnings, err.Error())
	}
	for _, s := range cols {
		c, err := r.Column(s)
		if err != nil {
			warn(err)
			continue
		}
		out.columns = append(out.columns, c)
	}
	for _, s := range filters {
		f, err := r.Filter(s)
		if err != nil {
			warn(err)
			continue
		}
		out.filters = append(out.filters, f)
	}
	buildActions := func(specs []Spec, kind string) []action.Action {
		var list []action.Action
		for _, s := range specs {
			if kind != "" && s.Type == "" {
				s.Type = kind
			}
			a, err := r.Action(s)
			if err != nil {
				warn(err)
				continue
			}
			if rt, ok := a.(*action.Route); ok && rt.Entity == "" {
				rt.Entity = entity
			}
			list = append(list, a)
		}
		return list
	}
	out.actions = buildActions(actions, "")
	out.bulkActions = buildActions(bulk, string(action.KindBulk))
	out.headerActions = buildActions(header, string(action.KindHeader))
	if len(diag.Warnings) > 0 {
		diag.Recommendations = append(diag.Recommendations,
			"check the type and options of the declarations listed above")
	}
	return out, diag
}

func specsOf(nodes []markup.Node) []Spec {
	out := make([]Spec, len(nodes))
	for i, n := range nodes {
		out[i] = SpecFromNode(n)
	}
	return out
}

// markupSources builds the markup half of d.
func (r *Registry) markupSources(d *Definition) (sources, mode.Diagnostics) {
	m := d.Markup
	return r.build(d.Entity, specsOf(m.Columns()), specsOf(m.Filters()), specsOf(m.Actions()),
		specsOf(m.BulkActions()), specsOf(m.HeaderActions()))
}

// propsSources builds the configuration half of d, followed by the
// descriptors built in code.
func (r *Registry) propsSources(d *Definition) (sources, mode.Diagnostics) {
	p := d.Props
	out, diag := r.build(d.Entity, p.Columns, p.Filters, p.Actions, p.BulkActions, p.HeaderActions)
	out.columns = append(out.columns, d.Columns...)
	out.filters = append(out.filters, d.Filters...)
	out.actions = append(out.actions, d.Actions...)
	out.bulkActions = append(out.bulkActions, d.BulkActions...)
	out.headerActions = append(out.headerActions, d.HeaderActions...)
	return out, diag
}
