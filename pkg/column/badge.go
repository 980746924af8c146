package column

import (
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// ResolveFunc computes a presentation attribute from the cell value and its
// row. It takes precedence over the static maps.
type ResolveFunc func(v any, row any) string

// Badge renders a value as a colored label.
type Badge struct {
	Base
	Variants       map[string]string
	Labels         map[string]string
	Icons          map[string]string
	VariantFunc    ResolveFunc
	LabelFunc      ResolveFunc
	DefaultVariant string
}

// NewBadge returns a badge column.
func NewBadge(key, label string) *Badge {
	return &Badge{Base: newBase(key, label, TypeBadge), DefaultVariant: "secondary"}
}

// Format implements Column.
func (b *Badge) Format(v any, env Env) value.Value {
	return badgePayload("badge", v, env.Cast.Row, presentation{
		variants:       b.Variants,
		labels:         b.Labels,
		icons:          b.Icons,
		variantFunc:    b.VariantFunc,
		labelFunc:      b.LabelFunc,
		defaultVariant: b.DefaultVariant,
	})
}

// Options implements Column.
func (b *Badge) Options() map[string]any {
	return compact(map[string]any{
		"variants":       b.Variants,
		"labels":         b.Labels,
		"icons":          b.Icons,
		"defaultVariant": b.DefaultVariant,
	})
}

// Status renders lifecycle values through a status table.
type Status struct {
	Base
	Statuses    map[string]cast.StatusOption
	VariantFunc ResolveFunc
	LabelFunc   ResolveFunc
}

// NewStatus returns a status column. A nil table means cast.DefaultStatuses.
func NewStatus(key, label string, statuses map[string]cast.StatusOption) *Status {
	if statuses == nil {
		statuses = cast.DefaultStatuses
	}
	return &Status{Base: newBase(key, label, TypeStatus), Statuses: statuses}
}

// Format implements Column.
func (s *Status) Format(v any, env Env) value.Value {
	pres := presentation{
		variants:       map[string]string{},
		labels:         map[string]string{},
		icons:          map[string]string{},
		variantFunc:    s.VariantFunc,
		labelFunc:      s.LabelFunc,
		defaultVariant: "secondary",
	}
	for k, opt := range s.Statuses {
		k = strings.ToLower(k)
		pres.variants[k] = opt.Variant
		pres.labels[k] = opt.Label
		pres.icons[k] = opt.Icon
	}
	pres.fold = true
	return badgePayload("status", v, env.Cast.Row, pres)
}

// Options implements Column.
func (s *Status) Options() map[string]any {
	out := map[string]any{}
	if len(s.Statuses) > 0 {
		out["statuses"] = s.Statuses
	}
	return out
}

// Boolean renders truthy and falsy values as two labeled states.
type Boolean struct {
	Base
	TrueLabel    string
	FalseLabel   string
	TrueVariant  string
	FalseVariant string
	TrueIcon     string
	FalseIcon    string
	VariantFunc  ResolveFunc
	LabelFunc    ResolveFunc
}

// NewBoolean returns a centered boolean column.
func NewBoolean(key, label string) *Boolean {
	b := newBase(key, label, TypeBoolean)
	b.Align = AlignCenter
	return &Boolean{
		Base:         b,
		TrueLabel:    "Sim",
		FalseLabel:   "Não",
		TrueVariant:  "success",
		FalseVariant: "danger",
	}
}

// Format implements Column. Values that are not boolean-like pass through.
func (b *Boolean) Format(v any, env Env) value.Value {
	truth, ok := value.Bool(v)
	if !ok {
		return value.Raw{V: v}
	}
	variant, label, icon := b.FalseVariant, b.FalseLabel, b.FalseIcon
	if truth {
		variant, label, icon = b.TrueVariant, b.TrueLabel, b.TrueIcon
	}
	if b.VariantFunc != nil {
		variant = b.VariantFunc(truth, env.Cast.Row)
	}
	if b.LabelFunc != nil {
		label = b.LabelFunc(truth, env.Cast.Row)
	}
	return value.NewPayload("boolean",
		"value", truth,
		"variant", variant,
		"label", label,
		"icon", nonEmpty(icon),
	)
}

// Options implements Column.
func (b *Boolean) Options() map[string]any {
	return compact(map[string]any{
		"trueLabel":    b.TrueLabel,
		"falseLabel":   b.FalseLabel,
		"trueVariant":  b.TrueVariant,
		"falseVariant": b.FalseVariant,
		"trueIcon":     b.TrueIcon,
		"falseIcon":    b.FalseIcon,
	})
}

type presentation struct {
	variants, labels, icons map[string]string
	variantFunc, labelFunc  ResolveFunc
	defaultVariant          string
	fold                    bool
}

func badgePayload(typ string, v, row any, p presentation) value.Payload {
	key := value.String(v)
	lookup := key
	if p.fold {
		lookup = strings.ToLower(key)
	}

	variant := p.variants[lookup]
	if p.variantFunc != nil {
		variant = p.variantFunc(v, row)
	}
	if variant == "" {
		variant = p.defaultVariant
	}

	label := p.labels[lookup]
	if p.labelFunc != nil {
		label = p.labelFunc(v, row)
	}
	if label == "" {
		label = key
	}

	return value.NewPayload(typ,
		"value", v,
		"variant", nonEmpty(variant),
		"label", label,
		"icon", nonEmpty(p.icons[lookup]),
	)
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
