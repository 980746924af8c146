package cast

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// StatusOption is how one status value is presented.
type StatusOption struct {
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Icon    string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Enum-like values describe their own presentation through these interfaces.
type (
	Labeler interface{ Label() string }
	Varianter interface{ Variant() string }
	Colorer interface{ Color() string }
	Iconer interface{ Icon() string }
	Valuer interface{ Value() any }
)

// DefaultStatuses covers the usual lifecycle words.
var DefaultStatuses = map[string]StatusOption{
	"active":    {Variant: "success", Label: "Ativo"},
	"inactive":  {Variant: "secondary", Label: "Inativo"},
	"pending":   {Variant: "warning", Label: "Pendente"},
	"approved":  {Variant: "success", Label: "Aprovado"},
	"rejected":  {Variant: "danger", Label: "Rejeitado"},
	"cancelled": {Variant: "danger", Label: "Cancelado"},
	"canceled":  {Variant: "danger", Label: "Cancelado"},
	"draft":     {Variant: "secondary", Label: "Rascunho"},
	"published": {Variant: "primary", Label: "Publicado"},
	"completed": {Variant: "success", Label: "Concluído"},
	"failed":    {Variant: "danger", Label: "Falhou"},
	"blocked":   {Variant: "danger", Label: "Bloqueado"},
	"archived":  {Variant: "secondary", Label: "Arquivado"},
}

// Status maps known status values to badge payloads.
type Status struct {
	Base
	Options       map[string]StatusOption
	CaseSensitive bool
	// Default is used for unknown values. When nil, unknown plain values are
	// not castable.
	Default *StatusOption
}

// NewStatus returns a Status cast. A nil map means DefaultStatuses.
func NewStatus(options map[string]StatusOption) *Status {
	if options == nil {
		options = DefaultStatuses
	}
	return &Status{
		Base:    Base{Name: "status", Rank: PriorityStatus, Auto: true},
		Options: options,
	}
}

// Config implements Cast.
func (s *Status) Config() map[string]any {
	cfg := map[string]any{"options": s.Options, "caseSensitive": s.CaseSensitive}
	if s.Default != nil {
		cfg["default"] = *s.Default
	}
	return cfg
}

// Cacheable implements Cacheable.
func (s *Status) Cacheable() bool { return true }

// CanCast accepts enum-like values and strings that name a known status.
func (s *Status) CanCast(v any, _ string) bool {
	if isEnumLike(v) {
		return true
	}
	str, ok := v.(string)
	if !ok || strings.TrimSpace(str) == "" {
		return false
	}
	if _, found := s.lookup(str); found {
		return true
	}
	return s.Default != nil
}

// Cast produces a "badge" payload.
func (s *Status) Cast(v any, _ Context) (any, error) {
	if isEnumLike(v) {
		return enumBadge(v), nil
	}
	str, ok := v.(string)
	if !ok {
		return nil, ErrNotCastable
	}
	opt, found := s.lookup(str)
	if !found {
		if s.Default == nil {
			return nil, ErrNotCastable
		}
		opt = *s.Default
	}
	label := opt.Label
	if label == "" {
		label = humanize(str)
	}
	variant := opt.Variant
	if variant == "" {
		variant = "secondary"
	}
	return value.NewPayload("badge",
		"value", str,
		"variant", variant,
		"label", label,
		"icon", emptyToNil(opt.Icon),
	), nil
}

// lookup finds the option for str. Case-insensitive matching prefers an
// exact key, then the lowercased key, then the smallest key equal under
// case folding, so the result never depends on map order.
func (s *Status) lookup(str string) (StatusOption, bool) {
	if opt, ok := s.Options[str]; ok {
		return opt, true
	}
	if s.CaseSensitive {
		return StatusOption{}, false
	}
	str = strings.TrimSpace(str)
	if opt, ok := s.Options[strings.ToLower(str)]; ok {
		return opt, true
	}
	best, found := "", false
	for k := range s.Options {
		if strings.EqualFold(k, str) && (!found || k < best) {
			best, found = k, true
		}
	}
	if !found {
		return StatusOption{}, false
	}
	return s.Options[best], true
}

func isEnumLike(v any) bool {
	switch v.(type) {
	case Labeler, Varianter, Colorer:
		return true
	}
	return false
}

func enumBadge(v any) value.Payload {
	raw := any(fmt.Sprint(v))
	if vv, ok := v.(Valuer); ok {
		raw = vv.Value()
	}
	label := humanize(value.String(raw))
	if l, ok := v.(Labeler); ok {
		label = l.Label()
	}
	variant := "secondary"
	if c, ok := v.(Colorer); ok && c.Color() != "" {
		variant = c.Color()
	}
	if vr, ok := v.(Varianter); ok && vr.Variant() != "" {
		variant = vr.Variant()
	}
	var icon any
	if ic, ok := v.(Iconer); ok {
		icon = emptyToNil(ic.Icon())
	}
	return value.NewPayload("badge", "value", raw, "variant", variant, "label", label, "icon", icon)
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// humanize turns "in_progress" into "In progress".
func humanize(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
