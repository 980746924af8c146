package column

import (
	"encoding/json"
	"fmt"

	"github.com/go-openapi/inflect"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/oakwood-commons/gridkit/pkg/authz"
	"github.com/oakwood-commons/gridkit/pkg/cast"
)

// Descriptor is the static, serializable part of a column. Closures and
// casts are not part of it; code that defines them re-attaches them after
// Hydrate.
type Descriptor struct {
	Key         string
	Label       string
	// Heading is the display label: Label, or the humanized key when the
	// column declares none. Hydrate ignores it.
	Heading     string
	Type        ValueType
	Sortable    bool
	Searchable  bool
	Visible     bool
	Width       string
	Align       string
	Order       int
	Placeholder string
	// Options holds the variant-specific fields. On the wire they sit next
	// to the fixed keys.
	Options map[string]any
}

var fixedKeys = map[string]bool{
	"key": true, "label": true, "heading": true, "type": true, "sortable": true, "searchable": true,
	"visible": true, "width": true, "align": true, "order": true, "placeholder": true,
}

// Describe returns the descriptor of c.
func Describe(c Column) Descriptor {
	m := c.Meta()
	opts := c.Options()
	if m.Field != "" && m.Field != m.Key {
		if opts == nil {
			opts = map[string]any{}
		}
		opts["field"] = m.Field
	}
	return Descriptor{
		Key:         m.Key,
		Label:       m.Label,
		Heading:     headingOf(m.Key, m.Label),
		Type:        m.Type,
		Sortable:    m.Sortable,
		Searchable:  m.Searchable,
		Visible:     !m.Hidden,
		Width:       m.Width,
		Align:       m.Align,
		Order:       m.Order,
		Placeholder: m.Placeholder,
		Options:     opts,
	}
}

// DisplayLabel returns Heading, falling back to the label and then the
// humanized key for descriptors built in code.
func (d Descriptor) DisplayLabel() string {
	if d.Heading != "" {
		return d.Heading
	}
	return headingOf(d.Key, d.Label)
}

func headingOf(key, label string) string {
	if label != "" {
		return label
	}
	return inflect.Humanize(key)
}

// Map flattens the descriptor into its wire shape.
func (d Descriptor) Map() map[string]any {
	out := make(map[string]any, len(d.Options)+10)
	for k, v := range d.Options {
		if !fixedKeys[k] {
			out[k] = v
		}
	}
	out["key"] = d.Key
	out["label"] = d.Label
	out["heading"] = d.DisplayLabel()
	out["type"] = string(d.Type)
	out["sortable"] = d.Sortable
	out["searchable"] = d.Searchable
	out["visible"] = d.Visible
	out["width"] = d.Width
	out["align"] = d.Align
	if d.Order != 0 {
		out["order"] = d.Order
	}
	if d.Placeholder != "" {
		out["placeholder"] = d.Placeholder
	}
	return out
}

// MarshalJSON encodes the flattened wire shape.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// MarshalYAML encodes the flattened wire shape.
func (d Descriptor) MarshalYAML() (any, error) {
	return d.Map(), nil
}

// EncodeMsgpack encodes the flattened wire shape.
func (d Descriptor) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(d.Map())
}

// UnmarshalJSON reads the flattened wire shape. Unknown keys become Options.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = DescriptorFromMap(raw)
	return nil
}

// DescriptorFromMap reads a flattened descriptor map. A width or align key
// that is absent takes the default of the column type; a present one, even
// empty, is kept as given.
func DescriptorFromMap(raw map[string]any) Descriptor {
	d := Descriptor{
		Key:         optString(raw, "key"),
		Label:       optString(raw, "label"),
		Heading:     optString(raw, "heading"),
		Type:        ValueType(optString(raw, "type")),
		Sortable:    optBool(raw, "sortable"),
		Searchable:  optBool(raw, "searchable"),
		Visible:     true,
		Width:       optString(raw, "width"),
		Align:       optString(raw, "align"),
		Order:       optInt(raw, "order"),
		Placeholder: optString(raw, "placeholder"),
		Options:     map[string]any{},
	}
	if v, ok := raw["visible"].(bool); ok {
		d.Visible = v
	}
	_, hasWidth := raw["width"]
	_, hasAlign := raw["align"]
	if !hasWidth || !hasAlign {
		if bare, err := construct(Descriptor{Key: d.Key, Type: d.Type}, map[string]any{}); err == nil {
			if !hasWidth {
				d.Width = bare.Meta().Width
			}
			if !hasAlign {
				d.Align = bare.Meta().Align
			}
		}
	}
	for k, v := range raw {
		if !fixedKeys[k] {
			d.Options[k] = v
		}
	}
	return d
}

// Hydrate rebuilds a column from its descriptor. Variant options are
// restored where they are plain data. Width and Align are taken as given,
// replacing the defaults of the column type.
func Hydrate(d Descriptor) (Column, error) {
	opts := d.Options
	if opts == nil {
		opts = map[string]any{}
	}
	c, err := construct(d, opts)
	if err != nil {
		return nil, err
	}

	m := c.Meta()
	m.Sortable = d.Sortable
	m.Searchable = d.Searchable
	m.Hidden = !d.Visible
	m.Width = d.Width
	m.Align = d.Align
	m.Order = d.Order
	m.Placeholder = d.Placeholder
	if f := optString(opts, "field"); f != "" {
		m.Field = f
	}
	if v, ok := opts["autoCast"].(bool); ok {
		m.AutoCast = v
	}
	m.VisibleWhen = optString(opts, "visibleWhen")
	perm, err := authz.ParseRequirement(opts["permission"])
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", d.Key, err)
	}
	m.Permission = perm
	return c, nil
}

// construct builds the column variant of d with its type defaults and
// variant options.
func construct(d Descriptor, opts map[string]any) (Column, error) {
	typ := d.Type
	if typ == "" {
		typ = TypeText
	}

	var c Column
	switch typ {
	case TypeText:
		t := NewText(d.Key, d.Label)
		t.Limit = optInt(opts, "limit")
		t.Copyable = optBool(opts, "copyable")
		t.Prefix = optString(opts, "prefix")
		t.Suffix = optString(opts, "suffix")
		t.Wrap = optBool(opts, "wrap")
		c = t
	case TypeNumber:
		n := NewNumber(d.Key, d.Label)
		n.Decimals = optInt(opts, "decimals")
		n.Locale = optString(opts, "locale")
		n.Prefix = optString(opts, "prefix")
		n.Suffix = optString(opts, "suffix")
		c = n
	case TypeCurrency:
		cur := NewCurrency(d.Key, d.Label)
		cur.MoneyFormat.Currency = optString(opts, "currency")
		cur.Locale = optString(opts, "locale")
		cur.Symbol = optString(opts, "symbol")
		if _, ok := opts["decimals"]; ok {
			cur.Decimals = optInt(opts, "decimals")
		}
		c = cur
	case TypeDate:
		dt := NewDate(d.Key, d.Label)
		if f := optString(opts, "format"); f != "" {
			dt.Layout = f
		}
		dt.Relative = optBool(opts, "relative")
		c = dt
	case TypeBoolean:
		b := NewBoolean(d.Key, d.Label)
		setIf(&b.TrueLabel, optString(opts, "trueLabel"))
		setIf(&b.FalseLabel, optString(opts, "falseLabel"))
		setIf(&b.TrueVariant, optString(opts, "trueVariant"))
		setIf(&b.FalseVariant, optString(opts, "falseVariant"))
		b.TrueIcon = optString(opts, "trueIcon")
		b.FalseIcon = optString(opts, "falseIcon")
		c = b
	case TypeStatus:
		var statuses map[string]cast.StatusOption
		if err := decodeOption(opts, "statuses", &statuses); err != nil {
			return nil, err
		}
		c = NewStatus(d.Key, d.Label, statuses)
	case TypeBadge:
		b := NewBadge(d.Key, d.Label)
		b.Variants = optStringMap(opts, "variants")
		b.Labels = optStringMap(opts, "labels")
		b.Icons = optStringMap(opts, "icons")
		setIf(&b.DefaultVariant, optString(opts, "defaultVariant"))
		c = b
	case TypeImage:
		img := NewImage(d.Key, d.Label)
		img.BaseURL = optString(opts, "baseUrl")
		img.AltField = optString(opts, "altField")
		img.Fallback = optString(opts, "fallback")
		if _, ok := opts["size"]; ok {
			img.Size = optInt(opts, "size")
		}
		img.Rounded = optBool(opts, "rounded")
		c = img
	case TypeCompound:
		cp := NewCompound(d.Key, d.Label)
		cp.AvatarField = optString(opts, "avatarField")
		cp.TitleField = optString(opts, "titleField")
		setIf(&cp.TitleStyle, optString(opts, "titleStyle"))
		if err := decodeOption(opts, "lines", &cp.Lines); err != nil {
			return nil, err
		}
		c = cp
	case TypeNested:
		n := NewNested(d.Key, d.Label, optString(opts, "relationship"))
		n.Lazy = optBool(opts, "lazy")
		n.Summary = optString(opts, "summary")
		var children []Descriptor
		if err := decodeOption(opts, "columns", &children); err != nil {
			return nil, err
		}
		for _, child := range children {
			cc, err := Hydrate(child)
			if err != nil {
				return nil, fmt.Errorf("nested column %s: %w", d.Key, err)
			}
			n.Columns = append(n.Columns, cc)
		}
		c = n
	case TypeEditable:
		e := NewEditable(d.Key, d.Label, nil)
		setIf(&e.Input, optString(opts, "input"))
		e.Disabled = optBool(opts, "disabled")
		e.Rules = optStrings(opts, "rules")
		if err := decodeOption(opts, "options", &e.Choices); err != nil {
			return nil, err
		}
		c = e
	case TypeActions:
		a := NewActions(d.Key, d.Label)
		a.Keys = optStrings(opts, "keys")
		c = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return c, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func optString(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func optBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func optInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func optStringMap(m map[string]any, key string) map[string]string {
	switch v := m[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, x := range v {
			out[k] = fmt.Sprint(x)
		}
		return out
	}
	return nil
}

func optStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// decodeOption converts a structured option into dst through JSON.
func decodeOption(m map[string]any, key string, dst any) error {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("option %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("option %s: %w", key, err)
	}
	return nil
}
