package column

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/oakwood-commons/gridkit/pkg/cast"
	"github.com/oakwood-commons/gridkit/pkg/value"
)

// Number formats numeric cells with locale-aware grouping.
type Number struct {
	Base
	Decimals int
	Locale   string
	Prefix   string
	Suffix   string
}

// NewNumber returns a right-aligned number column.
func NewNumber(key, label string) *Number {
	b := newBase(key, label, TypeNumber)
	b.Align = AlignRight
	return &Number{Base: b}
}

// Format implements Column. Non-numeric values pass through.
func (n *Number) Format(v any, env Env) value.Value {
	f, ok := numeric(v)
	if !ok {
		return value.Raw{V: v}
	}
	locale := n.Locale
	if locale == "" {
		locale = env.Cast.Locale
	}
	return value.NewPayload("number",
		"value", f,
		"formatted", n.Prefix+FormatNumber(f, n.Decimals, locale)+n.Suffix,
	)
}

// Options implements Column.
func (n *Number) Options() map[string]any {
	return compact(map[string]any{
		"decimals": n.Decimals,
		"locale":   n.Locale,
		"prefix":   n.Prefix,
		"suffix":   n.Suffix,
	})
}

// FormatNumber renders f with the grouping and decimal separators of locale.
// Unknown locales format as en-US.
func FormatNumber(f float64, decimals int, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(f, number.Scale(decimals)))
}

// Currency formats money cells independently of any attached cast.
type Currency struct {
	Base
	cast.MoneyFormat
}

// NewCurrency returns a right-aligned currency column with two decimals.
func NewCurrency(key, label string) *Currency {
	b := newBase(key, label, TypeCurrency)
	b.Align = AlignRight
	return &Currency{Base: b, MoneyFormat: cast.MoneyFormat{Decimals: 2}}
}

// Format implements Column. Non-numeric values pass through.
func (c *Currency) Format(v any, env Env) value.Value {
	var (
		f  float64
		ok bool
	)
	if s, isString := v.(string); isString {
		f, ok = cast.ParseAmount(s)
	} else {
		f, ok = numeric(v)
	}
	if !ok {
		return value.Raw{V: v}
	}
	mf := c.MoneyFormat
	if mf.Locale == "" {
		mf.Locale = env.Cast.Locale
	}
	if mf.Currency == "" {
		mf.Currency = env.Cast.Currency
	}
	formatted, err := cast.FormatMoney(f, mf)
	if err != nil {
		env.logger().V(1).Info("locale money formatting failed; using manual format",
			"column", c.Key, "error", err.Error())
	}
	code := mf.Currency
	if code == "" {
		code = "USD"
	}
	return value.NewPayload("currency",
		"value", f,
		"formatted", formatted,
		"currency", code,
	)
}

// Options implements Column. Decimals is always written since zero differs
// from the constructor default.
func (c *Currency) Options() map[string]any {
	out := compact(map[string]any{
		"currency": c.MoneyFormat.Currency,
		"locale":   c.Locale,
		"symbol":   c.Symbol,
	})
	out["decimals"] = c.Decimals
	return out
}

func numeric(v any) (float64, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return value.Float(v)
}
