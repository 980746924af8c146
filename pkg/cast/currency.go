package cast

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/oakwood-commons/gridkit/pkg/value"
)

// MoneyFormat controls how an amount is rendered.
type MoneyFormat struct {
	Locale   string
	Currency string
	Decimals int
	// Symbol overrides the locale symbol.
	Symbol string
	// Thousands and Decimal are only used by the manual fallback.
	Thousands string
	Decimal   string
}

// Currency formats numbers and money strings.
type Currency struct {
	Base
	MoneyFormat
}

// NewCurrency returns a Currency cast with the canonical priority. Locale and
// currency default to the render context when left empty.
func NewCurrency() *Currency {
	return &Currency{
		Base:        Base{Name: "currency", Rank: PriorityCurrency, Auto: true},
		MoneyFormat: MoneyFormat{Decimals: 2},
	}
}

// Config implements Cast.
func (c *Currency) Config() map[string]any {
	return map[string]any{
		"locale":    c.Locale,
		"currency":  c.MoneyFormat.Currency,
		"decimals":  c.Decimals,
		"symbol":    c.Symbol,
		"thousands": c.Thousands,
		"decimal":   c.Decimal,
	}
}

// Cacheable implements Cacheable.
func (c *Currency) Cacheable() bool { return true }

var moneyHints = map[string]bool{"currency": true, "money": true, "price": true}

// moneyPattern matches strings carrying a currency marker: "R$ 1.234,56",
// "$1,234.56", "€ 10", "USD 12.00", "12.00 EUR".
var moneyPattern = regexp.MustCompile(`^\s*(?:[A-Z]{3}\s*|R\$\s*|[$€£¥]\s*)-?[\d.,\s]*\d\s*$|^\s*-?[\d.,\s]*\d\s*(?:[A-Z]{3}|[€£])\s*$`)

// CanCast accepts money strings anywhere, and plain numbers only on columns
// hinted as currency/money/price.
func (c *Currency) CanCast(v any, hint string) bool {
	if s, ok := v.(string); ok {
		if moneyPattern.MatchString(s) {
			_, ok := ParseAmount(s)
			return ok
		}
		if !moneyHints[hint] {
			return false
		}
		_, ok := ParseAmount(s)
		return ok
	}
	if _, isBool := v.(bool); isBool {
		return false
	}
	_, ok := value.Float(v)
	return ok && moneyHints[hint]
}

// Cast produces a "currency" payload.
func (c *Currency) Cast(v any, ctx Context) (any, error) {
	amount, ok := amountOf(v)
	if !ok {
		return nil, ErrNotCastable
	}
	f := c.MoneyFormat
	if f.Locale == "" {
		f.Locale = ctx.Locale
	}
	if f.Currency == "" {
		f.Currency = ctx.Currency
	}
	formatted, _ := FormatMoney(amount, f)
	return value.NewPayload("currency",
		"value", amount,
		"formatted", formatted,
		"currency", f.currencyCode(),
	), nil
}

func amountOf(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		return ParseAmount(s)
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return value.Float(v)
}

// ParseAmount reads a number out of a money string. The last "." or ","
// followed by one or two digits is the decimal separator; every other
// separator groups thousands.
func ParseAmount(s string) (float64, bool) {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-':
			negative = true
		}
	}
	digits := b.String()
	if digits == "" || strings.Trim(digits, ".,") == "" {
		return 0, false
	}

	decimalAt := -1
	if i := strings.LastIndexAny(digits, ".,"); i >= 0 {
		tail := len(digits) - i - 1
		if tail >= 1 && tail <= 2 {
			decimalAt = i
		}
	}
	var clean strings.Builder
	for i, r := range digits {
		switch {
		case i == decimalAt:
			clean.WriteByte('.')
		case r == '.' || r == ',':
		default:
			clean.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(clean.String(), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

func (f MoneyFormat) currencyCode() string {
	if f.Currency == "" {
		return "USD"
	}
	return strings.ToUpper(f.Currency)
}

func (f MoneyFormat) locale() string {
	if f.Locale == "" {
		return "en-US"
	}
	return f.Locale
}

// FormatMoney renders amount with locale-aware grouping and the locale's
// currency symbol. If the locale or currency cannot be resolved, or the
// locale formatter fails, it falls back to manual formatting and reports the
// reason as the error; the returned string is always usable.
func FormatMoney(amount float64, f MoneyFormat) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ManualMoney(amount, f)
			err = fmt.Errorf("locale formatting failed: %v", r)
		}
	}()
	tag, err := language.Parse(f.locale())
	if err != nil {
		return ManualMoney(amount, f), fmt.Errorf("locale %q: %w", f.Locale, err)
	}
	unit, err := currency.ParseISO(f.currencyCode())
	if err != nil {
		return ManualMoney(amount, f), fmt.Errorf("currency %q: %w", f.Currency, err)
	}
	p := message.NewPrinter(tag)
	sym := f.Symbol
	if sym == "" {
		sym = p.Sprint(currency.Symbol(unit))
	}
	num := p.Sprint(number.Decimal(math.Abs(amount), number.Scale(f.Decimals)))
	return joinMoney(amount < 0, sym, num), nil
}

// ManualMoney formats without locale data: fixed decimals, configurable
// separators, and the symbol or ISO code as prefix.
func ManualMoney(amount float64, f MoneyFormat) string {
	thousands := f.Thousands
	if thousands == "" {
		thousands = ","
	}
	decimal := f.Decimal
	if decimal == "" {
		decimal = "."
	}
	decimals := f.Decimals
	if decimals < 0 {
		decimals = 0
	}
	raw := strconv.FormatFloat(math.Abs(amount), 'f', decimals, 64)
	intPart, fracPart, _ := strings.Cut(raw, ".")
	num := groupThousands(intPart, thousands)
	if fracPart != "" {
		num += decimal + fracPart
	}
	sym := f.Symbol
	if sym == "" {
		sym = f.currencyCode()
	}
	return joinMoney(amount < 0, sym, num)
}

func joinMoney(negative bool, sym, num string) string {
	sign := ""
	if negative {
		sign = "-"
	}
	if utf8.RuneCountInString(sym) > 1 {
		return sign + sym + " " + num
	}
	return sign + sym + num
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
