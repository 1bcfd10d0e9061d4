// Package pricing holds the money primitives shared by the cart, coupon and discount rules.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrInvalidAmount is the sentinel wrapped by every ParseError.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseError reports a display string that could not be turned into an amount.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse amount %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalidAmount }

var (
	nonNumeric   = regexp.MustCompile(`[^0-9.]`)
	leadingMinus = regexp.MustCompile(`^[^0-9]*-`)
)

// ParseAmount turns a display string such as "₹12,345.00" into a decimal.
// Every character other than digits and '.' is dropped before parsing. Amounts are
// never negative: a '-' ahead of the first digit is a ParseError rather than being
// stripped, so "-₹50.00" does not read back as 50.
func ParseAmount(display string) (decimal.Decimal, error) {
	if leadingMinus.MatchString(display) {
		return decimal.Zero, &ParseError{Input: display, Reason: "negative amount"}
	}
	cleaned := nonNumeric.ReplaceAllString(display, "")
	if cleaned == "" || cleaned == "." {
		return decimal.Zero, &ParseError{Input: display, Reason: "no digits"}
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &ParseError{Input: display, Reason: "not a number"}
	}
	return d, nil
}

// Default currency settings used by FormatCurrency.
const (
	DefaultLocale = "en-IN"
	DefaultSymbol = "₹"
)

// Formatter renders amounts for a locale and currency symbol.
type Formatter struct {
	symbol  string
	point   string
	printer *message.Printer
}

// NewFormatter builds a Formatter for a BCP 47 locale tag.
func NewFormatter(locale, symbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	printer := message.NewPrinter(tag)
	return &Formatter{symbol: symbol, point: decimalPoint(printer), printer: printer}, nil
}

// decimalPoint asks the locale how it writes one and a half.
func decimalPoint(p *message.Printer) string {
	s := p.Sprintf("%v", number.Decimal(1.5, number.MinFractionDigits(1), number.MaxFractionDigits(1)))
	point := strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
	if point == "" {
		return "."
	}
	return point
}

// Format renders amount with two fraction digits, the locale's grouping and the symbol.
// The digits come from the decimal itself, so nothing is lost to float conversion.
func (f *Formatter) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	whole, frac, _ := strings.Cut(rounded.StringFixed(2), ".")
	return sign + f.symbol + f.group(whole) + f.point + frac
}

// group applies the locale's digit grouping. Integer parts past int64 are left ungrouped.
func (f *Formatter) group(whole string) string {
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return whole
	}
	return f.printer.Sprintf("%v", number.Decimal(n))
}

var defaultFormatter = mustFormatter(DefaultLocale, DefaultSymbol)

func mustFormatter(locale, symbol string) *Formatter {
	f, err := NewFormatter(locale, symbol)
	if err != nil {
		panic(err)
	}
	return f
}

// FormatCurrency renders amount with the default locale and symbol.
func FormatCurrency(amount decimal.Decimal) string {
	return defaultFormatter.Format(amount)
}
