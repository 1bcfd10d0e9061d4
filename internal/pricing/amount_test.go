package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"rupee symbol", "₹30000", "30000"},
		{"grouping and fraction", "₹12,345.00", "12345"},
		{"indian grouping", "₹1,23,456.78", "123456.78"},
		{"plain number", "99.5", "99.5"},
		{"surrounding text", "Price: 450 INR", "450"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	for _, input := range []string{"", "₹", "free", ".", "1.2.3", "-₹50.00", "₹ -12"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
			assert.Equal(t, input, pe.Input)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestFormatter(t *testing.T) {
	f, err := NewFormatter("en", "₹")
	require.NoError(t, err)

	assert.Equal(t, "₹30,000.00", f.Format(decimal.NewFromInt(30000)))
	assert.Equal(t, "₹0.50", f.Format(decimal.RequireFromString("0.5")))
	assert.Equal(t, "₹12.35", f.Format(decimal.RequireFromString("12.345")))
	assert.Equal(t, "-₹5.00", f.Format(decimal.NewFromInt(-5)))
}

func TestNewFormatterRejectsBadLocale(t *testing.T) {
	_, err := NewFormatter("not a locale!", "$")
	assert.Error(t, err)
}

func TestFormatParseRoundTrip(t *testing.T) {
	amounts := []string{
		"0", "1", "9.99", "100.1", "1234.56", "30000", "987654.32", "0.004", "45.675",
		"90071992547409.93", "12345678901234567.89", "123456789012345678901.25",
	}
	for _, a := range amounts {
		t.Run(a, func(t *testing.T) {
			amount := decimal.RequireFromString(a)
			got, err := ParseAmount(FormatCurrency(amount))
			require.NoError(t, err)
			assert.True(t, got.Equal(amount.Round(2)), "%s -> %s -> %s", a, FormatCurrency(amount), got)
		})
	}
}

func TestFormatLargeAmountsExactly(t *testing.T) {
	assert.Equal(t, "₹9,00,71,99,25,47,409.93", FormatCurrency(decimal.RequireFromString("90071992547409.93")))
	assert.Equal(t, "₹12,34,56,78,90,12,34,567.89", FormatCurrency(decimal.RequireFromString("12345678901234567.89")))
}

func TestParseAmountRejectsNegative(t *testing.T) {
	_, err := ParseAmount(FormatCurrency(decimal.NewFromInt(-50)))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "negative amount", pe.Reason)

	got, err := ParseAmount("sizes 3-5, ₹450")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("35450")), "a dash after the first digit is stripped, got %s", got)
}
