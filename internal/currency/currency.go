package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies whose smallest unit has no fractional subdivision. Amounts in these
// currencies always cross the wire as whole numbers.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "BYR": {}, "CLF": {}, "CLP": {}, "CVE": {},
	"DJF": {}, "GNF": {}, "ISK": {}, "JPY": {}, "KMF": {},
	"KRW": {}, "PYG": {}, "RWF": {}, "UGX": {}, "UYI": {},
	"VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

var (
	hundred      = decimal.NewFromInt(100)
	toleranceInt = decimal.NewFromInt(5)
	toleranceDec = decimal.RequireFromString("0.05")
)

// ZeroDecimal reports whether code names a 0-decimal currency.
func ZeroDecimal(code string) bool {
	_, ok := zeroDecimalCurrencies[strings.ToUpper(code)]
	return ok
}

// Parse reads a decimal amount, tolerating thousands separators ("1,039.45").
func Parse(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// Round rounds an amount per the currency's minor-unit scheme: nearest integer
// for 0-decimal currencies, two decimal places otherwise. Half rounds away from
// zero in both schemes.
func Round(d decimal.Decimal, code string) decimal.Decimal {
	if ZeroDecimal(code) {
		return d.Round(0)
	}
	return d.Round(2)
}

// Convert rescales amount from the merchant base currency into the shopper's
// currency: amount / baseRate * userRate, rounded to 2 places before the final
// per-scheme rounding. If either rate is missing the amount passes through
// unchanged; some orders never establish a conversion rate and are sent in
// their original currency.
func Convert(amount, baseRate, userRate decimal.Decimal, code string) decimal.Decimal {
	if !baseRate.IsZero() && !userRate.IsZero() {
		amount = amount.Div(baseRate).Mul(userRate).Round(2)
	}
	return Round(amount, code)
}

// Compare reports -1, 0 or 1 after scaling both values by 100 and truncating
// to integer cents. Two amounts equal to the cent compare equal regardless of
// trailing float noise.
func Compare(a, b decimal.Decimal) int {
	ai := a.Mul(hundred).IntPart()
	bi := b.Mul(hundred).IntPart()
	switch {
	case ai > bi:
		return 1
	case ai < bi:
		return -1
	default:
		return 0
	}
}

// Tolerance is the acceptable rounding drift for a final refund: 5 minor units
// for 0-decimal currencies, 0.05 otherwise.
func Tolerance(code string) decimal.Decimal {
	if ZeroDecimal(code) {
		return toleranceInt
	}
	return toleranceDec
}

// Amount is a rounded monetary value bound to a currency. Its JSON form follows
// the currency scheme: integers for 0-decimal currencies, fixed two-decimal
// numbers otherwise.
type Amount struct {
	value decimal.Decimal
	code  string
}

func NewAmount(d decimal.Decimal, code string) Amount {
	return Amount{value: Round(d, code), code: code}
}

func (a Amount) Decimal() decimal.Decimal { return a.value }

func (a Amount) Currency() string { return a.code }

func (a Amount) String() string {
	if ZeroDecimal(a.code) {
		return a.value.Round(0).String()
	}
	return a.value.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}
