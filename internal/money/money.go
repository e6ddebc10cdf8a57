// Package money provides an exact integer-minor-unit representation of
// monetary amounts. All arithmetic is int64; floating point never touches a
// stored amount. Currency metadata (ISO-4217 validation and exponents) comes
// from golang.org/x/text/currency.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Money is an immutable amount in a currency's minor units (cents for USD,
// whole yen for JPY). The zero value is not a valid Money; use New or
// FromDecimal.
type Money struct {
	minor int64
	unit  currency.Unit
}

// New builds a Money from an amount already expressed in minor units.
func New(minor int64, code string) (Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Money{minor: minor, unit: unit}, nil
}

// MustNew is New for trusted inputs (tests, constants). Panics on error.
func MustNew(minor int64, code string) Money {
	m, err := New(minor, code)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a human-readable decimal string ("25.50", "25,50",
// "-3") to minor units using the currency's ISO-4217 exponent. Rounding
// beyond the exponent is half-up, applied exactly once: "10.005" USD becomes
// 1001, "10.004" becomes 1000.
func FromDecimal(s, code string) (Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	scale, _ := currency.Standard.Rounding(unit)

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" || s == "." {
		return Money{}, fmt.Errorf("%w: empty input", ErrInvalidAmount)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	pow := int64(1)
	for i := 0; i < scale; i++ {
		pow *= 10
	}
	if iv > (math.MaxInt64-pow)/pow {
		return Money{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}

	// Fractional digits up to the exponent, then half-up on the next digit.
	var frac int64
	for i := 0; i < scale; i++ {
		frac *= 10
		if i < len(fracPart) {
			frac += int64(fracPart[i] - '0')
		}
	}
	if len(fracPart) > scale && fracPart[scale] >= '5' {
		frac++
	}

	minor := iv*pow + frac
	if neg {
		minor = -minor
	}
	return Money{minor: minor, unit: unit}, nil
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return m.minor }

// Currency returns the ISO-4217 code.
func (m Money) Currency() string { return m.unit.String() }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.minor == 0 }

// Add returns m + other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if m.unit != other.unit {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return Money{minor: m.minor + other.minor, unit: m.unit}, nil
}

// Sub returns m - other. Both operands must share a currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.unit != other.unit {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return Money{minor: m.minor - other.minor, unit: m.unit}, nil
}

// Decimal returns the exact decimal string for the amount, e.g. 2550 USD
// minor units -> "25.50". Computed with integer math only.
func (m Money) Decimal() string {
	scale, _ := currency.Standard.Rounding(m.unit)
	if scale == 0 {
		return strconv.FormatInt(m.minor, 10)
	}
	pow := int64(1)
	for i := 0; i < scale; i++ {
		pow *= 10
	}
	minor := m.minor
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%0*d", sign, minor/pow, scale, minor%pow)
}

// Format renders the amount for display in the given BCP-47 locale. The
// conversion to float64 here is presentation only; it never feeds back into
// a stored amount.
func (m Money) Format(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	scale, _ := currency.Standard.Rounding(m.unit)
	display := float64(m.minor) / math.Pow10(scale)
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", currency.Symbol(m.unit.Amount(display)))
}

func (m Money) String() string {
	return m.Decimal() + " " + m.Currency()
}

type moneyJSON struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

// MarshalJSON encodes the amount as {"amount_minor": ..., "currency": ...}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{AmountMinor: m.minor, Currency: m.Currency()})
}

// UnmarshalJSON decodes the wire form, validating the currency code.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := New(raw.AmountMinor, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
