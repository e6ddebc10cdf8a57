package money

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	m, err := New(1234, "USD")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if m.Minor() != 1234 {
		t.Errorf("Minor() = %d, want 1234", m.Minor())
	}
	if m.Currency() != "USD" {
		t.Errorf("Currency() = %q, want USD", m.Currency())
	}
}

func TestNewInvalidCurrency(t *testing.T) {
	for _, code := range []string{"", "US", "DOLLARS", "usd!"} {
		if _, err := New(100, code); !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("New(100, %q) error = %v, want ErrInvalidCurrency", code, err)
		}
	}
}

func TestFromDecimal(t *testing.T) {
	cases := []struct {
		in    string
		code  string
		minor int64
		ok    bool
	}{
		{"10.00", "USD", 1000, true},
		{"25.50", "USD", 2550, true},
		{"25,50", "EUR", 2550, true},
		{"1", "USD", 100, true},
		{"0.01", "USD", 1, true},
		{" 2.50 ", "USD", 250, true},
		{"-3.25", "USD", -325, true},
		// Half-up rounding, both directions.
		{"10.005", "USD", 1001, true},
		{"10.004", "USD", 1000, true},
		{"10.0049", "USD", 1000, true},
		// Zero-exponent currency.
		{"1500", "JPY", 1500, true},
		{"1500.5", "JPY", 1501, true},
		{"1500.4", "JPY", 1500, true},
		{"", "USD", 0, false},
		{"abc", "USD", 0, false},
		{"1.2.3", "USD", 0, false},
		{"12e3", "USD", 0, false},
	}
	for _, tc := range cases {
		m, err := FromDecimal(tc.in, tc.code)
		if tc.ok {
			if err != nil {
				t.Errorf("FromDecimal(%q, %s) unexpected error: %v", tc.in, tc.code, err)
				continue
			}
			if m.Minor() != tc.minor {
				t.Errorf("FromDecimal(%q, %s) = %d, want %d", tc.in, tc.code, m.Minor(), tc.minor)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("FromDecimal(%q, %s) error = %v, want ErrInvalidAmount", tc.in, tc.code, err)
		}
	}
}

func TestFromDecimalInvalidCurrency(t *testing.T) {
	if _, err := FromDecimal("10.00", "NOPE"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("error = %v, want ErrInvalidCurrency", err)
	}
}

func TestAddSubRoundTrip(t *testing.T) {
	x := MustNew(12345, "USD")
	y := MustNew(678, "USD")

	sum, err := x.Add(y)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if sum.Minor() != 13023 {
		t.Errorf("Add = %d, want 13023", sum.Minor())
	}

	back, err := sum.Sub(y)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if back.Minor() != x.Minor() {
		t.Errorf("add/sub round trip = %d, want %d", back.Minor(), x.Minor())
	}
}

func TestCurrencyMismatch(t *testing.T) {
	usd := MustNew(100, "USD")
	eur := MustNew(100, "EUR")

	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add across currencies: error = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := usd.Sub(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Sub across currencies: error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestDecimal(t *testing.T) {
	cases := []struct {
		minor int64
		code  string
		want  string
	}{
		{2550, "USD", "25.50"},
		{5, "USD", "0.05"},
		{-325, "USD", "-3.25"},
		{1500, "JPY", "1500"},
		{0, "EUR", "0.00"},
	}
	for _, tc := range cases {
		got := MustNew(tc.minor, tc.code).Decimal()
		if got != tc.want {
			t.Errorf("Decimal(%d %s) = %q, want %q", tc.minor, tc.code, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	m := MustNew(2550, "USD")
	got := m.Format("en-US")
	if got == "" {
		t.Fatal("Format returned empty string")
	}
	if !strings.Contains(got, "25.50") && !strings.Contains(got, "25,50") {
		t.Errorf("Format = %q, want the amount rendered", got)
	}
	// Formatting must not mutate the stored value.
	if m.Minor() != 2550 {
		t.Errorf("Minor() after Format = %d, want 2550", m.Minor())
	}
	// Bad locale falls back rather than failing.
	if MustNew(100, "EUR").Format("not-a-locale") == "" {
		t.Error("Format with invalid locale returned empty string")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustNew(2550, "USD")
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Minor() != m.Minor() || back.Currency() != m.Currency() {
		t.Errorf("round trip = %v, want %v", back, m)
	}

	if err := json.Unmarshal([]byte(`{"amount_minor":1,"currency":"XX"}`), &back); err == nil {
		t.Error("Unmarshal with bad currency succeeded, want error")
	}
}
