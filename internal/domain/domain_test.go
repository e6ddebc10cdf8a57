package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ddmitrov/fincore/internal/money"
)

func TestDraftValidate(t *testing.T) {
	valid := TransactionDraft{
		Amount:     money.MustNew(2550, "USD"),
		Type:       TypeExpense,
		OccurredAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid draft rejected: %v", err)
	}

	zeroAmount := valid
	zeroAmount.Amount = money.MustNew(0, "USD")
	if err := zeroAmount.Validate(); !errors.Is(err, ErrNoTransactionFound) {
		t.Errorf("zero amount error = %v, want ErrNoTransactionFound", err)
	}

	zeroDate := valid
	zeroDate.OccurredAt = time.Time{}
	if err := zeroDate.Validate(); !errors.Is(err, ErrNoTransactionFound) {
		t.Errorf("zero date error = %v, want ErrNoTransactionFound", err)
	}

	badType := valid
	badType.Type = "transfer"
	if err := badType.Validate(); !errors.Is(err, ErrInvalidTransactionType) {
		t.Errorf("bad type error = %v, want ErrInvalidTransactionType", err)
	}

	long := valid
	long.Description = strings.Repeat("x", 600)
	if err := long.Validate(); err != nil {
		t.Fatalf("long description rejected: %v", err)
	}
	if len(long.Description) != 500 {
		t.Errorf("description length = %d, want truncated to 500", len(long.Description))
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Groceries ", "groceries"},
		{"EATING OUT", "eating out"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
