package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/money"
)

// Failure reasons the model is instructed to report when it cannot extract
// a transaction.
const (
	reasonNoTransaction       = "no_transaction"
	reasonTranscriptionFailed = "transcription_failed"
)

// draftFromModelOutput converts raw model output into a validated draft.
// The model reports amounts as decimal strings so the conversion to minor
// units stays exact; numbers would round-trip through float64.
func draftFromModelOutput(
	rawOutput map[string]interface{},
	modality domain.Modality,
	language string,
	defaultCurrency string,
	now time.Time,
) (*domain.TransactionDraft, error) {
	found, err := getBoolField(rawOutput, "found")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}
	if !found {
		reason, err := getOptionalStringField(rawOutput, "reason")
		if err != nil {
			return nil, fmt.Errorf("draftFromModelOutput: %w", err)
		}
		if reason != nil && *reason == reasonTranscriptionFailed && modality == domain.ModalityVoice {
			return nil, domain.ErrTranscriptionFailed
		}
		return nil, domain.ErrNoTransactionFound
	}

	amountStr, err := getStringField(rawOutput, "amount", true)
	if err != nil {
		return nil, domain.ErrNoTransactionFound
	}

	currencyPtr, err := getOptionalStringField(rawOutput, "currency")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}
	currency := defaultCurrency
	if currencyPtr != nil {
		currency = strings.ToUpper(*currencyPtr)
	}

	// The model is told to emit positive amounts plus a type, but a signed
	// amount still carries the same information.
	txType := domain.TypeExpense
	if strings.HasPrefix(strings.TrimSpace(amountStr), "-") {
		amountStr = strings.TrimPrefix(strings.TrimSpace(amountStr), "-")
	} else {
		typePtr, err := getOptionalStringField(rawOutput, "type")
		if err != nil {
			return nil, fmt.Errorf("draftFromModelOutput: %w", err)
		}
		if typePtr != nil && domain.TransactionType(*typePtr) == domain.TypeIncome {
			txType = domain.TypeIncome
		}
	}

	amount, err := money.FromDecimal(amountStr, currency)
	if err != nil {
		if errors.Is(err, money.ErrInvalidCurrency) {
			return nil, fmt.Errorf("draftFromModelOutput: %w", err)
		}
		return nil, fmt.Errorf("draftFromModelOutput: amount %q: %w", amountStr, err)
	}
	if amount.IsZero() {
		return nil, domain.ErrNoTransactionFound
	}

	// Undated inputs ("spent 25.50 on coffee") default to today.
	occurredAt := now.UTC().Truncate(24 * time.Hour)
	datePtr, err := getOptionalStringField(rawOutput, "date")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}
	if datePtr != nil {
		parsed, err := time.Parse("2006-01-02", *datePtr)
		if err != nil {
			return nil, fmt.Errorf("draftFromModelOutput: invalid date %q: %w", *datePtr, err)
		}
		occurredAt = parsed
	}

	desc, err := getOptionalStringField(rawOutput, "description")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}
	categoryHint, err := getOptionalStringField(rawOutput, "category_hint")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}
	accountHint, err := getOptionalStringField(rawOutput, "account_hint")
	if err != nil {
		return nil, fmt.Errorf("draftFromModelOutput: %w", err)
	}

	draft := &domain.TransactionDraft{
		Amount:     amount,
		Type:       txType,
		OccurredAt: occurredAt,
		Source:     modality,
		Language:   language,
	}
	if desc != nil {
		draft.Description = *desc
	}
	if categoryHint != nil {
		draft.CategoryHint = *categoryHint
	}
	if accountHint != nil {
		draft.AccountHint = *accountHint
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getBoolField(m map[string]interface{}, key string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	default:
		return false, fmt.Errorf("field %q has type %T, want bool", key, v)
	}
}
