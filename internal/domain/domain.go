// Package domain holds the entities shared across the ingestion pipeline,
// matcher, storage, and HTTP layers.
package domain

import (
	"strings"
	"time"

	"github.com/ddmitrov/fincore/internal/money"
)

// TransactionType classifies a transaction as money in or money out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Modality identifies which input form produced a draft.
type Modality string

const (
	ModalityVoice     Modality = "voice"
	ModalityReceipt   Modality = "receipt"
	ModalityText      Modality = "text"
	ModalityTextImage Modality = "text+image"
)

// TransactionDraft is the transient output of a single parse call. It is
// never persisted; the ingestion flow either turns it into a Transaction or
// discards it.
type TransactionDraft struct {
	Amount       money.Money     `json:"amount"`
	Type         TransactionType `json:"type"`
	OccurredAt   time.Time       `json:"occurred_at"`
	CategoryHint string          `json:"category_hint,omitempty"`
	AccountHint  string          `json:"account_hint,omitempty"`
	Description  string          `json:"description,omitempty"`
	Source       Modality        `json:"source"`
	Language     string          `json:"language"`

	// RawModelOutput is the verbatim model response the draft was built
	// from, kept for the parsing run record. Excluded from the draft's
	// own JSON form.
	RawModelOutput string `json:"-"`
}

// Validate checks the invariants a draft must satisfy before it can be
// committed as a transaction.
func (d *TransactionDraft) Validate() error {
	if d.Amount.IsZero() {
		return ErrNoTransactionFound
	}
	if !d.Type.Valid() {
		return ErrInvalidTransactionType
	}
	if d.OccurredAt.IsZero() {
		return ErrNoTransactionFound
	}
	if len(d.Description) > 500 {
		d.Description = d.Description[:500]
	}
	return nil
}

// Category is a user-owned transaction category.
type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
}

// OwnerID implements authz.Owned.
func (c Category) OwnerID() string { return c.UserID }

// Account is a user-owned money account (checking, savings, cash, ...).
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerID implements authz.Owned.
func (a Account) OwnerID() string { return a.UserID }

// Transaction is a persisted, user-owned financial transaction.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	AccountID   string          `json:"account_id"`
	CategoryID  string          `json:"category_id,omitempty"`
	Amount      money.Money     `json:"amount"`
	Type        TransactionType `json:"type"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OwnerID implements authz.Owned.
func (t Transaction) OwnerID() string { return t.UserID }

// SavingsGoal tracks progress toward a target amount on one of the user's
// accounts. Completion is sticky: once CompletedAt is set it never clears,
// even if progress later drops below the target.
type SavingsGoal struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	AccountID   string      `json:"account_id"`
	Name        string      `json:"name"`
	Target      money.Money `json:"target"`
	Progress    money.Money `json:"progress"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OwnerID implements authz.Owned.
func (g SavingsGoal) OwnerID() string { return g.UserID }

// Completed reports whether the goal has reached its target at some point.
func (g SavingsGoal) Completed() bool { return g.CompletedAt != nil }

// User is an authenticated account holder.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeName canonicalizes a category/account name for comparison:
// trimmed and lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
