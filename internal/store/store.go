// Package store defines the persistence interfaces the rest of the service
// depends on. Every read and write is scoped by the owning user; there is no
// cross-user mutation path.
package store

import (
	"context"

	"github.com/ddmitrov/fincore/internal/domain"
)

// UserStore manages account holders.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AccountStore manages user-owned accounts.
type AccountStore interface {
	InsertAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
}

// CategoryStore manages user-owned categories.
type CategoryStore interface {
	InsertCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error)
}

// TransactionStore manages persisted transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// AccountBalance returns the net amount (income minus expense) booked
	// against an account in the given currency, in minor units.
	AccountBalance(ctx context.Context, userID, accountID, currencyCode string) (int64, error)
}

// GoalStore manages savings goals. MarkGoalCompleted is the exactly-once
// gate for the completion event: it reports whether this call performed the
// not-completed -> completed transition.
type GoalStore interface {
	InsertGoal(ctx context.Context, g *domain.SavingsGoal) error
	GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error)
	ListGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error)
	ListActiveGoalsByAccount(ctx context.Context, userID, accountID string) ([]domain.SavingsGoal, error)
	SetGoalProgress(ctx context.Context, id string, progressMinor int64) error
	MarkGoalCompleted(ctx context.Context, id string) (bool, error)
}

// ParsingRunStore records one row per ingestion attempt for observability.
type ParsingRunStore interface {
	StartParsingRun(ctx context.Context, userID string, modality domain.Modality) (string, error)
	FinishParsingRun(ctx context.Context, runID string, rawOutput string, runErr error) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	AccountStore
	CategoryStore
	TransactionStore
	GoalStore
	ParsingRunStore

	Close() error
}
