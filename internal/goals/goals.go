// Package goals recomputes savings goal progress in response to
// transaction activity and fires the completion event.
package goals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/money"
)

// Store is the slice of persistence the evaluator needs.
type Store interface {
	ListActiveGoalsByAccount(ctx context.Context, userID, accountID string) ([]domain.SavingsGoal, error)
	GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error)
	SetGoalProgress(ctx context.Context, id string, progressMinor int64) error
	MarkGoalCompleted(ctx context.Context, id string) (bool, error)
	AccountBalance(ctx context.Context, userID, accountID, currencyCode string) (int64, error)
}

// Evaluator listens for transaction creation and advances the goals
// attached to the affected account. Completion is decided by the store's
// guard, so concurrent evaluations of the same goal fire the completion
// event once.
type Evaluator struct {
	store  Store
	events events.Publisher
	logger zerolog.Logger
}

// NewEvaluator wires a goal evaluator.
func NewEvaluator(store Store, pub events.Publisher, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		store:  store,
		events: pub,
		logger: logger.With().Str("component", "goals").Logger(),
	}
}

// OnTransactionCreated recomputes every active goal on the transaction's
// account. Already-completed goals are skipped: completion is sticky, a
// balance dip never reopens a goal.
func (e *Evaluator) OnTransactionCreated(ctx context.Context, tx *domain.Transaction) error {
	goals, err := e.store.ListActiveGoalsByAccount(ctx, tx.UserID, tx.AccountID)
	if err != nil {
		return fmt.Errorf("goals: list active goals: %w", err)
	}

	for i := range goals {
		if err := e.evaluate(ctx, &goals[i]); err != nil {
			e.logger.Error().Err(err).Str("goal_id", goals[i].ID).Msg("goal evaluation failed")
		}
	}
	return nil
}

func (e *Evaluator) evaluate(ctx context.Context, goal *domain.SavingsGoal) error {
	balance, err := e.store.AccountBalance(ctx, goal.UserID, goal.AccountID, goal.Target.Currency())
	if err != nil {
		return fmt.Errorf("account balance: %w", err)
	}
	if balance < 0 {
		balance = 0
	}

	if err := e.store.SetGoalProgress(ctx, goal.ID, balance); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}

	progress, err := money.New(balance, goal.Target.Currency())
	if err != nil {
		return fmt.Errorf("progress amount: %w", err)
	}
	goal.Progress = progress

	if balance < goal.Target.Minor() {
		return nil
	}

	// The guard only reports true for the transition, never for a goal
	// that was already completed.
	fired, err := e.store.MarkGoalCompleted(ctx, goal.ID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if !fired {
		return nil
	}

	completed, err := e.store.GetGoal(ctx, goal.ID)
	if err != nil {
		// Fall back to the in-memory copy; only CompletedAt is missing.
		completed = goal
	}

	if err := e.events.Publish(ctx, events.SavingsGoalCompleted{Goal: *completed}); err != nil {
		e.logger.Error().Err(err).Str("goal_id", goal.ID).Msg("publish savings_goal.completed failed")
	}
	return nil
}
