package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/money"
)

func (s *Store) InsertGoal(ctx context.Context, g *domain.SavingsGoal) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO savings_goals
			(id, user_id, account_id, name, target_minor, progress_minor, currency, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.AccountID, g.Name,
		g.Target.Minor(), g.Progress.Minor(), g.Target.Currency(),
		g.CompletedAt, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, name, target_minor, progress_minor, currency, completed_at, created_at
		FROM savings_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	return s.listGoals(ctx, `
		SELECT id, user_id, account_id, name, target_minor, progress_minor, currency, completed_at, created_at
		FROM savings_goals WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// ListActiveGoalsByAccount returns the user's not-yet-completed goals linked
// to the given account. Completed goals are excluded so re-crossings of the
// target never re-evaluate them.
func (s *Store) ListActiveGoalsByAccount(ctx context.Context, userID, accountID string) ([]domain.SavingsGoal, error) {
	return s.listGoals(ctx, `
		SELECT id, user_id, account_id, name, target_minor, progress_minor, currency, completed_at, created_at
		FROM savings_goals
		WHERE user_id = ? AND account_id = ? AND completed_at IS NULL
		ORDER BY created_at, id`, userID, accountID)
}

func (s *Store) listGoals(ctx context.Context, query string, args ...any) ([]domain.SavingsGoal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []domain.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func (s *Store) SetGoalProgress(ctx context.Context, id string, progressMinor int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE savings_goals SET progress_minor = ? WHERE id = ?`, progressMinor, id)
	if err != nil {
		return fmt.Errorf("set goal progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set goal progress rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkGoalCompleted sets completed_at if and only if it is still unset and
// the recorded progress has reached the target. The rows-affected count is
// the exactly-once guard for the completion event.
func (s *Store) MarkGoalCompleted(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE savings_goals
		SET completed_at = ?
		WHERE id = ? AND completed_at IS NULL AND progress_minor >= target_minor`,
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark goal completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark goal completed rows affected: %w", err)
	}
	return n == 1, nil
}

func scanGoal(row rowScanner) (*domain.SavingsGoal, error) {
	var (
		g             domain.SavingsGoal
		targetMinor   int64
		progressMinor int64
		currency      string
		completedAt   sql.NullTime
	)
	err := row.Scan(&g.ID, &g.UserID, &g.AccountID, &g.Name,
		&targetMinor, &progressMinor, &currency, &completedAt, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	target, err := money.New(targetMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("stored target: %w", err)
	}
	progress, err := money.New(progressMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("stored progress: %w", err)
	}
	g.Target = target
	g.Progress = progress
	if completedAt.Valid {
		t := completedAt.Time
		g.CompletedAt = &t
	}
	return &g, nil
}
