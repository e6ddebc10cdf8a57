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

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	categoryID := sql.NullString{String: t.CategoryID, Valid: t.CategoryID != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, account_id, category_id, amount_minor, currency, type, occurred_at, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, categoryID,
		t.Amount.Minor(), t.Amount.Currency(), string(t.Type),
		t.OccurredAt, t.Description, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, account_id, category_id, amount_minor, currency, type, occurred_at, description, created_at
		FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, category_id, amount_minor, currency, type, occurred_at, description, created_at
		FROM transactions WHERE user_id = ? ORDER BY occurred_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	categoryID := sql.NullString{String: t.CategoryID, Valid: t.CategoryID != ""}
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, amount_minor = ?, currency = ?, type = ?, occurred_at = ?, description = ?
		WHERE id = ? AND user_id = ?`,
		t.AccountID, categoryID, t.Amount.Minor(), t.Amount.Currency(),
		string(t.Type), t.OccurredAt, t.Description, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) AccountBalance(ctx context.Context, userID, accountID, currencyCode string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount_minor ELSE -amount_minor END), 0)
		FROM transactions
		WHERE user_id = ? AND account_id = ? AND currency = ?`,
		userID, accountID, currencyCode).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		categoryID  sql.NullString
		amountMinor int64
		currency    string
		typ         string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &categoryID,
		&amountMinor, &currency, &typ, &t.OccurredAt, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	amount, err := money.New(amountMinor, currency)
	if err != nil {
		return nil, fmt.Errorf("stored amount: %w", err)
	}
	t.Amount = amount
	t.Type = domain.TransactionType(typ)
	t.CategoryID = categoryID.String
	return &t, nil
}
