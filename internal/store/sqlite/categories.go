package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ddmitrov/fincore/internal/domain"
)

func (s *Store) InsertCategory(ctx context.Context, c *domain.Category) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	var typ string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, created_at
		FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.Type = domain.TransactionType(typ)
	return &c, nil
}

// ListCategories returns the user's categories of the given type, or all of
// them when t is empty. The user_id filter is the ownership boundary for the
// matcher; it must never be widened.
func (s *Store) ListCategories(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, created_at
		FROM categories WHERE user_id = ? AND (? = '' OR type = ?) ORDER BY name`,
		userID, string(t), string(t))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = domain.TransactionType(typ)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
