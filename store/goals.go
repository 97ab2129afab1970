package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/allocator"
)

// SetGoal creates or replaces the goal of an active portfolio.
func (s *Store) SetGoal(ctx context.Context, g allocator.Goal) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireActive(ctx, tx, g.PortfolioID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goals (portfolio_id, target, target_date) VALUES (?, ?, ?)
			ON CONFLICT (portfolio_id) DO UPDATE SET target = excluded.target, target_date = excluded.target_date`,
			g.PortfolioID, amount(g.Target), nullDate(g.Date))
		if err != nil {
			return fmt.Errorf("failed to save goal: %w", err)
		}
		return nil
	})
}

// Goal returns the goal of a portfolio, or ErrNotFound when it has none.
func (s *Store) Goal(ctx context.Context, portfolioID string) (allocator.Goal, error) {
	var (
		g                allocator.Goal
		target, currency string
		date             sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT g.portfolio_id, g.target, g.target_date, f.currency
		FROM goals g JOIN portfolios f ON f.id = g.portfolio_id
		WHERE g.portfolio_id = ?`, portfolioID).Scan(&g.PortfolioID, &target, &date, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return g, fmt.Errorf("goal of %q: %w", portfolioID, ErrNotFound)
	}
	if err != nil {
		return g, fmt.Errorf("failed to get goal of %q: %w", portfolioID, err)
	}
	if g.Target, err = allocator.ParseMoney(target, currency); err != nil {
		return g, fmt.Errorf("goal of %q: %w", portfolioID, err)
	}
	if g.Date, err = scanNullDate(date); err != nil {
		return g, err
	}
	return g, nil
}

// DeleteGoal removes the goal of a portfolio. Removing a missing goal is not
// an error.
func (s *Store) DeleteGoal(ctx context.Context, portfolioID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE portfolio_id = ?`, portfolioID); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}
