package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/etnz/allocator"
)

// AddDividend records a dividend paid to an active portfolio.
func (s *Store) AddDividend(ctx context.Context, d allocator.Dividend) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireActive(ctx, tx, d.PortfolioID); err != nil {
			return err
		}
		return insertDividends(ctx, tx, []allocator.Dividend{d})
	})
}

func insertDividends(ctx context.Context, tx execer, dividends []allocator.Dividend) error {
	for _, d := range dividends {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dividends (id, portfolio_id, ticker, amount, date, reinvested)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, d.PortfolioID, d.Ticker, amount(d.Amount), formatDate(d.Date), d.Reinvested)
		if err != nil {
			return fmt.Errorf("failed to insert dividend of %s: %w", d.Ticker, err)
		}
	}
	return nil
}

// Dividends returns the dividends of a portfolio, most recent first.
func (s *Store) Dividends(ctx context.Context, portfolioID string) ([]allocator.Dividend, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.portfolio_id, d.ticker, d.amount, d.date, d.reinvested, f.currency
		FROM dividends d JOIN portfolios f ON f.id = d.portfolio_id
		WHERE d.portfolio_id = ?
		ORDER BY d.date DESC, d.rowid DESC`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends: %w", err)
	}
	defer rows.Close()

	var dividends []allocator.Dividend
	for rows.Next() {
		var (
			d                     allocator.Dividend
			value, date, currency string
		)
		if err := rows.Scan(&d.ID, &d.PortfolioID, &d.Ticker, &value, &date, &d.Reinvested, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}
		if d.Amount, err = allocator.ParseMoney(value, currency); err != nil {
			return nil, fmt.Errorf("dividend %s: %w", d.ID, err)
		}
		if d.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		dividends = append(dividends, d)
	}
	return dividends, rows.Err()
}
