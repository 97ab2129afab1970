package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/allocator"
)

// SetManualQuote records the current price of ticker for one portfolio. It
// never changes the average price of a position.
func (s *Store) SetManualQuote(ctx context.Context, portfolioID, ticker string, price allocator.Money, at time.Time) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: manual quote %v is not positive", allocator.ErrInvalidInput, price)
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireActive(ctx, tx, portfolioID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manual_quotes (portfolio_id, ticker, price, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (portfolio_id, ticker) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
			portfolioID, ticker, amount(price), at.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to save manual quote for %s: %w", ticker, err)
		}
		return nil
	})
}

// ManualQuotes returns the manual quotes of a portfolio by ticker.
func (s *Store) ManualQuotes(ctx context.Context, portfolioID string) (map[string]allocator.Money, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.ticker, m.price, f.currency
		FROM manual_quotes m JOIN portfolios f ON f.id = m.portfolio_id
		WHERE m.portfolio_id = ?`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual quotes: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]allocator.Money)
	for rows.Next() {
		var ticker, price, currency string
		if err := rows.Scan(&ticker, &price, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan manual quote: %w", err)
		}
		m, err := allocator.ParseMoney(price, currency)
		if err != nil {
			return nil, fmt.Errorf("manual quote %s: %w", ticker, err)
		}
		quotes[ticker] = m
	}
	return quotes, rows.Err()
}

// CachedQuote is a market quote kept in the database.
type CachedQuote struct {
	Price     allocator.Money
	Source    string
	UpdatedAt time.Time
}

// UpsertQuotes records the latest market quotes.
func (s *Store) UpsertQuotes(ctx context.Context, quotes map[string]allocator.Money, source string, at time.Time) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for ticker, price := range quotes {
			if !price.IsPositive() {
				continue
			}
			currency := price.Currency()
			if currency == "" {
				currency = s.currency
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO quote_cache (ticker, price, currency, source, updated_at) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (ticker) DO UPDATE SET price = excluded.price, currency = excluded.currency,
					source = excluded.source, updated_at = excluded.updated_at`,
				ticker, amount(price), currency, source, at.UTC().Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("failed to cache quote for %s: %w", ticker, err)
			}
		}
		return nil
	})
}

// CachedQuotes returns the cached quotes of tickers. Unknown tickers are absent.
func (s *Store) CachedQuotes(ctx context.Context, tickers []string) (map[string]CachedQuote, error) {
	quotes := make(map[string]CachedQuote, len(tickers))
	if len(tickers) == 0 {
		return quotes, nil
	}
	args := make([]any, len(tickers))
	for i, t := range tickers {
		args[i] = t
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, price, currency, source, updated_at FROM quote_cache
		WHERE ticker IN (?`+strings.Repeat(", ?", len(tickers)-1)+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached quotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker, price, currency, source, updated string
		if err := rows.Scan(&ticker, &price, &currency, &source, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan cached quote: %w", err)
		}
		q := CachedQuote{Source: source}
		if q.Price, err = allocator.ParseMoney(price, currency); err != nil {
			return nil, fmt.Errorf("cached quote %s: %w", ticker, err)
		}
		if q.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, fmt.Errorf("cached quote %s: invalid time %q: %w", ticker, updated, err)
		}
		quotes[ticker] = q
	}
	return quotes, rows.Err()
}

// ActiveTickers returns the tickers held by active portfolios.
func (s *Store) ActiveTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.ticker FROM positions p JOIN portfolios f ON f.id = p.portfolio_id
		WHERE f.active = 1 ORDER BY p.ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
