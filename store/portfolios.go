package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/etnz/allocator"
)

const portfolioColumns = `id, name, profile_id, currency, initial_value, created_on, rebalanced_on, active, closed_on, origin_id, migrated_to_id, notes`

func scanPortfolio(row scanner) (allocator.Portfolio, error) {
	var (
		p                          allocator.Portfolio
		currency, initial, created string
		rebalanced, closed         sql.NullString
		origin, migratedTo         sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.ProfileID, &currency, &initial, &created, &rebalanced, &p.Active, &closed, &origin, &migratedTo, &p.Notes); err != nil {
		return p, err
	}
	var err error
	if p.InitialValue, err = allocator.ParseMoney(initial, currency); err != nil {
		return p, err
	}
	if p.CreatedOn, err = parseDate(created); err != nil {
		return p, err
	}
	if p.RebalancedOn, err = scanNullDate(rebalanced); err != nil {
		return p, err
	}
	if p.ClosedOn, err = scanNullDate(closed); err != nil {
		return p, err
	}
	p.OriginID, p.MigratedToID = origin.String, migratedTo.String
	return p, nil
}

// Portfolio returns the portfolio id.
func (s *Store) Portfolio(ctx context.Context, id string) (allocator.Portfolio, error) {
	p, err := scanPortfolio(s.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("portfolio %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("failed to get portfolio %q: %w", id, err)
	}
	return p, nil
}

// Portfolios returns the portfolios, most recent first.
func (s *Store) Portfolios(ctx context.Context, activeOnly bool) ([]allocator.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_on DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []allocator.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// Positions returns the positions of a portfolio in the order they were opened.
func (s *Store) Positions(ctx context.Context, portfolioID string) ([]allocator.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.ticker, p.category, p.quantity, p.average_price, p.closing_price, f.currency
		FROM positions p JOIN portfolios f ON f.id = p.portfolio_id
		WHERE p.portfolio_id = ?
		ORDER BY p.rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []allocator.Position
	for rows.Next() {
		var (
			pos                          allocator.Position
			category, qty, avg, currency string
			closing                      sql.NullString
		)
		if err := rows.Scan(&pos.ID, &pos.Ticker, &category, &qty, &avg, &closing, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if pos.Category, err = allocator.ParseCategory(category); err != nil {
			return nil, err
		}
		if pos.Quantity, err = allocator.ParseQuantity(qty); err != nil {
			return nil, fmt.Errorf("position %s: invalid quantity: %w", pos.Ticker, err)
		}
		if pos.AveragePrice, err = allocator.ParseMoney(avg, currency); err != nil {
			return nil, fmt.Errorf("position %s: %w", pos.Ticker, err)
		}
		if closing.Valid {
			if pos.ClosingPrice, err = allocator.ParseMoney(closing.String, currency); err != nil {
				return nil, fmt.Errorf("position %s: %w", pos.Ticker, err)
			}
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// Transactions returns the history of a portfolio in chronological order.
func (s *Store) Transactions(ctx context.Context, portfolioID string) ([]allocator.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.portfolio_id, t.date, t.ticker, t.kind, t.quantity, t.unit_price, t.total, t.note, f.currency
		FROM transactions t JOIN portfolios f ON f.id = t.portfolio_id
		WHERE t.portfolio_id = ?
		ORDER BY t.date, t.rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []allocator.Transaction
	for rows.Next() {
		var (
			tx                                      allocator.Transaction
			date, kind, qty, price, total, currency string
		)
		if err := rows.Scan(&tx.ID, &tx.PortfolioID, &date, &tx.Ticker, &kind, &qty, &price, &total, &tx.Note, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if tx.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if tx.Kind, err = allocator.ParseTransactionKind(kind); err != nil {
			return nil, err
		}
		if tx.Quantity, err = allocator.ParseQuantity(qty); err != nil {
			return nil, fmt.Errorf("transaction %s: invalid quantity: %w", tx.ID, err)
		}
		if tx.UnitPrice, err = allocator.ParseMoney(price, currency); err != nil {
			return nil, err
		}
		if tx.Total, err = allocator.ParseMoney(total, currency); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) insertPortfolio(ctx context.Context, tx execer, p allocator.Portfolio) error {
	currency := p.InitialValue.Currency()
	if currency == "" {
		currency = s.currency
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO portfolios (`+portfolioColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ProfileID, currency, amount(p.InitialValue), formatDate(p.CreatedOn), nullDate(p.RebalancedOn),
		p.Active, nullDate(p.ClosedOn), nullString(p.OriginID), nullString(p.MigratedToID), p.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio %q: %w", p.Name, err)
	}
	return nil
}

// upsertPositions inserts positions, or updates the quantity and average
// price of those already stored.
func upsertPositions(ctx context.Context, tx execer, portfolioID string, positions []allocator.Position) error {
	for _, pos := range positions {
		if pos.ID == "" {
			pos.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO positions (id, portfolio_id, ticker, category, quantity, average_price, closing_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET quantity = excluded.quantity, average_price = excluded.average_price`,
			pos.ID, portfolioID, pos.Ticker, pos.Category.String(), pos.Quantity.String(), amount(pos.AveragePrice), nullAmount(pos.ClosingPrice))
		if err != nil {
			return fmt.Errorf("failed to write position %s: %w", pos.Ticker, err)
		}
	}
	return nil
}

func insertTransactions(ctx context.Context, tx execer, txs []allocator.Transaction) error {
	for _, t := range txs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, portfolio_id, date, ticker, kind, quantity, unit_price, total, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PortfolioID, formatDate(t.Date), t.Ticker, t.Kind.String(), t.Quantity.String(), amount(t.UnitPrice), amount(t.Total), t.Note)
		if err != nil {
			return fmt.Errorf("failed to insert %s transaction for %s: %w", t.Kind, t.Ticker, err)
		}
	}
	return nil
}

// requireActive fails with allocator.ErrPortfolioClosed unless the portfolio
// exists and is active.
func requireActive(ctx context.Context, tx *sql.Tx, id string) error {
	var active bool
	err := tx.QueryRowContext(ctx, `SELECT active FROM portfolios WHERE id = ?`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("portfolio %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get portfolio %q: %w", id, err)
	}
	if !active {
		return fmt.Errorf("%w: %q", allocator.ErrPortfolioClosed, id)
	}
	return nil
}

// CreatePortfolio stores a new portfolio with its positions and transactions.
func (s *Store) CreatePortfolio(ctx context.Context, c *allocator.Creation) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.insertPortfolio(ctx, tx, c.Portfolio); err != nil {
			return err
		}
		if err := upsertPositions(ctx, tx, c.Portfolio.ID, c.Positions); err != nil {
			return err
		}
		return insertTransactions(ctx, tx, c.Transactions)
	})
}

// Contribute stores the positions and transactions of a contribution.
func (s *Store) Contribute(ctx context.Context, portfolioID string, c *allocator.Contribution) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := requireActive(ctx, tx, portfolioID); err != nil {
			return err
		}
		if err := upsertPositions(ctx, tx, portfolioID, c.Positions); err != nil {
			return err
		}
		return insertTransactions(ctx, tx, c.Transactions)
	})
}

// CommitMigration stores the outcome of a migration: the new portfolio with
// its positions and transactions, the sales recorded on the old portfolio,
// the closing prices of the old positions, and the closure of the old
// portfolio. Manual quotes of the tickers still held and the goal are carried
// over. Dividends stay with the portfolio that received them.
//
// Nothing is written unless everything is.
func (s *Store) CommitMigration(ctx context.Context, r *allocator.MigrationResult) error {
	old, next := r.Closed, r.Portfolio
	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		// a concurrent migration of the same portfolio loses here.
		if err := requireActive(ctx, tx, old.ID); err != nil {
			return err
		}
		if err := s.insertPortfolio(ctx, tx, next); err != nil {
			return err
		}
		if err := upsertPositions(ctx, tx, next.ID, r.Positions); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, r.Transactions); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, r.Sales); err != nil {
			return err
		}
		for _, pos := range r.Frozen {
			if _, err := tx.ExecContext(ctx, `UPDATE positions SET closing_price = ? WHERE portfolio_id = ? AND ticker = ?`,
				nullAmount(pos.ClosingPrice), old.ID, pos.Ticker); err != nil {
				return fmt.Errorf("failed to freeze position %s: %w", pos.Ticker, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE portfolios SET active = 0, closed_on = ?, migrated_to_id = ? WHERE id = ?`,
			nullDate(old.ClosedOn), next.ID, old.ID); err != nil {
			return fmt.Errorf("failed to close portfolio %q: %w", old.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO manual_quotes (portfolio_id, ticker, price, updated_at)
			SELECT ?, m.ticker, m.price, m.updated_at FROM manual_quotes m
			WHERE m.portfolio_id = ? AND m.ticker IN (SELECT ticker FROM positions WHERE portfolio_id = ?)`,
			next.ID, old.ID, next.ID); err != nil {
			return fmt.Errorf("failed to carry manual quotes over: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO goals (portfolio_id, target, target_date)
			SELECT ?, target, target_date FROM goals WHERE portfolio_id = ?`, next.ID, old.ID); err != nil {
			return fmt.Errorf("failed to carry the goal over: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("migration of %q aborted: %w", old.Name, err)
	}
	s.log.Info().Str("from", old.ID).Str("to", next.ID).Int("transactions", len(r.Transactions)).Int("sales", len(r.Sales)).Msg("migration committed")
	return nil
}

// SetNotes replaces the free text notes of a portfolio.
func (s *Store) SetNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE portfolios SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("portfolio %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePortfolio deletes a portfolio with its positions, transactions,
// dividends, goal and manual quotes. Lineage links of other portfolios to it
// are cleared.
func (s *Store) DeletePortfolio(ctx context.Context, id string) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE portfolios SET origin_id = NULL WHERE origin_id = ?`, id); err != nil {
			return fmt.Errorf("failed to unlink descendants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE portfolios SET migrated_to_id = NULL WHERE migrated_to_id = ?`, id); err != nil {
			return fmt.Errorf("failed to unlink ancestors: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("portfolio %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

// DuplicatePortfolio copies a portfolio with its positions, transactions,
// dividends and manual quotes into a new active portfolio named name, or
// "Copy of <name>" when name is empty. The copy has no lineage and no goal.
func (s *Store) DuplicatePortfolio(ctx context.Context, id, name string, on time.Time) (allocator.Portfolio, error) {
	src, err := s.Portfolio(ctx, id)
	if err != nil {
		return allocator.Portfolio{}, err
	}
	positions, err := s.Positions(ctx, id)
	if err != nil {
		return allocator.Portfolio{}, err
	}
	txs, err := s.Transactions(ctx, id)
	if err != nil {
		return allocator.Portfolio{}, err
	}
	dividends, err := s.Dividends(ctx, id)
	if err != nil {
		return allocator.Portfolio{}, err
	}

	if name = strings.TrimSpace(name); name == "" {
		name = allocator.CopyName(src.Name)
	}
	dup := allocator.Portfolio{
		ID:           uuid.NewString(),
		Name:         name,
		ProfileID:    src.ProfileID,
		InitialValue: src.InitialValue,
		CreatedOn:    on,
		Active:       true,
		Notes:        src.Notes,
	}
	for i := range positions {
		positions[i].ID = uuid.NewString()
		positions[i].ClosingPrice = allocator.Money{}
	}
	for i := range txs {
		txs[i].ID, txs[i].PortfolioID = uuid.NewString(), dup.ID
	}
	for i := range dividends {
		dividends[i].ID, dividends[i].PortfolioID = uuid.NewString(), dup.ID
	}

	err = withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.insertPortfolio(ctx, tx, dup); err != nil {
			return err
		}
		if err := upsertPositions(ctx, tx, dup.ID, positions); err != nil {
			return err
		}
		if err := insertTransactions(ctx, tx, txs); err != nil {
			return err
		}
		if err := insertDividends(ctx, tx, dividends); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manual_quotes (portfolio_id, ticker, price, updated_at)
			SELECT ?, ticker, price, updated_at FROM manual_quotes WHERE portfolio_id = ?`, dup.ID, id)
		return err
	})
	if err != nil {
		return allocator.Portfolio{}, fmt.Errorf("failed to duplicate %q: %w", src.Name, err)
	}
	return dup, nil
}
