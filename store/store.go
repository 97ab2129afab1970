// Package store persists profiles, portfolios, positions, transactions,
// dividends, goals and quotes in a SQLite database.
//
// Every operation writing more than one row runs in a single SQL transaction:
// it is applied entirely or not at all.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/etnz/allocator"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	equity           REAL NOT NULL,
	intl_etf         REAL NOT NULL,
	fixed_income_etf REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolios (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	profile_id     TEXT NOT NULL REFERENCES profiles(id),
	currency       TEXT NOT NULL,
	initial_value  TEXT NOT NULL,
	created_on     TEXT NOT NULL,
	rebalanced_on  TEXT,
	active         INTEGER NOT NULL DEFAULT 1,
	closed_on      TEXT,
	origin_id      TEXT,
	migrated_to_id TEXT,
	notes          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS positions (
	id            TEXT PRIMARY KEY,
	portfolio_id  TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	ticker        TEXT NOT NULL,
	category      TEXT NOT NULL,
	quantity      TEXT NOT NULL,
	average_price TEXT NOT NULL,
	closing_price TEXT,
	UNIQUE (portfolio_id, ticker)
);

CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	date         TEXT NOT NULL,
	ticker       TEXT NOT NULL,
	kind         TEXT NOT NULL,
	quantity     TEXT NOT NULL,
	unit_price   TEXT NOT NULL,
	total        TEXT NOT NULL,
	note         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS transactions_portfolio ON transactions (portfolio_id, date);

CREATE TABLE IF NOT EXISTS manual_quotes (
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	ticker       TEXT NOT NULL,
	price        TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (portfolio_id, ticker)
);

CREATE TABLE IF NOT EXISTS dividends (
	id           TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	ticker       TEXT NOT NULL,
	amount       TEXT NOT NULL,
	date         TEXT NOT NULL,
	reinvested   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS dividends_portfolio ON dividends (portfolio_id, date);

CREATE TABLE IF NOT EXISTS goals (
	portfolio_id TEXT PRIMARY KEY REFERENCES portfolios(id) ON DELETE CASCADE,
	target       TEXT NOT NULL,
	target_date  TEXT
);

CREATE TABLE IF NOT EXISTS quote_cache (
	ticker     TEXT PRIMARY KEY,
	price      TEXT NOT NULL,
	currency   TEXT NOT NULL,
	source     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is the SQLite repository.
type Store struct {
	db       *sql.DB
	log      zerolog.Logger
	currency string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log.With().Str("component", "store").Logger() }
}

// WithCurrency sets the currency of new portfolios and cached quotes.
func WithCurrency(code string) Option {
	return func(s *Store) { s.currency = code }
}

// Open opens or creates the database at path, migrates its schema and seeds
// the reference profiles.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent transactions
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: zerolog.Nop(), currency: allocator.DefaultCurrency}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := s.seedProfiles(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Debug().Str("path", path).Msg("database opened")
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Currency is the currency of new portfolios.
func (s *Store) Currency() string { return s.currency }

// withTransaction runs fn in a SQL transaction. It commits when fn succeeds
// and rolls back when fn returns an error or panics.
func withTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rollbackErr)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatDate(t time.Time) string { return t.Format(time.DateOnly) }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func scanNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func amount(m allocator.Money) string { return m.Decimal().String() }

func nullAmount(m allocator.Money) sql.NullString {
	if m.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: amount(m), Valid: true}
}
