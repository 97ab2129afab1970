package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/allocator"
)

func (s *Store) seedProfiles(ctx context.Context) error {
	return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for _, p := range allocator.ReferenceProfiles {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO profiles (id, name, equity, intl_etf, fixed_income_etf) VALUES (?, ?, ?, ?, ?)`,
				p.ID, p.Name, float64(p.Equity), float64(p.IntlETF), float64(p.FixedIncome)); err != nil {
				return fmt.Errorf("failed to seed profile %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

const profileColumns = `id, name, equity, intl_etf, fixed_income_etf`

func scanProfile(row scanner) (allocator.Profile, error) {
	var p allocator.Profile
	var equity, intl, fixed float64
	if err := row.Scan(&p.ID, &p.Name, &equity, &intl, &fixed); err != nil {
		return p, err
	}
	p.Equity, p.IntlETF, p.FixedIncome = allocator.Percent(equity), allocator.Percent(intl), allocator.Percent(fixed)
	return p, nil
}

// Profiles returns every profile, the least equity exposed first.
func (s *Store) Profiles(ctx context.Context) ([]allocator.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY equity, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []allocator.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Profile returns the profile id.
func (s *Store) Profile(ctx context.Context, id string) (allocator.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("profile %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("failed to get profile %q: %w", id, err)
	}
	return p, nil
}

// SaveProfile creates or replaces a custom profile.
func (s *Store) SaveProfile(ctx context.Context, p allocator.Profile) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return fmt.Errorf("%w: profile id is required", allocator.ErrInvalidInput)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, equity = excluded.equity,
			intl_etf = excluded.intl_etf, fixed_income_etf = excluded.fixed_income_etf`,
		p.ID, p.Name, float64(p.Equity), float64(p.IntlETF), float64(p.FixedIncome))
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", p.ID, err)
	}
	return nil
}
