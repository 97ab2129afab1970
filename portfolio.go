package allocator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Portfolio is a set of positions allocated against a profile.
//
// A portfolio is created active. A migration closes it: it becomes inactive,
// gets a closing date and a link to the portfolio that replaced it, and its
// positions are frozen at their closing price.
type Portfolio struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ProfileID    string     `json:"profile_id"`
	InitialValue Money      `json:"initial_value"`
	CreatedOn    time.Time  `json:"created_on"`
	RebalancedOn *time.Time `json:"rebalanced_on,omitempty"`
	Active       bool       `json:"active"`
	ClosedOn     *time.Time `json:"closed_on,omitempty"`
	OriginID     string     `json:"origin_id,omitempty"`
	MigratedToID string     `json:"migrated_to_id,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// Close marks the portfolio as replaced by next.
func (p *Portfolio) Close(on time.Time, next string) error {
	if !p.Active {
		return fmt.Errorf("%w: %q", ErrPortfolioClosed, p.Name)
	}
	p.Active = false
	p.ClosedOn = &on
	p.MigratedToID = next
	return nil
}

// VersionName is the name of the portfolio replacing one named name in year.
func VersionName(name string, year int) string {
	return fmt.Sprintf("%s (v%d)", name, year)
}

// CopyName is the default name of a duplicate.
func CopyName(name string) string { return "Copy of " + name }

// Creation is the set of records describing a new portfolio.
type Creation struct {
	Portfolio    Portfolio
	Positions    []Position
	Transactions []Transaction
}

// NewPortfolio builds a new portfolio from an allocation plan. Every line with
// a positive quantity becomes a position and an INITIAL_BUY transaction.
func NewPortfolio(name string, profile Profile, plan *Plan, on time.Time) (*Creation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: portfolio name is required", ErrInvalidInput)
	}
	if plan == nil || len(plan.Lines) == 0 {
		return nil, fmt.Errorf("%w: empty allocation plan", ErrInvalidInput)
	}
	if plan.Leftover().IsNegative() {
		return nil, fmt.Errorf("%w: plan spends %v of %v", ErrBudgetExceeded, plan.Purchases(), plan.Capital)
	}

	c := &Creation{
		Portfolio: Portfolio{
			ID:           uuid.NewString(),
			Name:         name,
			ProfileID:    profile.ID,
			InitialValue: plan.Capital,
			CreatedOn:    on,
			Active:       true,
		},
	}
	for _, l := range plan.Lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		c.Positions = append(c.Positions, Position{
			ID:           uuid.NewString(),
			Ticker:       l.Ticker,
			Category:     l.Category,
			Quantity:     l.Quantity,
			AveragePrice: l.Price,
		})
		c.Transactions = append(c.Transactions, NewTransaction(c.Portfolio.ID, on, InitialBuy, l.Ticker, l.Quantity, l.Price, ""))
	}
	if len(c.Positions) == 0 {
		return nil, errors.Join(ErrInvalidInput, errors.New("the plan buys nothing"))
	}
	return c, nil
}
