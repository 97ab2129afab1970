package allocator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Migration describes the replacement of a portfolio by a rebalanced one.
type Migration struct {
	Old          Portfolio
	OldPositions []Position
	// Profile is the profile of the new portfolio.
	Profile Profile
	// Plan holds the final quantity and purchase price of every kept or new asset.
	Plan *Plan
	// Contribution is the new cash brought in.
	Contribution Money
	// Sales are the explicit sale prices, by ticker, of the assets sold.
	Sales map[string]Money
	// Quotes are the latest known prices, by ticker.
	Quotes map[string]Money
	On     time.Time
}

// Move is what happens to one asset during a migration.
type Move struct {
	Ticker      string
	Category    Category
	Old         Quantity
	Transferred Quantity
	Bought      Quantity
	Sold        Quantity
	Final       Quantity
	// BuyPrice is the unit price of Bought units, SellPrice of Sold units.
	BuyPrice  Money
	SellPrice Money
	// OldAverage and Average are the average prices before and after.
	OldAverage Money
	Average    Money
}

// MigrationResult holds every record a migration writes. It must be persisted
// as a whole or not at all.
type MigrationResult struct {
	Portfolio    Portfolio
	Positions    []Position
	Transactions []Transaction
	// Closed is the old portfolio, inactive and linked to Portfolio.
	Closed Portfolio
	// Frozen are the old positions with their closing price.
	Frozen []Position
	// Sales are the REBALANCE_SELL transactions of the old portfolio.
	Sales []Transaction
	Moves []Move
}

// Purchases is the cost of every unit bought.
func (r *MigrationResult) Purchases() Money {
	var total Money
	for _, m := range r.Moves {
		total = total.Add(m.BuyPrice.Mul(m.Bought))
	}
	return total
}

// Proceeds is the value of every unit sold.
func (r *MigrationResult) Proceeds() Money {
	var total Money
	for _, t := range r.Sales {
		total = total.Add(t.Total)
	}
	return total
}

// Reconstruct classifies the change of every asset into transfers, buys and
// sells, computes the new average prices, and closes the old portfolio.
//
// For an asset held before with quantity old and planned at final:
//   - final > old: TRANSFER_IN(old) then ADDITIONAL_BUY(final-old), weighted average;
//   - final < old: TRANSFER_IN(final), REBALANCE_SELL(old-final) on the old portfolio, same average;
//   - final = old: TRANSFER_IN(final), same average.
//
// A new asset is an INITIAL_BUY at its plan price. An old asset absent from
// the plan is entirely sold.
func Reconstruct(m Migration) (*MigrationResult, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	next := Portfolio{
		ID:           uuid.NewString(),
		Name:         VersionName(m.Old.Name, m.On.Year()),
		ProfileID:    m.Profile.ID,
		InitialValue: m.Old.InitialValue.Add(m.Contribution),
		CreatedOn:    m.On,
		RebalancedOn: &m.On,
		Active:       true,
		OriginID:     m.Old.ID,
	}
	res := &MigrationResult{Portfolio: next}

	if m.Contribution.IsPositive() {
		res.Transactions = append(res.Transactions,
			NewTransaction(next.ID, m.On, AdditionalBuy, CashTicker, Q(1), m.Contribution, "contribution made during migration"))
	}

	planned := make(map[string]bool, len(m.Plan.Lines))
	for _, l := range m.Plan.Lines {
		planned[l.Ticker] = true
		mv := Move{Ticker: l.Ticker, Category: l.Category, Final: l.Quantity, BuyPrice: l.Price, Average: l.Price}
		old, held := findPosition(m.OldPositions, l.Ticker)
		if held {
			mv.Old, mv.OldAverage, mv.Average = old.Quantity, old.AveragePrice, old.AveragePrice
			switch l.Quantity.Cmp(old.Quantity) {
			case 1:
				mv.Transferred = old.Quantity
				mv.Bought = l.Quantity.Sub(old.Quantity)
				mv.Average = WeightedAverage(old.Quantity, old.AveragePrice, mv.Bought, l.Price)
			case -1:
				mv.Transferred = l.Quantity
				mv.Sold = old.Quantity.Sub(l.Quantity)
				mv.SellPrice = m.salePrice(l.Ticker, l.Price, old.AveragePrice)
			default:
				mv.Transferred = l.Quantity
			}
		} else {
			mv.Bought = l.Quantity
		}
		res.record(m, mv, held)
	}

	for _, old := range m.OldPositions {
		if planned[old.Ticker] || !old.Quantity.IsPositive() {
			continue
		}
		res.record(m, Move{
			Ticker:     old.Ticker,
			Category:   old.Category,
			Old:        old.Quantity,
			Sold:       old.Quantity,
			SellPrice:  m.salePrice(old.Ticker, Money{}, old.AveragePrice),
			OldAverage: old.AveragePrice,
			Average:    old.AveragePrice,
		}, true)
	}

	for _, old := range m.OldPositions {
		old.ClosingPrice = old.AveragePrice
		if q, ok := m.Quotes[old.Ticker]; ok && q.IsPositive() {
			old.ClosingPrice = q
		}
		res.Frozen = append(res.Frozen, old)
	}

	res.Closed = m.Old
	if err := res.Closed.Close(m.On, next.ID); err != nil {
		return nil, err
	}

	if err := res.check(m); err != nil {
		return nil, err
	}
	return res, nil
}

func (m Migration) validate() error {
	var errs []error
	if !m.Old.Active {
		return fmt.Errorf("%w: %q was already migrated", ErrPortfolioClosed, m.Old.Name)
	}
	if m.Plan == nil {
		errs = append(errs, errors.New("missing allocation plan"))
	}
	if m.Contribution.IsNegative() {
		errs = append(errs, fmt.Errorf("contribution %v is negative", m.Contribution))
	}
	if m.On.IsZero() {
		errs = append(errs, errors.New("missing migration date"))
	}
	if m.Plan != nil {
		for _, l := range m.Plan.Lines {
			if l.Quantity.IsNegative() {
				errs = append(errs, fmt.Errorf("ticker %q planned at a negative quantity", l.Ticker))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// salePrice resolves the price units of ticker are sold at: the explicit
// sale price, else the latest quote, else the plan price, else the average price.
func (m Migration) salePrice(ticker string, planned, average Money) Money {
	for _, p := range []Money{m.Sales[ticker], m.Quotes[ticker], planned} {
		if p.IsPositive() {
			return p
		}
	}
	return average
}

// record appends the position and transactions of a move.
func (r *MigrationResult) record(m Migration, mv Move, held bool) {
	r.Moves = append(r.Moves, mv)
	id := r.Portfolio.ID

	if mv.Final.IsPositive() {
		r.Positions = append(r.Positions, Position{
			ID:           uuid.NewString(),
			Ticker:       mv.Ticker,
			Category:     mv.Category,
			Quantity:     mv.Final,
			AveragePrice: mv.Average,
		})
	}
	if mv.Transferred.IsPositive() {
		r.Transactions = append(r.Transactions, NewTransaction(id, m.On, TransferIn, mv.Ticker, mv.Transferred, mv.OldAverage,
			fmt.Sprintf("transferred %v units from %q (average %v)", mv.Transferred, m.Old.Name, mv.OldAverage)))
	}
	if mv.Bought.IsPositive() {
		kind, note := InitialBuy, fmt.Sprintf("initial purchase of %v units at %v", mv.Bought, mv.BuyPrice)
		if held {
			kind, note = AdditionalBuy, fmt.Sprintf("additional purchase of %v units at %v (new average %v)", mv.Bought, mv.BuyPrice, mv.Average.Round(2))
		}
		r.Transactions = append(r.Transactions, NewTransaction(id, m.On, kind, mv.Ticker, mv.Bought, mv.BuyPrice, note))
	}
	if mv.Sold.IsPositive() {
		r.Sales = append(r.Sales, NewTransaction(m.Old.ID, m.On, RebalanceSell, mv.Ticker, mv.Sold, mv.SellPrice,
			fmt.Sprintf("sale of %v units at %v", mv.Sold, mv.SellPrice)))
	}
}

// check verifies quantities and cash are conserved.
func (r *MigrationResult) check(m Migration) error {
	var errs []error
	for _, mv := range r.Moves {
		if !mv.Transferred.Add(mv.Bought).Equal(mv.Final) {
			errs = append(errs, fmt.Errorf("%s: transferred %v + bought %v != final %v", mv.Ticker, mv.Transferred, mv.Bought, mv.Final))
		}
		if !mv.Transferred.Add(mv.Sold).Equal(mv.Old) && !mv.Old.IsZero() {
			errs = append(errs, fmt.Errorf("%s: transferred %v + sold %v != held %v", mv.Ticker, mv.Transferred, mv.Sold, mv.Old))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConservation, errors.Join(errs...))
	}

	available := m.Contribution.Add(r.Proceeds())
	if r.Purchases().GreaterThan(available) {
		return fmt.Errorf("%w: purchases %v exceed contribution and sales %v", ErrBudgetExceeded, r.Purchases(), available)
	}
	return nil
}
