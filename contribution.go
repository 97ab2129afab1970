package allocator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Buy is a purchase made with a contribution.
type Buy struct {
	Ticker   string   `json:"ticker"`
	Category Category `json:"category"`
	Quantity Quantity `json:"quantity"`
	Price    Money    `json:"price"`
}

// Contribution is the outcome of a contribution: the positions to write and
// the ADDITIONAL_BUY transactions to append.
type Contribution struct {
	Positions    []Position
	Transactions []Transaction
}

// Contribute applies buys to the positions of an active portfolio. Existing
// positions get their weighted average price; unknown tickers open a new
// position at the purchase price. Only the changed positions are returned.
func Contribute(p Portfolio, positions []Position, buys []Buy, on time.Time) (*Contribution, error) {
	if !p.Active {
		return nil, fmt.Errorf("%w: %q", ErrPortfolioClosed, p.Name)
	}
	var errs []error
	for _, b := range buys {
		if !b.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("ticker %q: quantity %v is not positive", b.Ticker, b.Quantity))
		}
		if !b.Price.IsPositive() {
			errs = append(errs, fmt.Errorf("ticker %q: price %v is not positive", b.Ticker, b.Price))
		}
	}
	if len(buys) == 0 {
		errs = append(errs, errors.New("nothing to buy"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}

	changed := make(map[string]int)
	c := &Contribution{}
	for _, b := range buys {
		i, ok := changed[b.Ticker]
		if !ok {
			pos, held := findPosition(positions, b.Ticker)
			if !held {
				if !b.Category.Valid() {
					return nil, fmt.Errorf("%w: new ticker %q has no category", ErrInvalidInput, b.Ticker)
				}
				pos = Position{ID: uuid.NewString(), Ticker: b.Ticker, Category: b.Category}
			}
			c.Positions = append(c.Positions, pos)
			i = len(c.Positions) - 1
			changed[b.Ticker] = i
		}
		pos := &c.Positions[i]
		pos.AveragePrice = WeightedAverage(pos.Quantity, pos.AveragePrice, b.Quantity, b.Price)
		pos.Quantity = pos.Quantity.Add(b.Quantity)
		c.Transactions = append(c.Transactions, NewTransaction(p.ID, on, AdditionalBuy, b.Ticker, b.Quantity, b.Price, "contribution"))
	}
	return c, nil
}

// Total is the cash spent by the contribution.
func (c *Contribution) Total() Money {
	var total Money
	for _, t := range c.Transactions {
		total = total.Add(t.Total)
	}
	return total
}
