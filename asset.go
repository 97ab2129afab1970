package allocator

// Asset is an asset selected for allocation, with its current unit price.
// A zero price means the price is unknown: the asset gets no quantity and is
// never bought by the greedy fill.
type Asset struct {
	Ticker   string   `json:"ticker"`
	Category Category `json:"category"`
	Price    Money    `json:"price"`
}

// priced reports whether the asset price is known.
func (a Asset) priced() bool { return a.Price.IsPositive() }

// Position is a holding of a portfolio. It changes only through purchase and
// sale events. ClosingPrice is set once when the owning portfolio is closed.
type Position struct {
	ID           string   `json:"id,omitempty"`
	Ticker       string   `json:"ticker"`
	Category     Category `json:"category"`
	Quantity     Quantity `json:"quantity"`
	AveragePrice Money    `json:"average_price"`
	ClosingPrice Money    `json:"closing_price,omitzero"`
}

// Cost returns the position cost basis.
func (p Position) Cost() Money { return p.AveragePrice.Mul(p.Quantity) }

// Frozen reports whether the position has a recorded closing price.
func (p Position) Frozen() bool { return p.ClosingPrice.IsPositive() }

// findPosition returns the position for ticker, if any.
func findPosition(positions []Position, ticker string) (Position, bool) {
	for _, p := range positions {
		if p.Ticker == ticker {
			return p, true
		}
	}
	return Position{}, false
}
