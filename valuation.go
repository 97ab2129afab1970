package allocator

// PriceSource tells where the price of a valued position came from.
type PriceSource int

const (
	// FromAverage means no quote was known: the position is valued at cost.
	FromAverage PriceSource = iota
	// FromClosing is the frozen price of a closed portfolio.
	FromClosing
	// FromManual is a price entered by the user for this portfolio.
	FromManual
	// FromMarket is a quote from a market data provider.
	FromMarket
)

func (s PriceSource) String() string {
	switch s {
	case FromClosing:
		return "closing"
	case FromManual:
		return "manual"
	case FromMarket:
		return "market"
	default:
		return "average"
	}
}

// ValuedPosition is a position with its market value.
type ValuedPosition struct {
	Position
	Price  Money
	Source PriceSource
	Value  Money
	Weight Percent
}

// Cost is the position cost basis.
func (v ValuedPosition) Cost() Money { return v.Position.Cost() }

// Gain is the unrealized gain.
func (v ValuedPosition) Gain() Money { return v.Value.Sub(v.Cost()) }

// Valuation is a portfolio valued at a point in time.
type Valuation struct {
	Portfolio Portfolio
	Lines     []ValuedPosition
	Value     Money
	Cost      Money
}

// Gain is the unrealized gain of the portfolio.
func (v *Valuation) Gain() Money { return v.Value.Sub(v.Cost) }

// Return is the unrealized gain relative to the cost.
func (v *Valuation) Return() Percent {
	r, ok := v.Gain().Ratio(v.Cost)
	if !ok {
		return 0
	}
	return Percent(r.Mul(hundred).InexactFloat64())
}

// Weight is the share of a category in the portfolio value.
func (v *Valuation) Weight(c Category) Percent {
	var w Percent
	for _, l := range v.Lines {
		if l.Category == c {
			w += l.Weight
		}
	}
	return w
}

// Value values the positions of a portfolio.
//
// A closed portfolio is frozen: each position is valued at its closing
// price, or its average price when none was recorded. An active portfolio
// uses the manual price, else the market quote, else the average price.
func Value(p Portfolio, positions []Position, manual, quotes map[string]Money) *Valuation {
	v := &Valuation{Portfolio: p}
	for _, pos := range positions {
		l := ValuedPosition{Position: pos, Price: pos.AveragePrice, Source: FromAverage}
		switch {
		case !p.Active:
			if pos.Frozen() {
				l.Price, l.Source = pos.ClosingPrice, FromClosing
			}
		case manual[pos.Ticker].IsPositive():
			l.Price, l.Source = manual[pos.Ticker], FromManual
		case quotes[pos.Ticker].IsPositive():
			l.Price, l.Source = quotes[pos.Ticker], FromMarket
		}
		l.Value = l.Price.Mul(pos.Quantity)
		v.Value = v.Value.Add(l.Value)
		v.Cost = v.Cost.Add(pos.Cost())
		v.Lines = append(v.Lines, l)
	}
	for i := range v.Lines {
		if r, ok := v.Lines[i].Value.Ratio(v.Value); ok {
			v.Lines[i].Weight = Percent(r.Mul(hundred).InexactFloat64())
		}
	}
	return v
}
