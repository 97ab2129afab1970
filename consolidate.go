package allocator

import (
	"fmt"
	"slices"
)

// PortfolioShare is one portfolio in a consolidation.
type PortfolioShare struct {
	Portfolio Portfolio `json:"portfolio"`
	Value     Money     `json:"value"`
	Cost      Money     `json:"cost"`
	Positions int       `json:"positions"`
	// Share is the part of the consolidated value held by this portfolio.
	Share Percent `json:"share"`
}

// CategoryTotal is the value held in one category across portfolios.
type CategoryTotal struct {
	Category Category `json:"category"`
	Value    Money    `json:"value"`
	Weight   Percent  `json:"weight"`
}

// Consolidation is the sum of several valued portfolios.
type Consolidation struct {
	Value      Money            `json:"value"`
	Cost       Money            `json:"cost"`
	Portfolios []PortfolioShare `json:"portfolios"`
	// Categories holds the categories with a value, largest first.
	Categories []CategoryTotal `json:"categories"`
	// Tickers is the number of distinct assets held.
	Tickers int `json:"tickers"`
}

// Gain is the unrealized gain of all the portfolios.
func (c *Consolidation) Gain() Money { return c.Value.Sub(c.Cost) }

// Dominant is the category holding the most value, if any.
func (c *Consolidation) Dominant() (CategoryTotal, bool) {
	if len(c.Categories) == 0 {
		return CategoryTotal{}, false
	}
	return c.Categories[0], true
}

// Consolidate sums valuations expressed in currency. A valuation in another
// currency cannot be added and fails with ErrInvalidInput.
func Consolidate(valuations []*Valuation, currency string) (*Consolidation, error) {
	zero := M(0, currency)
	c := &Consolidation{Value: zero, Cost: zero}
	byCategory := map[Category]Money{}
	tickers := map[string]bool{}
	for _, v := range valuations {
		for _, m := range []Money{v.Value, v.Cost} {
			if m.Currency() != "" && m.Currency() != currency {
				return nil, fmt.Errorf("%w: portfolio %q is valued in %s, not %s", ErrInvalidInput, v.Portfolio.Name, m.Currency(), currency)
			}
		}
		c.Value = c.Value.Add(v.Value)
		c.Cost = c.Cost.Add(v.Cost)
		c.Portfolios = append(c.Portfolios, PortfolioShare{Portfolio: v.Portfolio, Value: zero.Add(v.Value), Cost: zero.Add(v.Cost), Positions: len(v.Lines)})
		for _, l := range v.Lines {
			byCategory[l.Category] = byCategory[l.Category].Add(l.Value)
			tickers[l.Ticker] = true
		}
	}
	c.Tickers = len(tickers)

	for i := range c.Portfolios {
		if r, ok := c.Portfolios[i].Value.Ratio(c.Value); ok {
			c.Portfolios[i].Share = Percent(r.Mul(hundred).InexactFloat64())
		}
	}
	for _, cat := range Categories {
		value, ok := byCategory[cat]
		if !ok {
			continue
		}
		t := CategoryTotal{Category: cat, Value: zero.Add(value)}
		if r, ok := value.Ratio(c.Value); ok {
			t.Weight = Percent(r.Mul(hundred).InexactFloat64())
		}
		c.Categories = append(c.Categories, t)
	}
	slices.SortStableFunc(c.Categories, func(a, b CategoryTotal) int { return b.Value.Cmp(a.Value) })
	return c, nil
}
