package allocator

import (
	"errors"
	"fmt"
)

// Request is the input of an allocation run.
type Request struct {
	Profile Profile
	// Capital is the cash to invest: the new contribution plus the proceeds of
	// assets sold outside of the plan.
	Capital Money
	// Assets are the selected assets, in allocation order.
	Assets []Asset
	// Holdings are the positions carried over from an existing portfolio.
	Holdings []Position
}

// Validate rejects requests the engine cannot allocate.
func (r Request) Validate() error {
	var errs []error
	if err := r.Profile.Validate(); err != nil {
		errs = append(errs, err)
	}
	if r.Capital.IsNegative() {
		errs = append(errs, fmt.Errorf("capital %v is negative", r.Capital))
	}
	if r.Capital.IsZero() && len(r.Holdings) == 0 {
		errs = append(errs, errors.New("capital must be positive"))
	}
	if len(r.Assets) == 0 {
		errs = append(errs, errors.New("no asset selected"))
	}
	seen := make(map[string]bool, len(r.Assets))
	for _, a := range r.Assets {
		switch {
		case a.Ticker == "":
			errs = append(errs, errors.New("asset without ticker"))
		case seen[a.Ticker]:
			errs = append(errs, fmt.Errorf("ticker %q selected twice", a.Ticker))
		case !a.Category.Valid():
			errs = append(errs, fmt.Errorf("ticker %q has no category", a.Ticker))
		case a.Price.IsNegative():
			errs = append(errs, fmt.Errorf("ticker %q has a negative price %v", a.Ticker, a.Price))
		}
		seen[a.Ticker] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// PlanLine is the allocation of one asset.
type PlanLine struct {
	Ticker   string   `json:"ticker"`
	Category Category `json:"category"`
	Price    Money    `json:"price"`
	// Target is the value this asset should be worth.
	Target Money `json:"target"`
	// Start is the quantity held before the plan.
	Start Quantity `json:"start"`
	// Quantity is the planned quantity.
	Quantity Quantity `json:"quantity"`
	New      bool     `json:"new"`
}

// Invested is the value of the planned quantity.
func (l PlanLine) Invested() Money { return l.Price.Mul(l.Quantity) }

// Delta is the planned change of quantity: positive to buy, negative to sell.
func (l PlanLine) Delta() Quantity { return l.Quantity.Sub(l.Start) }

// Gap is the value still missing to reach the target.
func (l PlanLine) Gap() Money { return l.Target.Sub(l.Invested()) }

// Plan is the outcome of an allocation run.
type Plan struct {
	Strategy string     `json:"strategy"`
	Capital  Money      `json:"capital"`
	Lines    []PlanLine `json:"lines"`
	// Iterations is the number of units bought by the greedy fill.
	Iterations int `json:"iterations"`
	// Capped is set when the greedy fill stopped on its iteration cap.
	Capped bool `json:"capped,omitempty"`
}

// Invested is the value of every planned quantity.
func (p *Plan) Invested() Money {
	total := Money{cur: p.Capital.cur}
	for _, l := range p.Lines {
		total = total.Add(l.Invested())
	}
	return total
}

// Purchases is the cost of every quantity increase.
func (p *Plan) Purchases() Money {
	total := Money{cur: p.Capital.cur}
	for _, l := range p.Lines {
		if d := l.Delta(); d.IsPositive() {
			total = total.Add(l.Price.Mul(d))
		}
	}
	return total
}

// Proceeds is the value of every quantity decrease.
func (p *Plan) Proceeds() Money {
	total := Money{cur: p.Capital.cur}
	for _, l := range p.Lines {
		if d := l.Delta(); d.IsNegative() {
			total = total.Sub(l.Price.Mul(d))
		}
	}
	return total
}

// Leftover is the cash left once the plan is executed. It is never negative
// for plans produced by the strategies.
func (p *Plan) Leftover() Money {
	return p.Capital.Add(p.Proceeds()).Sub(p.Purchases())
}

// Line returns the line for ticker.
func (p *Plan) Line(ticker string) (PlanLine, bool) {
	for _, l := range p.Lines {
		if l.Ticker == ticker {
			return l, true
		}
	}
	return PlanLine{}, false
}

// CategoryValue is the planned value of a category.
func (p *Plan) CategoryValue(c Category) Money {
	total := Money{cur: p.Capital.cur}
	for _, l := range p.Lines {
		if l.Category == c {
			total = total.Add(l.Invested())
		}
	}
	return total
}

// Weight returns the planned share of a category in the invested value.
func (p *Plan) Weight(c Category) Percent {
	r, ok := p.CategoryValue(c).Ratio(p.Invested())
	if !ok {
		return 0
	}
	return Percent(r.Mul(hundred).InexactFloat64())
}
