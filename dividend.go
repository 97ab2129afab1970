package allocator

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dividend is an income paid by an asset held in a portfolio. Reinvested is
// informative: recording a dividend never changes a position.
type Dividend struct {
	ID          string
	PortfolioID string
	Ticker      string
	Amount      Money
	Date        time.Time
	Reinvested  bool
}

// NewDividend records amount paid by ticker on a date.
func NewDividend(portfolioID, ticker string, amount Money, on time.Time, reinvested bool) (Dividend, error) {
	d := Dividend{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Ticker:      strings.ToUpper(strings.TrimSpace(ticker)),
		Amount:      amount,
		Date:        on,
		Reinvested:  reinvested,
	}
	var errs []error
	if d.Ticker == "" {
		errs = append(errs, errors.New("dividend without ticker"))
	}
	if !amount.IsPositive() {
		errs = append(errs, fmt.Errorf("dividend amount %v is not positive", amount))
	}
	if on.IsZero() {
		errs = append(errs, errors.New("dividend without date"))
	}
	if len(errs) > 0 {
		return Dividend{}, fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return d, nil
}

func (d Dividend) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", d.ID)
	w.Optional("portfolio", d.PortfolioID)
	w.Append("date", d.Date.Format(time.DateOnly))
	w.Append("ticker", d.Ticker)
	w.Append("amount", d.Amount)
	w.Append("reinvested", d.Reinvested)
	return w.MarshalJSON()
}

func (d *Dividend) UnmarshalJSON(data []byte) error {
	var j struct {
		ID         string `json:"id"`
		Portfolio  string `json:"portfolio"`
		Date       string `json:"date"`
		Ticker     string `json:"ticker"`
		Amount     Money  `json:"amount"`
		Reinvested bool   `json:"reinvested"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	on, err := time.Parse(time.DateOnly, j.Date)
	if err != nil {
		return fmt.Errorf("invalid dividend date %q: %w", j.Date, err)
	}
	*d = Dividend{ID: j.ID, PortfolioID: j.Portfolio, Ticker: j.Ticker, Amount: j.Amount, Date: on, Reinvested: j.Reinvested}
	return nil
}

// TickerIncome is what one held asset paid in the current year.
type TickerIncome struct {
	Ticker string  `json:"ticker"`
	Amount Money   `json:"amount"`
	Cost   Money   `json:"cost"`
	Yield  Percent `json:"yield"`
}

// MonthlyIncome is what a portfolio received in one calendar month.
type MonthlyIncome struct {
	Month  time.Time `json:"month"`
	Amount Money     `json:"amount"`
}

// Income summarizes the dividends of a portfolio at a date.
type Income struct {
	Month Money `json:"month"`
	Year  Money `json:"year"`
	Total Money `json:"total"`
	// Invested is the cost basis of the positions.
	Invested Money `json:"invested"`
	// Yield is the income of the year relative to Invested.
	Yield Percent `json:"yield"`
	// Tickers lists the held assets that paid this year, best yield first.
	Tickers []TickerIncome `json:"tickers"`
	// Monthly covers the last 12 months, oldest first, the current month last.
	Monthly []MonthlyIncome `json:"monthly"`
	// Projection is the annual income expected at the pace of the last 12 months.
	Projection Money `json:"projection"`
}

// SummarizeIncome totals dividends by month, year and asset as of on, and
// measures them against the cost of positions.
func SummarizeIncome(dividends []Dividend, positions []Position, on time.Time, currency string) *Income {
	zero := M(0, currency)
	in := &Income{Month: zero, Year: zero, Total: zero, Invested: zero, Projection: zero}

	thisMonth := time.Date(on.Year(), on.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 11; i >= 0; i-- {
		in.Monthly = append(in.Monthly, MonthlyIncome{Month: thisMonth.AddDate(0, -i, 0), Amount: zero})
	}
	first := in.Monthly[0].Month

	byTicker := map[string]Money{}
	for _, d := range dividends {
		in.Total = in.Total.Add(d.Amount)
		if d.Date.Year() == on.Year() {
			in.Year = in.Year.Add(d.Amount)
			byTicker[d.Ticker] = byTicker[d.Ticker].Add(d.Amount)
			if d.Date.Month() == on.Month() {
				in.Month = in.Month.Add(d.Amount)
			}
		}
		month := time.Date(d.Date.Year(), d.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if month.Before(first) || month.After(thisMonth) {
			continue
		}
		i := (month.Year()-first.Year())*12 + int(month.Month()) - int(first.Month())
		in.Monthly[i].Amount = in.Monthly[i].Amount.Add(d.Amount)
		in.Projection = in.Projection.Add(d.Amount)
	}

	for _, p := range positions {
		in.Invested = in.Invested.Add(p.Cost())
	}
	if r, ok := in.Year.Ratio(in.Invested); ok {
		in.Yield = Percent(r.Mul(hundred).InexactFloat64())
	}

	for _, p := range positions {
		paid := byTicker[p.Ticker]
		if !paid.IsPositive() {
			continue
		}
		t := TickerIncome{Ticker: p.Ticker, Amount: paid, Cost: p.Cost()}
		if r, ok := paid.Ratio(t.Cost); ok {
			t.Yield = Percent(r.Mul(hundred).InexactFloat64())
		}
		in.Tickers = append(in.Tickers, t)
	}
	slices.SortStableFunc(in.Tickers, func(a, b TickerIncome) int {
		switch {
		case a.Yield > b.Yield:
			return -1
		case a.Yield < b.Yield:
			return 1
		}
		return 0
	})
	return in
}
