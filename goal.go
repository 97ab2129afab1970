package allocator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxProjectionYears bounds the horizon of a projection.
const MaxProjectionYears = 100

// Goal is the wealth a portfolio should reach, optionally by a date.
type Goal struct {
	PortfolioID string
	Target      Money
	Date        *time.Time
}

// NewGoal validates a goal. A nil date means no deadline.
func NewGoal(portfolioID string, target Money, date *time.Time) (Goal, error) {
	if !target.IsPositive() {
		return Goal{}, fmt.Errorf("%w: goal %v is not positive", ErrInvalidInput, target)
	}
	if date != nil && date.IsZero() {
		date = nil
	}
	return Goal{PortfolioID: portfolioID, Target: target, Date: date}, nil
}

// Progress is the share of the target value amounts to, capped at 100%.
func (g Goal) Progress(value Money) Percent {
	r, ok := value.Ratio(g.Target)
	if !ok || r.IsNegative() {
		return 0
	}
	return Percent(math.Min(r.Mul(hundred).InexactFloat64(), 100))
}

func (g Goal) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("portfolio", g.PortfolioID)
	w.Append("target", g.Target)
	if g.Date != nil {
		w.Append("date", g.Date.Format(time.DateOnly))
	}
	return w.MarshalJSON()
}

func (g *Goal) UnmarshalJSON(data []byte) error {
	var j struct {
		Portfolio string `json:"portfolio"`
		Target    Money  `json:"target"`
		Date      string `json:"date"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*g = Goal{PortfolioID: j.Portfolio, Target: j.Target}
	if j.Date != "" {
		on, err := time.Parse(time.DateOnly, j.Date)
		if err != nil {
			return fmt.Errorf("invalid goal date %q: %w", j.Date, err)
		}
		g.Date = &on
	}
	return nil
}

// ProjectionPoint is the projected wealth at the start of a year.
type ProjectionPoint struct {
	Year     int   `json:"year"`
	Balance  Money `json:"balance"`
	Invested Money `json:"invested"`
	Interest Money `json:"interest"`
}

// monthlyRate is the rate that compounds to annual over 12 months.
func monthlyRate(annual Percent) decimal.Decimal {
	return newDecimal(math.Pow(1+float64(annual)/100, 1.0/12) - 1)
}

func validateProjection(monthly Money, annual Percent, years int) error {
	var errs []error
	if monthly.IsNegative() {
		errs = append(errs, fmt.Errorf("monthly contribution %v is negative", monthly))
	}
	if annual <= -100 {
		errs = append(errs, fmt.Errorf("annual rate %v must be above -100%%", annual))
	}
	if years < 0 || years > MaxProjectionYears {
		errs = append(errs, fmt.Errorf("%d years out of [0, %d]", years, MaxProjectionYears))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Project compounds start every month at the monthly equivalent of annual,
// adding monthly at the end of each month. It returns one point per year from
// year from to from+years, the first one being start itself.
func Project(start, monthly Money, annual Percent, years, from int) ([]ProjectionPoint, error) {
	if err := validateProjection(monthly, annual, years); err != nil {
		return nil, err
	}
	factor := decimal.NewFromInt(1).Add(monthlyRate(annual))
	currency := cur(start, monthly)
	balance, invested := start.value, start.value

	points := make([]ProjectionPoint, 0, years+1)
	for y := 0; y <= years; y++ {
		b := Money{value: balance.Round(2), cur: currency}
		i := Money{value: invested.Round(2), cur: currency}
		points = append(points, ProjectionPoint{Year: from + y, Balance: b, Invested: i, Interest: b.Sub(i)})
		for m := 0; m < 12; m++ {
			// rounded to keep the precision bounded over long horizons
			balance = balance.Mul(factor).Add(monthly.value).Round(10)
			invested = invested.Add(monthly.value)
		}
	}
	return points, nil
}

// RequiredMonthly is the monthly contribution that grows current into target
// in months at annual. It is zero when growth alone gets there, and ok is
// false when months is not positive.
func RequiredMonthly(current, target Money, annual Percent, months int) (Money, bool) {
	currency := cur(current, target)
	if months <= 0 {
		return Money{cur: currency}, false
	}
	m := monthlyRate(annual)
	growth := newDecimal(math.Pow(decimal.NewFromInt(1).Add(m).InexactFloat64(), float64(months)))
	gap := target.value.Sub(current.value.Mul(growth))
	if !gap.IsPositive() {
		return Money{cur: currency}, true
	}
	var pmt decimal.Decimal
	if m.IsZero() || growth.Equal(decimal.NewFromInt(1)) {
		pmt = gap.Div(decimal.NewFromInt(int64(months)))
	} else {
		pmt = gap.Mul(m).Div(growth.Sub(decimal.NewFromInt(1)))
	}
	return Money{value: pmt.Round(2), cur: currency}, true
}

// MonthsUntil counts the whole months from from to to, zero when to is not
// after from.
func MonthsUntil(from, to time.Time) int {
	n := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		n--
	}
	return max(n, 0)
}

// Forecast is the outlook of a portfolio: its progress towards its goal and
// the projection of its value under a contribution plan.
type Forecast struct {
	Value   Money   `json:"value"`
	Monthly Money   `json:"monthly"`
	Rate    Percent `json:"rate"`
	Goal    *Goal   `json:"goal,omitempty"`
	// Progress is the share of the goal already reached.
	Progress Percent `json:"progress"`
	// Months is the time left until the goal date, zero without one.
	Months int `json:"months,omitempty"`
	// Required is the monthly contribution reaching the goal by its date.
	Required Money `json:"required,omitzero"`
	// ReachedIn is the first projected year at or above the goal, zero if none.
	ReachedIn  int               `json:"reached_in,omitempty"`
	Projection []ProjectionPoint `json:"projection"`
}

// NewForecast projects value over years from on, contributing monthly at
// annual, and measures it against goal when there is one.
func NewForecast(value Money, goal *Goal, monthly Money, annual Percent, years int, on time.Time) (*Forecast, error) {
	points, err := Project(value, monthly, annual, years, on.Year())
	if err != nil {
		return nil, err
	}
	f := &Forecast{Value: value, Monthly: monthly, Rate: annual, Goal: goal, Projection: points}
	if goal == nil {
		return f, nil
	}
	f.Progress = goal.Progress(value)
	for _, p := range points {
		if p.Balance.GreaterThanOrEqual(goal.Target) {
			f.ReachedIn = p.Year
			break
		}
	}
	if goal.Date != nil {
		f.Months = MonthsUntil(on, *goal.Date)
		f.Required, _ = RequiredMonthly(value, goal.Target, annual, f.Months)
	}
	return f, nil
}
