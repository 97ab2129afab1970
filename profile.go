package allocator

import (
	"errors"
	"fmt"
)

// Profile is a target percentage split across the three categories.
type Profile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Equity      Percent `json:"equity"`
	IntlETF     Percent `json:"intl_etf"`
	FixedIncome Percent `json:"fixed_income_etf"`
}

// Pct returns the target percentage of a category.
func (p Profile) Pct(c Category) Percent {
	switch c {
	case Equity:
		return p.Equity
	case IntlETF:
		return p.IntlETF
	case FixedIncomeETF:
		return p.FixedIncome
	}
	return 0
}

// Validate checks every percentage lies in [0, 100] and that they sum to 100.
func (p Profile) Validate() error {
	var errs []error
	for _, c := range Categories {
		if v := p.Pct(c); v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("profile %q: %s percentage %v out of [0, 100]", p.Name, c, v))
		}
	}
	if sum := p.Equity + p.IntlETF + p.FixedIncome; !sum.Equal(100) {
		errs = append(errs, fmt.Errorf("profile %q: percentages sum to %v, want 100%%", p.Name, sum))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// ReferenceProfiles are the profiles available out of the box.
var ReferenceProfiles = []Profile{
	{ID: "conservative", Name: "Conservative", Equity: 20, IntlETF: 20, FixedIncome: 60},
	{ID: "moderate", Name: "Moderate", Equity: 40, IntlETF: 30, FixedIncome: 30},
	{ID: "aggressive", Name: "Aggressive", Equity: 60, IntlETF: 20, FixedIncome: 20},
}
