package allocator

import "errors"

var (
	// ErrInvalidInput reports a request that cannot be allocated: non-positive
	// capital, malformed profile percentages, duplicate or unpriced tickers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBudgetExceeded reports purchases that cost more than the available capital.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrConservation reports a migration whose quantities do not add up.
	ErrConservation = errors.New("quantity conservation violated")

	// ErrPortfolioClosed reports a write attempt on an inactive portfolio.
	ErrPortfolioClosed = errors.New("portfolio is closed")
)
