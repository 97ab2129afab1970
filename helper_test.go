package allocator

import "time"

// BRL is a helper for test to create reais from const
func BRL(v float64) Money { return M(v, "BRL") }

var (
	aggressive = Profile{ID: "aggressive", Name: "Aggressive", Equity: 60, IntlETF: 20, FixedIncome: 20}
	migratedOn = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func asset(ticker string, c Category, price float64) Asset {
	return Asset{Ticker: ticker, Category: c, Price: BRL(price)}
}

func position(ticker string, c Category, qty int, avg float64) Position {
	return Position{Ticker: ticker, Category: c, Quantity: Q(qty), AveragePrice: BRL(avg)}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// quantities returns the plan quantities by ticker.
func quantities(p *Plan) map[string]int64 {
	q := make(map[string]int64, len(p.Lines))
	for _, l := range p.Lines {
		q[l.Ticker] = l.Quantity.Int64()
	}
	return q
}
