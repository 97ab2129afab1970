package allocator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a percentage expressed in [0, 100].
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" {
		return "-"
	}
	return res
}

func (p Percent) decimal() decimal.Decimal { return newDecimal(float64(p)) }

// factor returns 1 + p/100.
func (p Percent) factor() decimal.Decimal {
	return decimal.NewFromInt(1).Add(p.decimal().Div(hundred))
}
