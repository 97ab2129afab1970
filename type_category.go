package allocator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the asset class an asset is allocated in.
type Category int

const (
	// Equity is a single listed stock.
	Equity Category = iota + 1
	// IntlETF is an ETF tracking international markets.
	IntlETF
	// FixedIncomeETF is an ETF tracking fixed income.
	FixedIncomeETF
)

// Categories lists every category in allocation order.
var Categories = []Category{Equity, IntlETF, FixedIncomeETF}

func (c Category) String() string {
	switch c {
	case Equity:
		return "EQUITY"
	case IntlETF:
		return "INTL_ETF"
	case FixedIncomeETF:
		return "FIXED_INCOME_ETF"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return c >= Equity && c <= FixedIncomeETF }

// ParseCategory parses a category name. Legacy labels ACAO, ETF_INTER and
// ETF_RF are accepted too.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY", "ACAO", "STOCK":
		return Equity, nil
	case "INTL_ETF", "ETF_INTER":
		return IntlETF, nil
	case "FIXED_INCOME_ETF", "ETF_RF":
		return FixedIncomeETF, nil
	default:
		return 0, fmt.Errorf("unknown category: %q", s)
	}
}

func (c Category) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
