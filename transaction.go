package allocator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionKind identifies what a transaction records.
type TransactionKind int

const (
	// InitialBuy is the first purchase of an asset in a portfolio.
	InitialBuy TransactionKind = iota + 1
	// AdditionalBuy increases an existing holding, or records a cash contribution.
	AdditionalBuy
	// TransferIn carries units over from the portfolio a migration closed.
	TransferIn
	// RebalanceBuy is a purchase made by a rebalance outside of a migration.
	RebalanceBuy
	// RebalanceSell is a sale made by a rebalance.
	RebalanceSell
)

// CashTicker is the pseudo ticker of cash contributions.
const CashTicker = "CASH"

func (k TransactionKind) String() string {
	switch k {
	case InitialBuy:
		return "INITIAL_BUY"
	case AdditionalBuy:
		return "ADDITIONAL_BUY"
	case TransferIn:
		return "TRANSFER_IN"
	case RebalanceBuy:
		return "REBALANCE_BUY"
	case RebalanceSell:
		return "REBALANCE_SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseTransactionKind parses a string into a TransactionKind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch s {
	case "INITIAL_BUY":
		return InitialBuy, nil
	case "ADDITIONAL_BUY":
		return AdditionalBuy, nil
	case "TRANSFER_IN":
		return TransferIn, nil
	case "REBALANCE_BUY":
		return RebalanceBuy, nil
	case "REBALANCE_SELL":
		return RebalanceSell, nil
	default:
		return 0, fmt.Errorf("unknown transaction kind: %q", s)
	}
}

func (k TransactionKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *TransactionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTransactionKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Transaction is an immutable record appended to a portfolio history.
type Transaction struct {
	ID          string
	PortfolioID string
	Date        time.Time
	Ticker      string
	Kind        TransactionKind
	Quantity    Quantity
	UnitPrice   Money
	Total       Money
	Note        string
}

// NewTransaction records quantity units of ticker at unitPrice.
func NewTransaction(portfolioID string, on time.Time, kind TransactionKind, ticker string, quantity Quantity, unitPrice Money, note string) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Date:        on,
		Ticker:      ticker,
		Kind:        kind,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       unitPrice.Mul(quantity),
		Note:        note,
	}
}

// IsBuy reports whether the transaction adds units.
func (t Transaction) IsBuy() bool { return t.Kind != RebalanceSell }

// MarshalJSON writes the fields in a stable order.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", t.ID)
	w.Optional("portfolio", t.PortfolioID)
	w.Append("date", t.Date.Format(time.DateOnly))
	w.Append("kind", t.Kind)
	w.Append("ticker", t.Ticker)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.UnitPrice.Exact())
	w.Append("total", t.Total)
	w.Optional("note", t.Note)
	return w.MarshalJSON()
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j struct {
		ID        string          `json:"id"`
		Portfolio string          `json:"portfolio"`
		Date      string          `json:"date"`
		Kind      TransactionKind `json:"kind"`
		Ticker    string          `json:"ticker"`
		Quantity  Quantity        `json:"quantity"`
		Price     Money           `json:"price"`
		Total     Money           `json:"total"`
		Note      string          `json:"note"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	on, err := time.Parse(time.DateOnly, j.Date)
	if err != nil {
		return fmt.Errorf("invalid transaction date %q: %w", j.Date, err)
	}
	*t = Transaction{
		ID:          j.ID,
		PortfolioID: j.Portfolio,
		Date:        on,
		Ticker:      j.Ticker,
		Kind:        j.Kind,
		Quantity:    j.Quantity,
		UnitPrice:   j.Price,
		Total:       j.Total,
		Note:        j.Note,
	}
	return nil
}
