package renderer

import (
	"fmt"

	"github.com/etnz/allocator"
)

// Transaction renders a transaction to a string.
func Transaction(tx allocator.Transaction) string {
	switch tx.Kind {
	case allocator.InitialBuy:
		return fmt.Sprintf("Bought %s of %s at %s for %s", tx.Quantity, tx.Ticker, tx.UnitPrice, tx.Total)
	case allocator.AdditionalBuy:
		if tx.Ticker == allocator.CashTicker {
			return fmt.Sprintf("Contributed %s", tx.Total)
		}
		return fmt.Sprintf("Bought %s more %s at %s for %s", tx.Quantity, tx.Ticker, tx.UnitPrice, tx.Total)
	case allocator.TransferIn:
		return fmt.Sprintf("Transferred %s of %s at an average of %s", tx.Quantity, tx.Ticker, tx.UnitPrice)
	case allocator.RebalanceSell:
		return fmt.Sprintf("Sold %s of %s at %s for %s", tx.Quantity, tx.Ticker, tx.UnitPrice, tx.Total)
	default:
		return tx.Kind.String()
	}
}
