package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/allocator"
)

// MigrationMarkdown renders what a migration does to every asset.
func MigrationMarkdown(r *allocator.MigrationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Rebalance of %s\n\n", r.Closed.Name)
	fmt.Fprintf(&b, "*%s* is closed and replaced by *%s* on %s.\n\n", r.Closed.Name, r.Portfolio.Name, date(*r.Closed.ClosedOn))

	var contribution allocator.Money
	for _, tx := range r.Transactions {
		if tx.Ticker == allocator.CashTicker {
			contribution = tx.Total
		}
	}
	table(&b, "lr", []string{"**Initial Value**", "**" + r.Portfolio.InitialValue.String() + "**"}, [][]string{
		{"Contribution", contribution.String()},
		{"Purchases", r.Purchases().String()},
		{"Sales", r.Proceeds().String()},
		{"Cash Left", contribution.Add(r.Proceeds()).Sub(r.Purchases()).String()},
	})

	fmt.Fprintf(&b, "## Moves\n\n")
	var rows [][]string
	for _, mv := range r.Moves {
		average := mv.Average.Round(2).String()
		if !mv.Average.Equal(mv.OldAverage) && mv.Old.IsPositive() {
			average = mv.OldAverage.Round(2).String() + " → " + average
		}
		rows = append(rows, []string{mv.Ticker, mv.Old.String(), mv.Transferred.String(), signed(mv.Bought), signed(allocator.Q(0).Sub(mv.Sold)), mv.Final.String(), average})
	}
	table(&b, "lrrrrrr", []string{"Ticker", "Held", "Transferred", "Bought", "Sold", "Final", "Average Price"}, rows)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "## Sales\n\n")
		for i, tx := range r.Sales {
			fmt.Fprintf(w, "%d. %s\n", i+1, Transaction(tx))
		}
		fmt.Fprintln(w)
		return len(r.Sales) > 0
	})
	return b.String()
}
