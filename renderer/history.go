package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/allocator"
)

// HistoryMarkdown renders the transactions of a lineage of portfolios,
// oldest portfolio first.
func HistoryMarkdown(lineage []allocator.Portfolio, txs []allocator.Transaction) string {
	byPortfolio := make(map[string][]allocator.Transaction)
	for _, tx := range txs {
		byPortfolio[tx.PortfolioID] = append(byPortfolio[tx.PortfolioID], tx)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# History\n\n")
	for _, p := range lineage {
		fmt.Fprintf(&b, "## %s\n\n", p.Name)
		if len(byPortfolio[p.ID]) == 0 {
			fmt.Fprintf(&b, "No transaction.\n\n")
			continue
		}
		var rows [][]string
		for _, tx := range byPortfolio[p.ID] {
			rows = append(rows, []string{date(tx.Date), tx.Kind.String(), tx.Ticker, tx.Quantity.String(), tx.UnitPrice.String(), tx.Total.String(), cell(tx.Note)})
		}
		table(&b, "lllrrrl", []string{"Date", "Kind", "Ticker", "Quantity", "Unit Price", "Total", "Note"}, rows)
	}
	return b.String()
}
