package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/allocator"
)

// PortfolioMarkdown renders a valued portfolio against its profile.
func PortfolioMarkdown(v *allocator.Valuation, profile allocator.Profile) string {
	p := v.Portfolio
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Name)

	status := fmt.Sprintf("Active since %s", date(p.CreatedOn))
	if !p.Active && p.ClosedOn != nil {
		status = fmt.Sprintf("Closed on %s, valued at its closing prices", date(*p.ClosedOn))
	}
	fmt.Fprintf(&b, "%s. Profile **%s** (%s).\n\n", status, profile.Name, profileMix(profile))
	if p.Notes != "" {
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(p.Notes, "\n", "\n> "))
	}

	table(&b, "lrr", []string{"**Value**", "**" + v.Value.String() + "**", ""}, [][]string{
		{"Cost", v.Cost.String(), ""},
		{"Unrealized Gain", v.Gain().SignedString(), v.Return().SignedString()},
		{"Initial Value", p.InitialValue.String(), ""},
	})

	fmt.Fprintf(&b, "## Categories\n\n")
	var rows [][]string
	for _, c := range allocator.Categories {
		drift := v.Weight(c) - profile.Pct(c)
		rows = append(rows, []string{category(c), profile.Pct(c).String(), v.Weight(c).String(), drift.SignedString()})
	}
	table(&b, "lrrr", []string{"Category", "Target", "Actual", "Drift"}, rows)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "## Positions\n\n")
		var rows [][]string
		for _, l := range v.Lines {
			rows = append(rows, []string{
				l.Ticker,
				category(l.Category),
				l.Quantity.String(),
				l.AveragePrice.Round(2).String(),
				fmt.Sprintf("%s (%s)", l.Price, l.Source),
				l.Value.String(),
				l.Gain().SignedString(),
				l.Weight.String(),
			})
		}
		table(w, "llrrrrrr", []string{"Ticker", "Category", "Quantity", "Average Price", "Price", "Value", "Gain", "Weight"}, rows)
		return len(v.Lines) > 0
	})
	return b.String()
}

// PortfoliosMarkdown renders a list of portfolios.
func PortfoliosMarkdown(portfolios []allocator.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolios\n\n")
	var rows [][]string
	for _, p := range portfolios {
		status := "active"
		if !p.Active {
			status = "closed"
		}
		rows = append(rows, []string{p.ID, cell(p.Name), p.ProfileID, p.InitialValue.String(), date(p.CreatedOn), status})
	}
	table(&b, "lllrlc", []string{"ID", "Name", "Profile", "Initial Value", "Created", "Status"}, rows)
	return b.String()
}
