package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/allocator"
)

// DividendsMarkdown renders the dividends of a portfolio and their summary.
func DividendsMarkdown(name string, dividends []allocator.Dividend, in *allocator.Income) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dividends of %s\n\n", name)

	table(&b, "lr", []string{"**Total**", "**" + in.Total.String() + "**"}, [][]string{
		{"This Month", in.Month.String()},
		{"This Year", in.Year.String()},
		{"Yield (year on cost)", in.Yield.String()},
		{"Projected (12 months)", in.Projection.String()},
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "## Yield by Asset\n\n")
		var rows [][]string
		for _, t := range in.Tickers {
			rows = append(rows, []string{t.Ticker, t.Amount.String(), t.Cost.String(), t.Yield.String()})
		}
		table(w, "lrrr", []string{"Ticker", "Paid", "Cost", "Yield"}, rows)
		return len(in.Tickers) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "## Last 12 Months\n\n")
		var rows [][]string
		paid := false
		for _, m := range in.Monthly {
			paid = paid || m.Amount.IsPositive()
			rows = append(rows, []string{m.Month.Format("2006-01"), m.Amount.String()})
		}
		table(w, "lr", []string{"Month", "Paid"}, rows)
		return paid
	})

	fmt.Fprintf(&b, "## History\n\n")
	if len(dividends) == 0 {
		fmt.Fprintf(&b, "No dividend.\n\n")
		return b.String()
	}
	var rows [][]string
	for _, d := range dividends {
		reinvested := ""
		if d.Reinvested {
			reinvested = "yes"
		}
		rows = append(rows, []string{date(d.Date), d.Ticker, d.Amount.String(), reinvested})
	}
	table(&b, "llrc", []string{"Date", "Ticker", "Amount", "Reinvested"}, rows)
	return b.String()
}

// ForecastMarkdown renders the progress of a portfolio towards its goal and
// the projection of its value.
func ForecastMarkdown(name string, f *allocator.Forecast) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Forecast of %s\n\n", name)

	if g := f.Goal; g != nil {
		fmt.Fprintf(&b, "## Goal\n\n")
		rows := [][]string{
			{"Current Value", f.Value.String()},
			{"Progress", f.Progress.String()},
		}
		if g.Date != nil {
			rows = append(rows, []string{"Date", date(*g.Date)}, []string{"Months Left", fmt.Sprint(f.Months)})
			if f.Months > 0 {
				rows = append(rows, []string{"Required Monthly", f.Required.String()})
			}
		}
		if f.ReachedIn > 0 {
			rows = append(rows, []string{"Reached In", fmt.Sprint(f.ReachedIn)})
		}
		table(&b, "lr", []string{"**Target**", "**" + g.Target.String() + "**"}, rows)
	}

	fmt.Fprintf(&b, "## Projection\n\n")
	fmt.Fprintf(&b, "Contributing %s a month at %s a year.\n\n", f.Monthly, f.Rate)
	var rows [][]string
	for _, p := range f.Projection {
		rows = append(rows, []string{fmt.Sprint(p.Year), p.Balance.String(), p.Invested.String(), p.Interest.SignedString()})
	}
	table(&b, "lrrr", []string{"Year", "Balance", "Invested", "Interest"}, rows)
	return b.String()
}

// ConsolidationMarkdown renders the sum of the active portfolios.
func ConsolidationMarkdown(c *allocator.Consolidation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Consolidated\n\n")

	rows := [][]string{
		{"Cost", c.Cost.String()},
		{"Unrealized Gain", c.Gain().SignedString()},
		{"Portfolios", fmt.Sprint(len(c.Portfolios))},
		{"Assets", fmt.Sprint(c.Tickers)},
	}
	if d, ok := c.Dominant(); ok {
		rows = append(rows, []string{"Dominant Category", fmt.Sprintf("%s (%s)", category(d.Category), d.Weight)})
	}
	table(&b, "lr", []string{"**Value**", "**" + c.Value.String() + "**"}, rows)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprintf(w, "## Categories\n\n")
		var rows [][]string
		for _, t := range c.Categories {
			rows = append(rows, []string{category(t.Category), t.Value.String(), t.Weight.String()})
		}
		table(w, "lrr", []string{"Category", "Value", "Weight"}, rows)
		return len(c.Categories) > 0
	})

	fmt.Fprintf(&b, "## Portfolios\n\n")
	if len(c.Portfolios) == 0 {
		fmt.Fprintf(&b, "No active portfolio.\n\n")
		return b.String()
	}
	rows = nil
	for _, p := range c.Portfolios {
		rows = append(rows, []string{p.Portfolio.ID, cell(p.Portfolio.Name), p.Portfolio.ProfileID, fmt.Sprint(p.Positions), p.Value.String(), p.Share.String()})
	}
	table(&b, "lllrrr", []string{"ID", "Name", "Profile", "Assets", "Value", "Share"}, rows)
	return b.String()
}
