package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/allocator"
)

// PlanMarkdown renders an allocation plan against its profile.
func PlanMarkdown(plan *allocator.Plan, profile allocator.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Allocation Plan\n\n")
	fmt.Fprintf(&b, "Profile **%s** (%s), strategy `%s`.\n\n", profile.Name, profileMix(profile), plan.Strategy)

	table(&b, "lr", []string{"**Capital**", "**" + plan.Capital.String() + "**"}, [][]string{
		{"Purchases", plan.Purchases().String()},
		{"Sales", plan.Proceeds().String()},
		{"Invested", plan.Invested().String()},
		{"Leftover", plan.Leftover().String()},
		{"Iterations", fmt.Sprint(plan.Iterations)},
	})
	if plan.Capped {
		fmt.Fprintf(&b, "> **Warning**: the greedy fill stopped on its iteration cap, the leftover may still be investable.\n\n")
	}

	fmt.Fprintf(&b, "## Categories\n\n")
	var rows [][]string
	for _, c := range allocator.Categories {
		rows = append(rows, []string{category(c), profile.Pct(c).String(), plan.Weight(c).String(), plan.CategoryValue(c).String()})
	}
	table(&b, "lrrr", []string{"Category", "Target", "Planned", "Value"}, rows)

	fmt.Fprintf(&b, "## Assets\n\n")
	rows = rows[:0]
	for _, l := range plan.Lines {
		price := l.Price.String()
		if !l.Price.IsPositive() {
			price = "unknown"
		}
		ticker := l.Ticker
		if l.New && !l.Start.IsPositive() {
			ticker += " (new)"
		}
		rows = append(rows, []string{ticker, category(l.Category), price, l.Start.String(), l.Quantity.String(), signed(l.Delta()), l.Invested().String(), l.Target.String()})
	}
	table(&b, "llrrrrrr", []string{"Ticker", "Category", "Price", "Held", "Planned", "Change", "Value", "Target"}, rows)
	return b.String()
}

func profileMix(p allocator.Profile) string {
	return fmt.Sprintf("%.0f/%.0f/%.0f", float64(p.Equity), float64(p.IntlETF), float64(p.FixedIncome))
}

// ProfilesMarkdown renders the allocation profiles.
func ProfilesMarkdown(profiles []allocator.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Profiles\n\n")
	var rows [][]string
	for _, p := range profiles {
		rows = append(rows, []string{p.ID, p.Name, p.Equity.String(), p.IntlETF.String(), p.FixedIncome.String()})
	}
	table(&b, "llrrr", []string{"ID", "Name", "Equity", "International ETF", "Fixed Income ETF"}, rows)
	return b.String()
}
