package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
	"github.com/etnz/allocator/service"
)

type rebalanceCmd struct {
	portfolio    string
	profile      string
	contribution string
	strategy     string
	sales        salePrices
	dryRun       bool
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "migrate a portfolio to a new allocation" }
func (*rebalanceCmd) Usage() string {
	return `alloc rebalance -p <portfolio> [-profile <id>] [-contribution <cash>] [-sell TICKER=PRICE]... [-dry-run] [TICKER:CATEGORY[:PRICE]...]

  Closes the portfolio and replaces it by a new one allocated to the profile,
  with the units held and the optional contribution. Without assets, the
  assets held are kept. Held assets left out are sold, at the -sell price when
  given. With -dry-run, the migration is only shown.
`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.profile, "profile", "", "New allocation profile id. Defaults to the current one.")
	f.StringVar(&c.contribution, "contribution", "", "New cash to invest.")
	f.StringVar(&c.strategy, "strategy", "", fmt.Sprintf("Allocation strategy: %s (default) or %s.", allocator.CategoryBalanceName, allocator.EqualSplitName))
	f.Var(&c.sales, "sell", "Sale price of a held asset as TICKER=PRICE. Repeatable.")
	f.BoolVar(&c.dryRun, "dry-run", false, "Show the migration without writing it.")
}

func (c *rebalanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	currency := a.svc.Currency()
	in := service.RebalanceInput{
		PortfolioID: c.portfolio,
		ProfileID:   c.profile,
		Strategy:    c.strategy,
		Sales:       make(map[string]allocator.Money, len(c.sales.prices)),
	}
	for ticker, price := range c.sales.prices {
		in.Sales[ticker] = allocator.M(price.Decimal(), currency)
	}
	if c.contribution != "" {
		if in.Contribution, err = allocator.ParseMoney(c.contribution, currency); err != nil {
			return usage("%v", err)
		}
	}
	if in.Assets, err = parseAssets(f.Args(), currency); err != nil {
		return usage("%v", err)
	}

	do, doing := a.svc.Rebalance, "rebalancing the portfolio"
	if c.dryRun {
		do, doing = a.svc.PreviewRebalance, "previewing the rebalance"
	}
	rb, err := do(ctx, in)
	if err != nil {
		return fail(doing, err)
	}
	profile, err := a.store.Profile(ctx, rb.Migration.Portfolio.ProfileID)
	if err != nil {
		return fail("reading the profile", err)
	}
	printMarkdown(renderer.PlanMarkdown(rb.Plan, profile) + "\n" + renderer.MigrationMarkdown(rb.Migration))
	if c.dryRun {
		fmt.Println("Dry run: nothing was written.")
	} else {
		fmt.Printf("Created portfolio %s\n", rb.Migration.Portfolio.ID)
	}
	return subcommands.ExitSuccess
}
