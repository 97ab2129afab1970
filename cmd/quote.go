package cmd

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
)

type quoteCmd struct {
	portfolio string
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "set the manual quote of an asset in a portfolio" }
func (*quoteCmd) Usage() string {
	return `alloc quote -p <portfolio> TICKER PRICE

  Sets the price used to value TICKER in this portfolio, ahead of the market
  quotes.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || f.NArg() != 2 {
		return usage("-p, a ticker and a price are required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	ticker := strings.ToUpper(f.Arg(0))
	price, err := allocator.ParseMoney(f.Arg(1), a.svc.Currency())
	if err != nil {
		return usage("%v", err)
	}
	if err := a.svc.SetManualQuote(ctx, c.portfolio, ticker, price); err != nil {
		return fail("setting the quote", err)
	}
	fmt.Printf("%s quoted at %s\n", ticker, price)
	return subcommands.ExitSuccess
}

type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "display the market quotes of tickers" }
func (*pricesCmd) Usage() string {
	return `alloc prices TICKER...

  Asks the quote cache, then the market data providers, for the last price of
  each ticker. Tickers without a quote are listed as missing.
`
}

func (*pricesCmd) SetFlags(*flag.FlagSet) {}

func (*pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage("at least one ticker is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	tickers := make([]string, 0, f.NArg())
	for _, t := range f.Args() {
		tickers = append(tickers, strings.ToUpper(t))
	}
	slices.Sort(tickers)
	tickers = slices.Compact(tickers)

	quotes := a.svc.Quotes(ctx, tickers)
	for _, t := range tickers {
		if p, ok := quotes[t]; ok {
			fmt.Printf("%-10s %s\n", t, p)
		} else {
			fmt.Printf("%-10s missing\n", t)
		}
	}
	return subcommands.ExitSuccess
}

type updateQuotesCmd struct{}

func (*updateQuotesCmd) Name() string     { return "update-quotes" }
func (*updateQuotesCmd) Synopsis() string { return "refresh the quote cache of the tickers held" }
func (*updateQuotesCmd) Usage() string {
	return `alloc update-quotes

  Fetches the market price of every ticker held by an active portfolio and
  stores it in the quote cache.
`
}

func (*updateQuotesCmd) SetFlags(*flag.FlagSet) {}

func (*updateQuotesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	n, err := a.svc.RefreshQuotes(ctx)
	if err != nil {
		return fail("refreshing quotes", err)
	}
	fmt.Printf("Updated %d quotes\n", n)
	return subcommands.ExitSuccess
}
