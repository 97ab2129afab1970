package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
)

type showCmd struct {
	portfolio string
	all       bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display a portfolio or the list of portfolios" }
func (*showCmd) Usage() string {
	return `alloc show [-p <portfolio>] [-all]

  Values a portfolio at its manual quotes, the market quotes, or its average
  prices, and compares its categories with its profile. Without -p, lists the
  active portfolios, or every portfolio with -all.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.BoolVar(&c.all, "all", false, "List closed portfolios too.")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	if c.portfolio == "" {
		list, err := a.svc.Portfolios(ctx, !c.all)
		if err != nil {
			return fail("listing portfolios", err)
		}
		printMarkdown(renderer.PortfoliosMarkdown(list))
		return subcommands.ExitSuccess
	}

	v, err := a.svc.Value(ctx, c.portfolio)
	if err != nil {
		return fail("valuing the portfolio", err)
	}
	profile, err := a.store.Profile(ctx, v.Portfolio.ProfileID)
	if err != nil {
		return fail("reading the profile", err)
	}
	printMarkdown(renderer.PortfolioMarkdown(v, profile))
	return subcommands.ExitSuccess
}

type historyCmd struct {
	portfolio string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the transactions of a portfolio and its origins" }
func (*historyCmd) Usage() string {
	return `alloc history -p <portfolio>

  Lists the transactions of the portfolio and of the portfolios it was
  rebalanced from, oldest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	h, err := a.svc.History(ctx, c.portfolio)
	if err != nil {
		return fail("reading the history", err)
	}
	printMarkdown(renderer.HistoryMarkdown(h.Lineage, h.Transactions))
	return subcommands.ExitSuccess
}

type exportCmd struct {
	portfolio string
	output    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the transactions of a portfolio as JSONL" }
func (*exportCmd) Usage() string {
	return `alloc export -p <portfolio> [-o <file>]

  Writes the transactions of the portfolio lineage, one JSON object per line.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.output, "o", "", "Output file. Defaults to stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	h, err := a.svc.History(ctx, c.portfolio)
	if err != nil {
		return fail("reading the history", err)
	}

	var w io.Writer = os.Stdout
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return fail(fmt.Sprintf("creating %q", c.output), err)
		}
		defer f.Close()
		w = f
	}
	if err := allocator.EncodeTransactions(w, h.Transactions); err != nil {
		return fail("writing transactions", err)
	}
	return subcommands.ExitSuccess
}
