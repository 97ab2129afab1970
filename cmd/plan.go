package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
	"github.com/etnz/allocator/service"
)

// planFlags are shared by 'plan' and 'create'.
type planFlags struct {
	profile  string
	capital  string
	strategy string
}

func (p *planFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.profile, "profile", "moderate", "Allocation profile id.")
	f.StringVar(&p.capital, "capital", "", "Capital to invest.")
	f.StringVar(&p.strategy, "strategy", "", fmt.Sprintf("Allocation strategy: %s (default) or %s.", allocator.EqualSplitName, allocator.CategoryBalanceName))
}

func (p *planFlags) input(f *flag.FlagSet, currency string) (service.PlanInput, error) {
	in := service.PlanInput{ProfileID: p.profile, Strategy: p.strategy}
	if p.capital == "" {
		return in, errors.New("-capital is required")
	}
	if f.NArg() == 0 {
		return in, errors.New("at least one TICKER:CATEGORY[:PRICE] asset is required")
	}
	var err error
	if in.Capital, err = allocator.ParseMoney(p.capital, currency); err != nil {
		return in, err
	}
	in.Assets, err = parseAssets(f.Args(), currency)
	return in, err
}

type planCmd struct {
	planFlags
}

func (*planCmd) Name() string     { return "plan" }
func (*planCmd) Synopsis() string { return "preview the allocation of a new portfolio" }
func (*planCmd) Usage() string {
	return `alloc plan -capital <amount> [-profile <id>] [-strategy <name>] TICKER:CATEGORY[:PRICE]...

  Computes how many units of each asset a new portfolio would buy. Nothing is
  stored. Categories are EQUITY, INTL_ETF and FIXED_INCOME_ETF. Assets without
  a price are priced from the quotes.
`
}

func (c *planCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	in, err := c.input(f, a.svc.Currency())
	if err != nil {
		return usage("%v", err)
	}
	plan, err := a.svc.Plan(ctx, in)
	if err != nil {
		return fail("planning the allocation", err)
	}
	profile, err := a.store.Profile(ctx, in.ProfileID)
	if err != nil {
		return fail("reading the profile", err)
	}
	printMarkdown(renderer.PlanMarkdown(plan, profile))
	return subcommands.ExitSuccess
}

type createCmd struct {
	planFlags
	name string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create a portfolio from an allocation plan" }
func (*createCmd) Usage() string {
	return `alloc create -name <name> -capital <amount> [-profile <id>] [-strategy <name>] TICKER:CATEGORY[:PRICE]...

  Allocates the capital like 'plan' does and stores the portfolio with its
  initial purchases.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	c.planFlags.SetFlags(f)
	f.StringVar(&c.name, "name", "", "Name of the portfolio.")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return usage("-name is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	in, err := c.input(f, a.svc.Currency())
	if err != nil {
		return usage("%v", err)
	}
	created, err := a.svc.Create(ctx, service.CreateInput{Name: c.name, PlanInput: in})
	if err != nil {
		return fail("creating the portfolio", err)
	}
	v, err := a.svc.Value(ctx, created.Portfolio.ID)
	if err != nil {
		return fail("valuing the portfolio", err)
	}
	profile, err := a.store.Profile(ctx, in.ProfileID)
	if err != nil {
		return fail("reading the profile", err)
	}
	printMarkdown(renderer.PortfolioMarkdown(v, profile))
	fmt.Printf("Created portfolio %s\n", created.Portfolio.ID)
	return subcommands.ExitSuccess
}
