package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type duplicateCmd struct {
	portfolio string
	name      string
}

func (*duplicateCmd) Name() string     { return "duplicate" }
func (*duplicateCmd) Synopsis() string { return "copy a portfolio and its positions" }
func (*duplicateCmd) Usage() string {
	return `alloc duplicate -p <portfolio> [-name <name>]

  Creates an active copy of the portfolio with the same positions,
  transactions, dividends and manual quotes. The copy has no goal.
`
}

func (c *duplicateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.name, "name", "", "Name of the copy. Defaults to the original name with a suffix.")
}

func (c *duplicateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	p, err := a.svc.Duplicate(ctx, c.portfolio, c.name)
	if err != nil {
		return fail("duplicating the portfolio", err)
	}
	fmt.Printf("Created portfolio %s (%s)\n", p.ID, p.Name)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	portfolio string
	yes       bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a portfolio and its records" }
func (*deleteCmd) Usage() string {
	return `alloc delete -p <portfolio> [-y]

  Deletes the portfolio with its positions, transactions and manual quotes.
  Portfolios rebalanced from it keep their own history.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	p, err := a.svc.Portfolio(ctx, c.portfolio)
	if err != nil {
		return fail("reading the portfolio", err)
	}
	if !c.yes {
		fmt.Printf("Delete portfolio %q? [y/N] ", p.Name)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return subcommands.ExitSuccess
		}
	}
	if err := a.svc.Delete(ctx, p.ID); err != nil {
		return fail("deleting the portfolio", err)
	}
	fmt.Printf("Deleted portfolio %s\n", p.ID)
	return subcommands.ExitSuccess
}

type notesCmd struct {
	portfolio string
}

func (*notesCmd) Name() string     { return "notes" }
func (*notesCmd) Synopsis() string { return "replace the notes of a portfolio" }
func (*notesCmd) Usage() string {
	return `alloc notes -p <portfolio> [TEXT...]

  Replaces the free text notes of the portfolio. Without TEXT, clears them.
`
}

func (c *notesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
}

func (c *notesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	if err := a.svc.SetNotes(ctx, c.portfolio, strings.Join(f.Args(), " ")); err != nil {
		return fail("setting the notes", err)
	}
	return subcommands.ExitSuccess
}
