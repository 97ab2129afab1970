package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
)

type contributeCmd struct {
	portfolio string
	amount    string
}

func (*contributeCmd) Name() string     { return "contribute" }
func (*contributeCmd) Synopsis() string { return "record purchases made with new cash" }
func (*contributeCmd) Usage() string {
	return `alloc contribute -p <portfolio> [-amount <cash>] TICKER:QUANTITY[:PRICE[:CATEGORY]]...

  Adds units to a portfolio without rebalancing it. Held assets get a new
  weighted average price. A ticker not held yet needs its CATEGORY. Purchases
  without a price are priced from the quotes. With -amount, the purchases must
  fit in the cash brought.
`
}

func (c *contributeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.amount, "amount", "", "Cash brought in. Optional.")
}

func (c *contributeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || f.NArg() == 0 {
		return usage("-p and at least one purchase are required")
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	currency := a.svc.Currency()
	var amount allocator.Money
	if c.amount != "" {
		if amount, err = allocator.ParseMoney(c.amount, currency); err != nil {
			return usage("%v", err)
		}
	}
	buys := make([]allocator.Buy, 0, f.NArg())
	for _, arg := range f.Args() {
		b, err := parseBuy(arg, currency)
		if err != nil {
			return usage("%v", err)
		}
		buys = append(buys, b)
	}

	contribution, err := a.svc.Contribute(ctx, c.portfolio, amount, buys)
	if err != nil {
		return fail("recording the contribution", err)
	}
	for _, tx := range contribution.Transactions {
		fmt.Println(renderer.Transaction(tx))
	}
	fmt.Printf("Invested %s\n", contribution.Total())
	return subcommands.ExitSuccess
}
