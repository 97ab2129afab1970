package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/renderer"
	"github.com/etnz/allocator/service"
)

type dividendCmd struct {
	portfolio  string
	date       string
	reinvested bool
}

func (*dividendCmd) Name() string     { return "dividend" }
func (*dividendCmd) Synopsis() string { return "record or display the dividends of a portfolio" }
func (*dividendCmd) Usage() string {
	return `alloc dividend -p <portfolio> [-date <YYYY-MM-DD>] [-reinvested] [TICKER:AMOUNT]

  Records a dividend paid by an asset of the portfolio, dated today unless
  -date is given, then displays the dividends with their totals, yield on
  cost and 12 months projection. Without TICKER:AMOUNT, only displays them.
`
}

func (c *dividendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.date, "date", "", "Payment date. Defaults to today.")
	f.BoolVar(&c.reinvested, "reinvested", false, "The dividend was reinvested. Informative only.")
}

func (c *dividendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" || f.NArg() > 1 {
		return usage("-p and at most one TICKER:AMOUNT are required")
	}
	on, err := parseDay(c.date)
	if err != nil {
		return usage("%v", err)
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
	if f.NArg() == 1 {
		ticker, amount, err := parseDividend(f.Arg(0), p.InitialValue.Currency())
		if err != nil {
			return usage("%v", err)
		}
		d, err := a.svc.RecordDividend(ctx, p.ID, service.DividendInput{Ticker: ticker, Amount: amount, Date: on, Reinvested: c.reinvested})
		if err != nil {
			return fail("recording the dividend", err)
		}
		fmt.Printf("Recorded %s paid by %s on %s\n", d.Amount, d.Ticker, d.Date.Format("2006-01-02"))
	}

	in, err := a.svc.Dividends(ctx, p.ID)
	if err != nil {
		return fail("reading the dividends", err)
	}
	printMarkdown(renderer.DividendsMarkdown(p.Name, in.Dividends, in.Summary))
	return subcommands.ExitSuccess
}

type goalCmd struct {
	portfolio string
	target    string
	by        string
	clear     bool
	monthly   string
	rate      float64
	years     int
}

func (*goalCmd) Name() string     { return "goal" }
func (*goalCmd) Synopsis() string { return "set the goal of a portfolio and project its value" }
func (*goalCmd) Usage() string {
	return `alloc goal -p <portfolio> [-target <amount> [-by <YYYY-MM-DD>] | -clear] [-monthly <amount>] [-rate <percent>] [-years <n>]

  Sets or clears the wealth the portfolio should reach, then displays its
  progress and the projection of its current value with a monthly
  contribution compounded at an annual rate. With a goal date, shows the
  monthly contribution that reaches the goal in time.
`
}

func (c *goalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id.")
	f.StringVar(&c.target, "target", "", "Wealth to reach.")
	f.StringVar(&c.by, "by", "", "Date to reach the target by. Optional.")
	f.BoolVar(&c.clear, "clear", false, "Remove the goal.")
	f.StringVar(&c.monthly, "monthly", "", "Monthly contribution of the projection. Defaults to 1000.")
	f.Float64Var(&c.rate, "rate", 0, "Annual rate of the projection, in percent. Defaults to 10.")
	f.IntVar(&c.years, "years", 0, "Years to project. Defaults to 10.")
}

func (c *goalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio == "" {
		return usage("-p is required")
	}
	if c.clear && c.target != "" {
		return usage("-clear and -target are exclusive")
	}
	by, err := parseDay(c.by)
	if err != nil {
		return usage("%v", err)
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
	currency := p.InitialValue.Currency()

	switch {
	case c.clear:
		if err := a.svc.ClearGoal(ctx, p.ID); err != nil {
			return fail("clearing the goal", err)
		}
	case c.target != "":
		target, err := allocator.ParseMoney(c.target, currency)
		if err != nil {
			return usage("%v", err)
		}
		var deadline *time.Time
		if !by.IsZero() {
			deadline = &by
		}
		if _, err := a.svc.SetGoal(ctx, p.ID, target, deadline); err != nil {
			return fail("setting the goal", err)
		}
	}

	in := a.svc.DefaultForecast()
	var parseErr error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "monthly":
			m, err := allocator.ParseMoney(c.monthly, currency)
			if err != nil {
				parseErr = err
			}
			in.Monthly = m
		case "rate":
			in.Rate = allocator.Percent(c.rate)
		case "years":
			in.Years = c.years
		}
	})
	if parseErr != nil {
		return usage("%v", parseErr)
	}

	forecast, err := a.svc.Forecast(ctx, p.ID, in)
	if err != nil {
		return fail("projecting the portfolio", err)
	}
	printMarkdown(renderer.ForecastMarkdown(p.Name, forecast))
	return subcommands.ExitSuccess
}

type consolidatedCmd struct{}

func (*consolidatedCmd) Name() string     { return "consolidated" }
func (*consolidatedCmd) Synopsis() string { return "display the sum of the active portfolios" }
func (*consolidatedCmd) Usage() string {
	return `alloc consolidated

  Values every active portfolio and displays their total, their split by
  category and the share of each portfolio.
`
}

func (*consolidatedCmd) SetFlags(*flag.FlagSet) {}

func (*consolidatedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	c, err := a.svc.Consolidated(ctx)
	if err != nil {
		return fail("consolidating the portfolios", err)
	}
	printMarkdown(renderer.ConsolidationMarkdown(c))
	return subcommands.ExitSuccess
}
