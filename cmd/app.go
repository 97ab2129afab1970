// Package cmd implements the CLI application to plan, create and rebalance
// portfolios.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/etnz/allocator/config"
	"github.com/etnz/allocator/logger"
	"github.com/etnz/allocator/quotes"
	"github.com/etnz/allocator/service"
	"github.com/etnz/allocator/store"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", config.DefaultFile, "Path to the TOML configuration file")
var dbPath = flag.String("db", "", "Path to the SQLite database. Overrides the configuration.")
var verbose = flag.Bool("v", false, "Log debug messages")

// loadConfig reads the configuration file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// app is what a command needs to run the use cases.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store *store.Store
	svc   *service.Service
}

// openApp loads the configuration, opens the database and wires the quote
// providers. Close it when done.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	st, err := store.Open(ctx, cfg.Database.Path, store.WithLogger(log), store.WithCurrency(cfg.Allocation.Currency))
	if err != nil {
		return nil, err
	}

	live := providers(cfg.Quotes, cfg.Allocation.Currency, log)
	read := live
	if cfg.Quotes.MaxAgeHours > 0 {
		read = quotes.Fallback(quotes.Cached{Cache: st, MaxAge: cfg.Quotes.MaxAge()}, live)
	}

	opts := service.DefaultOptions()
	opts.Currency = cfg.Allocation.Currency
	opts.Refresh = live
	opts.Surplus = cfg.Allocation.Options(cfg.Allocation.SurplusMaxIterations, nil)
	opts.Balanced = cfg.Allocation.Options(cfg.Allocation.BalancedMaxIterations, nil)

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		svc:   service.New(st, read, log, opts),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// providers returns the configured market data providers, asked in order.
func providers(cfg config.QuotesConfig, currency string, log zerolog.Logger) quotes.Provider {
	opts := []quotes.Option{
		quotes.WithLogger(log),
		quotes.WithRateLimit(cfg.RateLimit),
		quotes.WithTimeout(cfg.Timeout()),
		quotes.WithCurrency(currency),
	}
	if cfg.CacheDir != "" {
		opts = append(opts, quotes.WithDailyCache(cfg.CacheDir))
	}

	var chain []quotes.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "brapi":
			o := slices.Clone(opts)
			if cfg.BrapiURL != "" {
				o = append(o, quotes.WithBaseURL(cfg.BrapiURL))
			}
			chain = append(chain, quotes.NewBrapi(cfg.BrapiToken, o...))
		case "yahoo":
			o := slices.Clone(opts)
			if cfg.YahooURL != "" {
				o = append(o, quotes.WithBaseURL(cfg.YahooURL))
			}
			chain = append(chain, quotes.NewYahoo(o...))
		}
	}
	return quotes.Fallback(chain...)
}

// printMarkdown renders md for the terminal, or prints it raw when it cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

// fail prints "Error <doing>: <err>" and returns the failure status.
func fail(doing string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", doing, err)
	return subcommands.ExitFailure
}

// usage prints a usage error.
func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}
