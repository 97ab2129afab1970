package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/allocator/server"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the JSON API" }
func (*serveCmd) Usage() string {
	return `alloc serve [-addr <host:port>]

  Serves the portfolios over HTTP until interrupted. When the configuration
  sets server.refresh_schedule, the quote cache is refreshed on that cron
  schedule.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides the configuration.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("opening the database", err)
	}
	defer a.Close()

	cfg := a.cfg.Server
	if c.addr != "" {
		cfg.Addr = c.addr
	}
	srv, err := server.New(server.Config{Server: cfg, Log: a.log, Service: a.svc})
	if err != nil {
		return fail("creating the server", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail("serving", err)
		}
		return subcommands.ExitSuccess
	case <-quit:
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fail("shutting down", err)
	}
	a.log.Info().Msg("Server stopped")
	return subcommands.ExitSuccess
}
