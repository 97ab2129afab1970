// Package quotes fetches the latest market price of tickers.
//
// Providers never fail on an unknown ticker: it is simply absent from the
// returned prices. Fallback chains providers so that each one is only asked
// for the tickers the previous ones did not price.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/store"
)

// Provider returns the latest known price of tickers.
type Provider interface {
	Prices(ctx context.Context, tickers []string) (map[string]allocator.Money, error)
}

// Name returns the name of a provider, as recorded in the quote cache.
func Name(p Provider) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "quotes"
}

// normalize upper cases tickers and removes blanks and duplicates.
func normalize(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Static is a fixed set of prices.
type Static map[string]allocator.Money

func (s Static) Name() string { return "static" }

func (s Static) Prices(_ context.Context, tickers []string) (map[string]allocator.Money, error) {
	prices := make(map[string]allocator.Money)
	for _, t := range normalize(tickers) {
		if p, ok := s[t]; ok && p.IsPositive() {
			prices[t] = p
		}
	}
	return prices, nil
}

type fallback []Provider

// Fallback returns a provider asking each of providers, in order, for the
// tickers still unpriced. A failing provider does not stop the chain: its
// error is returned along with the prices found, and only if some tickers
// remain unpriced.
func Fallback(providers ...Provider) Provider { return fallback(providers) }

func (f fallback) Name() string {
	names := make([]string, len(f))
	for i, p := range f {
		names[i] = Name(p)
	}
	return strings.Join(names, "+")
}

func (f fallback) Prices(ctx context.Context, tickers []string) (map[string]allocator.Money, error) {
	missing := normalize(tickers)
	prices := make(map[string]allocator.Money, len(missing))
	var errs []error
	for _, p := range f {
		if len(missing) == 0 {
			break
		}
		found, err := p.Prices(ctx, missing)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", Name(p), err))
		}
		rest := missing[:0:0]
		for _, t := range missing {
			if price, ok := found[t]; ok && price.IsPositive() {
				prices[t] = price
			} else {
				rest = append(rest, t)
			}
		}
		missing = rest
	}
	if len(missing) == 0 {
		return prices, nil
	}
	return prices, errors.Join(errs...)
}

// QuoteCache is where market quotes are kept between refreshes.
type QuoteCache interface {
	CachedQuotes(ctx context.Context, tickers []string) (map[string]store.CachedQuote, error)
}

// Cached serves prices from the quote cache. Quotes older than MaxAge are
// ignored, unless MaxAge is zero.
type Cached struct {
	Cache  QuoteCache
	MaxAge time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Cached) Name() string { return "cache" }

func (c Cached) Prices(ctx context.Context, tickers []string) (map[string]allocator.Money, error) {
	cached, err := c.Cache.CachedQuotes(ctx, normalize(tickers))
	if err != nil {
		return nil, err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	prices := make(map[string]allocator.Money, len(cached))
	for t, q := range cached {
		if c.MaxAge > 0 && now().Sub(q.UpdatedAt) > c.MaxAge {
			continue
		}
		prices[t] = q.Price
	}
	return prices, nil
}

// Refreshable is a quote cache that knows which tickers are worth refreshing.
type Refreshable interface {
	ActiveTickers(ctx context.Context) ([]string, error)
	UpsertQuotes(ctx context.Context, quotes map[string]allocator.Money, source string, at time.Time) error
}

// Refresh fetches the prices of every ticker held by an active portfolio and
// stores them in the cache. It returns the number of tickers updated.
//
// Prices found are stored even when the provider reports an error.
func Refresh(ctx context.Context, p Provider, cache Refreshable, at time.Time, log zerolog.Logger) (int, error) {
	tickers, err := cache.ActiveTickers(ctx)
	if err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		log.Debug().Msg("no ticker to refresh")
		return 0, nil
	}
	prices, fetchErr := p.Prices(ctx, tickers)
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Int("found", len(prices)).Int("requested", len(tickers)).Msg("partial quote refresh")
	}
	if err := cache.UpsertQuotes(ctx, prices, Name(p), at); err != nil {
		return 0, err
	}
	log.Info().Int("updated", len(prices)).Int("requested", len(tickers)).Str("source", Name(p)).Msg("quotes refreshed")
	return len(prices), fetchErr
}
