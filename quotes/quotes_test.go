package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/store"
)

func brl(v float64) allocator.Money { return allocator.M(v, "BRL") }

func TestBrapi_Prices(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		symbols := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/quote/"), ",")
		var results []string
		for i, s := range symbols {
			if s == "GONE3" {
				continue
			}
			if i%2 == 1 {
				s += ".SA"
			}
			results = append(results, fmt.Sprintf(`{"symbol":%q,"currency":"BRL","regularMarketPrice":%d.5}`, s, 10+i))
		}
		fmt.Fprintf(w, `{"results":[%s],"took":"1ms"}`, strings.Join(results, ","))
	}))
	defer srv.Close()

	tickers := []string{"GONE3"}
	for i := 0; i < 24; i++ {
		tickers = append(tickers, fmt.Sprintf("TICK%d", i))
	}
	b := NewBrapi("secret", WithBaseURL(srv.URL), WithRateLimit(1000))
	prices, err := b.Prices(context.Background(), tickers)
	require.NoError(t, err)

	assert.Len(t, calls, 2, "25 tickers in batches of 20")
	assert.Len(t, prices, 24)
	assert.NotContains(t, prices, "GONE3")
	assert.True(t, prices["TICK0"].Equal(brl(11.5)), "suffixed symbol matched: %v", prices["TICK0"])
	assert.Equal(t, "BRL", prices["TICK0"].Currency())
}

func TestBrapi_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "BAD") {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if strings.Contains(r.URL.Path, "ODD") {
			fmt.Fprint(w, `{"results":{"symbol":"ODD3"}}`)
			return
		}
		fmt.Fprint(w, `{"error":true,"message":"invalid token"}`)
	}))
	defer srv.Close()

	b := NewBrapi("", WithBaseURL(srv.URL))
	_, err := b.Prices(context.Background(), []string{"BAD4"})
	assert.ErrorContains(t, err, "401")

	prices, err := b.Prices(context.Background(), []string{"PETR4"})
	assert.ErrorContains(t, err, "results")
	assert.ErrorContains(t, err, "invalid token")
	assert.Empty(t, prices)

	_, err = b.Prices(context.Background(), []string{"ODD3"})
	assert.ErrorContains(t, err, "not an array")
}

func TestYahooSymbol(t *testing.T) {
	tests := map[string]string{
		"PETR4":  "PETR4.SA",
		"BOVA11": "BOVA11.SA",
		"IVVB11": "IVVB11.SA",
		"AAPL":   "AAPL",
		"VWRA.L": "VWRA.L",
		"PETR":   "PETR",
	}
	for ticker, want := range tests {
		assert.Equal(t, want, YahooSymbol(ticker), ticker)
	}
}

func TestYahoo_Prices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		switch r.URL.Path {
		case "/v8/finance/chart/PETR4.SA":
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"BRL","symbol":"PETR4.SA","regularMarketPrice":38.12}}],"error":null}}`)
		case "/v8/finance/chart/AAPL":
			fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":190}}]}}`)
		default:
			http.Error(w, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	y := NewYahoo(WithBaseURL(srv.URL), WithRateLimit(1000))
	prices, err := y.Prices(context.Background(), []string{"petr4", "AAPL", "NOPE3"})
	assert.ErrorContains(t, err, "NOPE3")
	require.Len(t, prices, 2)
	assert.True(t, prices["PETR4"].Equal(brl(38.12)))
	assert.Equal(t, "USD", prices["AAPL"].Currency())
}

func TestDailyCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":12}}]}}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	y := NewYahoo(WithBaseURL(srv.URL), WithDailyCache(dir))
	for i := 0; i < 3; i++ {
		prices, err := y.Prices(context.Background(), []string{"ABCD3"})
		require.NoError(t, err)
		assert.True(t, prices["ABCD3"].Equal(brl(12)))
	}
	assert.Equal(t, int32(1), hits.Load())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// a new day misses the cache
	y.http.Transport.(*dailyCache).today = func() string { return "2999-01-01" }
	_, err = y.Prices(context.Background(), []string{"ABCD3"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDailyCache_SkipsErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	y := NewYahoo(WithBaseURL(srv.URL), WithDailyCache(t.TempDir()))
	for i := 0; i < 2; i++ {
		_, err := y.Prices(context.Background(), []string{"ABCD3"})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

type failing struct{ err error }

func (f failing) Prices(context.Context, []string) (map[string]allocator.Money, error) {
	return nil, f.err
}

func TestFallback(t *testing.T) {
	first := Static{"A": brl(1)}
	second := Static{"A": brl(100), "B": brl(2)}
	p := Fallback(failing{errors.New("down")}, first, second)

	prices, err := p.Prices(context.Background(), []string{"a", "B", "b"})
	require.NoError(t, err, "every ticker priced")
	assert.Len(t, prices, 2)
	assert.True(t, prices["A"].Equal(brl(1)), "first provider wins")
	assert.True(t, prices["B"].Equal(brl(2)))

	prices, err = p.Prices(context.Background(), []string{"A", "C"})
	assert.ErrorContains(t, err, "down")
	assert.Len(t, prices, 1)

	assert.Equal(t, "quotes+static+static", Name(p))
}

type fakeCache struct {
	tickers []string
	saved   map[string]allocator.Money
	source  string
	quotes  map[string]store.CachedQuote
}

func (f *fakeCache) ActiveTickers(context.Context) ([]string, error) { return f.tickers, nil }

func (f *fakeCache) UpsertQuotes(_ context.Context, q map[string]allocator.Money, source string, _ time.Time) error {
	f.saved, f.source = q, source
	return nil
}

func (f *fakeCache) CachedQuotes(_ context.Context, tickers []string) (map[string]store.CachedQuote, error) {
	out := map[string]store.CachedQuote{}
	for _, t := range tickers {
		if q, ok := f.quotes[t]; ok {
			out[t] = q
		}
	}
	return out, nil
}

func TestCached(t *testing.T) {
	now := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	cache := &fakeCache{quotes: map[string]store.CachedQuote{
		"FRESH": {Price: brl(10), UpdatedAt: now.Add(-time.Hour)},
		"STALE": {Price: brl(20), UpdatedAt: now.AddDate(0, 0, -10)},
	}}

	prices, err := Cached{Cache: cache}.Prices(context.Background(), []string{"FRESH", "STALE", "NONE"})
	require.NoError(t, err)
	assert.Len(t, prices, 2)

	prices, err = Cached{Cache: cache, MaxAge: 72 * time.Hour, Now: func() time.Time { return now }}.Prices(context.Background(), []string{"fresh", "stale"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)
	assert.True(t, prices["FRESH"].Equal(brl(10)))
}

func TestRefresh(t *testing.T) {
	cache := &fakeCache{tickers: []string{"A", "B"}}
	n, err := Refresh(context.Background(), Static{"A": brl(3)}, cache, time.Now(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "static", cache.source)
	assert.True(t, cache.saved["A"].Equal(brl(3)))

	n, err = Refresh(context.Background(), Static{}, &fakeCache{}, time.Now(), zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRefresh_Store(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, t.TempDir()+"/alloc.db")
	require.NoError(t, err)
	defer s.Close()

	profile, err := s.Profile(ctx, "moderate")
	require.NoError(t, err)
	c, err := allocator.NewPortfolio("P", profile, &allocator.Plan{
		Capital: brl(100),
		Lines:   []allocator.PlanLine{{Ticker: "PETR4", Category: allocator.Equity, Price: brl(10), Quantity: allocator.Q(10)}},
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.CreatePortfolio(ctx, c))

	at := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	n, err := Refresh(ctx, Static{"PETR4": brl(38)}, s, at, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	prices, err := Cached{Cache: s}.Prices(ctx, []string{"PETR4"})
	require.NoError(t, err)
	assert.True(t, prices["PETR4"].Equal(brl(38)))
}
