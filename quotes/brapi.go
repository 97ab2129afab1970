package quotes

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/etnz/allocator"
)

const (
	DefaultBrapiURL = "https://brapi.dev"
	brapiBatch      = 20
)

// Brapi fetches B3 quotes from brapi.dev.
type Brapi struct {
	client
	token string
}

// NewBrapi returns a brapi.dev client. The token is optional for a few
// tickers and required beyond.
func NewBrapi(token string, opts ...Option) *Brapi {
	return &Brapi{client: newClient(DefaultBrapiURL, opts), token: token}
}

func (b *Brapi) Name() string { return "brapi" }

// Prices queries tickers in batches of 20. A failed batch does not prevent
// the others.
func (b *Brapi) Prices(ctx context.Context, tickers []string) (map[string]allocator.Money, error) {
	prices := make(map[string]allocator.Money)
	var errs []error
	for batch := range slices.Chunk(normalize(tickers), brapiBatch) {
		found, err := b.batch(ctx, batch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		maps.Copy(prices, found)
	}
	return prices, errors.Join(errs...)
}

func (b *Brapi) batch(ctx context.Context, tickers []string) (map[string]allocator.Money, error) {
	addr := fmt.Sprintf("%s/api/quote/%s", strings.TrimRight(b.baseURL, "/"), strings.Join(tickers, ","))
	if b.token != "" {
		addr += "?" + url.Values{"token": {b.token}}.Encode()
	}
	doc, err := b.getJSON(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("brapi quotes of %s: %w", strings.Join(tickers, ","), err)
	}
	// an error body is a 200 without results, e.g. {"error":true,"message":"invalid token"}
	jval, err := jsonpath.Get("$.results", doc)
	if err != nil {
		return nil, fmt.Errorf("brapi quotes of %s: no results: %w%s", strings.Join(tickers, ","), err, brapiMessage(doc))
	}
	results, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("brapi quotes of %s: results is %T, not an array%s", strings.Join(tickers, ","), jval, brapiMessage(doc))
	}

	// the symbol returned may or may not carry the .SA suffix.
	requested := make(map[string]string, len(tickers))
	for _, t := range tickers {
		requested[strings.TrimSuffix(t, ".SA")] = t
	}
	prices := make(map[string]allocator.Money, len(results))
	for _, r := range results {
		quote, ok := r.(map[string]any)
		if !ok {
			continue
		}
		symbol, _ := quote["symbol"].(string)
		ticker, ok := requested[strings.TrimSuffix(strings.ToUpper(symbol), ".SA")]
		if !ok {
			b.log.Debug().Str("symbol", symbol).Msg("unrequested symbol ignored")
			continue
		}
		price, ok := quote["regularMarketPrice"].(float64)
		if !ok || price <= 0 {
			continue
		}
		currency, _ := quote["currency"].(string)
		if currency == "" {
			currency = b.currency
		}
		prices[ticker] = allocator.M(price, currency)
	}
	return prices, nil
}

// brapiMessage returns the message of an error body, prefixed for an error
// string, or "".
func brapiMessage(doc any) string {
	if m, err := jsonpath.Get("$.message", doc); err == nil {
		if msg, ok := m.(string); ok && msg != "" {
			return ": " + msg
		}
	}
	return ""
}
