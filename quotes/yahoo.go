package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/etnz/allocator"
)

const DefaultYahooURL = "https://query1.finance.yahoo.com"

// b3Ticker matches tickers listed on B3, such as PETR4 or BOVA11.
var b3Ticker = regexp.MustCompile(`^[A-Z]{4}\d{1,2}$`)

// YahooSymbol is the Yahoo Finance symbol of ticker: B3 tickers get the .SA
// suffix, anything else is used as is.
func YahooSymbol(ticker string) string {
	if b3Ticker.MatchString(ticker) {
		return ticker + ".SA"
	}
	return ticker
}

// Yahoo fetches quotes from the Yahoo Finance chart API, one ticker at a
// time.
type Yahoo struct {
	client
}

func NewYahoo(opts ...Option) *Yahoo {
	return &Yahoo{client: newClient(DefaultYahooURL, opts)}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Prices(ctx context.Context, tickers []string) (map[string]allocator.Money, error) {
	prices := make(map[string]allocator.Money)
	var errs []error
	for _, t := range normalize(tickers) {
		price, err := y.price(ctx, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if price.IsPositive() {
			prices[t] = price
		}
	}
	return prices, errors.Join(errs...)
}

func (y *Yahoo) price(ctx context.Context, ticker string) (allocator.Money, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", strings.TrimRight(y.baseURL, "/"), url.PathEscape(YahooSymbol(ticker)))
	doc, err := y.getJSON(ctx, addr)
	if err != nil {
		return allocator.Money{}, fmt.Errorf("yahoo quote of %s: %w", ticker, err)
	}
	path := "$.chart.result[0].meta.regularMarketPrice"
	jval, err := jsonpath.Get(path, doc)
	if err != nil {
		return allocator.Money{}, fmt.Errorf("yahoo quote of %s: %q: %w", ticker, path, err)
	}
	val, ok := jval.(float64)
	if !ok {
		return allocator.Money{}, fmt.Errorf("yahoo quote of %s: %q is not a number: %v", ticker, path, jval)
	}
	currency := y.currency
	if c, err := jsonpath.Get("$.chart.result[0].meta.currency", doc); err == nil {
		if s, ok := c.(string); ok && s != "" {
			currency = s
		}
	}
	return allocator.M(val, currency), nil
}
