package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/service"
)

// parseAsset parses "TICKER:CATEGORY[:PRICE]". Without a price the asset is
// priced from the quotes.
func parseAsset(s, currency string) (service.AssetInput, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return service.AssetInput{}, fmt.Errorf("invalid asset %q, want TICKER:CATEGORY[:PRICE]", s)
	}
	a := service.AssetInput{Ticker: strings.ToUpper(strings.TrimSpace(parts[0]))}
	if a.Ticker == "" {
		return a, fmt.Errorf("invalid asset %q: empty ticker", s)
	}
	var err error
	if a.Category, err = allocator.ParseCategory(parts[1]); err != nil {
		return a, fmt.Errorf("invalid asset %q: %w", s, err)
	}
	if len(parts) == 3 {
		if a.Price, err = allocator.ParseMoney(parts[2], currency); err != nil {
			return a, fmt.Errorf("invalid asset %q: %w", s, err)
		}
	}
	return a, nil
}

func parseAssets(args []string, currency string) ([]service.AssetInput, error) {
	assets := make([]service.AssetInput, 0, len(args))
	for _, arg := range args {
		a, err := parseAsset(arg, currency)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// parseBuy parses "TICKER:QUANTITY[:PRICE[:CATEGORY]]". The category is
// only needed for a ticker not held yet.
func parseBuy(s, currency string) (allocator.Buy, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return allocator.Buy{}, fmt.Errorf("invalid purchase %q, want TICKER:QUANTITY[:PRICE[:CATEGORY]]", s)
	}
	b := allocator.Buy{Ticker: strings.ToUpper(strings.TrimSpace(parts[0]))}
	var err error
	if b.Quantity, err = allocator.ParseQuantity(strings.TrimSpace(parts[1])); err != nil {
		return b, fmt.Errorf("invalid purchase %q: quantity: %w", s, err)
	}
	if len(parts) > 2 && parts[2] != "" {
		if b.Price, err = allocator.ParseMoney(parts[2], currency); err != nil {
			return b, fmt.Errorf("invalid purchase %q: %w", s, err)
		}
	}
	if len(parts) > 3 {
		if b.Category, err = allocator.ParseCategory(parts[3]); err != nil {
			return b, fmt.Errorf("invalid purchase %q: %w", s, err)
		}
	}
	return b, nil
}

// salePrices is a repeatable TICKER=PRICE flag.
type salePrices struct {
	currency string
	prices   map[string]allocator.Money
}

func (s *salePrices) String() string {
	var parts []string
	for t, p := range s.prices {
		parts = append(parts, t+"="+p.Decimal().String())
	}
	return strings.Join(parts, ",")
}

func (s *salePrices) Set(v string) error {
	for _, pair := range strings.Split(v, ",") {
		ticker, price, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid sale %q, want TICKER=PRICE", pair)
		}
		p, err := allocator.ParseMoney(price, s.currency)
		if err != nil {
			return err
		}
		if !p.IsPositive() {
			return fmt.Errorf("sale price of %s must be positive", ticker)
		}
		if s.prices == nil {
			s.prices = make(map[string]allocator.Money)
		}
		s.prices[strings.ToUpper(strings.TrimSpace(ticker))] = p
	}
	return nil
}

// parseDividend parses "TICKER:AMOUNT".
func parseDividend(s, currency string) (string, allocator.Money, error) {
	ticker, value, ok := strings.Cut(s, ":")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !ok || ticker == "" {
		return "", allocator.Money{}, fmt.Errorf("invalid dividend %q, want TICKER:AMOUNT", s)
	}
	amount, err := allocator.ParseMoney(value, currency)
	if err != nil {
		return "", allocator.Money{}, fmt.Errorf("invalid dividend %q: %w", s, err)
	}
	return ticker, amount, nil
}

// parseDay parses an optional YYYY-MM-DD flag. Empty is the zero time.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	on, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return on, nil
}
