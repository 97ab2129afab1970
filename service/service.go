// Package service runs the use cases of the allocator: it fetches quotes,
// calls the engine and persists the outcome, each write in one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/quotes"
	"github.com/etnz/allocator/store"
)

// Options tune the service.
type Options struct {
	// Surplus tunes the equal split strategy used for new portfolios.
	Surplus allocator.Options
	// Balanced tunes the category balanced strategy used for rebalancing.
	Balanced allocator.Options
	Currency string
	// Refresh is the provider of RefreshQuotes. It defaults to the provider
	// of the service.
	Refresh quotes.Provider
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default strategy tuning in the default currency.
func DefaultOptions() Options {
	surplus, balanced := allocator.DefaultOptions(), allocator.DefaultOptions()
	surplus.MaxIterations = allocator.DefaultSurplusIterations
	balanced.MaxIterations = allocator.DefaultBalancedIterations
	return Options{Surplus: surplus, Balanced: balanced, Currency: allocator.DefaultCurrency}
}

// Service is the application layer over the store and the quote providers.
type Service struct {
	store  *store.Store
	quotes quotes.Provider
	opts   Options
	log    zerolog.Logger
}

// New returns a service. A nil provider prices nothing.
func New(st *store.Store, provider quotes.Provider, log zerolog.Logger, opts Options) *Service {
	if provider == nil {
		provider = quotes.Static{}
	}
	if opts.Currency == "" {
		opts.Currency = allocator.DefaultCurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Refresh == nil {
		opts.Refresh = provider
	}
	log = log.With().Str("service", "allocation").Logger()
	for _, o := range []*allocator.Options{&opts.Surplus, &opts.Balanced} {
		if o.Logger == nil {
			o.Logger = &log
		}
	}
	return &Service{store: st, quotes: provider, opts: opts, log: log}
}

// Currency is the currency of new amounts.
func (s *Service) Currency() string { return s.opts.Currency }

// today is the current date at midnight UTC, the resolution of the history.
func (s *Service) today() time.Time {
	now := s.opts.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// strategy returns the strategy named name, or def when name is empty.
func (s *Service) strategy(name, def string) (allocator.AllocationStrategy, error) {
	if name == "" {
		name = def
	}
	opts := s.opts.Surplus
	if name == allocator.CategoryBalanceName {
		opts = s.opts.Balanced
	}
	st, err := allocator.NewStrategy(name, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", allocator.ErrInvalidInput, err)
	}
	return st, nil
}

// Quotes returns the market prices of tickers. A provider failure is logged
// and the tickers it could not price are absent.
func (s *Service) Quotes(ctx context.Context, tickers []string) map[string]allocator.Money {
	if len(tickers) == 0 {
		return map[string]allocator.Money{}
	}
	prices, err := s.quotes.Prices(ctx, tickers)
	if err != nil {
		s.log.Warn().Err(err).Strs("tickers", tickers).Msg("some quotes are unavailable")
	}
	if prices == nil {
		prices = map[string]allocator.Money{}
	}
	return prices
}

// prices returns the price of tickers for a portfolio: its manual quotes
// first, then the market. An empty portfolio id means market prices only.
func (s *Service) prices(ctx context.Context, portfolioID string, tickers []string) (map[string]allocator.Money, error) {
	manual := map[string]allocator.Money{}
	if portfolioID != "" {
		var err error
		if manual, err = s.store.ManualQuotes(ctx, portfolioID); err != nil {
			return nil, err
		}
	}
	var missing []string
	for _, t := range tickers {
		if !manual[t].IsPositive() {
			missing = append(missing, t)
		}
	}
	prices := s.Quotes(ctx, missing)
	for t, p := range manual {
		prices[t] = p
	}
	return prices, nil
}

// AssetInput is an asset selected by the user. A zero price is resolved from
// the quotes.
type AssetInput struct {
	Ticker   string             `json:"ticker"`
	Category allocator.Category `json:"category"`
	Price    allocator.Money    `json:"price,omitzero"`
}

// assets resolves the price of the selection. Unknown prices stay zero: the
// engine keeps those assets unbought.
func (s *Service) assets(ctx context.Context, portfolioID string, in []AssetInput) ([]allocator.Asset, error) {
	in = slices.Clone(in)
	var unpriced []string
	for i := range in {
		in[i].Ticker = strings.ToUpper(strings.TrimSpace(in[i].Ticker))
		if !in[i].Price.IsPositive() {
			unpriced = append(unpriced, in[i].Ticker)
		}
	}
	prices, err := s.prices(ctx, portfolioID, unpriced)
	if err != nil {
		return nil, err
	}
	assets := make([]allocator.Asset, len(in))
	for i, a := range in {
		assets[i] = allocator.Asset{Ticker: a.Ticker, Category: a.Category, Price: a.Price}
		if !a.Price.IsPositive() {
			assets[i].Price = prices[a.Ticker]
			if !assets[i].Price.IsPositive() {
				s.log.Warn().Str("ticker", a.Ticker).Msg("no price known, asset left out of the allocation")
			}
		}
	}
	return assets, nil
}

// money qualifies an amount given without currency.
func (s *Service) money(m allocator.Money) allocator.Money {
	if m.Currency() == "" {
		return allocator.M(m.Decimal(), s.opts.Currency)
	}
	return m
}

// Profiles returns the allocation profiles.
func (s *Service) Profiles(ctx context.Context) ([]allocator.Profile, error) {
	return s.store.Profiles(ctx)
}

// Portfolios returns the portfolios, most recent first.
func (s *Service) Portfolios(ctx context.Context, activeOnly bool) ([]allocator.Portfolio, error) {
	return s.store.Portfolios(ctx, activeOnly)
}

// Portfolio returns a portfolio.
func (s *Service) Portfolio(ctx context.Context, id string) (allocator.Portfolio, error) {
	return s.store.Portfolio(ctx, id)
}

// PlanInput describes a new portfolio.
type PlanInput struct {
	ProfileID string          `json:"profile_id"`
	Capital   allocator.Money `json:"capital"`
	Assets    []AssetInput    `json:"assets"`
	// Strategy defaults to the equal split.
	Strategy string `json:"strategy,omitempty"`
}

// Plan previews the allocation of a new portfolio.
func (s *Service) Plan(ctx context.Context, in PlanInput) (*allocator.Plan, error) {
	profile, err := s.store.Profile(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}
	st, err := s.strategy(in.Strategy, allocator.EqualSplitName)
	if err != nil {
		return nil, err
	}
	assets, err := s.assets(ctx, "", in.Assets)
	if err != nil {
		return nil, err
	}
	return st.Allocate(allocator.Request{Profile: profile, Capital: s.money(in.Capital), Assets: assets})
}

// CreateInput describes a new portfolio and its name.
type CreateInput struct {
	Name string `json:"name"`
	PlanInput
}

// Create allocates and stores a new portfolio.
func (s *Service) Create(ctx context.Context, in CreateInput) (*allocator.Creation, error) {
	plan, err := s.Plan(ctx, in.PlanInput)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.Profile(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}
	c, err := allocator.NewPortfolio(in.Name, profile, plan, s.today())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePortfolio(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("portfolio", c.Portfolio.ID).Str("name", c.Portfolio.Name).Stringer("invested", plan.Invested()).Msg("portfolio created")
	return c, nil
}

// Contribute records purchases made with new cash. Buys without a price are
// priced from the quotes. When amount is positive, the purchases must fit in it.
func (s *Service) Contribute(ctx context.Context, id string, amount allocator.Money, buys []allocator.Buy) (*allocator.Contribution, error) {
	p, err := s.store.Portfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.Positions(ctx, id)
	if err != nil {
		return nil, err
	}
	buys = slices.Clone(buys)
	var unpriced []string
	for i := range buys {
		buys[i].Ticker = strings.ToUpper(strings.TrimSpace(buys[i].Ticker))
		if !buys[i].Price.IsPositive() {
			unpriced = append(unpriced, buys[i].Ticker)
		}
	}
	if len(unpriced) > 0 {
		prices, err := s.prices(ctx, id, unpriced)
		if err != nil {
			return nil, err
		}
		for i := range buys {
			if !buys[i].Price.IsPositive() {
				buys[i].Price = prices[buys[i].Ticker]
			}
		}
	}

	c, err := allocator.Contribute(p, positions, buys, s.today())
	if err != nil {
		return nil, err
	}
	if amount.IsPositive() && c.Total().GreaterThan(amount) {
		return nil, fmt.Errorf("%w: purchases %v exceed the contribution %v", allocator.ErrBudgetExceeded, c.Total(), amount)
	}
	if err := s.store.Contribute(ctx, id, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("portfolio", id).Stringer("total", c.Total()).Int("purchases", len(c.Transactions)).Msg("contribution recorded")
	return c, nil
}

// RebalanceInput describes the migration of a portfolio to a new allocation.
type RebalanceInput struct {
	PortfolioID string `json:"-"`
	// ProfileID defaults to the profile of the portfolio.
	ProfileID    string          `json:"profile_id,omitempty"`
	Contribution allocator.Money `json:"contribution,omitzero"`
	// Assets is the new selection. Empty keeps the assets held. Held assets
	// left out of the selection are sold.
	Assets []AssetInput `json:"assets,omitempty"`
	// Sales are explicit sale prices by ticker.
	Sales map[string]allocator.Money `json:"sales,omitempty"`
	// Strategy defaults to the category balanced greedy.
	Strategy string `json:"strategy,omitempty"`
}

// Rebalance is a rebalance plan with the records its migration writes.
type Rebalance struct {
	Plan      *allocator.Plan            `json:"plan"`
	Migration *allocator.MigrationResult `json:"-"`
	// External is the value of held assets left out of the selection,
	// added to the capital of the plan.
	External allocator.Money `json:"external"`
}

// PreviewRebalance computes the rebalance of a portfolio without writing
// anything.
func (s *Service) PreviewRebalance(ctx context.Context, in RebalanceInput) (*Rebalance, error) {
	old, err := s.store.Portfolio(ctx, in.PortfolioID)
	if err != nil {
		return nil, err
	}
	if !old.Active {
		return nil, fmt.Errorf("%w: %q was already migrated", allocator.ErrPortfolioClosed, old.Name)
	}
	if in.ProfileID == "" {
		in.ProfileID = old.ProfileID
	}
	profile, err := s.store.Profile(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}
	st, err := s.strategy(in.Strategy, allocator.CategoryBalanceName)
	if err != nil {
		return nil, err
	}
	holdings, err := s.store.Positions(ctx, old.ID)
	if err != nil {
		return nil, err
	}

	sales := make(map[string]allocator.Money, len(in.Sales))
	for t, p := range in.Sales {
		sales[strings.ToUpper(strings.TrimSpace(t))] = p
	}
	selection := slices.Clone(in.Assets)
	if len(selection) == 0 {
		for _, h := range holdings {
			selection = append(selection, AssetInput{Ticker: h.Ticker, Category: h.Category})
		}
	}
	// explicit sale prices are the prices the plan trades at.
	selected := make(map[string]bool, len(selection))
	for i, a := range selection {
		t := strings.ToUpper(strings.TrimSpace(a.Ticker))
		selected[t] = true
		if p := sales[t]; p.IsPositive() {
			selection[i].Price = p
		}
	}
	assets, err := s.assets(ctx, old.ID, selection)
	if err != nil {
		return nil, err
	}

	var dropped []string
	for _, h := range holdings {
		if !selected[h.Ticker] {
			dropped = append(dropped, h.Ticker)
		}
	}
	known, err := s.prices(ctx, old.ID, dropped)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if a.Price.IsPositive() {
			known[a.Ticker] = a.Price
		}
	}
	external := allocator.M(0, s.opts.Currency)
	for _, h := range holdings {
		if selected[h.Ticker] {
			continue
		}
		price := h.AveragePrice
		for _, p := range []allocator.Money{sales[h.Ticker], known[h.Ticker]} {
			if p.IsPositive() {
				price = p
				break
			}
		}
		external = external.Add(price.Mul(h.Quantity))
	}

	contribution := s.money(in.Contribution)
	plan, err := st.Allocate(allocator.Request{
		Profile:  profile,
		Capital:  contribution.Add(external),
		Assets:   assets,
		Holdings: holdings,
	})
	if err != nil {
		return nil, err
	}
	res, err := allocator.Reconstruct(allocator.Migration{
		Old:          old,
		OldPositions: holdings,
		Profile:      profile,
		Plan:         plan,
		Contribution: contribution,
		Sales:        sales,
		Quotes:       known,
		On:           s.today(),
	})
	if err != nil {
		return nil, err
	}
	return &Rebalance{Plan: plan, Migration: res, External: external}, nil
}

// Rebalance migrates a portfolio to a new allocation: the old portfolio is
// closed and replaced by a new one, atomically.
func (s *Service) Rebalance(ctx context.Context, in RebalanceInput) (*Rebalance, error) {
	r, err := s.PreviewRebalance(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitMigration(ctx, r.Migration); err != nil {
		return nil, err
	}
	return r, nil
}

// Value values a portfolio with its manual quotes and the market.
func (s *Service) Value(ctx context.Context, id string) (*allocator.Valuation, error) {
	p, err := s.store.Portfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.Positions(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return allocator.Value(p, positions, nil, nil), nil
	}
	manual, err := s.store.ManualQuotes(ctx, id)
	if err != nil {
		return nil, err
	}
	var tickers []string
	for _, pos := range positions {
		if !manual[pos.Ticker].IsPositive() {
			tickers = append(tickers, pos.Ticker)
		}
	}
	return allocator.Value(p, positions, manual, s.Quotes(ctx, tickers)), nil
}

// SetManualQuote sets the price a portfolio values ticker at.
func (s *Service) SetManualQuote(ctx context.Context, id, ticker string, price allocator.Money) error {
	return s.store.SetManualQuote(ctx, id, ticker, price, s.opts.Now())
}

// SetNotes replaces the notes of a portfolio.
func (s *Service) SetNotes(ctx context.Context, id, notes string) error {
	return s.store.SetNotes(ctx, id, notes)
}

// Duplicate copies a portfolio. An empty name means "Copy of <name>".
func (s *Service) Duplicate(ctx context.Context, id, name string) (allocator.Portfolio, error) {
	return s.store.DuplicatePortfolio(ctx, id, name, s.today())
}

// Delete deletes a portfolio and everything it holds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePortfolio(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("portfolio", id).Msg("portfolio deleted")
	return nil
}

// History is the transaction history of a portfolio lineage.
type History struct {
	// Lineage lists the portfolio and its ancestors, oldest first.
	Lineage      []allocator.Portfolio
	Transactions []allocator.Transaction
}

// History returns the transactions of a portfolio and of the portfolios it
// was migrated from, in chronological order.
func (s *Service) History(ctx context.Context, id string) (*History, error) {
	h := &History{}
	seen := map[string]bool{}
	for next := id; next != "" && !seen[next]; {
		seen[next] = true
		p, err := s.store.Portfolio(ctx, next)
		if errors.Is(err, store.ErrNotFound) && next != id {
			break // origin deleted
		}
		if err != nil {
			return nil, err
		}
		h.Lineage = append([]allocator.Portfolio{p}, h.Lineage...)
		next = p.OriginID
	}
	for _, p := range h.Lineage {
		txs, err := s.store.Transactions(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		h.Transactions = append(h.Transactions, txs...)
	}
	return h, nil
}

// RefreshQuotes updates the quote cache for every ticker held by an active
// portfolio.
func (s *Service) RefreshQuotes(ctx context.Context) (int, error) {
	return quotes.Refresh(ctx, s.opts.Refresh, s.store, s.opts.Now(), s.log)
}

// DividendInput is a dividend received by a portfolio.
type DividendInput struct {
	Ticker string          `json:"ticker"`
	Amount allocator.Money `json:"amount"`
	// Date defaults to today.
	Date       time.Time `json:"-"`
	Reinvested bool      `json:"reinvested"`
}

// RecordDividend records a dividend paid by an asset the portfolio holds.
func (s *Service) RecordDividend(ctx context.Context, id string, in DividendInput) (allocator.Dividend, error) {
	p, err := s.store.Portfolio(ctx, id)
	if err != nil {
		return allocator.Dividend{}, err
	}
	positions, err := s.store.Positions(ctx, id)
	if err != nil {
		return allocator.Dividend{}, err
	}
	on := in.Date
	if on.IsZero() {
		on = s.today()
	}
	amount := in.Amount
	if amount.Currency() == "" {
		amount = allocator.M(amount.Decimal(), p.InitialValue.Currency())
	}
	d, err := allocator.NewDividend(id, in.Ticker, amount, on, in.Reinvested)
	if err != nil {
		return allocator.Dividend{}, err
	}
	if !slices.ContainsFunc(positions, func(p allocator.Position) bool { return p.Ticker == d.Ticker }) {
		return allocator.Dividend{}, fmt.Errorf("%w: the portfolio does not hold %s", allocator.ErrInvalidInput, d.Ticker)
	}
	if err := s.store.AddDividend(ctx, d); err != nil {
		return allocator.Dividend{}, err
	}
	s.log.Info().Str("portfolio", id).Str("ticker", d.Ticker).Stringer("amount", d.Amount).Msg("dividend recorded")
	return d, nil
}

// Income is the dividend history of a portfolio with its summary.
type Income struct {
	Dividends []allocator.Dividend `json:"dividends"`
	Summary   *allocator.Income    `json:"summary"`
}

// Dividends returns the dividends of a portfolio, most recent first, and
// their summary as of today.
func (s *Service) Dividends(ctx context.Context, id string) (*Income, error) {
	p, err := s.store.Portfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	positions, err := s.store.Positions(ctx, id)
	if err != nil {
		return nil, err
	}
	dividends, err := s.store.Dividends(ctx, id)
	if err != nil {
		return nil, err
	}
	if dividends == nil {
		dividends = []allocator.Dividend{}
	}
	summary := allocator.SummarizeIncome(dividends, positions, s.today(), p.InitialValue.Currency())
	return &Income{Dividends: dividends, Summary: summary}, nil
}

// SetGoal sets the wealth a portfolio should reach, by date when not nil.
func (s *Service) SetGoal(ctx context.Context, id string, target allocator.Money, date *time.Time) (allocator.Goal, error) {
	g, err := allocator.NewGoal(id, s.money(target), date)
	if err != nil {
		return allocator.Goal{}, err
	}
	if err := s.store.SetGoal(ctx, g); err != nil {
		return allocator.Goal{}, err
	}
	return g, nil
}

// ClearGoal removes the goal of a portfolio.
func (s *Service) ClearGoal(ctx context.Context, id string) error {
	if _, err := s.store.Portfolio(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteGoal(ctx, id)
}

// ForecastInput is a contribution plan to project.
type ForecastInput struct {
	Monthly allocator.Money   `json:"monthly"`
	Rate    allocator.Percent `json:"rate"`
	Years   int               `json:"years"`
}

// DefaultForecast contributes 1000 a month at 10% a year over 10 years.
func (s *Service) DefaultForecast() ForecastInput {
	return ForecastInput{Monthly: allocator.M(1000, s.opts.Currency), Rate: 10, Years: 10}
}

// Forecast values a portfolio, measures it against its goal, and projects
// it under a contribution plan.
func (s *Service) Forecast(ctx context.Context, id string, in ForecastInput) (*allocator.Forecast, error) {
	v, err := s.Value(ctx, id)
	if err != nil {
		return nil, err
	}
	var goal *allocator.Goal
	switch g, err := s.store.Goal(ctx, id); {
	case err == nil:
		goal = &g
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	currency := v.Portfolio.InitialValue.Currency()
	value := allocator.M(0, currency).Add(v.Value)
	monthly := allocator.M(in.Monthly.Decimal(), currency)
	return allocator.NewForecast(value, goal, monthly, in.Rate, in.Years, s.today())
}

// Consolidated values every active portfolio and sums them up.
func (s *Service) Consolidated(ctx context.Context) (*allocator.Consolidation, error) {
	portfolios, err := s.store.Portfolios(ctx, true)
	if err != nil {
		return nil, err
	}
	valuations := make([]*allocator.Valuation, 0, len(portfolios))
	for _, p := range portfolios {
		v, err := s.Value(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		valuations = append(valuations, v)
	}
	return allocator.Consolidate(valuations, s.opts.Currency)
}
