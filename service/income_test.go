package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/store"
)

func TestRecordDividend(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p := create(t, s)

	d, err := s.RecordDividend(ctx, p.ID, DividendInput{Ticker: "eq", Amount: allocator.M(20, "")})
	require.NoError(t, err)
	assert.Equal(t, "EQ", d.Ticker)
	assert.Equal(t, "BRL", d.Amount.Currency())
	assert.True(t, d.Date.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)), "dated today")

	_, err = s.RecordDividend(ctx, p.ID, DividendInput{Ticker: "FIX", Amount: brl(10), Date: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), Reinvested: true})
	require.NoError(t, err)

	_, err = s.RecordDividend(ctx, p.ID, DividendInput{Ticker: "NOPE", Amount: brl(1)})
	assert.ErrorIs(t, err, allocator.ErrInvalidInput, "only held assets pay dividends")
	_, err = s.RecordDividend(ctx, p.ID, DividendInput{Ticker: "EQ", Amount: brl(0)})
	assert.ErrorIs(t, err, allocator.ErrInvalidInput)
	_, err = s.RecordDividend(ctx, "nope", DividendInput{Ticker: "EQ", Amount: brl(1)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	in, err := s.Dividends(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, in.Dividends, 2)
	assert.Equal(t, "EQ", in.Dividends[0].Ticker, "most recent first")
	assert.True(t, in.Summary.Total.Equal(brl(30)))
	assert.True(t, in.Summary.Year.Equal(brl(20)))
	assert.True(t, in.Summary.Invested.Equal(brl(1000)))
	assert.InDelta(t, 2.0, float64(in.Summary.Yield), 0.001)
	require.Len(t, in.Summary.Tickers, 1)
	assert.InDelta(t, 5.0, float64(in.Summary.Tickers[0].Yield), 0.001, "20 paid on a cost of 400")
}

func TestRecordDividend_Closed(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p := create(t, s)
	_, err := s.Rebalance(ctx, RebalanceInput{PortfolioID: p.ID})
	require.NoError(t, err)

	_, err = s.RecordDividend(ctx, p.ID, DividendInput{Ticker: "EQ", Amount: brl(1)})
	assert.ErrorIs(t, err, allocator.ErrPortfolioClosed)
}

func TestForecast(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	p := create(t, s)

	f, err := s.Forecast(ctx, p.ID, s.DefaultForecast())
	require.NoError(t, err)
	assert.Nil(t, f.Goal)
	assert.True(t, f.Value.Equal(brl(1000)))
	require.Len(t, f.Projection, 11)
	assert.Equal(t, 2025, f.Projection[0].Year)

	by := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err = s.SetGoal(ctx, p.ID, allocator.M(2000, ""), &by)
	require.NoError(t, err)
	f, err = s.Forecast(ctx, p.ID, ForecastInput{Years: 1})
	require.NoError(t, err)
	require.NotNil(t, f.Goal)
	assert.InDelta(t, 50.0, float64(f.Progress), 0.001)
	assert.Equal(t, 12, f.Months)
	assert.True(t, f.Required.Equal(brl(83.33)), "required %v", f.Required.Decimal())
	assert.Zero(t, f.ReachedIn, "nothing grows without contributions nor rate")

	_, err = s.Forecast(ctx, p.ID, ForecastInput{Years: -1})
	assert.ErrorIs(t, err, allocator.ErrInvalidInput)
	_, err = s.SetGoal(ctx, p.ID, brl(0), nil)
	assert.ErrorIs(t, err, allocator.ErrInvalidInput)

	require.NoError(t, s.ClearGoal(ctx, p.ID))
	f, err = s.Forecast(ctx, p.ID, ForecastInput{Years: 1})
	require.NoError(t, err)
	assert.Nil(t, f.Goal)

	assert.ErrorIs(t, s.ClearGoal(ctx, "nope"), store.ErrNotFound)
}

func TestConsolidated(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	c, err := s.Consolidated(ctx)
	require.NoError(t, err)
	assert.True(t, c.Value.IsZero())
	assert.Empty(t, c.Portfolios)

	first := create(t, s)
	create(t, s)
	c, err = s.Consolidated(ctx)
	require.NoError(t, err)
	assert.True(t, c.Value.Equal(brl(2000)))
	assert.Len(t, c.Portfolios, 2)
	assert.Equal(t, 3, c.Tickers)
	dominant, ok := c.Dominant()
	require.True(t, ok)
	assert.Equal(t, allocator.Equity, dominant.Category)
	assert.InDelta(t, 40.0, float64(dominant.Weight), 0.001)

	_, err = s.Rebalance(ctx, RebalanceInput{PortfolioID: first.ID})
	require.NoError(t, err)
	c, err = s.Consolidated(ctx)
	require.NoError(t, err)
	for _, share := range c.Portfolios {
		assert.NotEqual(t, first.ID, share.Portfolio.ID, "closed portfolios are left out")
	}
}
