package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/service"
)

func TestDividends(t *testing.T) {
	s := newServer(t)
	p := create(t, s)
	path := "/api/portfolios/" + p.ID + "/dividends"

	var d allocator.Dividend
	rec := do(t, s, "POST", path, `{"ticker": "eq", "amount": 20, "date": "2025-02-03", "reinvested": true}`, &d)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "EQ", d.Ticker)
	assert.True(t, d.Amount.Equal(brl(20)))
	assert.True(t, d.Reinvested)
	assert.Equal(t, "2025-02-03", d.Date.Format("2006-01-02"))

	rec = do(t, s, "POST", path, `{"ticker": "EQ", "amount": 5}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var in service.Income
	rec = do(t, s, "GET", path, "", &in)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, in.Dividends, 2)
	assert.Equal(t, "2025-03-10", in.Dividends[0].Date.Format("2006-01-02"), "dated today by default")
	assert.True(t, in.Summary.Year.Equal(brl(25)))
	assert.True(t, in.Summary.Month.Equal(brl(5)))
	assert.Len(t, in.Summary.Monthly, 12)

	for _, tt := range []struct {
		name, body string
		status     int
	}{
		{"not held", `{"ticker": "NOPE", "amount": 1}`, http.StatusBadRequest},
		{"zero amount", `{"ticker": "EQ", "amount": 0}`, http.StatusBadRequest},
		{"bad date", `{"ticker": "EQ", "amount": 1, "date": "03/02/2025"}`, http.StatusBadRequest},
		{"unknown field", `{"ticker": "EQ", "amount": 1, "valor": 1}`, http.StatusBadRequest},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", path, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/api/portfolios/nope/dividends", "", nil).Code)
}

func TestGoal(t *testing.T) {
	s := newServer(t)
	p := create(t, s)
	path := "/api/portfolios/" + p.ID + "/goal"

	var f allocator.Forecast
	rec := do(t, s, "GET", path, "", &f)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, f.Goal)
	assert.Len(t, f.Projection, 11, "10 years by default")

	var g allocator.Goal
	rec = do(t, s, "PUT", path, `{"target": 2000, "date": "2026-03-10"}`, &g)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, g.Target.Equal(brl(2000)))

	rec = do(t, s, "GET", path+"?monthly=0&rate=0&years=1", "", &f)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.Goal)
	assert.InDelta(t, 50.0, float64(f.Progress), 0.001)
	assert.Equal(t, 12, f.Months)
	assert.True(t, f.Required.Equal(brl(83.33)), "required %v", f.Required.Decimal())
	assert.Len(t, f.Projection, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, s, "GET", path+"?years=abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, "GET", path+"?years=500", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, "PUT", path, `{"target": -1}`, nil).Code)

	assert.Equal(t, http.StatusNoContent, do(t, s, "DELETE", path, "", nil).Code)
	rec = do(t, s, "GET", path, "", &f)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.Goal)
}

func TestConsolidated(t *testing.T) {
	s := newServer(t)

	var empty map[string]any
	rec := do(t, s, "GET", "/api/consolidated", "", &empty)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, empty["portfolios"])
	assert.NotContains(t, empty, "dominant")

	create(t, s)
	create(t, s)
	var resp struct {
		Value      allocator.Money            `json:"value"`
		Gain       allocator.Money            `json:"gain"`
		Tickers    int                        `json:"tickers"`
		Portfolios []allocator.PortfolioShare `json:"portfolios"`
		Dominant   *allocator.CategoryTotal   `json:"dominant"`
	}
	rec = do(t, s, "GET", "/api/consolidated", "", &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Value.Equal(brl(2000)))
	assert.True(t, resp.Gain.IsZero())
	assert.Equal(t, 3, resp.Tickers)
	assert.Len(t, resp.Portfolios, 2)
	require.NotNil(t, resp.Dominant)
	assert.Equal(t, allocator.Equity, resp.Dominant.Category)
}
