package agent

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/quotes"
	"github.com/etnz/allocator/service"
	"github.com/etnz/allocator/store"
)

func brl(v float64) allocator.Money { return allocator.M(v, "BRL") }

// newService returns a service holding one moderate portfolio.
func newService(t *testing.T) (*service.Service, allocator.Portfolio) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "alloc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts := service.DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC) }
	svc := service.New(st, quotes.Static{"EQ": brl(10), "INTL": brl(50), "FIX": brl(10)}, zerolog.Nop(), opts)

	c, err := svc.Create(context.Background(), service.CreateInput{
		Name: "Retirement",
		PlanInput: service.PlanInput{ProfileID: "moderate", Capital: brl(1000), Assets: []service.AssetInput{
			{Ticker: "EQ", Category: allocator.Equity},
			{Ticker: "INTL", Category: allocator.IntlETF},
			{Ticker: "FIX", Category: allocator.FixedIncomeETF},
		}},
	})
	require.NoError(t, err)
	return svc, c.Portfolio
}

func call(t *testing.T, lib Library, name string, args map[string]any) map[string]any {
	t.Helper()
	resp := lib(context.Background(), &genai.FunctionCall{ID: "1", Name: name, Args: args})
	require.NotNil(t, resp)
	assert.Equal(t, "1", resp.ID)
	return resp.Response
}

func TestAdvisorFunctions(t *testing.T) {
	svc, p := newService(t)
	lib := NewLibrary(AdvisorFunctions(svc))

	out := call(t, lib, "list_portfolios", nil)
	require.Contains(t, out, "output")
	assert.Contains(t, out["output"], "Retirement")
	assert.Contains(t, out["output"], p.ID)

	out = call(t, lib, "show_portfolio", map[string]any{"id": p.ID})
	require.Contains(t, out, "output", out["error"])
	assert.True(t, strings.HasPrefix(out["output"].(string), "# Retirement"))

	out = call(t, lib, "preview_rebalance", map[string]any{"id": p.ID, "profile_id": "aggressive", "contribution": 500.0})
	require.Contains(t, out, "output", out["error"])
	assert.Contains(t, out["output"], "# Allocation Plan")
	assert.Contains(t, out["output"], "# Rebalance of Retirement")

	list, err := svc.Portfolios(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a preview writes nothing")
}

func TestAdvisorFunctions_Income(t *testing.T) {
	svc, p := newService(t)
	lib := NewLibrary(AdvisorFunctions(svc))

	_, err := svc.RecordDividend(context.Background(), p.ID, service.DividendInput{Ticker: "EQ", Amount: brl(12)})
	require.NoError(t, err)
	out := call(t, lib, "show_dividends", map[string]any{"id": p.ID})
	require.Contains(t, out, "output", out["error"])
	assert.True(t, strings.HasPrefix(out["output"].(string), "# Dividends of Retirement"))
	assert.Contains(t, out["output"], "2025-03-10")

	out = call(t, lib, "forecast_portfolio", map[string]any{"id": p.ID, "monthly": 0.0, "rate": 0.0, "years": 2.0})
	require.Contains(t, out, "output", out["error"])
	assert.Contains(t, out["output"], "## Projection")
	assert.Contains(t, out["output"], "2027")
	assert.NotContains(t, out["output"], "2028")

	out = call(t, lib, "consolidated", nil)
	require.Contains(t, out, "output", out["error"])
	assert.Contains(t, out["output"], "# Consolidated")
	assert.Contains(t, out["output"], p.ID)
}

func TestAdvisorFunctions_Errors(t *testing.T) {
	svc, p := newService(t)
	lib := NewLibrary(AdvisorFunctions(svc))

	tests := []struct {
		name     string
		function string
		args     map[string]any
		want     string
	}{
		{"unknown function", "sell_everything", nil, "unknown function"},
		{"missing id", "show_portfolio", nil, `"id" is required`},
		{"wrong type", "show_portfolio", map[string]any{"id": 12.0}, "not a string"},
		{"unknown portfolio", "show_portfolio", map[string]any{"id": "nope"}, "not found"},
		{"wrong contribution", "preview_rebalance", map[string]any{"id": p.ID, "contribution": "lots"}, "not a number"},
		{"unknown profile", "preview_rebalance", map[string]any{"id": p.ID, "profile_id": "reckless"}, "not found"},
		{"dividends of nothing", "show_dividends", map[string]any{"id": "nope"}, "not found"},
		{"wrong years", "forecast_portfolio", map[string]any{"id": p.ID, "years": "many"}, "not a number"},
		{"too many years", "forecast_portfolio", map[string]any{"id": p.ID, "years": 500.0}, "invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := call(t, lib, tt.function, tt.args)
			require.Contains(t, out, "error")
			assert.Contains(t, out["error"], tt.want)
		})
	}
}

func TestNewAdvisor(t *testing.T) {
	svc, _ := newService(t)
	a := NewAdvisor("gemini-test", svc)
	var names []string
	for _, d := range a.Config.Tools[0].FunctionDeclarations {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list_portfolios", "show_portfolio", "preview_rebalance", "show_dividends", "forecast_portfolio", "consolidated"}, names)
	assert.False(t, a.Started())

	d := a.Declaration()
	assert.Equal(t, "Advisor", d.Name)
	assert.Equal(t, []string{"question"}, d.Parameters.Required)
}

func TestExpert_CallWithoutQuestion(t *testing.T) {
	e := NewTrader("gemini-test")
	resp := e.Call(context.Background(), "7", map[string]any{})
	assert.Equal(t, "Trader", resp.Name)
	assert.Contains(t, resp.Response["error"], "question")
}

func TestRun_Bye(t *testing.T) {
	var out bytes.Buffer
	a := New(&out, strings.NewReader("never read\n"), "gemini-test", NewTrader("gemini-test"))
	// no question is asked: the client is never used.
	require.NoError(t, a.Run(context.Background(), nil, "  ", "bye"))
	assert.Contains(t, out.String(), "Welcome")
	assert.Equal(t, 2, strings.Count(out.String(), prompt))
	assert.False(t, a.Facilitator.Started())
}

func TestRun_EOF(t *testing.T) {
	var out bytes.Buffer
	a := New(&out, strings.NewReader("\n   \n"), "gemini-test")
	require.NoError(t, a.Run(context.Background(), nil))
	assert.False(t, a.Facilitator.Started())
}
