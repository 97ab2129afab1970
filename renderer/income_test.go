package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/allocator"
)

func TestDividendsMarkdown(t *testing.T) {
	positions := []allocator.Position{{Ticker: "EQ", Category: allocator.Equity, Quantity: allocator.Q(10), AveragePrice: brl(10)}}
	paid, err := allocator.NewDividend("p", "EQ", brl(5), day, true)
	if err != nil {
		t.Fatalf("NewDividend() error = %v", err)
	}
	dividends := []allocator.Dividend{paid}
	md := DividendsMarkdown("Savings", dividends, allocator.SummarizeIncome(dividends, positions, day, "BRL"))
	if !strings.HasPrefix(md, "# Dividends of Savings\n") {
		t.Errorf("DividendsMarkdown() starts with %q", md[:30])
	}

	got := tables(t, md)
	if len(got) != 4 {
		t.Fatalf("DividendsMarkdown() has %d tables, want 4", len(got))
	}
	if row := find(got[0], "Yield (year on cost)"); row == nil || row[1] != "5.00%" {
		t.Errorf("yield row = %v, want 5.00%%", row)
	}
	if row := find(got[1], "EQ"); row == nil || row[3] != "5.00%" {
		t.Errorf("EQ row = %v, want a 5%% yield", row)
	}
	if len(got[2]) != 13 {
		t.Errorf("monthly table has %d rows, want header + 12", len(got[2]))
	}
	if row := find(got[3], "2025-03-10"); row == nil || row[3] != "yes" {
		t.Errorf("history row = %v, want a reinvested dividend", row)
	}
}

func TestDividendsMarkdown_Empty(t *testing.T) {
	md := DividendsMarkdown("Savings", nil, allocator.SummarizeIncome(nil, nil, day, "BRL"))
	if got := tables(t, md); len(got) != 1 {
		t.Errorf("DividendsMarkdown() has %d tables, want the summary only", len(got))
	}
	if !strings.Contains(md, "No dividend.") {
		t.Errorf("empty history not reported:\n%s", md)
	}
}

func TestForecastMarkdown(t *testing.T) {
	by := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	goal, err := allocator.NewGoal("p", brl(2200), &by)
	if err != nil {
		t.Fatalf("NewGoal() error = %v", err)
	}
	f, err := allocator.NewForecast(brl(1000), &goal, brl(100), 0, 2, day)
	if err != nil {
		t.Fatalf("NewForecast() error = %v", err)
	}
	md := ForecastMarkdown("Savings", f)
	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("ForecastMarkdown() has %d tables, want 2", len(got))
	}
	if row := find(got[0], "Required Monthly"); row == nil || row[1] != brl(100).String() {
		t.Errorf("required row = %v, want %v", row, brl(100))
	}
	if row := find(got[0], "Reached In"); row == nil || row[1] != "2026" {
		t.Errorf("reached row = %v, want 2026", row)
	}
	if row := find(got[1], "2027"); row == nil || row[1] != brl(3400).String() || row[3] != "-" {
		t.Errorf("2027 row = %v, want %v without interest", row, brl(3400))
	}

	f, err = allocator.NewForecast(brl(1000), nil, brl(100), 0, 2, day)
	if err != nil {
		t.Fatalf("NewForecast() error = %v", err)
	}
	if md := ForecastMarkdown("Savings", f); strings.Contains(md, "## Goal") {
		t.Errorf("goal section rendered without a goal:\n%s", md)
	}
}

func TestConsolidationMarkdown(t *testing.T) {
	p := allocator.Portfolio{ID: "p", Name: "Savings | house", ProfileID: "moderate", Active: true}
	v := allocator.Value(p, []allocator.Position{
		{Ticker: "EQ", Category: allocator.Equity, Quantity: allocator.Q(10), AveragePrice: brl(10)},
		{Ticker: "FIX", Category: allocator.FixedIncomeETF, Quantity: allocator.Q(5), AveragePrice: brl(10)},
	}, nil, nil)
	c, err := allocator.Consolidate([]*allocator.Valuation{v}, "BRL")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	md := ConsolidationMarkdown(c)
	got := tables(t, md)
	if len(got) != 3 {
		t.Fatalf("ConsolidationMarkdown() has %d tables, want 3", len(got))
	}
	if got[0][0][1] != brl(150).String() {
		t.Errorf("value = %v, want %v", got[0][0][1], brl(150))
	}
	if row := find(got[0], "Dominant Category"); row == nil || !strings.HasPrefix(row[1], "Equity") {
		t.Errorf("dominant row = %v, want Equity", row)
	}
	if row := find(got[2], "p"); row == nil || row[5] != "100.00%" {
		t.Errorf("portfolio row = %v, want the whole share", row)
	}

	empty, err := allocator.Consolidate(nil, "BRL")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if md := ConsolidationMarkdown(empty); !strings.Contains(md, "No active portfolio.") || strings.Contains(md, "## Categories") {
		t.Errorf("empty consolidation rendered as:\n%s", md)
	}
}
