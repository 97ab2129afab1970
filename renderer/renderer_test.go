package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/etnz/allocator"
)

var (
	moderate = allocator.Profile{ID: "moderate", Name: "Moderate", Equity: 40, IntlETF: 30, FixedIncome: 30}
	day      = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func brl(v float64) allocator.Money { return allocator.M(v, "BRL") }

// tables parses markdown and returns the text of every cell of every table,
// header row included.
func tables(t *testing.T, md string) [][][]string {
	t.Helper()
	src := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(src))

	var all [][][]string
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*east.Table); !ok {
			return ast.WalkContinue, nil
		}
		var rows [][]string
		for r := n.FirstChild(); r != nil; r = r.NextSibling() {
			var row []string
			for c := r.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, cellText(c, src))
			}
			rows = append(rows, row)
		}
		all = append(all, rows)
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return all
}

func cellText(n ast.Node, src []byte) string {
	var b strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// find returns the row of table starting with first.
func find(table [][]string, first string) []string {
	for _, r := range table {
		if len(r) > 0 && r[0] == first {
			return r
		}
	}
	return nil
}

func TestPlanMarkdown(t *testing.T) {
	plan, err := allocator.NewEqualSplitGreedy(allocator.DefaultOptions()).Allocate(allocator.Request{
		Profile: moderate,
		Capital: brl(1000),
		Assets: []allocator.Asset{
			{Ticker: "EQ", Category: allocator.Equity, Price: brl(10)},
			{Ticker: "INTL", Category: allocator.IntlETF, Price: brl(50)},
			{Ticker: "FIX", Category: allocator.FixedIncomeETF, Price: brl(10)},
		},
	})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	md := PlanMarkdown(plan, moderate)
	if !strings.HasPrefix(md, "# Allocation Plan\n") {
		t.Errorf("PlanMarkdown() starts with %q", md[:20])
	}

	got := tables(t, md)
	if len(got) != 3 {
		t.Fatalf("PlanMarkdown() has %d tables, want 3", len(got))
	}
	if row := find(got[0], "Leftover"); row == nil || row[1] != plan.Leftover().String() {
		t.Errorf("leftover row = %v, want %v", row, plan.Leftover())
	}
	if row := find(got[1], "International ETF"); row == nil || row[1] != "30.00%" {
		t.Errorf("category row = %v, want a 30.00%% target", row)
	}
	assets := got[2]
	if len(assets) != 4 {
		t.Fatalf("asset table has %d rows, want header + 3", len(assets))
	}
	if want := []string{"Ticker", "Category", "Price", "Held", "Planned", "Change", "Value", "Target"}; strings.Join(assets[0], ",") != strings.Join(want, ",") {
		t.Errorf("asset header = %v, want %v", assets[0], want)
	}
	if row := find(assets, "INTL (new)"); row == nil || row[4] != "6" || row[5] != "+6" {
		t.Errorf("INTL row = %v, want 6 planned", row)
	}
	if strings.Contains(md, "Warning") {
		t.Errorf("uncapped plan rendered with a warning")
	}
}

func TestPlanMarkdown_Unpriced(t *testing.T) {
	plan := &allocator.Plan{
		Strategy: allocator.CategoryBalanceName,
		Capital:  brl(100),
		Lines: []allocator.PlanLine{
			{Ticker: "HELD", Category: allocator.Equity, Start: allocator.Q(7), Quantity: allocator.Q(7)},
			{Ticker: "NOPRICE", Category: allocator.Equity, New: true},
		},
		Iterations: 200,
		Capped:     true,
	}
	md := PlanMarkdown(plan, moderate)
	assets := tables(t, md)[2]
	if row := find(assets, "NOPRICE (new)"); row == nil || row[2] != "unknown" || row[4] != "0" {
		t.Errorf("unpriced row = %v, want unknown price and nothing planned", row)
	}
	if row := find(assets, "HELD"); row == nil || row[3] != "7" || row[5] != "-" {
		t.Errorf("held row = %v, want 7 held and kept", row)
	}
	if !strings.Contains(md, "iteration cap") {
		t.Errorf("capped plan rendered without a warning")
	}
}

func TestMigrationMarkdown(t *testing.T) {
	old := allocator.Portfolio{ID: "old", Name: "Retirement", ProfileID: "moderate", InitialValue: brl(1000), CreatedOn: day.AddDate(-1, 0, 0), Active: true}
	res, err := allocator.Reconstruct(allocator.Migration{
		Old: old,
		OldPositions: []allocator.Position{
			{Ticker: "X", Category: allocator.Equity, Quantity: allocator.Q(100), AveragePrice: brl(10)},
			{Ticker: "GONE", Category: allocator.IntlETF, Quantity: allocator.Q(5), AveragePrice: brl(40)},
		},
		Profile: moderate,
		Plan: &allocator.Plan{Lines: []allocator.PlanLine{
			{Ticker: "X", Category: allocator.Equity, Price: brl(20), Quantity: allocator.Q(150)},
		}},
		Contribution: brl(1000),
		Quotes:       map[string]allocator.Money{"GONE": brl(50)},
		On:           day,
	})
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	md := MigrationMarkdown(res)
	if !strings.Contains(md, "*Retirement (v2025)*") {
		t.Errorf("new portfolio name missing:\n%s", md)
	}
	got := tables(t, md)
	if len(got) != 2 {
		t.Fatalf("MigrationMarkdown() has %d tables, want 2", len(got))
	}
	if row := find(got[0], "Sales"); row == nil || row[1] != brl(250).String() {
		t.Errorf("sales row = %v, want %v", row, brl(250))
	}
	x := find(got[1], "X")
	if x == nil {
		t.Fatalf("no move for X")
	}
	if x[3] != "+50" || x[5] != "150" || !strings.Contains(x[6], "→") {
		t.Errorf("X move = %v, want +50 bought up to 150 with a new average", x)
	}
	if gone := find(got[1], "GONE"); gone == nil || gone[4] != "-5" || gone[5] != "0" {
		t.Errorf("GONE move = %v, want all 5 sold", gone)
	}
	if !strings.Contains(md, "1. Sold 5 of GONE") {
		t.Errorf("sale not listed:\n%s", md)
	}
}

func TestPortfolioMarkdown(t *testing.T) {
	p := allocator.Portfolio{ID: "p", Name: "Savings", InitialValue: brl(300), CreatedOn: day, Active: true, Notes: "for the house"}
	v := allocator.Value(p, []allocator.Position{
		{Ticker: "EQ", Category: allocator.Equity, Quantity: allocator.Q(10), AveragePrice: brl(10)},
		{Ticker: "FIX", Category: allocator.FixedIncomeETF, Quantity: allocator.Q(20), AveragePrice: brl(10)},
	}, map[string]allocator.Money{"EQ": brl(20)}, nil)

	md := PortfolioMarkdown(v, moderate)
	if !strings.Contains(md, "> for the house") {
		t.Errorf("notes missing:\n%s", md)
	}
	got := tables(t, md)
	if len(got) != 3 {
		t.Fatalf("PortfolioMarkdown() has %d tables, want 3", len(got))
	}
	if got[0][0][1] != brl(400).String() {
		t.Errorf("value = %v, want %v", got[0][0][1], brl(400))
	}
	if row := find(got[1], "Equity"); row == nil || row[2] != "50.00%" || row[3] != "+10.00%" {
		t.Errorf("equity row = %v, want 50%% actual and +10%% drift", row)
	}
	if row := find(got[2], "EQ"); row == nil || !strings.HasSuffix(row[4], "(manual)") {
		t.Errorf("EQ row = %v, want a manual price", row)
	}
	if row := find(got[2], "FIX"); row == nil || !strings.HasSuffix(row[4], "(average)") {
		t.Errorf("FIX row = %v, want the average price", row)
	}
}

func TestPortfolioMarkdown_Closed(t *testing.T) {
	closed := day
	p := allocator.Portfolio{ID: "p", Name: "Old", InitialValue: brl(100), CreatedOn: day.AddDate(-1, 0, 0), ClosedOn: &closed}
	md := PortfolioMarkdown(allocator.Value(p, nil, nil, nil), moderate)
	if !strings.Contains(md, "Closed on 2025-03-10") {
		t.Errorf("closing date missing:\n%s", md)
	}
	if strings.Contains(md, "## Positions") {
		t.Errorf("empty positions section rendered")
	}
}

func TestHistoryMarkdown(t *testing.T) {
	a := allocator.Portfolio{ID: "a", Name: "First"}
	b := allocator.Portfolio{ID: "b", Name: "First (v2025)"}
	txs := []allocator.Transaction{
		allocator.NewTransaction("a", day, allocator.InitialBuy, "X", allocator.Q(10), brl(10), "initial | purchase"),
		allocator.NewTransaction("a", day, allocator.RebalanceSell, "X", allocator.Q(4), brl(12), ""),
	}
	md := HistoryMarkdown([]allocator.Portfolio{a, b}, txs)
	got := tables(t, md)
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("HistoryMarkdown() tables = %v, want one table of 2 transactions", got)
	}
	if row := got[0][1]; len(row) != 7 || !strings.HasSuffix(row[6], "purchase") {
		t.Errorf("row = %q, want the pipe of the note escaped", row)
	}
	if !strings.Contains(md, "## First (v2025)\n\nNo transaction.") {
		t.Errorf("empty portfolio not reported:\n%s", md)
	}
}

func TestTransaction(t *testing.T) {
	tests := []struct {
		tx   allocator.Transaction
		want string
	}{
		{allocator.NewTransaction("p", day, allocator.InitialBuy, "X", allocator.Q(2), brl(10), ""), "Bought 2 of X at " + brl(10).String() + " for " + brl(20).String()},
		{allocator.NewTransaction("p", day, allocator.AdditionalBuy, allocator.CashTicker, allocator.Q(1), brl(500), ""), "Contributed " + brl(500).String()},
		{allocator.NewTransaction("p", day, allocator.TransferIn, "X", allocator.Q(3), brl(7), ""), "Transferred 3 of X at an average of " + brl(7).String()},
		{allocator.NewTransaction("p", day, allocator.RebalanceSell, "X", allocator.Q(1), brl(9), ""), "Sold 1 of X at " + brl(9).String() + " for " + brl(9).String()},
	}
	for _, tt := range tests {
		if got := Transaction(tt.tx); got != tt.want {
			t.Errorf("Transaction(%s) = %q, want %q", tt.tx.Kind, got, tt.want)
		}
	}
}
