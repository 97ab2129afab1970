package allocator

import "testing"

func TestTargetAllocator_Allocate(t *testing.T) {
	assets := []Asset{
		asset("EQ1", Equity, 50),
		asset("EQ2", Equity, 30),
		asset("INTL", IntlETF, 100),
		asset("FIXED", FixedIncomeETF, 10),
	}
	tests := []struct {
		name    string
		capital float64
		want    map[string]int64
		targets map[string]float64
	}{
		{
			name:    "exact fit",
			capital: 10000,
			want:    map[string]int64{"EQ1": 60, "EQ2": 100, "INTL": 20, "FIXED": 200},
			targets: map[string]float64{"EQ1": 3000, "EQ2": 3000, "INTL": 2000, "FIXED": 2000},
		},
		{
			name:    "floored",
			capital: 10050,
			want:    map[string]int64{"EQ1": 60, "EQ2": 100, "INTL": 20, "FIXED": 201},
			targets: map[string]float64{"EQ1": 3015, "EQ2": 3015, "INTL": 2010, "FIXED": 2010},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := TargetAllocator{}.Allocate(aggressive, BRL(tt.capital), assets)
			if len(lines) != len(assets) {
				t.Fatalf("len(lines) = %d, want %d", len(lines), len(assets))
			}
			invested := BRL(0)
			for i, l := range lines {
				if l.Ticker != assets[i].Ticker {
					t.Errorf("lines[%d].Ticker = %s, want %s", i, l.Ticker, assets[i].Ticker)
				}
				if got := l.Quantity.Int64(); got != tt.want[l.Ticker] {
					t.Errorf("%s quantity = %d, want %d", l.Ticker, got, tt.want[l.Ticker])
				}
				if !l.Target.Equal(BRL(tt.targets[l.Ticker])) {
					t.Errorf("%s target = %v, want %v", l.Ticker, l.Target.Decimal(), tt.targets[l.Ticker])
				}
				if l.Invested().GreaterThan(l.Target) {
					t.Errorf("%s invested %v above target %v", l.Ticker, l.Invested().Decimal(), l.Target.Decimal())
				}
				invested = invested.Add(l.Invested())
			}
			if invested.GreaterThan(BRL(tt.capital)) {
				t.Errorf("invested %v, more than capital %v", invested.Decimal(), tt.capital)
			}
		})
	}
}

func TestTargetAllocator_UnknownPrice(t *testing.T) {
	lines := TargetAllocator{}.Allocate(aggressive, BRL(10000), []Asset{
		asset("EQ1", Equity, 50),
		asset("NOPRICE", Equity, 0),
		asset("INTL", IntlETF, 100),
	})
	got := map[string]int64{}
	for _, l := range lines {
		got[l.Ticker] = l.Quantity.Int64()
	}
	// the unpriced asset still takes its share of the category target.
	want := map[string]int64{"EQ1": 60, "NOPRICE": 0, "INTL": 20}
	for ticker, q := range want {
		if got[ticker] != q {
			t.Errorf("%s quantity = %d, want %d", ticker, got[ticker], q)
		}
	}
}

func TestTargetAllocator_EmptyCategory(t *testing.T) {
	lines := TargetAllocator{}.Allocate(aggressive, BRL(1000), []Asset{asset("EQ1", Equity, 10)})
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	if got := lines[0].Quantity.Int64(); got != 60 {
		t.Errorf("EQ1 quantity = %d, want 60", got)
	}
}
