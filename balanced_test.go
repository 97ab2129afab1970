package allocator

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestCategoryBalancedGreedy_Allocate(t *testing.T) {
	tests := []struct {
		name       string
		profile    Profile
		capital    float64
		minCash    float64
		assets     []Asset
		holdings   []Position
		want       map[string]int64
		leftover   float64
		iterations int
	}{
		{
			name:       "contribution tops up every category",
			profile:    aggressive,
			capital:    1000,
			minCash:    DefaultMinCash,
			assets:     []Asset{asset("X", Equity, 12), asset("INTL", IntlETF, 100), asset("FIXED", FixedIncomeETF, 10)},
			holdings:   []Position{position("X", Equity, 100, 10)},
			want:       map[string]int64{"X": 112, "INTL": 4, "FIXED": 45},
			leftover:   6,
			iterations: 3,
		},
		{
			name:     "greedy fill skipped under the minimum cash",
			profile:  aggressive,
			capital:  1000,
			minCash:  50,
			assets:   []Asset{asset("X", Equity, 12), asset("INTL", IntlETF, 100), asset("FIXED", FixedIncomeETF, 10)},
			holdings: []Position{position("X", Equity, 100, 10)},
			want:     map[string]int64{"X": 110, "INTL": 4, "FIXED": 44},
			leftover: 40,
		},
		{
			name:     "reductions fund the purchases",
			profile:  Profile{Name: "Conservative", Equity: 20, IntlETF: 20, FixedIncome: 60},
			capital:  0,
			minCash:  DefaultMinCash,
			assets:   []Asset{asset("Y", Equity, 40), asset("INTL", IntlETF, 100), asset("FIXED", FixedIncomeETF, 10)},
			holdings: []Position{position("Y", Equity, 50, 20)},
			want:     map[string]int64{"Y": 10, "INTL": 4, "FIXED": 120},
			leftover: 0,
		},
		{
			name:     "unpriced holding is kept",
			profile:  aggressive,
			capital:  100,
			minCash:  DefaultMinCash,
			assets:   []Asset{asset("Z", Equity, 0), asset("FIXED", FixedIncomeETF, 10)},
			holdings: []Position{position("Z", Equity, 7, 3)},
			want:     map[string]int64{"Z": 7, "FIXED": 3},
			leftover: 70,
			// fixed income is the only category that can absorb cash, once.
			iterations: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MinCash = tt.minCash
			s := NewCategoryBalancedGreedy(opts)
			plan, err := s.Allocate(Request{Profile: tt.profile, Capital: BRL(tt.capital), Assets: tt.assets, Holdings: tt.holdings})
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			got := quantities(plan)
			for ticker, q := range tt.want {
				if got[ticker] != q {
					t.Errorf("%s quantity = %d, want %d", ticker, got[ticker], q)
				}
			}
			if !plan.Leftover().Equal(BRL(tt.leftover)) {
				t.Errorf("Leftover() = %v, want %v", plan.Leftover().Decimal(), tt.leftover)
			}
			if plan.Iterations != tt.iterations {
				t.Errorf("Iterations = %d, want %d", plan.Iterations, tt.iterations)
			}
		})
	}
}

// The tolerance lets a category exceed its target when it is the only one
// that can still absorb cash. The result is an approximation of the profile.
func TestCategoryBalancedGreedy_Tolerance(t *testing.T) {
	tests := []struct {
		tolerance Percent
		want      int64
	}{
		{0, 601},
		{DefaultTolerance, 631},
		{10, 661},
	}
	for _, tt := range tests {
		t.Run(tt.tolerance.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Tolerance = tt.tolerance
			plan, err := NewCategoryBalancedGreedy(opts).Allocate(Request{
				Profile: aggressive,
				Capital: BRL(1000),
				Assets:  []Asset{asset("EQ", Equity, 1), asset("FIXED", FixedIncomeETF, 1000)},
			})
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			l, _ := plan.Line("EQ")
			if got := l.Quantity.Int64(); got != tt.want {
				t.Errorf("EQ quantity = %d, want %d", got, tt.want)
			}
			if plan.Leftover().IsNegative() {
				t.Errorf("Leftover() = %v, want >= 0", plan.Leftover().Decimal())
			}
		})
	}
}

func TestCategoryBalancedGreedy_Correct(t *testing.T) {
	plan := &Plan{
		Capital: BRL(100),
		Lines: []PlanLine{
			{Ticker: "CHEAP", Category: Equity, Price: BRL(10), Start: Q(0), Quantity: Q(5)},
			{Ticker: "DEAR", Category: IntlETF, Price: BRL(40), Start: Q(1), Quantity: Q(3)},
			{Ticker: "SOLD", Category: FixedIncomeETF, Price: BRL(5), Start: Q(4), Quantity: Q(2)},
		},
	}
	// purchases 50+80 = 130, proceeds 10, available 110.
	undone := NewCategoryBalancedGreedy(DefaultOptions()).correct(plan)
	if undone != 1 {
		t.Errorf("correct() = %d, want 1", undone)
	}
	if got := quantities(plan); got["DEAR"] != 2 || got["CHEAP"] != 5 || got["SOLD"] != 2 {
		t.Errorf("quantities = %v, want DEAR:2 CHEAP:5 SOLD:2", got)
	}
	if !plan.Leftover().Equal(BRL(20)) {
		t.Errorf("Leftover() = %v, want 20", plan.Leftover().Decimal())
	}
}

func TestCategoryBalancedGreedy_Adversarial(t *testing.T) {
	tests := []struct {
		name     string
		capital  float64
		assets   []Asset
		holdings []Position
	}{
		{
			name:    "single asset above capital",
			capital: 100,
			assets:  []Asset{asset("GOLD", Equity, 5000)},
		},
		{
			name:     "empty categories with a target",
			capital:  500,
			assets:   []Asset{asset("EQ", Equity, 7)},
			holdings: []Position{position("EQ", Equity, 10, 5)},
		},
		{
			name:     "everything unpriced",
			capital:  500,
			assets:   []Asset{asset("A", Equity, 0), asset("B", IntlETF, 0)},
			holdings: []Position{position("A", Equity, 10, 5)},
		},
	}
	s := NewCategoryBalancedGreedy(DefaultOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := s.Allocate(Request{Profile: aggressive, Capital: BRL(tt.capital), Assets: tt.assets, Holdings: tt.holdings})
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if plan.Purchases().GreaterThan(plan.Capital.Add(plan.Proceeds())) {
				t.Errorf("purchases %v exceed capital and proceeds %v", plan.Purchases().Decimal(), plan.Capital.Add(plan.Proceeds()).Decimal())
			}
			if plan.Capped {
				t.Errorf("Capped after %d iterations", plan.Iterations)
			}
		})
	}
}

func TestCategoryBalancedGreedy_InvalidInput(t *testing.T) {
	s := NewCategoryBalancedGreedy(DefaultOptions())
	_, err := s.Allocate(Request{Profile: aggressive, Capital: BRL(0), Assets: []Asset{asset("A", Equity, 1)}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Allocate() without capital nor holdings error = %v, want ErrInvalidInput", err)
	}
}

func TestCategoryBalancedGreedy_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	s := NewCategoryBalancedGreedy(DefaultOptions())
	profiles := append([]Profile{aggressive}, ReferenceProfiles...)
	for i := 0; i < 200; i++ {
		assets := randomAssets(r)
		var holdings []Position
		for _, a := range assets {
			if r.IntN(2) == 0 {
				holdings = append(holdings, Position{Ticker: a.Ticker, Category: a.Category, Quantity: Q(r.IntN(300)), AveragePrice: a.Price})
			}
		}
		capital := BRL(float64(r.IntN(20000)))
		if capital.IsZero() && len(holdings) == 0 {
			capital = BRL(1)
		}
		held := slices.Clone(holdings)
		req := Request{Profile: profiles[r.IntN(len(profiles))], Capital: capital, Assets: assets, Holdings: holdings}
		plan, err := s.Allocate(req)
		if err != nil {
			t.Fatalf("case %d: Allocate() error = %v", i, err)
		}
		if plan.Purchases().GreaterThan(capital.Add(plan.Proceeds())) {
			t.Fatalf("case %d: purchases %v exceed capital and proceeds %v", i, plan.Purchases().Decimal(), capital.Add(plan.Proceeds()).Decimal())
		}
		if plan.Capped || plan.Iterations >= DefaultBalancedIterations/2 {
			t.Errorf("case %d: %d iterations, want well under %d", i, plan.Iterations, DefaultBalancedIterations)
		}
		for j, h := range held {
			if !h.Quantity.Equal(req.Holdings[j].Quantity) {
				t.Fatalf("case %d: request holdings mutated", i)
			}
		}
	}
}
