package allocator

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CategoryBalancedGreedy allocates a rebalanced portfolio.
//
// Carried-over holdings and new assets share the category targets computed
// on the value of the kept holdings plus the capital. Assets are first floored
// to an even split of their category target, then the cash left (capital plus
// proceeds of reductions minus cost of increases) buys one unit at a time in
// the least funded category. A final correction pass undoes the most
// expensive purchases until the cost of increases fits the capital plus the
// proceeds of reductions.
//
// A category may end above its target by up to Tolerance: it is still topped
// up when that is the only way to use the remaining cash.
type CategoryBalancedGreedy struct {
	maxIterations int
	minCash       decimal.Decimal
	ceiling       decimal.Decimal // 1 + tolerance
	tieBand       decimal.Decimal
	log           zerolog.Logger
}

// NewCategoryBalancedGreedy creates the strategy used to rebalance portfolios.
func NewCategoryBalancedGreedy(opts Options) *CategoryBalancedGreedy {
	return &CategoryBalancedGreedy{
		maxIterations: opts.iterations(DefaultBalancedIterations),
		minCash:       newDecimal(opts.MinCash),
		ceiling:       opts.Tolerance.factor(),
		tieBand:       newDecimal(opts.TieBand),
		log:           opts.logger().With().Str("strategy", CategoryBalanceName).Logger(),
	}
}

func (*CategoryBalancedGreedy) Name() string { return CategoryBalanceName }

// Allocate implements AllocationStrategy.
func (s *CategoryBalancedGreedy) Allocate(r Request) (*Plan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	kept := Money{cur: r.Capital.cur}
	for _, a := range r.Assets {
		if h, ok := findPosition(r.Holdings, a.Ticker); ok && a.priced() {
			kept = kept.Add(a.Price.Mul(h.Quantity))
		}
	}
	targets := TargetAllocator{}.CategoryTargets(r.Profile, kept.Add(r.Capital))

	plan := &Plan{
		Strategy: s.Name(),
		Capital:  r.Capital,
		Lines:    TargetAllocator{}.split(targets, r.Assets, r.Holdings),
	}

	n := 0
	for ; n < s.maxIterations; n++ {
		i := s.next(plan, targets)
		if i < 0 {
			break
		}
		plan.Lines[i].Quantity = plan.Lines[i].Quantity.Inc()
	}
	plan.Iterations = n
	if n == s.maxIterations && s.next(plan, targets) >= 0 {
		plan.Capped = true
		s.log.Warn().Int("iterations", n).Stringer("cash", plan.Leftover()).Msg("greedy fill stopped on its iteration cap")
	}

	if undone := s.correct(plan); undone > 0 {
		s.log.Debug().Int("undone", undone).Msg("purchases rolled back to fit the budget")
	}
	return plan, nil
}

// next returns the index of the line to buy one more unit of, or -1.
func (s *CategoryBalancedGreedy) next(plan *Plan, targets map[Category]Money) int {
	cash := plan.Leftover()
	if cash.value.LessThan(s.minCash) {
		return -1
	}

	type status struct {
		category Category
		ratio    decimal.Decimal
	}
	statuses := make([]status, 0, len(Categories))
	for _, c := range Categories {
		ratio, ok := plan.CategoryValue(c).Ratio(targets[c])
		if !ok {
			// nothing to reach: treat as fulfilled.
			ratio = decimal.NewFromInt(1)
		}
		statuses = append(statuses, status{c, ratio})
	}
	sort.SliceStable(statuses, func(i, j int) bool { return statuses[i].ratio.LessThan(statuses[j].ratio) })

	for _, st := range statuses {
		if st.ratio.GreaterThan(s.ceiling) {
			continue
		}
		var candidates []int
		for _, i := range affordable(plan.Lines, cash, nil) {
			if plan.Lines[i].Category == st.category {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := plan.Lines[candidates[i]], plan.Lines[candidates[j]]
			va, vb := a.Invested().value, b.Invested().value
			if va.Sub(vb).Abs().GreaterThan(s.tieBand) {
				return va.LessThan(vb)
			}
			return a.Price.LessThan(b.Price)
		})
		return candidates[0]
	}
	return -1
}

// correct removes one unit of the most expensive increased line until the
// purchases fit the capital plus the proceeds. It returns the units removed.
func (s *CategoryBalancedGreedy) correct(plan *Plan) int {
	undone := 0
	for plan.Leftover().IsNegative() {
		var bought []int
		for i, l := range plan.Lines {
			if l.Delta().IsPositive() {
				bought = append(bought, i)
			}
		}
		if len(bought) == 0 {
			break
		}
		sort.SliceStable(bought, func(i, j int) bool {
			return plan.Lines[bought[i]].Price.GreaterThan(plan.Lines[bought[j]].Price)
		})
		l := &plan.Lines[bought[0]]
		l.Quantity = l.Quantity.Dec()
		undone++
	}
	return undone
}
