package allocator

import (
	"sort"

	"github.com/rs/zerolog"
)

// EqualSplitGreedy allocates a new portfolio: the TargetAllocator floors every
// asset under its target, then the surplus is spent one unit at a time on the
// affordable asset furthest below its target.
type EqualSplitGreedy struct {
	maxIterations int
	log           zerolog.Logger
}

// NewEqualSplitGreedy creates the strategy used to build new portfolios.
func NewEqualSplitGreedy(opts Options) *EqualSplitGreedy {
	return &EqualSplitGreedy{
		maxIterations: opts.iterations(DefaultSurplusIterations),
		log:           opts.logger().With().Str("strategy", EqualSplitName).Logger(),
	}
}

func (*EqualSplitGreedy) Name() string { return EqualSplitName }

// Allocate implements AllocationStrategy. Holdings are ignored.
func (s *EqualSplitGreedy) Allocate(r Request) (*Plan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	plan := &Plan{
		Strategy: s.Name(),
		Capital:  r.Capital,
		Lines:    TargetAllocator{}.Allocate(r.Profile, r.Capital, r.Assets),
	}
	s.Fill(plan)
	return plan, nil
}

// Fill spends the plan leftover on the most under-target affordable assets.
// It stops when nothing is affordable or on the iteration cap. Running it
// again on a filled plan changes nothing.
func (s *EqualSplitGreedy) Fill(plan *Plan) {
	leftover := plan.Capital.Sub(plan.Invested())
	order := make([]int, 0, len(plan.Lines))
	n := 0
	for ; n < s.maxIterations; n++ {
		order = affordable(plan.Lines, leftover, order[:0])
		if len(order) == 0 {
			break
		}
		// most under-target first, ties keep the line order.
		sort.SliceStable(order, func(i, j int) bool {
			return plan.Lines[order[i]].Gap().GreaterThan(plan.Lines[order[j]].Gap())
		})
		l := &plan.Lines[order[0]]
		l.Quantity = l.Quantity.Inc()
		leftover = leftover.Sub(l.Price)
	}
	plan.Iterations += n
	if n == s.maxIterations && len(affordable(plan.Lines, leftover, nil)) > 0 {
		plan.Capped = true
		s.log.Warn().Int("iterations", n).Stringer("leftover", leftover).Msg("greedy fill stopped on its iteration cap")
	}
}

// affordable appends to dst the index of every priced line that costs at most cash.
func affordable(lines []PlanLine, cash Money, dst []int) []int {
	for i, l := range lines {
		if l.Price.IsPositive() && l.Price.LessThanOrEqual(cash) {
			dst = append(dst, i)
		}
	}
	return dst
}
