package allocator

// TargetAllocator splits a capital across the assets of a profile.
//
// Each category receives capital*pct/100, shared evenly by the assets of the
// category. Each asset is given floor(target/price) units, so the result
// never spends more than its target. Unpriced assets get zero units.
type TargetAllocator struct{}

// CategoryTargets returns the value each category should be worth.
func (TargetAllocator) CategoryTargets(p Profile, capital Money) map[Category]Money {
	targets := make(map[Category]Money, len(Categories))
	for _, c := range Categories {
		targets[c] = capital.Percent(p.Pct(c))
	}
	return targets
}

// Allocate returns one line per asset, in the order of assets.
func (t TargetAllocator) Allocate(p Profile, capital Money, assets []Asset) []PlanLine {
	return t.split(t.CategoryTargets(p, capital), assets, nil)
}

// split shares the category targets evenly across assets. Holdings give each
// line its starting quantity.
func (TargetAllocator) split(targets map[Category]Money, assets []Asset, holdings []Position) []PlanLine {
	count := make(map[Category]int, len(Categories))
	for _, a := range assets {
		count[a.Category]++
	}

	lines := make([]PlanLine, 0, len(assets))
	for _, a := range assets {
		target := targets[a.Category].Share(count[a.Category])
		line := PlanLine{
			Ticker:   a.Ticker,
			Category: a.Category,
			Price:    a.Price,
			Target:   target,
			New:      true,
		}
		if h, ok := findPosition(holdings, a.Ticker); ok {
			line.Start, line.New = h.Quantity, false
		}
		line.Quantity = target.DivFloor(a.Price)
		if !a.priced() {
			// unknown price: keep what is held, trade nothing.
			line.Quantity = line.Start
		}
		lines = append(lines, line)
	}
	return lines
}
