package allocator

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AllocationStrategy turns a Request into a Plan of integer quantities.
// Implementations never mutate the request.
type AllocationStrategy interface {
	Name() string
	Allocate(Request) (*Plan, error)
}

const (
	// DefaultSurplusIterations caps the greedy fill of EqualSplitGreedy.
	DefaultSurplusIterations = 100
	// DefaultBalancedIterations caps the greedy fill of CategoryBalancedGreedy.
	DefaultBalancedIterations = 200
	// DefaultMinCash is the cash under which CategoryBalancedGreedy stops buying.
	DefaultMinCash = 5
	// DefaultTolerance is how far above its target a category may be and still be topped up.
	DefaultTolerance Percent = 5
	// DefaultTieBand is the invested value difference under which two assets
	// are compared by price instead.
	DefaultTieBand = 10
)

// Options tune the strategies. Start from DefaultOptions: only a
// non-positive MaxIterations falls back to the strategy default.
type Options struct {
	MaxIterations int
	MinCash       float64
	Tolerance     Percent
	TieBand       float64
	Logger        *zerolog.Logger
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		MinCash:   DefaultMinCash,
		Tolerance: DefaultTolerance,
		TieBand:   DefaultTieBand,
	}
}

func (o Options) iterations(def int) int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return def
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

const (
	EqualSplitName      = "equal-split"
	CategoryBalanceName = "category-balanced"
)

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string, opts Options) (AllocationStrategy, error) {
	switch name {
	case EqualSplitName:
		return NewEqualSplitGreedy(opts), nil
	case CategoryBalanceName:
		return NewCategoryBalancedGreedy(opts), nil
	default:
		return nil, fmt.Errorf("unknown allocation strategy %q", name)
	}
}
