// Package allocator turns a target percentage profile and a price list into
// integer share quantities, and migrates an existing portfolio into a new
// allocation while keeping cost basis and a reconstructible transaction trail.
//
// The package is a pure engine: it consumes prices, profiles and positions as
// plain values and returns plain records. Fetching quotes and persisting
// records belong to the quotes and store packages.
//
// The main pieces are:
//   - TargetAllocator: per-category targets split evenly and floored by price.
//   - AllocationStrategy: EqualSplitGreedy builds new portfolios,
//     CategoryBalancedGreedy rebalances existing ones.
//   - WeightedAverage: cost basis after a quantity increase.
//   - Reconstruct: transfer, buy and sell records of a migration, and the
//     closing of the old portfolio.
//   - Contribute and Value: contributions to, and valuation of, a portfolio.
package allocator
