package allocator

// WeightedAverage recomputes the average price of a position after addedQty
// units were acquired at addedPrice. It only applies to quantity increases:
// a sale never changes the average price of the remaining units.
//
// It returns zero when the resulting quantity is zero.
func WeightedAverage(oldQty Quantity, oldAvg Money, addedQty Quantity, addedPrice Money) Money {
	total := oldQty.Add(addedQty)
	if total.IsZero() {
		return Money{cur: cur(oldAvg, addedPrice)}
	}
	return oldAvg.Mul(oldQty).Add(addedPrice.Mul(addedQty)).Div(total).Exact()
}

// StandardLot is the size of a standard trading lot.
const StandardLot = 100

// SplitLot splits a quantity into its standard-lot part (a multiple of
// StandardLot) and the odd-lot remainder.
func SplitLot(total Quantity) (lot, odd Quantity) {
	if !total.IsPositive() {
		return Quantity{}, total
	}
	lot = Q(total.Int64() / StandardLot * StandardLot)
	return lot, total.Sub(lot)
}

// BlendedPrice is the average price of a purchase executed partly in the
// standard-lot market and partly in the odd-lot market.
func BlendedPrice(lotQty Quantity, lotPrice Money, oddQty Quantity, oddPrice Money) Money {
	return WeightedAverage(lotQty, lotPrice, oddQty, oddPrice)
}
