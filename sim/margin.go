package sim

// TradeMargin is the margin held for units at price under ratio
// (1/leverage).
func TradeMargin(units, price, ratio float64) float64 {
	return abs(units) * price * ratio
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
