package risk

import "math"

// Bracket returns stop-loss and take-profit levels slDist and tpDist away
// from price on the losing and winning side of a position.
func Bracket(long bool, price, slDist, tpDist float64) (sl, tp float64) {
	if long {
		return price - slDist, price + tpDist
	}
	return price + slDist, price - tpDist
}

// MinStop pushes a stop closer than frac·price out to exactly frac·price.
func MinStop(long bool, price, sl, frac float64) float64 {
	if math.Abs(price-sl) >= price*frac {
		return sl
	}
	if long {
		return price * (1 - frac)
	}
	return price * (1 + frac)
}

// RR is the reward to risk ratio of a bracket, 0 when the stop sits at
// entry.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
