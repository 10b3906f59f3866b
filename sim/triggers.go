package sim

import "github.com/rustyeddy/signalbot/market"

// hitStopLoss reports whether bar reaches t's stop and the fill price. A bar
// that opens beyond the stop fills at the open.
func hitStopLoss(t *Trade, b market.Bar) (float64, bool) {
	if t.StopLoss == nil {
		return 0, false
	}
	sl := *t.StopLoss
	if t.Units > 0 {
		switch {
		case b.Open <= sl:
			return b.Open, true
		case b.Low <= sl:
			return sl, true
		}
		return 0, false
	}
	switch {
	case b.Open >= sl:
		return b.Open, true
	case b.High >= sl:
		return sl, true
	}
	return 0, false
}

// hitTakeProfit mirrors hitStopLoss on the winning side.
func hitTakeProfit(t *Trade, b market.Bar) (float64, bool) {
	if t.TakeProfit == nil {
		return 0, false
	}
	tp := *t.TakeProfit
	if t.Units > 0 {
		switch {
		case b.Open >= tp:
			return b.Open, true
		case b.High >= tp:
			return tp, true
		}
		return 0, false
	}
	switch {
	case b.Open <= tp:
		return b.Open, true
	case b.Low <= tp:
		return tp, true
	}
	return 0, false
}

// validBracket checks that the stop sits on the losing side of price and
// the target on the winning side.
func validBracket(long bool, price float64, sl, tp *float64) bool {
	if long {
		return (sl == nil || *sl < price) && (tp == nil || *tp > price)
	}
	return (sl == nil || *sl > price) && (tp == nil || *tp < price)
}
