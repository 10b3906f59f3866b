package indicators

import "math"

// Candlestick pattern flags: 1 bullish, -1 bearish, 0 none.

// Hammer flags a small body with a long lower shadow and little upper
// shadow. A bullish body is a hammer (1), otherwise a hanging man (-1).
func Hammer(open, high, low, close []float64) []int {
	out := make([]int, len(close))
	for i := range close {
		body := math.Abs(close[i] - open[i])
		upper := high[i] - math.Max(open[i], close[i])
		lower := math.Min(open[i], close[i]) - low[i]
		rng := high[i] - low[i]

		if lower >= 1.5*body && upper <= 0.3*rng && body <= 0.4*rng {
			if close[i] > open[i] {
				out[i] = 1
			} else {
				out[i] = -1
			}
		}
	}
	return out
}

// Doji flags a body at most a tenth of the bar's range.
func Doji(open, high, low, close []float64) []int {
	out := make([]int, len(close))
	for i := range close {
		if math.Abs(close[i]-open[i]) <= 0.1*(high[i]-low[i]) {
			out[i] = 1
		}
	}
	return out
}

// Engulfing compares each bar to the previous one.
func Engulfing(open, close []float64) []int {
	out := make([]int, len(close))
	for i := 1; i < len(close); i++ {
		body := close[i] - open[i]
		prev := close[i-1] - open[i-1]

		bullish := prev < 0 && body > 0 && open[i] < close[i-1] && close[i] > open[i-1]
		bearish := prev > 0 && body < 0 && open[i] > close[i-1] && close[i] < open[i-1]

		switch {
		case bullish:
			out[i] = 1
		case bearish:
			out[i] = -1
		}
	}
	return out
}

// FirstPattern returns, per bar, the first non-zero flag of hammer, doji and
// engulfing in that order.
func FirstPattern(open, high, low, close []float64) []int {
	sets := [][]int{
		Hammer(open, high, low, close),
		Doji(open, high, low, close),
		Engulfing(open, close),
	}
	out := make([]int, len(close))
	for i := range out {
		for _, s := range sets {
			if s[i] != 0 {
				out[i] = s[i]
				break
			}
		}
	}
	return out
}
