package signals

import "github.com/rustyeddy/signalbot/indicators"

// allTrue reports, per bar, whether cond held on each of the last n bars
// including the current one. Bars before a full window are false.
func allTrue(cond []bool, n int) []bool {
	out := make([]bool, len(cond))
	run := 0
	for i, c := range cond {
		if c {
			run++
		} else {
			run = 0
		}
		out[i] = run >= n
	}
	return out
}

// trendAlignment is Buy where fast stayed above slow for the last n bars and
// Sell where it stayed below.
func trendAlignment(fast, slow []float64, n int) []Signal {
	above := make([]bool, len(fast))
	below := make([]bool, len(fast))
	for i := range fast {
		if !indicators.Defined(fast[i], slow[i]) {
			continue
		}
		above[i] = fast[i] > slow[i]
		below[i] = fast[i] < slow[i]
	}
	up, down := allTrue(above, n), allTrue(below, n)

	out := make([]Signal, len(fast))
	for i := range out {
		switch {
		case up[i]:
			out[i] = Buy
		case down[i]:
			out[i] = Sell
		}
	}
	return out
}

const rsiWindow = 5

// windowedRSI looks at the rsiWindow readings before each bar, excluding the
// bar itself: all above 50.1 is Buy, all below 49.9 is Sell.
func windowedRSI(rsi []float64) []Signal {
	out := make([]Signal, len(rsi))
	for i := range rsi {
		start := max(0, i-rsiWindow)
		win := rsi[start:i]
		if len(win) == 0 || !indicators.Defined(win...) {
			continue
		}
		hi, lo := true, true
		for _, v := range win {
			hi = hi && v > 50.1
			lo = lo && v < 49.9
		}
		switch {
		case hi:
			out[i] = Buy
		case lo:
			out[i] = Sell
		}
	}
	return out
}

// agree keeps a only where b matches it.
func agree(a, b []Signal) []Signal {
	out := make([]Signal, len(a))
	for i := range a {
		if a[i] == b[i] {
			out[i] = a[i]
		}
	}
	return out
}
