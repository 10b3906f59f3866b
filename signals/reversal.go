package signals

import (
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

// bollingerReversal fires on the bar after an oversold close below the lower
// band (or overbought close above the upper band) once price breaks the
// previous bar's range back toward the mean, provided the bands are wide
// enough to trade.
func bollingerReversal(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.BBands, Name: "bb", Period: 30, StdDev: 2},
		{Kind: indicators.RSI, Name: "rsi", Period: 14},
		{Kind: indicators.ATR, Name: "atr", Period: 14},
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		low      = param(p, "rsi_low", 30)
		high     = param(p, "rsi_high", 70)
		minWidth = param(p, "bb_width_threshold", 0.0015)

		closes = cols["close"]
		highs  = cols["high"]
		lows   = cols["low"]
		lower  = cols["bb_lower"]
		upper  = cols["bb_upper"]
		width  = cols["bb_width"]
		rsi    = cols["rsi"]
	)

	out := make([]Signal, s.Len())
	for i := 1; i < len(out); i++ {
		if !indicators.Defined(lower[i-1], upper[i-1], rsi[i-1], width[i]) {
			continue
		}
		if width[i] <= minWidth {
			continue
		}
		switch {
		case closes[i-1] < lower[i-1] && rsi[i-1] < low && closes[i] > highs[i-1]:
			out[i] = Buy
		case closes[i-1] > upper[i-1] && rsi[i-1] > high && closes[i] < lows[i-1]:
			out[i] = Sell
		}
	}
	return cols, out, nil
}
