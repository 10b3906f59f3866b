package signals

import (
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

// emaBollinger buys a lower-band touch inside a sustained EMA uptrend and
// sells an upper-band touch inside a downtrend. The band signal only stands
// when the windowed RSI agrees.
func emaBollinger(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.EMA, Name: "ema_fast", Period: 30},
		{Kind: indicators.EMA, Name: "ema_slow", Period: 50},
		{Kind: indicators.RSI, Name: "rsi", Period: 10},
		{Kind: indicators.BBands, Name: "bb", Period: 15, StdDev: 1.5},
		{Kind: indicators.ATR, Name: "atr", Period: 7},
	})
	if err != nil {
		return nil, nil, err
	}

	trend := trendAlignment(cols["ema_fast"], cols["ema_slow"], int(param(p, "ema_window", 7)))
	closes, lower, upper := cols["close"], cols["bb_lower"], cols["bb_upper"]

	band := make([]Signal, s.Len())
	for i := range band {
		if !indicators.Defined(lower[i], upper[i]) {
			continue
		}
		switch {
		case trend[i] == Buy && closes[i] <= lower[i]:
			band[i] = Buy
		case trend[i] == Sell && closes[i] >= upper[i]:
			band[i] = Sell
		}
	}

	return cols, agree(band, windowedRSI(cols["rsi"])), nil
}

const macdWarmup = 14

// macdCross signals on a MACD histogram zero cross: negative to positive is
// Buy, positive to negative is Sell.
func macdCross(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.MACD, Name: "macd", Fast: 12, Slow: 26, Signal: 9},
		{Kind: indicators.RSI, Name: "rsi", Period: 16},
		{Kind: indicators.SMA, Name: "ma200", Period: 200},
		{Kind: indicators.EMA, Name: "ema_fast", Period: 30},
		{Kind: indicators.EMA, Name: "ema_slow", Period: 50},
		{Kind: indicators.ATR, Name: "atr", Period: 24},
	})
	if err != nil {
		return nil, nil, err
	}

	hist := cols["macd_hist"]
	out := make([]Signal, s.Len())
	for i := max(1, macdWarmup); i < len(out); i++ {
		if !indicators.Defined(hist[i-1], hist[i]) {
			continue
		}
		switch {
		case hist[i-1] < 0 && hist[i] > 0:
			out[i] = Buy
		case hist[i-1] > 0 && hist[i] < 0:
			out[i] = Sell
		}
	}
	return cols, out, nil
}
