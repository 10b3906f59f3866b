package signals

import (
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

// FVGStart is the first bar the gap tracker evaluates.
const FVGStart = 20

// FVGZone is an unfilled three-bar price gap waiting for a retest.
// Bearish gaps confirm as Sell, bullish as Buy.
type FVGZone struct {
	Side     Signal
	Top      float64
	Bottom   float64
	StopLoss float64
	Expiry   int
}

// FVGConfig holds the gap size and stop rules, all in ATR multiples.
type FVGConfig struct {
	MinSizeATR     float64
	CandleRangeATR float64
	StopATR        float64
	ExpiryBars     int
}

func fvgConfig(p map[string]float64) FVGConfig {
	return FVGConfig{
		MinSizeATR:     param(p, "fvg_min_size_atr_multiplier", 0.5),
		CandleRangeATR: param(p, "fvg_candle_range_atr_multiplier", 1.5),
		StopATR:        param(p, "sl_atr_multiplier", 1.0),
		ExpiryBars:     int(param(p, "fvg_expiry_bars", 10)),
	}
}

// FVGTracker holds at most one active zone across bars.
type FVGTracker struct {
	Config FVGConfig
	Active *FVGZone
}

func NewFVGTracker(p map[string]float64) *FVGTracker {
	return &FVGTracker{Config: fvgConfig(p)}
}

// Step evaluates bar i. An active zone is first expired, then invalidated by
// a close through its far side, then confirmed by a wick back into it. A
// confirmation returns the zone and clears it. With no zone left a new gap
// is looked for, against the EMA trend.
func (t *FVGTracker) Step(i int, cols indicators.Columns) (Signal, FVGZone) {
	if i < 2 {
		return None, FVGZone{}
	}
	var (
		highs  = cols["high"]
		lows   = cols["low"]
		closes = cols["close"]
		price  = closes[i]
	)

	if z := t.Active; z != nil {
		if i >= z.Expiry {
			t.Active = nil
		} else if (z.Side == Sell && price > z.Top) || (z.Side == Buy && price < z.Bottom) {
			t.Active = nil
		}
	}
	if z := t.Active; z != nil {
		if (z.Side == Sell && highs[i] > z.Bottom) || (z.Side == Buy && lows[i] < z.Top) {
			t.Active = nil
			return z.Side, *z
		}
		return None, FVGZone{}
	}

	ema, atr := cols["ema"][i], cols["atr"][i]
	if !indicators.Defined(ema, atr) {
		return None, FVGZone{}
	}
	midRange := highs[i-1] - lows[i-1]
	c := t.Config

	if price < ema && lows[i-2] > highs[i] {
		top, bottom := lows[i-2], highs[i]
		if top-bottom > c.MinSizeATR*atr && midRange > c.CandleRangeATR*atr {
			t.Active = &FVGZone{
				Side:     Sell,
				Top:      top,
				Bottom:   bottom,
				StopLoss: highs[i-1] + c.StopATR*atr,
				Expiry:   i + c.ExpiryBars,
			}
			return None, FVGZone{}
		}
	}
	if price > ema && highs[i-2] < lows[i] {
		top, bottom := lows[i], highs[i-2]
		if top-bottom > c.MinSizeATR*atr && midRange > c.CandleRangeATR*atr {
			t.Active = &FVGZone{
				Side:     Buy,
				Top:      top,
				Bottom:   bottom,
				StopLoss: lows[i-1] - c.StopATR*atr,
				Expiry:   i + c.ExpiryBars,
			}
		}
	}
	return None, FVGZone{}
}

func fvgColumns(s *market.Series) (indicators.Columns, error) {
	return indicators.Compute(s, indicators.Spec{
		{Kind: indicators.EMA, Name: "ema", Period: 200},
		{Kind: indicators.ATR, Name: "atr", Period: 14},
	})
}

func fvgConfirmation(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := fvgColumns(s)
	if err != nil {
		return nil, nil, err
	}

	tr := NewFVGTracker(p)
	out := make([]Signal, s.Len())
	for i := FVGStart; i < len(out); i++ {
		out[i], _ = tr.Step(i, cols)
	}
	return cols, out, nil
}
