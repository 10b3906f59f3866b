package signals

import (
	"math"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

const (
	volumeSurge       = 1.2
	BaseVolatility    = 15.0
	volatilityWindow  = 20
	tradingDaysInYear = 252
)

// superSafe trades pullbacks inside a stacked EMA trend confirmed by ADX
// direction, RSI and a volume surge, skipping consolidating markets. A band
// break on surging volume also fires. A Buy directly after a Sell bar is
// dropped.
func superSafe(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	bbLen := int(param(p, "bb_length", 20))
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.EMA, Name: "ema_short", Period: int(param(p, "ema_short", 8))},
		{Kind: indicators.EMA, Name: "ema_medium", Period: int(param(p, "ema_medium", 21))},
		{Kind: indicators.EMA, Name: "ema_long", Period: int(param(p, "ema_long", 50))},
		{Kind: indicators.ATR, Name: "atr", Period: int(param(p, "atr_length", 14))},
		{Kind: indicators.BBands, Name: "bb", Period: bbLen, StdDev: param(p, "bb_std", 2)},
		{Kind: indicators.RSI, Name: "rsi", Period: int(param(p, "rsi_length", 14))},
		{Kind: indicators.ADX, Name: "adx", Period: int(param(p, "adx_length", 14))},
		{Kind: indicators.VolSMA, Name: "vol_ma", Period: 20},
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		consolidation = param(p, "consolidation_threshold", 0.05)

		closes = cols["close"]
		vols   = cols["volume"]
		short  = cols["ema_short"]
		medium = cols["ema_medium"]
		long   = cols["ema_long"]
		atr    = cols["atr"]
		upper  = cols["bb_upper"]
		middle = cols["bb_middle"]
		lower  = cols["bb_lower"]
		width  = cols["bb_width"]
		rsi    = cols["rsi"]
		plusDI = cols["adx_plus_di"]
		minDI  = cols["adx_minus_di"]
		volMA  = cols["vol_ma"]
	)

	slope := make([]float64, s.Len())
	slope[0] = math.NaN()
	for i := 1; i < len(slope); i++ {
		slope[i] = (long[i] - long[i-1]) / long[i]
	}
	cols["ema_long_slope"] = slope
	cols["volatility"] = annualizedVolatility(closes, volatilityWindow)

	raw := make([]Signal, s.Len())
	for i := 1; i < len(raw); i++ {
		if !indicators.Defined(short[i], medium[i], long[i], slope[i], atr[i],
			upper[i], middle[i], lower[i], width[i], rsi[i], plusDI[i], minDI[i], volMA[i]) {
			continue
		}
		surge := vols[i] > volMA[i]*volumeSurge && vols[i] > vols[i-1]
		choppy := width[i] < consolidation && atr[i]/closes[i] < 0.01

		buy := short[i] > medium[i] && medium[i] > long[i] && slope[i] > 0 &&
			plusDI[i] > minDI[i] && rsi[i] > 50 && closes[i] < middle[i] && surge && !choppy
		buy = buy || (closes[i] < lower[i] && surge)

		sell := short[i] < medium[i] && medium[i] < long[i] && slope[i] < 0 &&
			minDI[i] > plusDI[i] && rsi[i] < 50 && closes[i] > middle[i] && surge && !choppy
		sell = sell || (closes[i] > upper[i] && surge)

		switch {
		case sell:
			raw[i] = Sell
		case buy:
			raw[i] = Buy
		}
	}

	out := make([]Signal, len(raw))
	copy(out, raw)
	for i := 1; i < len(out); i++ {
		if raw[i] == Buy && raw[i-1] == Sell {
			out[i] = None
		}
	}
	return cols, out, nil
}

// annualizedVolatility is the rolling sample deviation of close-to-close
// returns over window bars, scaled to a yearly percentage. Gaps are filled
// forward and the warm-up defaults to BaseVolatility.
func annualizedVolatility(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	rets := make([]float64, len(closes))
	for i := range closes {
		rets[i] = math.NaN()
		if i > 0 {
			rets[i] = closes[i]/closes[i-1] - 1
		}
	}

	last := math.NaN()
	for i := range out {
		out[i] = last
		if i < window {
			continue
		}
		win := rets[i-window+1 : i+1]
		if !indicators.Defined(win...) {
			continue
		}
		var mean float64
		for _, r := range win {
			mean += r
		}
		mean /= float64(window)
		var ss float64
		for _, r := range win {
			ss += (r - mean) * (r - mean)
		}
		v := math.Sqrt(ss/float64(window-1)) * math.Sqrt(tradingDaysInYear) * 100
		out[i], last = v, v
	}
	for i := range out {
		if math.IsNaN(out[i]) {
			out[i] = BaseVolatility
		}
	}
	return out
}
