package strategies

import (
	"math"

	"github.com/rustyeddy/signalbot/risk"
	"github.com/rustyeddy/signalbot/signals"
)

const (
	// trailActivation is the favorable move off entry before a stop trails.
	trailActivation = 0.005
	// minStopFrac is the closest a stop may sit to entry.
	minStopFrac = 0.001
)

// superSafe sizes by risk and volatility, holds at most one trade per side
// and max_positions overall, and trails the stop once price has moved half
// a percent in its favor.
type superSafe struct {
	base         float64
	slCoef       float64
	tpsl         float64
	trailing     float64
	maxPositions int
	maxRiskPct   float64
	minATR       float64

	stops map[string]float64
}

func newSuperSafe(p Params) Decider {
	return &superSafe{
		base:         p.Get(Size, 0.01),
		slCoef:       p.Get(SLCoef, 4),
		tpsl:         p.Get(TPSLRatio, 3),
		trailing:     p.Get("trailing_sl", 2.5),
		maxPositions: p.Int("max_positions", 1),
		maxRiskPct:   p.Get("max_risk_pct", 1),
		minATR:       p.Get("min_atr_value", 0.0005),
		stops:        make(map[string]float64),
	}
}

func (s *superSafe) Name() string { return "super_safe" }

func (s *superSafe) Decide(ctx *Context) (Decision, error) {
	var d Decision
	atr := ctx.Value("atr")
	if math.IsNaN(atr) {
		atr = s.minATR
	}
	atr = math.Max(atr, s.minATR)
	slDist := s.slCoef * atr
	tpDist := slDist * s.tpsl
	bar := ctx.Bar
	rsi := ctx.Value("rsi")

	live := make(map[string]bool, len(ctx.Positions))
	for _, p := range ctx.Positions {
		live[p.ID] = true
		stop, ok := s.stops[p.ID]
		if !ok {
			stop, _ = risk.Bracket(p.Long, p.EntryPrice, slDist, 0)
		}

		var trail float64
		var moved, hit bool
		if p.Long {
			trail = bar.Close - s.trailing*atr
			moved = bar.Close > p.EntryPrice*(1+trailActivation) && trail > stop
		} else {
			trail = bar.Close + s.trailing*atr
			moved = bar.Close < p.EntryPrice*(1-trailActivation) && trail < stop
		}
		if moved {
			stop = trail
		}
		s.stops[p.ID] = stop
		if p.Long {
			hit = bar.Low < stop
		} else {
			hit = bar.High > stop
		}

		switch {
		case hit:
			d.Close(p.ID, "trailing stop")
		case p.Long && rsi >= 85:
			d.Close(p.ID, "rsi overbought")
		case !p.Long && rsi <= 15:
			d.Close(p.ID, "rsi oversold")
		case moved:
			d.SetStop(p.ID, stop, "trail")
		}
	}
	for id := range s.stops {
		if !live[id] {
			delete(s.stops, id)
		}
	}

	if len(ctx.Positions) >= s.maxPositions {
		return d, nil
	}

	price := bar.Close
	vol := ctx.Value("volatility")
	if math.IsNaN(vol) {
		vol = signals.BaseVolatility
	}
	size := func(sl float64) float64 {
		return risk.Calculate(risk.Inputs{
			Equity:       ctx.Equity,
			RiskPct:      s.maxRiskPct,
			StopDistance: math.Abs(price - sl),
			VolFactor:    risk.VolFactor(signals.BaseVolatility, vol),
			Floor:        0.5 * s.base,
			Cap:          2 * s.base,
		}).Size
	}

	switch ctx.Signal() {
	case signals.Buy:
		if len(ctx.Longs()) > 0 {
			break
		}
		sl, tp := risk.Bracket(true, price, slDist, tpDist)
		sl = risk.MinStop(true, price, sl, minStopFrac)
		d.Buy(size(sl), level(sl), level(tp), "super safe long")
	case signals.Sell:
		if len(ctx.Shorts()) > 0 {
			break
		}
		sl, tp := risk.Bracket(false, price, slDist, tpDist)
		sl = risk.MinStop(false, price, sl, minStopFrac)
		d.Sell(size(sl), level(sl), level(tp), "super safe short")
	}
	return d, nil
}
