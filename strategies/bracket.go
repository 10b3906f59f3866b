package strategies

import (
	"math"

	"github.com/rustyeddy/signalbot/risk"
	"github.com/rustyeddy/signalbot/signals"
)

// DefaultSize is the lot size used when Params carries none.
const DefaultSize = 0.03

// enter opens a bracket on the current signal, sl/tp distances away from
// the close. Nothing happens without a signal or with an undefined distance.
func enter(ctx *Context, d *Decision, size, slDist, tpDist float64, reason string) {
	if math.IsNaN(slDist) || math.IsNaN(tpDist) || slDist <= 0 || tpDist <= 0 {
		return
	}
	price := ctx.Bar.Close
	switch ctx.Signal() {
	case signals.Buy:
		sl, tp := risk.Bracket(true, price, slDist, tpDist)
		d.Buy(size, level(sl), level(tp), reason)
	case signals.Sell:
		sl, tp := risk.Bracket(false, price, slDist, tpDist)
		d.Sell(size, level(sl), level(tp), reason)
	}
}

// rsiExits closes longs at or above high and shorts at or below low.
func rsiExits(ctx *Context, d *Decision, rsi, low, high float64) {
	if math.IsNaN(rsi) {
		return
	}
	for _, p := range ctx.Positions {
		switch {
		case p.Long && rsi >= high:
			d.Close(p.ID, "rsi overbought")
		case !p.Long && rsi <= low:
			d.Close(p.ID, "rsi oversold")
		}
	}
}

// emaBollinger trades the band touch in the EMA trend and exits on RSI
// extremes. One position at a time.
type emaBollinger struct {
	size, slCoef, tpsl float64
}

func newEMABollinger(p Params) Decider {
	return &emaBollinger{
		size:   p.Get(Size, DefaultSize),
		slCoef: p.Get(SLCoef, 2.2),
		tpsl:   p.Get(TPSLRatio, 2.0),
	}
}

func (s *emaBollinger) Name() string { return "ema_bollinger" }

func (s *emaBollinger) Decide(ctx *Context) (Decision, error) {
	var d Decision
	rsiExits(ctx, &d, ctx.Value("rsi"), 20, 80)
	if len(ctx.Positions) == 0 {
		slatr := s.slCoef * ctx.Value("atr")
		enter(ctx, &d, s.size, slatr, slatr*s.tpsl, "ema bollinger")
	}
	return d, nil
}

// macd opens on the histogram cross while the total trade count allows it,
// bails out of everything when open loss exceeds 2% of equity, and exits
// single trades on RSI extremes.
type macd struct {
	size, slCoef, tpsl  float64
	maxLongs, maxShorts int
}

// equityStop is the open loss, as a fraction of equity, that closes every
// position.
const equityStop = 0.02

func newMACD(p Params) Decider {
	return &macd{
		size:      p.Get(Size, DefaultSize),
		slCoef:    p.Get(SLCoef, 2.2),
		tpsl:      p.Get(TPSLRatio, 2.0),
		maxLongs:  p.Int(MaxLongs, 1),
		maxShorts: p.Int(MaxShorts, 1),
	}
}

func (s *macd) Name() string { return "macd_1" }

func (s *macd) Decide(ctx *Context) (Decision, error) {
	var d Decision
	if len(ctx.Positions) > 0 && ctx.PL() < -equityStop*ctx.Equity {
		d.CloseAll("equity stop")
	} else {
		rsiExits(ctx, &d, ctx.Value("rsi"), 10, 90)
	}

	limit := s.maxShorts
	if ctx.Signal() == signals.Buy {
		limit = s.maxLongs
	}
	if len(ctx.Positions) < limit {
		slatr := s.slCoef * ctx.Value("atr")
		enter(ctx, &d, s.size, slatr, slatr*s.tpsl, "macd cross")
	}
	return d, nil
}

// reversal sets stop and target as independent ATR multiples.
type reversal struct {
	name                 string
	size, slCoef, tpCoef float64
}

func newReversal(name string) func(Params) Decider {
	return func(p Params) Decider {
		return &reversal{
			name:   name,
			size:   p.Get(Size, DefaultSize),
			slCoef: p.Get(SLCoef, 3),
			tpCoef: p.Get(TPCoef, 2),
		}
	}
}

func (s *reversal) Name() string { return s.name }

func (s *reversal) Decide(ctx *Context) (Decision, error) {
	var d Decision
	if len(ctx.Positions) == 0 {
		atr := ctx.Value("atr")
		enter(ctx, &d, s.size, s.slCoef*atr, s.tpCoef*atr, "band reversal")
	}
	return d, nil
}

// swing enters on zone confirmations with an ATR bracket. One position at
// a time.
type swing struct {
	size, slCoef, tpsl float64
}

func newSwing(p Params) Decider {
	return &swing{
		size:   p.Get(Size, DefaultSize),
		slCoef: p.Get(SLCoef, 2.2),
		tpsl:   p.Get(TPSLRatio, 2.0),
	}
}

func (s *swing) Name() string { return "swing_1" }

func (s *swing) Decide(ctx *Context) (Decision, error) {
	var d Decision
	if len(ctx.Positions) == 0 {
		slatr := s.slCoef * ctx.Value("atr")
		enter(ctx, &d, s.size, slatr, slatr*s.tpsl, "swing zone")
	}
	return d, nil
}
