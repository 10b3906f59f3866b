package strategies

import (
	"math"

	"github.com/rustyeddy/signalbot/signals"
)

// fvg trades confirmed fair value gap retests. The stop comes from the zone
// and the target is ratio times the risk. The gap tracker only advances
// while flat, so zones seen during a trade are never acted on.
type fvg struct {
	size, ratio float64
	tracker     *signals.FVGTracker
}

func newFVG(p Params) Decider {
	return &fvg{
		size:    p.Get(Size, DefaultSize),
		ratio:   p.Get(TPSLRatio, 2.0),
		tracker: signals.NewFVGTracker(p),
	}
}

func (s *fvg) Name() string { return "fvg_confirmation" }

func (s *fvg) Decide(ctx *Context) (Decision, error) {
	var d Decision
	if len(ctx.Positions) > 0 || ctx.Index < signals.FVGStart {
		return d, nil
	}

	side, zone := s.tracker.Step(ctx.Index, ctx.Frame.Columns)
	entry := ctx.Bar.Close
	risk := math.Abs(entry - zone.StopLoss)
	switch side {
	case signals.Buy:
		d.Buy(s.size, level(zone.StopLoss), level(entry+s.ratio*risk), "fvg bullish retest")
	case signals.Sell:
		d.Sell(s.size, level(zone.StopLoss), level(entry-s.ratio*risk), "fvg bearish retest")
	}
	return d, nil
}
