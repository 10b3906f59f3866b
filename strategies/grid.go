package strategies

import (
	"github.com/rustyeddy/signalbot/signals"
)

// gridStopLevels is how many grid steps the stop sits from entry.
const gridStopLevels = 3

// grid keeps a ladder of levels around a reference price. Each touched
// level opens a long/short pair one step from target; a profitable
// take-profit moves the reference to that target and opens a new pair.
// Positions of both sides are held at once.
type grid struct {
	size, distance float64

	started bool
	level   float64
	ladder  signals.Grid
}

func newGrid(p Params) Decider {
	return &grid{
		size:     p.Get(Size, 0.1),
		distance: p.Get(GridDistance, signals.DefaultGridDistance),
	}
}

func (s *grid) Name() string { return "grid_trading" }

// Level is the current reference price.
func (s *grid) Level() float64 { return s.level }

func (s *grid) Decide(ctx *Context) (Decision, error) {
	if !s.started {
		s.started = true
		s.relevel(ctx.Frame.At("close", 0))
	}

	var (
		d     Decision
		price = ctx.Bar.Close
		stop  = s.distance * gridStopLevels
	)
	if s.ladder.Crosses(ctx.Bar.Low, ctx.Bar.High) {
		openBuy, openSell := true, true
		for _, p := range ctx.Positions {
			if p.Long && p.TakeProfit >= price {
				openBuy = false
			} else if !p.Long && p.TakeProfit <= price {
				openSell = false
			}
		}
		if openBuy {
			d.Buy(s.size, level(price-stop), level(price+s.distance), "grid level")
		}
		if openSell {
			d.Sell(s.size, level(price+stop), level(price-s.distance), "grid level")
		}
	}

	for _, c := range ctx.Closed {
		if c.Reason != ReasonTakeProfit || c.PL <= 0 {
			continue
		}
		s.relevel(c.TakeProfit)
		d.Sell(s.size, level(s.level+stop), level(s.level-s.distance), "grid relocate")
		d.Buy(s.size, level(s.level-stop), level(s.level+s.distance), "grid relocate")
		break
	}
	return d, nil
}

func (s *grid) relevel(mid float64) {
	s.level = mid
	s.ladder = signals.NewGrid(mid, s.distance)
}
