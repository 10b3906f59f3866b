package sim

import (
	"time"

	"github.com/rustyeddy/signalbot/strategies"
)

// Trade is one simulated position. Units are signed: positive long,
// negative short.
type Trade struct {
	ID         string
	Units      float64
	Size       float64
	EntryPrice float64
	EntryBar   int
	EntryTime  time.Time

	StopLoss   *float64
	TakeProfit *float64

	// Realized
	ExitPrice float64
	ExitBar   int
	ExitTime  time.Time
	PL        float64
	Reason    string
	Open      bool
}

func (t *Trade) Long() bool { return t.Units > 0 }

// ReturnPct is the fractional price return in the trade's direction.
func (t *Trade) ReturnPct() float64 {
	r := t.ExitPrice/t.EntryPrice - 1
	if t.Units < 0 {
		return -r
	}
	return r
}

func (t *Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

func (t *Trade) position(mark float64) strategies.Position {
	p := strategies.Position{
		ID:         t.ID,
		Long:       t.Long(),
		Size:       t.Size,
		Units:      abs(t.Units),
		EntryPrice: t.EntryPrice,
		EntryBar:   t.EntryBar,
		PL:         UnrealizedPL(*t, mark),
	}
	if t.StopLoss != nil {
		p.StopLoss = *t.StopLoss
	}
	if t.TakeProfit != nil {
		p.TakeProfit = *t.TakeProfit
	}
	return p
}

func (t *Trade) closed() strategies.ClosedTrade {
	p := t.position(t.ExitPrice)
	p.PL = t.PL
	return strategies.ClosedTrade{Position: p, ExitPrice: t.ExitPrice, Reason: t.Reason}
}
