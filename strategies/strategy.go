// Package strategies holds the per-bar deciders that turn a signal frame
// into orders, plus the registry of strategy defaults and lattices.
package strategies

import (
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/signals"
)

// Decider is called once per bar by the simulator. Implementations may keep
// state across bars; each run builds its own instance.
type Decider interface {
	Name() string
	Decide(ctx *Context) (Decision, error)
}

// Position is an open trade as seen by a decider. Zero StopLoss or
// TakeProfit means the level is not set.
type Position struct {
	ID         string
	Long       bool
	Size       float64
	Units      float64
	EntryPrice float64
	EntryBar   int
	StopLoss   float64
	TakeProfit float64
	PL         float64
}

// ClosedTrade is a position the simulator closed on this bar before the
// decider ran, by stop-loss, take-profit or liquidation.
type ClosedTrade struct {
	Position
	ExitPrice float64
	Reason    string
}

// Exit reasons set by the simulator.
const (
	ReasonStopLoss    = "stop_loss"
	ReasonTakeProfit  = "take_profit"
	ReasonLiquidation = "liquidation"
	ReasonEndOfData   = "end_of_data"
	ReasonReversed    = "reversed"
)

// Context is the read-only view handed to Decide.
type Context struct {
	Index     int
	Bar       market.Bar
	Frame     *signals.Frame
	Positions []Position
	Closed    []ClosedTrade
	Equity    float64
	Params    Params
}

// Signal returns the frame's signal for the current bar.
func (c *Context) Signal() signals.Signal {
	if c.Frame == nil || c.Index >= c.Frame.Len() {
		return signals.None
	}
	return c.Frame.Signals[c.Index]
}

// Value returns an indicator column at the current bar, NaN when missing.
func (c *Context) Value(col string) float64 {
	return c.Frame.At(col, c.Index)
}

func (c *Context) Longs() []Position  { return c.filter(true) }
func (c *Context) Shorts() []Position { return c.filter(false) }

func (c *Context) filter(long bool) []Position {
	var out []Position
	for _, p := range c.Positions {
		if p.Long == long {
			out = append(out, p)
		}
	}
	return out
}

// PL is the summed open profit of all positions.
func (c *Context) PL() float64 {
	var sum float64
	for _, p := range c.Positions {
		sum += p.PL
	}
	return sum
}

type OrderKind int

const (
	OpenLong OrderKind = iota
	OpenShort
	Close
	SetStop
)

func (k OrderKind) String() string {
	switch k {
	case OpenLong:
		return "open_long"
	case OpenShort:
		return "open_short"
	case Close:
		return "close"
	case SetStop:
		return "set_stop"
	}
	return "unknown"
}

// Order is one instruction in a Decision. Close with an empty TradeID
// closes every open trade. SetStop moves TradeID's stop to Price.
type Order struct {
	Kind       OrderKind
	TradeID    string
	Size       float64
	StopLoss   *float64
	TakeProfit *float64
	Price      float64
	Reason     string
}

// Decision lists the orders for one bar, applied in order.
type Decision struct {
	Orders []Order
}

func (d *Decision) Buy(size float64, sl, tp *float64, reason string) {
	d.Orders = append(d.Orders, Order{Kind: OpenLong, Size: size, StopLoss: sl, TakeProfit: tp, Reason: reason})
}

func (d *Decision) Sell(size float64, sl, tp *float64, reason string) {
	d.Orders = append(d.Orders, Order{Kind: OpenShort, Size: size, StopLoss: sl, TakeProfit: tp, Reason: reason})
}

func (d *Decision) Close(id, reason string) {
	d.Orders = append(d.Orders, Order{Kind: Close, TradeID: id, Reason: reason})
}

func (d *Decision) CloseAll(reason string) { d.Close("", reason) }

func (d *Decision) SetStop(id string, price float64, reason string) {
	d.Orders = append(d.Orders, Order{Kind: SetStop, TradeID: id, Price: price, Reason: reason})
}

func (d Decision) Empty() bool { return len(d.Orders) == 0 }

func level(v float64) *float64 { return &v }
