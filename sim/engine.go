// Package sim is a bar-level bracket-order simulator.
//
// Orders fill at the close of the current bar. Each Step first checks stops
// and targets against the new bar's range (stop first, gaps fill at the
// open), then revalues open trades at the close and liquidates the worst
// trade while equity is below the margin in use.
package sim

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/pkg/id"
	"github.com/rustyeddy/signalbot/strategies"
)

var (
	ErrInvalidBracket     = errors.New("stop-loss or take-profit on the wrong side of price")
	ErrNoBar              = errors.New("no bar stepped yet")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrInvalidSize        = errors.New("size must be positive")
)

// Config is the account the engine simulates.
type Config struct {
	Cash float64
	// Margin is the required margin ratio, 1/leverage.
	Margin float64
	// Hedging allows long and short trades at once. Without it an order in
	// the opposite direction first closes the open trades.
	Hedging bool
}

// TradeClosedListener is notified of trades the engine closes on its own
// (stop-loss, take-profit, liquidation). It is called after the engine
// lock is released.
type TradeClosedListener interface {
	OnTradeClosed(t Trade)
}

type Engine struct {
	mu         sync.Mutex
	cfg        Config
	balance    float64
	equity     float64
	marginUsed float64

	index int
	bar   market.Bar
	open  []*Trade
	done  []*Trade

	curve  []float64
	times  []time.Time
	closes []float64

	listener TradeClosedListener
}

func NewEngine(cfg Config) *Engine {
	if cfg.Margin <= 0 {
		cfg.Margin = 1
	}
	return &Engine{
		cfg:     cfg,
		balance: cfg.Cash,
		equity:  cfg.Cash,
		index:   -1,
	}
}

// SetTradeClosedListener sets an optional listener for engine-initiated
// closes.
func (e *Engine) SetTradeClosedListener(l TradeClosedListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// Step advances to bar b and returns the trades it closed.
func (e *Engine) Step(b market.Bar) []Trade {
	e.mu.Lock()

	e.index++
	e.bar = b
	e.times = append(e.times, b.Time)
	e.closes = append(e.closes, b.Close)

	var closed []Trade
	for _, t := range slices.Clone(e.open) {
		if price, ok := hitStopLoss(t, b); ok {
			e.closeLocked(t, price, strategies.ReasonStopLoss)
		} else if price, ok := hitTakeProfit(t, b); ok {
			e.closeLocked(t, price, strategies.ReasonTakeProfit)
		} else {
			continue
		}
		closed = append(closed, *t)
	}

	e.revalueLocked()
	e.recomputeMarginLocked()
	closed = append(closed, e.enforceMarginLocked()...)
	e.curve = append(e.curve, e.equity)

	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, t := range closed {
			listener.OnTradeClosed(t)
		}
	}
	return closed
}

// Open fills a market order at the current close. Size below 1 is a
// fraction of the available margin-adjusted equity; size of 1 or more is
// a whole number of units.
func (e *Engine) Open(long bool, size float64, sl, tp *float64) (Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index < 0 {
		return Trade{}, ErrNoBar
	}
	if size <= 0 || math.IsNaN(size) {
		return Trade{}, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	price := e.bar.Close
	if !validBracket(long, price, sl, tp) {
		return Trade{}, fmt.Errorf("%w: price %.5f sl %s tp %s", ErrInvalidBracket, price, fmtLevel(sl), fmtLevel(tp))
	}

	if !e.cfg.Hedging {
		for _, t := range slices.Clone(e.open) {
			if t.Long() != long {
				e.closeLocked(t, price, strategies.ReasonReversed)
			}
		}
		e.revalueLocked()
		e.recomputeMarginLocked()
	}

	available := e.equity - e.marginUsed
	units := math.Floor(size)
	if size < 1 {
		units = math.Floor(size * available / (e.cfg.Margin * price))
	}
	if units <= 0 || TradeMargin(units, price, e.cfg.Margin) > available {
		return Trade{}, fmt.Errorf("%w: size %v at %.5f with %.2f available", ErrInsufficientMargin, size, price, available)
	}
	if !long {
		units = -units
	}

	t := &Trade{
		ID:         id.New(),
		Units:      units,
		Size:       size,
		EntryPrice: price,
		EntryBar:   e.index,
		EntryTime:  e.bar.Time,
		StopLoss:   copyLevel(sl),
		TakeProfit: copyLevel(tp),
		Open:       true,
	}
	e.open = append(e.open, t)
	e.recomputeMarginLocked()
	return *t, nil
}

// Close closes one open trade at the current close.
func (e *Engine) Close(tradeID, reason string) (Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index < 0 {
		return Trade{}, ErrNoBar
	}
	t := e.findLocked(tradeID)
	if t == nil {
		return Trade{}, fmt.Errorf("close %q: %w", tradeID, ErrTradeNotFound)
	}
	e.closeLocked(t, e.bar.Close, reason)
	e.revalueLocked()
	e.recomputeMarginLocked()
	return *t, nil
}

// CloseAll closes every open trade at the current close, oldest first.
func (e *Engine) CloseAll(reason string) []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Trade
	for _, t := range slices.Clone(e.open) {
		e.closeLocked(t, e.bar.Close, reason)
		out = append(out, *t)
	}
	e.revalueLocked()
	e.recomputeMarginLocked()
	return out
}

// SetStop moves an open trade's stop-loss. The new level must still be on
// the losing side of the current close.
func (e *Engine) SetStop(tradeID string, price float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.findLocked(tradeID)
	if t == nil {
		return fmt.Errorf("set stop %q: %w", tradeID, ErrTradeNotFound)
	}
	if !validBracket(t.Long(), e.bar.Close, &price, nil) {
		return fmt.Errorf("set stop %q to %.5f at %.5f: %w", tradeID, price, e.bar.Close, ErrInvalidBracket)
	}
	t.StopLoss = &price
	return nil
}

// Finish closes whatever is still open at the last close.
func (e *Engine) Finish() []Trade {
	return e.CloseAll(strategies.ReasonEndOfData)
}

// OpenTrades returns copies of the open trades in entry order.
func (e *Engine) OpenTrades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.open)
}

// ClosedTrades returns copies of the closed trades in exit order.
func (e *Engine) ClosedTrades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.done)
}

func (e *Engine) closedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.done)
}

// closedSince returns copies of the trades closed after the first n.
func (e *Engine) closedSince(n int) []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deref(e.done[n:])
}

// Positions is the decider's view of the open trades, marked at the close.
func (e *Engine) Positions() []strategies.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]strategies.Position, len(e.open))
	for i, t := range e.open {
		out[i] = t.position(e.bar.Close)
	}
	return out
}

func (e *Engine) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equity
}

func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Stats summarizes the run so far. Open trades are not counted; call
// Finish first for a complete picture.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return computeStats(e.cfg.Cash, e.curve, e.times, e.closes, deref(e.done))
}

func (e *Engine) findLocked(tradeID string) *Trade {
	for _, t := range e.open {
		if t.ID == tradeID {
			return t
		}
	}
	return nil
}

func (e *Engine) closeLocked(t *Trade, price float64, reason string) {
	t.ExitPrice = price
	t.ExitBar = e.index
	t.ExitTime = e.bar.Time
	t.PL = UnrealizedPL(*t, price)
	t.Reason = reason
	t.Open = false

	e.balance += t.PL
	e.open = slices.DeleteFunc(e.open, func(o *Trade) bool { return o == t })
	e.done = append(e.done, t)
}

func (e *Engine) revalueLocked() {
	equity := e.balance
	for _, t := range e.open {
		equity += UnrealizedPL(*t, e.bar.Close)
	}
	e.equity = equity
}

func (e *Engine) recomputeMarginLocked() {
	var used float64
	for _, t := range e.open {
		used += TradeMargin(t.Units, e.bar.Close, e.cfg.Margin)
	}
	e.marginUsed = used
}

func (e *Engine) enforceMarginLocked() []Trade {
	var liquidated []Trade
	for e.marginUsed > 0 && e.equity < e.marginUsed {
		var worst *Trade
		var worstPL float64
		for _, t := range e.open {
			pl := UnrealizedPL(*t, e.bar.Close)
			if worst == nil || pl < worstPL {
				worst, worstPL = t, pl
			}
		}
		if worst == nil {
			break
		}
		e.closeLocked(worst, e.bar.Close, strategies.ReasonLiquidation)
		liquidated = append(liquidated, *worst)
		e.revalueLocked()
		e.recomputeMarginLocked()
	}
	return liquidated
}

func deref(ts []*Trade) []Trade {
	out := make([]Trade, len(ts))
	for i, t := range ts {
		out[i] = *t
	}
	return out
}

func copyLevel(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func fmtLevel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f", *v)
}
