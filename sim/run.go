package sim

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/strategies"
)

// Options configure one Run.
type Options struct {
	Config
	Params strategies.Params
	// Record appends one TradeAction per applied open or close order.
	Record bool
	Logger *zap.Logger
}

// Result is the outcome of one Run.
type Result struct {
	Stats   Stats
	Trades  []Trade
	Actions []journal.TradeAction
	// SkippedBars counts bars whose decision failed and was dropped.
	SkippedBars int
	// Rejected counts orders the engine refused.
	Rejected int
}

// Run drives decider over every bar of series. The frame must be aligned
// with the series. A decision that errors or panics is logged and counted
// and the bar takes no action. Trades still open after the last bar are
// closed at its close.
func Run(ctx context.Context, series *market.Series, frame *signals.Frame, decider strategies.Decider, opts Options) (Result, error) {
	if series == nil || series.Len() == 0 {
		return Result{}, market.ErrEmptySeries
	}
	if frame == nil || frame.Len() != series.Len() {
		return Result{}, fmt.Errorf("frame does not match series of %d bars", series.Len())
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("strategy", decider.Name()), zap.String("ticker", series.Ticker))

	var res Result
	e := NewEngine(opts.Config)
	for i := 0; i < series.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		bar := series.Bar(i)
		closed := e.Step(bar)

		dctx := &strategies.Context{
			Index:     i,
			Bar:       bar,
			Frame:     frame,
			Positions: e.Positions(),
			Equity:    e.Equity(),
			Params:    opts.Params,
		}
		for _, t := range closed {
			dctx.Closed = append(dctx.Closed, t.closed())
		}

		decision, err := decide(decider, dctx)
		if err != nil {
			res.SkippedBars++
			metrics.SkippedBars.WithLabelValues(decider.Name()).Inc()
			log.Warn("decision failed, bar skipped", zap.Int("bar", i), zap.Error(err))
			continue
		}

		for _, o := range decision.Orders {
			actions, err := apply(e, o)
			if opts.Record {
				for _, a := range actions {
					a.Time = market.Naive(bar.Time)
					res.Actions = append(res.Actions, a)
				}
			}
			if err != nil {
				res.Rejected++
				log.Debug("order rejected",
					zap.Int("bar", i),
					zap.Stringer("kind", o.Kind),
					zap.String("reason", o.Reason),
					zap.Error(err))
			}
		}
	}

	e.Finish()
	res.Trades = e.ClosedTrades()
	res.Stats = e.Stats()
	return res, nil
}

func decide(d strategies.Decider, ctx *strategies.Context) (dec strategies.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			dec, err = strategies.Decision{}, fmt.Errorf("decider panicked: %v", r)
		}
	}()
	return d.Decide(ctx)
}

// apply executes one order and returns the actions to record. Trades
// closed by a non-hedging reversal are recorded as a close ahead of the
// open, even when the open itself is then rejected.
func apply(e *Engine, o strategies.Order) ([]journal.TradeAction, error) {
	switch o.Kind {
	case strategies.OpenLong, strategies.OpenShort:
		long := o.Kind == strategies.OpenLong
		n := e.closedCount()
		t, err := e.Open(long, o.Size, o.StopLoss, o.TakeProfit)

		var out []journal.TradeAction
		if reversed := e.closedSince(n); len(reversed) > 0 {
			out = append(out, closeAction(reversed))
		}
		if err != nil {
			return out, err
		}
		kind := journal.ActionSell
		if long {
			kind = journal.ActionBuy
		}
		return append(out, journal.TradeAction{
			Kind:       kind,
			EntryPrice: t.EntryPrice,
			Price:      t.EntryPrice,
			StopLoss:   copyLevel(t.StopLoss),
			TakeProfit: copyLevel(t.TakeProfit),
			Size:       o.Size,
		}), nil

	case strategies.Close:
		var closed []Trade
		if o.TradeID == "" {
			closed = e.CloseAll(o.Reason)
		} else {
			t, err := e.Close(o.TradeID, o.Reason)
			if err != nil {
				return nil, err
			}
			closed = []Trade{t}
		}
		if len(closed) == 0 {
			return nil, nil
		}
		return []journal.TradeAction{closeAction(closed)}, nil

	case strategies.SetStop:
		return nil, e.SetStop(o.TradeID, o.Price)
	}
	return nil, errors.New("unknown order kind")
}

func closeAction(closed []Trade) journal.TradeAction {
	a := journal.TradeAction{
		Kind:       journal.ActionClose,
		EntryPrice: closed[0].EntryPrice,
		Price:      closed[0].ExitPrice,
	}
	for _, t := range closed {
		a.Size += t.Size
	}
	return a
}
