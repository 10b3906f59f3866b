// Package replay re-executes a recorded trade schedule against a fresh bar
// series. It drives the simulator directly and never touches signals or
// indicators.
package replay

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/sim"
)

var ErrReplayScheduleInvalid = errors.New("replay schedule invalid")

// Defaults match the account recording runs are replayed against.
const (
	DefaultCash   = 100000.0
	DefaultMargin = 1.0 / 500
)

// Status of one schedule entry after replay.
type Status string

const (
	Executed Status = "executed"
	// Fallback entries were reopened without stop-loss and take-profit
	// because the recorded levels were on the wrong side of price.
	Fallback Status = "fallback"
	// Skipped entries were buy or sell while a position was open.
	Skipped Status = "skipped"
	// Rejected entries were refused by the simulator.
	Rejected Status = "rejected"
	// Unreached entries are timed after the last bar.
	Unreached Status = "unreached"
)

// Options configure one replay.
type Options struct {
	Cash   float64
	Margin float64
	Logger *zap.Logger
}

// LogRow is the execution record of one schedule entry.
type LogRow struct {
	Scheduled  market.Timestamp
	Time       market.Timestamp
	Kind       journal.ActionKind
	Status     Status
	Price      float64
	StopLoss   *float64
	TakeProfit *float64
	Size       float64
	Err        string
}

type Result struct {
	Stats  sim.Stats
	Trades []sim.Trade
	// Log has one row per schedule entry in non-decreasing time order.
	Log []LogRow
}

// Validate checks that a schedule can be replayed.
func Validate(schedule []journal.TradeAction) error {
	if len(schedule) == 0 {
		return fmt.Errorf("%w: no actions", ErrReplayScheduleInvalid)
	}
	for i, a := range schedule {
		switch a.Kind {
		case journal.ActionBuy, journal.ActionSell:
			if a.Size <= 0 {
				return fmt.Errorf("%w: entry %d has size %v", ErrReplayScheduleInvalid, i, a.Size)
			}
		case journal.ActionClose:
		default:
			return fmt.Errorf("%w: entry %d has kind %q", ErrReplayScheduleInvalid, i, a.Kind)
		}
		if a.Time.IsZero() {
			return fmt.Errorf("%w: entry %d has no time", ErrReplayScheduleInvalid, i)
		}
	}
	return nil
}

// Run replays schedule over series. Each entry executes once, on the
// first bar at or after its time. Buy and sell apply only when no position
// is open; close closes everything.
func Run(ctx context.Context, schedule []journal.TradeAction, series *market.Series, opts Options) (Result, error) {
	if err := Validate(schedule); err != nil {
		return Result{}, err
	}
	if series == nil || series.Len() == 0 {
		return Result{}, market.ErrEmptySeries
	}
	if opts.Cash <= 0 {
		opts.Cash = DefaultCash
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("ticker", series.Ticker))

	pending := slices.Clone(schedule)
	slices.SortStableFunc(pending, func(a, b journal.TradeAction) int {
		return a.Time.Time().Compare(b.Time.Time())
	})

	e := sim.NewEngine(sim.Config{Cash: opts.Cash, Margin: opts.Margin})
	rows := make([]LogRow, 0, len(pending))
	next := 0
	for i := 0; i < series.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		bar := series.Bar(i)
		e.Step(bar)

		now := market.Naive(bar.Time)
		for next < len(pending) && !now.Before(pending[next].Time) {
			rows = append(rows, execute(e, pending[next], now, bar.Close, log))
			next++
		}
	}
	for _, a := range pending[next:] {
		rows = append(rows, LogRow{
			Scheduled: a.Time, Time: a.Time, Kind: a.Kind, Status: Unreached,
			StopLoss: a.StopLoss, TakeProfit: a.TakeProfit, Size: a.Size,
		})
		log.Warn("replay entry after last bar", zap.Stringer("time", a.Time), zap.String("kind", string(a.Kind)))
	}

	e.Finish()
	return Result{
		Stats:  e.Stats(),
		Trades: e.ClosedTrades(),
		Log:    rows,
	}, nil
}

func execute(e *sim.Engine, a journal.TradeAction, now market.Timestamp, price float64, log *zap.Logger) LogRow {
	row := LogRow{
		Scheduled:  a.Time,
		Time:       now,
		Kind:       a.Kind,
		Status:     Executed,
		Price:      price,
		StopLoss:   a.StopLoss,
		TakeProfit: a.TakeProfit,
		Size:       a.Size,
	}
	fields := []zap.Field{zap.Stringer("time", now), zap.String("kind", string(a.Kind)), zap.Float64("price", price)}

	if a.Kind == journal.ActionClose {
		closed := e.CloseAll("replay")
		log.Debug("replay close", append(fields, zap.Int("trades", len(closed)))...)
		return row
	}

	if len(e.OpenTrades()) > 0 {
		row.Status = Skipped
		log.Info("replay entry skipped, position open", fields...)
		return row
	}

	long := a.Kind == journal.ActionBuy
	_, err := e.Open(long, a.Size, a.StopLoss, a.TakeProfit)
	if errors.Is(err, sim.ErrInvalidBracket) {
		metrics.ReplayFallbacks.Inc()
		log.Info("replay levels invalid, opening without them", append(fields, zap.Error(err))...)
		row.Status = Fallback
		_, err = e.Open(long, a.Size, nil, nil)
	}
	if err != nil {
		row.Status = Rejected
		row.Err = err.Error()
		log.Warn("replay entry rejected", append(fields, zap.Error(err))...)
		return row
	}
	log.Debug("replay entry", fields...)
	return row
}
