package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/replay"
)

type ReplayResult struct {
	Stat   journal.BacktestStat
	Replay replay.Result
}

// ReplayBacktest replays a stored backtest's trade actions against bars
// fetched fresh for its ticker, interval and period.
func (s *Service) ReplayBacktest(ctx context.Context, backtestID int64) (ReplayResult, error) {
	stat, err := s.store.GetBacktestStat(ctx, backtestID)
	if errors.Is(err, journal.ErrNotFound) {
		return ReplayResult{}, fmt.Errorf("%w: backtest %d not found", replay.ErrReplayScheduleInvalid, backtestID)
	}
	if err != nil {
		persistFailed(err)
		return ReplayResult{}, err
	}

	var missing []string
	for _, f := range []struct{ name, v string }{
		{"ticker", stat.Ticker}, {"interval", stat.Interval}, {"period", stat.Period},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return ReplayResult{}, fmt.Errorf("%w: backtest %d is missing %s", replay.ErrReplayScheduleInvalid, backtestID, strings.Join(missing, ", "))
	}

	actions, err := s.store.AllTradeActions(ctx, backtestID)
	if err != nil {
		persistFailed(err)
		return ReplayResult{}, err
	}
	if len(actions) == 0 {
		return ReplayResult{}, fmt.Errorf("%w: backtest %d has no trade actions", replay.ErrReplayScheduleInvalid, backtestID)
	}

	log := s.log.With(zap.Int64("backtest_id", backtestID), zap.String("strategy", stat.Strategy))
	series, err := s.provider.GetBars(ctx, stat.Ticker, stat.Interval, market.Window{Period: stat.Period})
	if err != nil {
		log.Warn("fetch bars failed", zap.Error(err))
		return ReplayResult{}, err
	}

	out, err := offload(ctx, s, func() (replay.Result, error) {
		return replay.Run(ctx, actions, series, replay.Options{
			Cash:   s.opts.ReplayCash,
			Margin: s.opts.ReplayMargin,
			Logger: log,
		})
	})
	if err != nil {
		return ReplayResult{}, err
	}
	log.Info("replayed", zap.Int("entries", len(out.Log)), zap.Int("trades", len(out.Trades)))
	return ReplayResult{Stat: stat, Replay: out}, nil
}
