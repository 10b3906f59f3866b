package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/strategies"
)

// JobReport summarizes one notification job pass.
type JobReport struct {
	Ran       int
	Optimized int
	Failed    int
	Notified  int
}

// NotificationJob re-runs every stored backtest in turn. Stored
// parameters are reused while the last optimization is recent. A failing
// strategy is logged and the job moves on.
func (s *Service) NotificationJob(ctx context.Context) (JobReport, error) {
	var rep JobReport
	stats, err := s.store.ListStrategies(ctx)
	if err != nil {
		persistFailed(err)
		return rep, err
	}

	for _, stat := range stats {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		log := s.log.With(zap.String("ticker", stat.Ticker), zap.String("strategy", stat.Strategy))

		best := storedParams(stat)
		skip := len(best) > 0 && s.opts.Now().Sub(stat.LastOptimizedAt) < s.opts.OptimizeEvery
		res, err := s.RunBacktest(ctx, BacktestRequest{
			Ticker:   stat.Ticker,
			Interval: stat.Interval,
			Period:   stat.Period,
			Strategy: stat.Strategy,
			Params: map[string]float64{
				strategies.MaxLongs:  2,
				strategies.MaxShorts: 2,
			},
			SkipOptimization: skip,
			BestParams:       best,
		})
		if err != nil {
			rep.Failed++
			log.Error("job backtest failed", zap.Error(err))
			continue
		}

		rep.Ran++
		if res.Optimized {
			rep.Optimized++
		}
		if res.NotificationsOn && len(res.Actions) > 0 {
			rep.Notified++
		}
	}
	s.log.Info("notification job done",
		zap.Int("ran", rep.Ran),
		zap.Int("optimized", rep.Optimized),
		zap.Int("failed", rep.Failed),
		zap.Int("notified", rep.Notified))
	return rep, nil
}
