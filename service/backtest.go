package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/notify"
	"github.com/rustyeddy/signalbot/optimizer"
	"github.com/rustyeddy/signalbot/pkg/id"
	"github.com/rustyeddy/signalbot/reconcile"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/sim"
	"github.com/rustyeddy/signalbot/strategies"
)

type BacktestRequest struct {
	Ticker   string
	Interval string
	Period   string
	Strategy string
	// Params override the strategy defaults, including size, max_longs
	// and max_shorts.
	Params map[string]float64
	Start  time.Time
	End    time.Time
	// SkipOptimization with BestParams bypasses the grid search.
	SkipOptimization bool
	BestParams       map[string]float64
}

func (r BacktestRequest) Key() journal.Key {
	return journal.Key{Ticker: r.Ticker, Strategy: r.Strategy, Period: r.Period, Interval: r.Interval}
}

type BacktestResult struct {
	Stat   journal.BacktestStat
	Stats  sim.Stats
	Params strategies.Params
	// Heatmap is nil when optimization was skipped.
	Heatmap *optimizer.Heatmap
	Trades  []sim.Trade
	// Actions are the trade actions persisted by this run.
	Actions         []journal.TradeAction
	AllActions      []journal.TradeAction
	NotificationsOn bool
	Optimized       bool
	SkippedBars     int
}

// RunBacktest optimizes the strategy over fresh bars, runs one recording
// backtest with the winning parameters, persists the stat and the new
// trade actions and notifies when the backtest is flagged. Runs for the
// same key never overlap.
func (s *Service) RunBacktest(ctx context.Context, req BacktestRequest) (res BacktestResult, err error) {
	def, err := strategies.Lookup(req.Strategy)
	if err != nil {
		return BacktestResult{}, err
	}
	key := req.Key()
	log := s.log.With(zap.String("ticker", req.Ticker), zap.String("strategy", req.Strategy))

	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, optimizer.ErrOptimizationNoResult):
			result = "no_result"
		case err != nil:
			result = "error"
		}
		metrics.Backtests.WithLabelValues(req.Strategy, result).Inc()
	}()

	unlock, err := s.locks.Lock(ctx, key.String())
	if err != nil {
		return BacktestResult{}, err
	}
	defer unlock()

	series, err := s.provider.GetBars(ctx, req.Ticker, req.Interval, market.Window{Period: req.Period, Start: req.Start, End: req.End})
	if err != nil {
		log.Warn("fetch bars failed", zap.Error(err))
		return BacktestResult{}, err
	}

	base := strategies.Params{strategies.Size: s.sizeFor(req.Ticker)}.Merge(req.Params)
	run := s.runner(def, series, log)

	best := def.Params(base)
	if req.SkipOptimization && len(req.BestParams) > 0 {
		best = def.Params(base.Merge(req.BestParams))
		log.Info("optimization skipped", zap.Any("params", req.BestParams))
	} else if def.Lattice.Size() > 0 {
		maxTries := def.MaxTries
		if maxTries == 0 {
			maxTries = s.opts.MaxTries
		}
		out, oerr := optimizer.Optimize(ctx, def.Lattice, def.Objective,
			func(ctx context.Context, p map[string]float64) (optimizer.Scorer, error) {
				r, err := run(ctx, def.Params(base.Merge(p)), false)
				if err != nil {
					return nil, err
				}
				return r.Stats, nil
			},
			optimizer.Options{
				MaxTries: maxTries,
				Seed:     s.opts.Seed,
				Workers:  s.opts.Workers,
				Label:    req.Strategy,
				Logger:   log,
			})
		if oerr != nil {
			log.Warn("optimization failed", zap.Error(oerr))
			return BacktestResult{}, oerr
		}
		best = def.Params(base.Merge(out.Best))
		res.Heatmap = &out.Heatmap
		res.Optimized = true
		log.Info("optimized", zap.Any("best", out.Best), zap.Float64("objective", out.Objective), zap.Int("trials", out.Trials))
	}

	rec, err := run(ctx, best, true)
	if err != nil {
		return BacktestResult{}, err
	}
	res.Stats = rec.Stats
	res.Trades = rec.Trades
	res.Params = best
	res.SkippedBars = rec.SkippedBars
	res.AllActions = rec.Actions

	// Nothing is written until the recording run has succeeded.
	if err := ctx.Err(); err != nil {
		return BacktestResult{}, err
	}
	if err := s.persist(ctx, key, def, &res); err != nil {
		persistFailed(err)
		log.Error("persist backtest failed", zap.Error(err))
		return BacktestResult{}, err
	}

	if res.NotificationsOn && len(res.Actions) > 0 {
		s.notifyActions(ctx, key, res.Actions, log)
	}
	return res, nil
}

type runFunc func(ctx context.Context, p strategies.Params, record bool) (sim.Result, error)

// runner returns a func that generates signals for p and simulates them
// on a pool worker.
func (s *Service) runner(def strategies.Definition, series *market.Series, log *zap.Logger) runFunc {
	return func(ctx context.Context, p strategies.Params, record bool) (sim.Result, error) {
		return offload(ctx, s, func() (sim.Result, error) {
			frame, err := signals.Generate(def.Name, series, p)
			if err != nil {
				return sim.Result{}, err
			}
			return sim.Run(ctx, series, frame, def.Decider(p), sim.Options{
				Config: sim.Config{Cash: strategies.Cash, Margin: def.Margin, Hedging: def.Hedging},
				Params: p,
				Record: record,
				Logger: log,
			})
		})
	}
}

func (s *Service) persist(ctx context.Context, key journal.Key, def strategies.Definition, res *BacktestResult) error {
	now := s.opts.Now().UTC()

	stored, err := s.store.FindBacktestStat(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, journal.ErrNotFound) {
		return err
	}

	stat := statFromStats(key, res.Stats)
	stat.RefID = id.NewAt(now)
	stat.UpdatedAt = now
	stat.LastOptimizedAt = now
	if !res.Optimized && found {
		stat.LastOptimizedAt = stored.LastOptimizedAt
	}
	setParams(&stat, def, res.Params)
	stat.NotificationsOn = reconcile.ResolveFlag(stored.NotificationsOn, reconcile.Eligible(stat))

	if err := s.store.UpsertBacktestStat(ctx, &stat); err != nil {
		return err
	}

	latest, err := s.store.LatestTradeAction(ctx, stat.ID)
	if err != nil {
		return err
	}
	delta := reconcile.NewActions(res.AllActions, latest)
	for i := range delta {
		delta[i].BacktestID = stat.ID
	}
	if err := s.store.InsertTradeActions(ctx, delta); err != nil {
		return err
	}

	res.Stat = stat
	res.Actions = delta
	res.NotificationsOn = stat.NotificationsOn != nil && *stat.NotificationsOn
	return nil
}

func (s *Service) notifyActions(ctx context.Context, key journal.Key, actions []journal.TradeAction, log *zap.Logger) {
	for _, msg := range notify.FormatActions(key, actions, s.opts.Links) {
		if err := s.notifier.Send(ctx, msg); err != nil {
			log.Error("notification failed", zap.Error(err))
			return
		}
	}
	log.Info("notified", zap.Int("actions", len(actions)))
}

func statFromStats(key journal.Key, st sim.Stats) journal.BacktestStat {
	return journal.BacktestStat{
		Key:              key,
		Start:            market.Naive(st.Start),
		End:              market.Naive(st.End),
		Duration:         st.Duration,
		ExposurePct:      st.ExposurePct,
		EquityFinal:      st.EquityFinal,
		EquityPeak:       st.EquityPeak,
		ReturnPct:        st.ReturnPct,
		BuyHoldReturnPct: st.BuyHoldReturnPct,
		ReturnAnnPct:     st.ReturnAnnPct,
		VolatilityAnnPct: st.VolatilityAnnPct,
		Sharpe:           st.Sharpe,
		Sortino:          st.Sortino,
		Calmar:           st.Calmar,
		MaxDrawdownPct:   st.MaxDrawdownPct,
		AvgDrawdownPct:   st.AvgDrawdownPct,
		MaxDrawdownDur:   st.MaxDrawdownDur,
		AvgDrawdownDur:   st.AvgDrawdownDur,
		Trades:           st.Trades,
		WinRate:          st.WinRate,
		BestTradePct:     st.BestTradePct,
		WorstTradePct:    st.WorstTradePct,
		AvgTradePct:      st.AvgTradePct,
		MaxTradeDur:      st.MaxTradeDur,
		AvgTradeDur:      st.AvgTradeDur,
		ProfitFactor:     st.ProfitFactor,
	}
}

// setParams records the tunable parameters a strategy uses. A strategy
// with independent stop and target coefficients records their ratio.
func setParams(stat *journal.BacktestStat, def strategies.Definition, p strategies.Params) {
	axes := make(map[string]bool)
	for _, name := range def.Lattice.Names() {
		axes[name] = true
	}
	for k := range def.Defaults {
		axes[k] = true
	}
	opt := func(key string) *float64 {
		v, ok := p[key]
		if !ok || !axes[key] || math.IsNaN(v) {
			return nil
		}
		return &v
	}

	stat.SLCoef = opt(strategies.SLCoef)
	stat.TPCoef = opt(strategies.TPCoef)
	stat.TPSLRatio = opt(strategies.TPSLRatio)
	stat.GridDistance = opt(strategies.GridDistance)
	if stat.TPSLRatio == nil && stat.SLCoef != nil && stat.TPCoef != nil && *stat.SLCoef != 0 {
		r := *stat.TPCoef / *stat.SLCoef
		stat.TPSLRatio = &r
	}
}

// storedParams is the inverse of setParams, for reuse without optimizing.
func storedParams(stat journal.BacktestStat) map[string]float64 {
	out := make(map[string]float64)
	put := func(key string, v *float64) {
		if v != nil {
			out[key] = *v
		}
	}
	put(strategies.SLCoef, stat.SLCoef)
	put(strategies.TPCoef, stat.TPCoef)
	put(strategies.GridDistance, stat.GridDistance)
	if stat.TPCoef == nil {
		put(strategies.TPSLRatio, stat.TPSLRatio)
	}
	return out
}

func (r BacktestRequest) String() string {
	return fmt.Sprintf("%s %s %s %s", r.Strategy, r.Ticker, r.Interval, r.Period)
}
