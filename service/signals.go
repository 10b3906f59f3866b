package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/strategies"
)

type SignalRequest struct {
	Ticker   string
	Interval string
	Period   string
	Strategy string
	Params   map[string]float64
	Start    time.Time
	End      time.Time
}

func (r SignalRequest) window() market.Window {
	return market.Window{Period: r.Period, Start: r.Start, End: r.End}
}

type SignalResult struct {
	Request SignalRequest
	Frame   *signals.Frame
	// Latest is the last bar's signal, which may be None.
	Latest signals.Record
	All    []signals.Record
}

// RunSignals fetches bars and computes the strategy's signal series.
func (s *Service) RunSignals(ctx context.Context, req SignalRequest) (SignalResult, error) {
	def, err := strategies.Lookup(req.Strategy)
	if err != nil {
		return SignalResult{}, &signals.SignalComputationError{Strategy: req.Strategy, Ticker: req.Ticker, Err: err}
	}
	log := s.log.With(zap.String("ticker", req.Ticker), zap.String("strategy", req.Strategy))

	series, err := s.provider.GetBars(ctx, req.Ticker, req.Interval, req.window())
	if err != nil {
		log.Warn("fetch bars failed", zap.Error(err))
		return SignalResult{}, err
	}

	params := def.Params(req.Params)
	frame, err := offload(ctx, s, func() (*signals.Frame, error) {
		return signals.Generate(req.Strategy, series, params)
	})
	if err != nil {
		log.Error("signal computation failed", zap.Error(err))
		return SignalResult{}, err
	}

	latest, _ := frame.Latest()
	return SignalResult{
		Request: req,
		Frame:   frame,
		Latest:  latest,
		All:     frame.NonZero(),
	}, nil
}
