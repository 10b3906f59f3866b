// Package service orchestrates signal requests, optimized backtests,
// persistence, notification and replay.
package service

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market/data"
	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/notify"
)

// Options configure a Service. Zero values take the defaults noted.
type Options struct {
	// PoolSize bounds concurrent CPU-bound work process-wide. Default
	// GOMAXPROCS.
	PoolSize int
	// Workers caps parallel optimizer trials. Default GOMAXPROCS.
	Workers int
	// MaxTries caps sampled trials for strategies that set none.
	MaxTries int
	Seed     uint64
	// OptimizeEvery is how long the job reuses stored parameters before
	// optimizing again. Default three days.
	OptimizeEvery time.Duration
	// CryptoSize is the lot size for BTC-USD, DefaultSize for everything
	// else. Defaults 0.01 and 0.03.
	CryptoSize  float64
	DefaultSize float64
	// ReplayCash and ReplayMargin are the replay account.
	ReplayCash   float64
	ReplayMargin float64
	Links        notify.Links
	Logger       *zap.Logger
	Now          func() time.Time
}

type Service struct {
	store    journal.Store
	provider data.Provider
	notifier notify.Notifier
	opts     Options
	log      *zap.Logger

	pool  *semaphore.Weighted
	locks *keyedMutex
}

func New(store journal.Store, provider data.Provider, notifier notify.Notifier, opts Options) *Service {
	if opts.PoolSize <= 0 {
		opts.PoolSize = runtime.GOMAXPROCS(0)
	}
	if opts.OptimizeEvery <= 0 {
		opts.OptimizeEvery = 3 * 24 * time.Hour
	}
	if opts.CryptoSize <= 0 {
		opts.CryptoSize = 0.01
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 0.03
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = notify.NoOp{}
	}
	return &Service{
		store:    store,
		provider: provider,
		notifier: notifier,
		opts:     opts,
		log:      opts.Logger,
		pool:     semaphore.NewWeighted(int64(opts.PoolSize)),
		locks:    newKeyedMutex(),
	}
}

// offload runs fn on a pool worker and waits for it or for ctx. The result
// travels back on the channel, so a worker that outlives a cancelled
// caller never writes to the caller's state.
func offload[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	var zero T
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer s.pool.Release(1)
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// sizeFor is the lot size for ticker when the request names none.
func (s *Service) sizeFor(ticker string) float64 {
	if ticker == "BTC-USD" {
		return s.opts.CryptoSize
	}
	return s.opts.DefaultSize
}

// persistFailed counts a journal failure by operation.
func persistFailed(err error) {
	var pe *journal.PersistenceError
	if errors.As(err, &pe) {
		metrics.PersistenceErrors.WithLabelValues(pe.Op).Inc()
	}
}
