// Package metrics holds the Prometheus collectors signalbot updates.
//
//   - signalbot_skipped_bars_total{strategy}          bars whose decision failed
//   - signalbot_optimizer_trials_total{strategy,outcome} trials by outcome (ok|nan|error)
//   - signalbot_backtests_total{strategy,result}      backtests by result (ok|error|no_result)
//   - signalbot_persistence_errors_total{op}          failed journal operations
//   - signalbot_replay_fallbacks_total                entries reopened without SL/TP
//   - signalbot_notifications_total{result}           notifier sends (ok|error)
//
// Collectors are registered in init() and served by `signalbot serve` at
// /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SkippedBars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_skipped_bars_total",
			Help: "Bars whose decision returned an error or panicked",
		},
		[]string{"strategy"},
	)

	OptimizerTrials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_optimizer_trials_total",
			Help: "Optimizer trials by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	Backtests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_backtests_total",
			Help: "Backtest runs by result",
		},
		[]string{"strategy", "result"},
	)

	PersistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_persistence_errors_total",
			Help: "Failed journal operations",
		},
		[]string{"op"},
	)

	ReplayFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbot_replay_fallbacks_total",
			Help: "Replay entries reopened without protective levels",
		},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbot_notifications_total",
			Help: "Notification sends by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		SkippedBars,
		OptimizerTrials,
		Backtests,
		PersistenceErrors,
		ReplayFallbacks,
		Notifications,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
