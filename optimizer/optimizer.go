// Package optimizer runs a parallel grid search over a parameter lattice.
//
// Every combination is evaluated once (or a deterministic sample of them
// when the lattice is larger than MaxTries). The best finite objective wins
// and ties go to the lexicographically first combination.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/signalbot/metrics"
)

var ErrOptimizationNoResult = errors.New("optimization produced no finite objective")

// Objective names the statistic a search maximizes.
type Objective string

const (
	Return      Objective = "Return [%]"
	SharpeRatio Objective = "Sharpe Ratio"
	WinRate     Objective = "Win Rate [%]"
	MaxDrawdown Objective = "Max. Drawdown [%]"
)

// Scorer is anything that can report an objective, typically backtest stats.
type Scorer interface {
	Metric(Objective) float64
}

// Evaluate runs one trial.
type Evaluate func(ctx context.Context, params map[string]float64) (Scorer, error)

type Options struct {
	// MaxTries caps the number of trials. Zero means no cap.
	MaxTries int
	// Seed drives the sample taken when the lattice exceeds MaxTries.
	Seed uint64
	// Workers is the concurrency cap. Zero means GOMAXPROCS.
	Workers int
	// Label tags metrics and logs, usually the strategy name.
	Label  string
	Logger *zap.Logger
}

// Cell is one heatmap entry.
type Cell struct {
	Values    []float64
	Objective float64
}

// Heatmap holds every trial with a finite objective, in lattice order.
type Heatmap struct {
	Axes  []string
	Cells []Cell
}

// Get returns the objective recorded for values.
func (h Heatmap) Get(values ...float64) (float64, bool) {
	for _, c := range h.Cells {
		if equalValues(c.Values, values) {
			return c.Objective, true
		}
	}
	return 0, false
}

// Max returns the largest objective in the heatmap.
func (h Heatmap) Max() float64 {
	best := math.Inf(-1)
	for _, c := range h.Cells {
		best = math.Max(best, c.Objective)
	}
	return best
}

// Outcome is the result of a search.
type Outcome struct {
	Best      map[string]float64
	Values    []float64
	Objective float64
	Heatmap   Heatmap
	Trials    int
}

type trial struct {
	values []float64
	score  float64
	ok     bool
}

// Optimize evaluates the lattice and returns the best combination for
// objective. Trial errors are logged and counted; only cancellation aborts
// the search.
func Optimize(ctx context.Context, lattice Lattice, objective Objective, evaluate Evaluate, opts Options) (Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if lattice.Size() == 0 {
		return Outcome{}, fmt.Errorf("%w: empty lattice", ErrOptimizationNoResult)
	}

	picks := sample(lattice.Size(), opts.MaxTries, opts.Seed)
	trials := make([]trial, len(picks))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, k := range picks {
		if gctx.Err() != nil {
			break
		}
		values := lattice.At(k)
		trials[i].values = values
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scorer, err := evaluate(gctx, lattice.Params(values))
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				metrics.OptimizerTrials.WithLabelValues(opts.Label, "error").Inc()
				log.Debug("trial failed",
					zap.String("strategy", opts.Label),
					zap.Float64s("values", values),
					zap.Error(err))
				return nil
			}
			v := scorer.Metric(objective)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				metrics.OptimizerTrials.WithLabelValues(opts.Label, "nan").Inc()
				return nil
			}
			metrics.OptimizerTrials.WithLabelValues(opts.Label, "ok").Inc()
			trials[i].score, trials[i].ok = v, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Objective: math.Inf(-1),
		Heatmap:   Heatmap{Axes: lattice.Names()},
		Trials:    len(picks),
	}
	for _, t := range trials {
		if !t.ok {
			continue
		}
		out.Heatmap.Cells = append(out.Heatmap.Cells, Cell{Values: t.values, Objective: t.score})
		if t.score > out.Objective {
			out.Objective, out.Values = t.score, t.values
		}
	}
	if out.Values == nil {
		return Outcome{}, fmt.Errorf("%w: %d trials for %s", ErrOptimizationNoResult, len(picks), objective)
	}
	out.Best = lattice.Params(out.Values)

	log.Info("optimization finished",
		zap.String("strategy", opts.Label),
		zap.String("objective", string(objective)),
		zap.Float64("best", out.Objective),
		zap.Any("params", out.Best),
		zap.Int("trials", out.Trials))
	return out, nil
}

// sample returns ascending combination indexes: all of them, or maxTries
// drawn without replacement from a seeded source.
func sample(size, maxTries int, seed uint64) []int {
	if maxTries <= 0 || size <= maxTries {
		out := make([]int, size)
		for i := range out {
			out[i] = i
		}
		return out
	}
	r := rand.New(rand.NewPCG(seed, 0))
	out := r.Perm(size)[:maxTries]
	sort.Ints(out)
	return out
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
