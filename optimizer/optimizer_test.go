package optimizer

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type score float64

func (s score) Metric(Objective) float64 { return float64(s) }

func table(m map[[2]float64]float64) Evaluate {
	return func(_ context.Context, p map[string]float64) (Scorer, error) {
		return score(m[[2]float64{p["a"], p["b"]}]), nil
	}
}

func TestRange(t *testing.T) {
	assert.Equal(t, []float64{1, 1.1, 1.2, 1.3}, Range(1, 1.3, 0.1))
	assert.Equal(t, []float64{10, 15, 20, 25, 30, 35, 40, 45}, Range(10, 45, 5))
	assert.Len(t, Range(0.3, 9.8, 0.5), 20)
	assert.Nil(t, Range(2, 1, 0.1))
	assert.Nil(t, Range(1, 2, 0))
}

func TestLatticeOrder(t *testing.T) {
	l := Lattice{
		{Name: "a", Values: Values(1, 2)},
		{Name: "b", Values: Values(10, 20, 30)},
	}
	require.Equal(t, 6, l.Size())
	assert.Equal(t, []float64{1, 10}, l.At(0))
	assert.Equal(t, []float64{1, 30}, l.At(2))
	assert.Equal(t, []float64{2, 10}, l.At(3))
	assert.Equal(t, map[string]float64{"a": 2, "b": 30}, l.Params(l.At(5)))
	assert.Equal(t, []string{"a", "b"}, l.Names())
	assert.Zero(t, Lattice{}.Size())
}

func TestOptimizeTieBreakIsLexicographic(t *testing.T) {
	l := Lattice{
		{Name: "a", Values: Values(1, 2)},
		{Name: "b", Values: Values(1, 2)},
	}
	eval := table(map[[2]float64]float64{
		{1, 1}: 0.5,
		{1, 2}: 1.2,
		{2, 1}: 0.9,
		{2, 2}: 1.2,
	})

	for range 10 {
		out, err := Optimize(context.Background(), l, Return, eval, Options{Workers: 4})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2}, out.Values)
		assert.Equal(t, map[string]float64{"a": 1, "b": 2}, out.Best)
		assert.Equal(t, 1.2, out.Objective)
		require.Len(t, out.Heatmap.Cells, 4)
	}
}

func TestOptimizeBestDominatesHeatmap(t *testing.T) {
	l := Lattice{
		{Name: "a", Values: Range(1, 3, 0.5)},
		{Name: "b", Values: Range(0, 2, 0.25)},
	}
	eval := func(_ context.Context, p map[string]float64) (Scorer, error) {
		return score(math.Sin(p["a"]) * math.Cos(p["b"])), nil
	}

	out, err := Optimize(context.Background(), l, SharpeRatio, eval, Options{})
	require.NoError(t, err)
	for _, c := range out.Heatmap.Cells {
		assert.GreaterOrEqual(t, out.Objective, c.Objective)
	}
	assert.Equal(t, out.Heatmap.Max(), out.Objective)
	v, ok := out.Heatmap.Get(out.Values...)
	require.True(t, ok)
	assert.Equal(t, out.Objective, v)
}

func TestOptimizeSkipsNonFiniteAndErrors(t *testing.T) {
	l := Lattice{{Name: "a", Values: Values(1, 2, 3)}}
	eval := func(_ context.Context, p map[string]float64) (Scorer, error) {
		switch p["a"] {
		case 1:
			return score(math.NaN()), nil
		case 2:
			return nil, errors.New("boom")
		}
		return score(-4), nil
	}

	out, err := Optimize(context.Background(), l, WinRate, eval, Options{Label: "test"})
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, out.Values)
	assert.Len(t, out.Heatmap.Cells, 1)
	assert.Equal(t, 3, out.Trials)
}

func TestOptimizeNoResult(t *testing.T) {
	l := Lattice{{Name: "a", Values: Values(1, 2)}}
	eval := func(context.Context, map[string]float64) (Scorer, error) {
		return score(math.Inf(1)), nil
	}

	_, err := Optimize(context.Background(), l, Return, eval, Options{})
	assert.ErrorIs(t, err, ErrOptimizationNoResult)

	_, err = Optimize(context.Background(), Lattice{}, Return, eval, Options{})
	assert.ErrorIs(t, err, ErrOptimizationNoResult)
}

func TestOptimizeSampleIsBoundedAndDeterministic(t *testing.T) {
	l := Lattice{
		{Name: "a", Values: Range(1, 4, 0.1)},
		{Name: "b", Values: Range(1, 4, 0.1)},
	}
	var calls atomic.Int64
	eval := func(_ context.Context, p map[string]float64) (Scorer, error) {
		calls.Add(1)
		return score(p["a"] - p["b"]), nil
	}

	first, err := Optimize(context.Background(), l, Return, eval, Options{MaxTries: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 50, calls.Load())
	assert.Equal(t, 50, first.Trials)

	second, err := Optimize(context.Background(), l, Return, eval, Options{MaxTries: 50})
	require.NoError(t, err)
	assert.Equal(t, first.Heatmap, second.Heatmap)

	other, err := Optimize(context.Background(), l, Return, eval, Options{MaxTries: 50, Seed: 7})
	require.NoError(t, err)
	assert.NotEqual(t, first.Heatmap, other.Heatmap)
}

func TestOptimizeCancelled(t *testing.T) {
	l := Lattice{{Name: "a", Values: Range(1, 100, 1)}}
	ctx, cancel := context.WithCancel(context.Background())
	eval := func(ctx context.Context, p map[string]float64) (Scorer, error) {
		cancel()
		return nil, ctx.Err()
	}

	_, err := Optimize(ctx, l, Return, eval, Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
