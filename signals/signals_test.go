package signals

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(t *testing.T, closes []float64) *market.Series {
	t.Helper()

	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.1,
			High:   c + 0.2,
			Low:    c - 0.2,
			Close:  c,
			Volume: 1000 + float64((i*37)%500),
		}
	}
	s, err := market.NewSeries("TEST", "1h", bars)
	require.NoError(t, err)
	return s
}

func wavySeries(t *testing.T, n int) *market.Series {
	t.Helper()

	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 1000 + 40*math.Sin(float64(i)/9) + 15*math.Sin(float64(i)/2.5) + float64(i)*0.3
	}
	return seriesFromCloses(t, closes)
}

func TestGenerateWarmupAndRange(t *testing.T) {
	t.Parallel()

	warmup := map[string]int{
		"ema_bollinger":            49,
		"macd_1":                   34,
		"clf_bollinger_rsi":        30,
		"eurjpy_bollinger_rsi_60m": 30,
		"grid_trading":             0,
		"fvg_confirmation":         FVGStart,
		"super_safe":               49,
		"swing_1":                  14,
	}
	require.ElementsMatch(t, Names(), keys(warmup))

	s := wavySeries(t, 400)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			f, err := Generate(name, s, map[string]float64{"grid_distance": 30})
			require.NoError(t, err)
			require.Equal(t, s.Len(), f.Len())
			assert.Len(t, f.Times, s.Len())

			for i, v := range f.Signals {
				assert.Contains(t, []Signal{None, Sell, Buy}, v)
				if i < warmup[name] {
					assert.Equal(t, None, v, "bar %d", i)
				}
			}
		})
	}
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestEMABollingerBuysTheDip(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 61)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	closes[60] = 115

	f, err := Generate("ema_bollinger", seriesFromCloses(t, closes), nil)
	require.NoError(t, err)

	for i, v := range f.Signals {
		if i == 60 {
			assert.Equal(t, Buy, v)
			continue
		}
		assert.Equal(t, None, v, "bar %d", i)
	}

	rec, ok := f.Latest()
	require.True(t, ok)
	assert.Equal(t, Buy, rec.Signal)
	assert.Equal(t, 115.0, rec.Close)
	assert.Equal(t, market.Naive(t0.Add(60*time.Hour)), rec.Time)
	assert.Equal(t, []Record{rec}, f.NonZero())
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	s := wavySeries(t, 300)
	for _, name := range Names() {
		a, err := Generate(name, s, nil)
		require.NoError(t, err)
		b, err := Generate(name, s, nil)
		require.NoError(t, err)

		if diff := cmp.Diff(a, b, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("%s: frames differ (-first +second):\n%s", name, diff)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	_, err := Generate("martingale", wavySeries(t, 10), nil)
	var sce *SignalComputationError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, "martingale", sce.Strategy)
	assert.Equal(t, "TEST", sce.Ticker)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = Generate("macd_1", nil, nil)
	assert.ErrorIs(t, err, market.ErrEmptySeries)

	_, err = Generate("super_safe", wavySeries(t, 100), map[string]float64{"ema_short": 0})
	require.ErrorAs(t, err, &sce)
	assert.ErrorContains(t, err, "period must be positive")
}

func TestShortSeriesIsAllNone(t *testing.T) {
	t.Parallel()

	s := wavySeries(t, 8)
	for _, name := range []string{"ema_bollinger", "macd_1", "super_safe", "fvg_confirmation"} {
		f, err := Generate(name, s, nil)
		require.NoError(t, err, name)
		assert.Equal(t, make([]Signal, 8), f.Signals, name)
		assert.Empty(t, f.NonZero())
	}
}

func TestWindowedRSI(t *testing.T) {
	t.Parallel()

	rsi := []float64{math.NaN(), 60, 60, 60, 60, 60, 60, 40, 45, 45, 45, 45, 45, 50}
	got := windowedRSI(rsi)

	assert.Equal(t, None, got[0])
	assert.Equal(t, None, got[1], "window holds a NaN")
	assert.Equal(t, Buy, got[6])
	assert.Equal(t, Buy, got[7], "current bar is excluded")
	assert.Equal(t, None, got[8])
	assert.Equal(t, Sell, got[12])
	assert.Equal(t, Sell, got[13])
}

func TestTrendAlignment(t *testing.T) {
	t.Parallel()

	fast := []float64{math.NaN(), 2, 2, 2, 0, 0, 0}
	slow := []float64{1, 1, 1, 1, 1, 1, 1}
	got := trendAlignment(fast, slow, 3)
	assert.Equal(t, []Signal{None, None, None, Buy, None, None, Sell}, got)
}

func TestGrid(t *testing.T) {
	t.Parallel()

	g := NewGrid(1000, 30)
	assert.Equal(t, 0.0, g.Lines[0])
	assert.Less(t, g.Lines[len(g.Lines)-1], 2000.0)
	assert.Len(t, g.Lines, 67)

	assert.True(t, g.Crosses(29, 31))
	assert.True(t, g.Crosses(30, 30))
	assert.False(t, g.Crosses(31, 59))
	assert.False(t, g.Crosses(2001, 2100))

	assert.Empty(t, NewGrid(1000, 0).Lines)
}

func fvgColumnsFixture() indicators.Columns {
	return indicators.Columns{
		"high":  {115, 115, 100, 99, 101},
		"low":   {110, 105, 95, 94, 96},
		"close": {112, 107, 99, 98, 100},
		"ema":   {200, 200, 200, 200, 200},
		"atr":   {4, 4, 4, 4, 4},
	}
}

func TestFVGTrackerConfirmsBearishGap(t *testing.T) {
	t.Parallel()

	cols := fvgColumnsFixture()
	tr := NewFVGTracker(nil)

	sig, _ := tr.Step(2, cols)
	assert.Equal(t, None, sig)
	require.NotNil(t, tr.Active)
	assert.Equal(t, FVGZone{Side: Sell, Top: 110, Bottom: 100, StopLoss: 119, Expiry: 12}, *tr.Active)

	sig, _ = tr.Step(3, cols)
	assert.Equal(t, None, sig)

	sig, z := tr.Step(4, cols)
	assert.Equal(t, Sell, sig)
	assert.Equal(t, 119.0, z.StopLoss)
	assert.Nil(t, tr.Active)
}

func TestFVGTrackerInvalidatesAndExpires(t *testing.T) {
	t.Parallel()

	cols := fvgColumnsFixture()
	cols["close"][3] = 111

	tr := NewFVGTracker(nil)
	tr.Step(2, cols)
	sig, _ := tr.Step(3, cols)
	assert.Equal(t, None, sig)
	assert.Nil(t, tr.Active)

	tr = NewFVGTracker(map[string]float64{"fvg_expiry_bars": 1})
	tr.Step(2, cols)
	require.NotNil(t, tr.Active)
	cols["close"][3] = 98
	sig, _ = tr.Step(3, cols)
	assert.Equal(t, None, sig)
	assert.Nil(t, tr.Active)
}

func TestAnnualizedVolatility(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i))
	}
	vol := annualizedVolatility(closes, 20)
	for i := 0; i < 20; i++ {
		assert.Equal(t, BaseVolatility, vol[i])
	}
	for i := 20; i < 30; i++ {
		assert.InDelta(t, 0, vol[i], 1e-9)
	}
}

func TestSignalString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "NONE", Signal(7).String())
	assert.True(t, errors.Is(&SignalComputationError{Err: ErrUnknownStrategy}, ErrUnknownStrategy))
}
