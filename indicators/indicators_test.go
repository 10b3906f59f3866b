package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/market"
)

func testSeries(t *testing.T, n int) *market.Series {
	t.Helper()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 100 + 5*math.Sin(float64(i)/4) + float64(i)*0.1
		bars[i] = market.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100 + float64(i%7),
		}
	}
	s, err := market.NewSeries("TEST", "1h", bars)
	require.NoError(t, err)
	return s
}

func TestComputeWarmupIsNaN(t *testing.T) {
	t.Parallel()

	s := testSeries(t, 80)
	cols, err := Compute(s, Spec{
		{Kind: EMA, Name: "ema30", Period: 30},
		{Kind: RSI, Name: "rsi", Period: 14},
		{Kind: ATR, Name: "atr", Period: 14},
		{Kind: MACD, Name: "macd", Fast: 12, Slow: 26, Signal: 9},
		{Kind: BBands, Name: "bb", Period: 20, StdDev: 2},
		{Kind: ADX, Name: "adx", Period: 14},
		{Kind: TRMean, Name: "tr", Period: 14},
	})
	require.NoError(t, err)

	cases := []struct {
		col      string
		lookback int
	}{
		{"ema30", 29},
		{"rsi", 14},
		{"atr", 14},
		{"macd_hist", 33},
		{"bb_lower", 19},
		{"bb_width", 19},
		{"adx", 27},
		{"adx_plus_di", 14},
		{"tr", 13},
	}
	for _, tc := range cases {
		vals := cols[tc.col]
		require.Len(t, vals, s.Len(), tc.col)
		for i := 0; i < tc.lookback; i++ {
			assert.True(t, math.IsNaN(vals[i]), "%s[%d] should be NaN", tc.col, i)
		}
		assert.True(t, Defined(vals[tc.lookback]), "%s[%d] should be defined", tc.col, tc.lookback)
	}

	up, lo := cols["bb_upper"], cols["bb_lower"]
	for i := 19; i < s.Len(); i++ {
		assert.GreaterOrEqual(t, up[i], lo[i])
	}
}

func TestComputeShortSeries(t *testing.T) {
	t.Parallel()

	s := testSeries(t, 5)
	cols, err := Compute(s, Spec{{Kind: EMA, Name: "ema200", Period: 200}})
	require.NoError(t, err)
	for _, v := range cols["ema200"] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestComputeRejectsBadRequests(t *testing.T) {
	t.Parallel()

	s := testSeries(t, 40)
	_, err := Compute(s, Spec{{Kind: EMA, Name: "e", Period: 0}})
	assert.ErrorContains(t, err, "period must be positive")

	_, err = Compute(s, Spec{{Kind: "vwap", Name: "v", Period: 3}})
	assert.ErrorContains(t, err, "unknown indicator")

	_, err = Compute(s, Spec{{Kind: MACD, Name: "m", Fast: 26, Slow: 12, Signal: 9}})
	assert.Error(t, err)
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	open := []float64{10.0, 10.0, 10.0, 10.5, 10.0}
	high := []float64{10.3, 10.1, 11.0, 10.6, 11.0}
	low := []float64{8.0, 8.0, 9.0, 9.9, 9.0}
	close := []float64{10.2, 9.9, 10.05, 10.0, 9.5}

	h := Hammer(open, high, low, close)
	assert.Equal(t, 1, h[0])
	assert.Equal(t, -1, h[1])

	d := Doji(open, high, low, close)
	assert.Equal(t, 1, d[2])
	assert.Equal(t, 0, d[4])

	// green bar then a red bar that opens above and closes below it
	eo := []float64{10.0, 10.6}
	ec := []float64{10.5, 9.8}
	assert.Equal(t, []int{0, -1}, Engulfing(eo, ec))

	// red bar then a green bar engulfing it
	bo := []float64{10.5, 9.8}
	bc := []float64{10.0, 10.7}
	assert.Equal(t, []int{0, 1}, Engulfing(bo, bc))

	first := FirstPattern(open, high, low, close)
	assert.Equal(t, 1, first[0])
	assert.Equal(t, -1, first[1])
	assert.Equal(t, 1, first[2])
}

func TestPivotZones(t *testing.T) {
	t.Parallel()

	closes := []float64{
		100, 101, 102, 103, 104, 110, 104, 103, 102, 101, 100,
		95, 100, 101, 102, 103, 104, 111, 104, 103, 102, 101, 100,
	}
	zones := PivotZones(closes, 5, 0.015)

	require.Len(t, zones, 2)
	assert.Equal(t, Support, zones[0].Type)
	assert.Equal(t, 95.0, zones[0].Price)
	assert.Equal(t, Resistance, zones[1].Type)
	assert.Equal(t, 2, zones[1].Touches)
	assert.InDelta(t, 110.5, zones[1].Price, 1e-9)

	z, ok := NearestZone(96, zones, 0.02)
	assert.True(t, ok)
	assert.Equal(t, Support, z.Type)

	_, ok = NearestZone(105, zones, 0.02)
	assert.False(t, ok)
}

func TestPivotZonesDropsMixed(t *testing.T) {
	t.Parallel()

	// A high at 100 and a low at 100.5 merge into a mixed zone.
	closes := []float64{
		90, 91, 92, 93, 94, 100, 94, 93, 92, 91, 90,
		110, 111, 112, 113, 114, 100.5, 114, 113, 112, 111, 110,
	}
	zones := PivotZones(closes, 5, 0.015)
	require.Len(t, zones, 1)
	assert.Equal(t, Support, zones[0].Type)
	assert.Equal(t, 90.0, zones[0].Price)
}
