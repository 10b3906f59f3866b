package data

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/market"
)

func sampleBars(start time.Time, n int) []market.Bar {
	out := make([]market.Bar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = market.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 2,
			Low:    c - 2,
			Close:  c + 1,
			Volume: 1000,
		}
	}
	return out
}

func TestCSVRoundTripAndWindow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := sampleBars(start, 48)
	bars[5].High = bars[5].Low // flat bar is dropped

	p := NewCSV(dir)
	p.Now = func() time.Time { return start.Add(47 * time.Hour) }

	var buf bytes.Buffer
	require.NoError(t, WriteBars(&buf, bars))
	require.NoError(t, os.WriteFile(p.Path("EURUSD=X", "1h"), buf.Bytes(), 0o644))

	s, err := p.GetBars(context.Background(), "EURUSD=X", "1h", market.Window{Period: "1d"})
	require.NoError(t, err)
	assert.Equal(t, 25, s.Len())
	assert.Equal(t, start.Add(23*time.Hour), s.First().Time)

	all, err := p.GetBars(context.Background(), "EURUSD=X", "1h", market.Window{Period: "max"})
	require.NoError(t, err)
	assert.Equal(t, 47, all.Len())
}

func TestCSVMissingFile(t *testing.T) {
	t.Parallel()

	p := NewCSV(t.TempDir())
	_, err := p.GetBars(context.Background(), "NOPE", "1h", market.Window{Period: "5d"})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestReadBarsBadRow(t *testing.T) {
	t.Parallel()

	_, err := ReadBars(bytes.NewBufferString("time,open,high,low,close,volume\n2024-01-01,1,x,1,1,1\n"))
	assert.ErrorContains(t, err, "bad high")
}

type fakeKlines struct {
	pages [][]*binance.Kline
	fails int
	calls int
}

func (f *fakeKlines) Klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error) {
	f.calls++
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("503")
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func kline(t time.Time, c float64) *binance.Kline {
	s := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return &binance.Kline{
		OpenTime: t.UnixMilli(),
		Open:     s(c),
		High:     s(c + 1),
		Low:      s(c - 1),
		Close:    s(c),
		Volume:   "3.5",
	}
}

func TestBinancePagesAndRetries(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	t0 := now.Add(-3 * time.Hour)
	src := &fakeKlines{
		fails: 1,
		pages: [][]*binance.Kline{
			{kline(t0, 40000), kline(t0.Add(time.Hour), 40100)},
			{kline(t0.Add(2*time.Hour), 40200)},
		},
	}
	b := NewBinanceWithSource(src, 1000, zap.NewNop())
	b.backoff = time.Millisecond
	b.now = func() time.Time { return now }

	s, err := b.GetBars(context.Background(), "BTC-USD", "1h", market.Window{Period: "1d"})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 40200.0, s.Last().Close)
	assert.Equal(t, 3.5, s.Last().Volume)
	assert.Equal(t, 4, src.calls)
}

func TestBinanceGivesUp(t *testing.T) {
	t.Parallel()

	src := &fakeKlines{fails: 10}
	b := NewBinanceWithSource(src, 1000, nil)
	b.backoff = time.Millisecond

	_, err := b.GetBars(context.Background(), "BTC-USD", "1h", market.Window{Period: "1d"})
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 4, src.calls)
}

func TestSymbolAndInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BTCUSDT", Symbol("BTC-USD"))
	assert.Equal(t, "ETHBTC", Symbol("eth-btc"))
	assert.Equal(t, "BTCUSDT", Symbol("BTCUSDT"))

	ki, err := KlineInterval("60m")
	require.NoError(t, err)
	assert.Equal(t, "1h", ki)

	_, err = KlineInterval("90m")
	assert.Error(t, err)
}
