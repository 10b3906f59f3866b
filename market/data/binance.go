package data

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/signalbot/market"
)

const klineLimit = 1000

// KlineSource is the part of the Binance REST API the provider needs.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error)
}

type restKlines struct {
	client *binance.Client
}

func (r restKlines) Klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error) {
	return r.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(start).
		EndTime(end).
		Limit(klineLimit).
		Do(ctx)
}

// Binance fetches spot klines with a request rate limit and retry backoff.
type Binance struct {
	src        KlineSource
	limiter    *rate.Limiter
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewBinance builds a provider on the public REST API. rps <= 0 uses 10
// requests per second.
func NewBinance(apiKey, secretKey string, rps float64, log *zap.Logger) *Binance {
	client := binance.NewClient(apiKey, secretKey)
	client.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return NewBinanceWithSource(restKlines{client: client}, rps, log)
}

func NewBinanceWithSource(src KlineSource, rps float64, log *zap.Logger) *Binance {
	if rps <= 0 {
		rps = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Binance{
		src:        src,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(math.Max(1, 2*rps))),
		log:        log,
		maxRetries: 3,
		backoff:    100 * time.Millisecond,
		now:        time.Now,
	}
}

// Symbol maps "BTC-USD" style tickers onto Binance symbols ("BTCUSDT").
func Symbol(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	base, quote, ok := strings.Cut(t, "-")
	if !ok {
		return strings.ReplaceAll(t, "/", "")
	}
	if quote == "USD" {
		quote = "USDT"
	}
	return base + quote
}

// KlineInterval maps a bar interval onto the Binance kline interval.
func KlineInterval(interval string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1m", "5m", "15m", "30m", "1h", "4h", "1d":
		return strings.ToLower(interval), nil
	case "60m":
		return "1h", nil
	case "1wk":
		return "1w", nil
	case "1mo":
		return "1M", nil
	default:
		return "", fmt.Errorf("interval %s not supported by binance", interval)
	}
}

func (b *Binance) GetBars(ctx context.Context, ticker, interval string, window market.Window) (*market.Series, error) {
	ki, err := KlineInterval(interval)
	if err != nil {
		return nil, unavailable(ticker, err)
	}
	step, err := market.IntervalDuration(interval)
	if err != nil {
		return nil, unavailable(ticker, err)
	}

	start, end, err := window.Bounds(b.now().UTC())
	if err != nil {
		return nil, unavailable(ticker, err)
	}
	if start.IsZero() {
		start = end.Add(-klineLimit * step)
	}

	symbol := Symbol(ticker)
	var bars []market.Bar
	for cur := start.UnixMilli(); cur < end.UnixMilli(); {
		klines, err := b.klines(ctx, symbol, ki, cur, end.UnixMilli())
		if err != nil {
			return nil, unavailable(ticker, err)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			bar, err := klineBar(k)
			if err != nil {
				return nil, unavailable(ticker, err)
			}
			bars = append(bars, bar)
		}
		next := klines[len(klines)-1].OpenTime + 1
		if next <= cur {
			break
		}
		cur = next
	}

	b.log.Debug("fetched klines",
		zap.String("ticker", ticker),
		zap.String("symbol", symbol),
		zap.String("interval", ki),
		zap.Int("bars", len(bars)),
	)
	return buildSeries(ticker, interval, bars, market.Timestamp{}, market.Timestamp{})
}

func (b *Binance) klines(ctx context.Context, symbol, interval string, start, end int64) ([]*binance.Kline, error) {
	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		klines, err := b.src.Klines(ctx, symbol, interval, start, end)
		if err == nil {
			return klines, nil
		}
		lastErr = err
		if attempt == b.maxRetries {
			break
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * b.backoff
		b.log.Warn("klines request failed, retrying",
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func klineBar(k *binance.Kline) (market.Bar, error) {
	vals := make([]float64, 5)
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("kline %d: bad value %q: %w", k.OpenTime, s, err)
		}
		vals[i] = v
	}
	return market.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
