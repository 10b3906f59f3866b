// Package indicators computes indicator columns aligned to a bar series.
//
// The math is delegated to go-talib. Values inside an indicator's lookback
// window are NaN so callers can tell warm-up bars from real readings.
package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/signalbot/market"
)

// Kind names an indicator the adapter knows how to compute.
type Kind string

const (
	EMA    Kind = "ema"
	SMA    Kind = "sma"
	RSI    Kind = "rsi"
	ATR    Kind = "atr"
	MACD   Kind = "macd"
	BBands Kind = "bbands"
	ADX    Kind = "adx"
	VolSMA Kind = "vol_sma"
	TRMean Kind = "tr_mean"
)

// Request asks for one indicator. Name is the output column; multi-output
// indicators add suffixes (see Compute).
type Request struct {
	Kind   Kind
	Name   string
	Period int

	// MACD
	Fast, Slow, Signal int

	// Bollinger band width in standard deviations.
	StdDev float64
}

// Spec is the set of indicators a generator needs.
type Spec []Request

// Columns maps column names to values aligned 1:1 with the series bars.
type Columns map[string][]float64

// Compute evaluates every request in spec against s.
//
// Column naming:
//
//	MACD:   Name, Name_signal, Name_hist
//	BBands: Name_upper, Name_middle, Name_lower, Name_width
//	ADX:    Name, Name_plus_di, Name_minus_di
func Compute(s *market.Series, spec Spec) (cols Columns, err error) {
	defer func() {
		if r := recover(); r != nil {
			cols, err = nil, fmt.Errorf("indicator computation panicked: %v", r)
		}
	}()

	o, h, l, c, v := s.Opens(), s.Highs(), s.Lows(), s.Closes(), s.Volumes()
	cols = Columns{
		"open":   o,
		"high":   h,
		"low":    l,
		"close":  c,
		"volume": v,
	}

	for _, r := range spec {
		if r.Name == "" {
			return nil, fmt.Errorf("indicator %s: empty column name", r.Kind)
		}
		switch r.Kind {
		case EMA:
			cols[r.Name], err = Ema(c, r.Period)
		case SMA:
			cols[r.Name], err = Sma(c, r.Period)
		case VolSMA:
			cols[r.Name], err = Sma(v, r.Period)
		case RSI:
			cols[r.Name], err = Rsi(c, r.Period)
		case ATR:
			cols[r.Name], err = Atr(h, l, c, r.Period)
		case TRMean:
			cols[r.Name], err = TrueRangeMean(h, l, c, r.Period)
		case MACD:
			var m, sig, hist []float64
			m, sig, hist, err = Macd(c, r.Fast, r.Slow, r.Signal)
			cols[r.Name], cols[r.Name+"_signal"], cols[r.Name+"_hist"] = m, sig, hist
		case BBands:
			var up, mid, lo []float64
			up, mid, lo, err = Bollinger(c, r.Period, r.StdDev)
			cols[r.Name+"_upper"], cols[r.Name+"_middle"], cols[r.Name+"_lower"] = up, mid, lo
			cols[r.Name+"_width"] = BandWidth(up, mid, lo)
		case ADX:
			var adx, plus, minus []float64
			adx, plus, minus, err = Adx(h, l, c, r.Period)
			cols[r.Name], cols[r.Name+"_plus_di"], cols[r.Name+"_minus_di"] = adx, plus, minus
		default:
			err = fmt.Errorf("unknown indicator kind %q", r.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", r.Name, err)
		}
	}
	return cols, nil
}

func checkPeriod(period int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	return nil
}

// nanPrefix replaces the first lookback values with NaN. When the input is
// shorter than the lookback the whole column is NaN and f is not called.
func nanPrefix(n, lookback int, f func() []float64) []float64 {
	if n <= lookback {
		return nanSlice(n)
	}
	out := f()
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func Ema(in []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return nanPrefix(len(in), period-1, func() []float64 { return talib.Ema(in, period) }), nil
}

func Sma(in []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return nanPrefix(len(in), period-1, func() []float64 { return talib.Sma(in, period) }), nil
}

func Rsi(in []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return nanPrefix(len(in), period, func() []float64 { return talib.Rsi(in, period) }), nil
}

func Atr(high, low, close []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	return nanPrefix(len(close), period, func() []float64 { return talib.Atr(high, low, close, period) }), nil
}

// TrueRangeMean is the plain rolling mean of the true range. The first bar's
// true range is its high-low span.
func TrueRangeMean(high, low, close []float64, period int) ([]float64, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}
	tr := make([]float64, len(close))
	for i := range close {
		tr[i] = high[i] - low[i]
		if i > 0 {
			tr[i] = math.Max(tr[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
		}
	}
	return Sma(tr, period)
}

func Macd(in []float64, fast, slow, signal int) (m, sig, hist []float64, err error) {
	for _, p := range []int{fast, slow, signal} {
		if err := checkPeriod(p); err != nil {
			return nil, nil, nil, err
		}
	}
	if fast >= slow {
		return nil, nil, nil, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}
	lookback := slow - 1 + signal - 1
	if len(in) <= lookback {
		return nanSlice(len(in)), nanSlice(len(in)), nanSlice(len(in)), nil
	}
	m, sig, hist = talib.Macd(in, fast, slow, signal)
	for i := 0; i < lookback; i++ {
		m[i], sig[i], hist[i] = math.NaN(), math.NaN(), math.NaN()
	}
	return m, sig, hist, nil
}

func Bollinger(in []float64, period int, stdDev float64) (upper, middle, lower []float64, err error) {
	if err := checkPeriod(period); err != nil {
		return nil, nil, nil, err
	}
	if stdDev <= 0 {
		return nil, nil, nil, fmt.Errorf("std dev must be positive, got %g", stdDev)
	}
	lookback := period - 1
	if len(in) <= lookback {
		return nanSlice(len(in)), nanSlice(len(in)), nanSlice(len(in)), nil
	}
	upper, middle, lower = talib.BBands(in, period, stdDev, stdDev, talib.SMA)
	for i := 0; i < lookback; i++ {
		upper[i], middle[i], lower[i] = math.NaN(), math.NaN(), math.NaN()
	}
	return upper, middle, lower, nil
}

// BandWidth is (upper-lower)/middle.
func BandWidth(upper, middle, lower []float64) []float64 {
	out := make([]float64, len(middle))
	for i := range middle {
		out[i] = (upper[i] - lower[i]) / middle[i]
	}
	return out
}

func Adx(high, low, close []float64, period int) (adx, plusDI, minusDI []float64, err error) {
	if err := checkPeriod(period); err != nil {
		return nil, nil, nil, err
	}
	n := len(close)
	adx = nanPrefix(n, 2*period-1, func() []float64 { return talib.Adx(high, low, close, period) })
	plusDI = nanPrefix(n, period, func() []float64 { return talib.PlusDI(high, low, close, period) })
	minusDI = nanPrefix(n, period, func() []float64 { return talib.MinusDI(high, low, close, period) })
	return adx, plusDI, minusDI, nil
}

// Defined reports whether every value is a real number.
func Defined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
