// Package signals turns a bar series into a per-bar trading signal for a
// named strategy.
//
// Every generator returns a Frame holding the indicator columns it used and
// a Signal aligned 1:1 with the bars. Bars whose inputs are still warming up
// are always None.
package signals

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

// Signal is the per-bar output of a generator.
type Signal int

const (
	None Signal = 0
	Sell Signal = 1
	Buy  Signal = 2
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

var ErrUnknownStrategy = errors.New("unknown strategy")

// SignalComputationError aborts one signal request.
type SignalComputationError struct {
	Strategy string
	Ticker   string
	Err      error
}

func (e *SignalComputationError) Error() string {
	return fmt.Sprintf("signals %s/%s: %v", e.Strategy, e.Ticker, e.Err)
}

func (e *SignalComputationError) Unwrap() error { return e.Err }

// Frame is the result of a generator run. Columns include open, high, low,
// close and volume plus whatever indicators the strategy computed.
type Frame struct {
	Strategy string
	Ticker   string
	Interval string
	Times    []time.Time
	Columns  indicators.Columns
	Signals  []Signal
}

func (f *Frame) Len() int { return len(f.Signals) }

// At returns column name at bar i, or NaN when the column is missing.
func (f *Frame) At(name string, i int) float64 {
	col, ok := f.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Record is one bar's signal in a result listing.
type Record struct {
	Time   market.Timestamp
	Close  float64
	Signal Signal
}

// NonZero lists every bar with a Buy or Sell signal in bar order.
func (f *Frame) NonZero() []Record {
	var out []Record
	for i, s := range f.Signals {
		if s != None {
			out = append(out, f.record(i))
		}
	}
	return out
}

// Latest is the signal of the last bar.
func (f *Frame) Latest() (Record, bool) {
	if f.Len() == 0 {
		return Record{}, false
	}
	return f.record(f.Len() - 1), true
}

func (f *Frame) record(i int) Record {
	return Record{
		Time:   market.Naive(f.Times[i]),
		Close:  f.At("close", i),
		Signal: f.Signals[i],
	}
}

type generator func(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error)

var generators = map[string]generator{
	"ema_bollinger":            emaBollinger,
	"macd_1":                   macdCross,
	"clf_bollinger_rsi":        bollingerReversal,
	"eurjpy_bollinger_rsi_60m": bollingerReversal,
	"grid_trading":             gridCrossing,
	"fvg_confirmation":         fvgConfirmation,
	"super_safe":               superSafe,
	"swing_1":                  swingZones,
}

// Names lists the strategies Generate knows, sorted.
func Names() []string {
	out := make([]string, 0, len(generators))
	for n := range generators {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Generate runs the named strategy's generator over s. Any failure,
// including a panic inside the generator, comes back as a
// *SignalComputationError.
func Generate(name string, s *market.Series, params map[string]float64) (f *Frame, err error) {
	ticker := ""
	if s != nil {
		ticker = s.Ticker
	}
	fail := func(e error) error {
		return &SignalComputationError{Strategy: name, Ticker: ticker, Err: e}
	}

	gen, ok := generators[name]
	if !ok {
		return nil, fail(fmt.Errorf("%w: %q", ErrUnknownStrategy, name))
	}
	if s == nil || s.Len() == 0 {
		return nil, fail(market.ErrEmptySeries)
	}

	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fail(fmt.Errorf("generator panicked: %v", r))
		}
	}()

	cols, sigs, err := gen(s, params)
	if err != nil {
		return nil, fail(err)
	}
	if len(sigs) != s.Len() {
		return nil, fail(fmt.Errorf("generator returned %d signals for %d bars", len(sigs), s.Len()))
	}
	for i, v := range sigs {
		if v != Buy && v != Sell {
			sigs[i] = None
		}
	}

	return &Frame{
		Strategy: name,
		Ticker:   s.Ticker,
		Interval: s.Interval,
		Times:    s.Times(),
		Columns:  cols,
		Signals:  sigs,
	}, nil
}

// param returns p[key] or def when absent.
func param(p map[string]float64, key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}
