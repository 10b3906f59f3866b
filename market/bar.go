package market

import (
	"errors"
	"fmt"
	"time"
)

var ErrEmptySeries = errors.New("series has no bars")

// Bar represents one OHLCV observation.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered, immutable sequence of bars for one ticker and
// interval. Bar times are normalized with Naive on construction.
type Series struct {
	Ticker   string
	Interval string
	bars     []Bar
}

// NewSeries validates bars and returns a Series that owns a normalized copy.
// Timestamps must be strictly increasing, prices positive and volume
// non-negative.
func NewSeries(ticker, interval string, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	out := make([]Bar, len(bars))
	for i, b := range bars {
		b.Time = Naive(b.Time).Time()
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return nil, fmt.Errorf("bar %d (%s): prices must be positive", i, b.Time.Format(Layout))
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("bar %d (%s): negative volume", i, b.Time.Format(Layout))
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("bar %d (%s): high %.6f below low %.6f", i, b.Time.Format(Layout), b.High, b.Low)
		}
		if i > 0 && !b.Time.After(out[i-1].Time) {
			return nil, fmt.Errorf("bar %d (%s): timestamps must be strictly increasing", i, b.Time.Format(Layout))
		}
		out[i] = b
	}

	return &Series{Ticker: ticker, Interval: interval, bars: out}, nil
}

func (s *Series) Len() int { return len(s.bars) }

// Bar returns the bar at index i.
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Bars returns a copy of the underlying bars.
func (s *Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s *Series) First() Bar { return s.bars[0] }
func (s *Series) Last() Bar { return s.bars[len(s.bars)-1] }

func (s *Series) Opens() []float64 { return s.column(func(b Bar) float64 { return b.Open }) }
func (s *Series) Highs() []float64 { return s.column(func(b Bar) float64 { return b.High }) }
func (s *Series) Lows() []float64 { return s.column(func(b Bar) float64 { return b.Low }) }
func (s *Series) Closes() []float64 { return s.column(func(b Bar) float64 { return b.Close }) }
func (s *Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Time
	}
	return out
}

func (s *Series) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = f(b)
	}
	return out
}

// Index returns the index of the first bar at or after t, or -1.
func (s *Series) Index(t Timestamp) int {
	for i, b := range s.bars {
		if !b.Time.Before(t.Time()) {
			return i
		}
	}
	return -1
}
