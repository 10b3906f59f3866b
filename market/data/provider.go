// Package data fetches bar series from files or exchanges.
package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/signalbot/market"
)

// ErrDataUnavailable wraps every provider failure. It is not retried by
// callers.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider returns an ordered bar series for a ticker, interval and window.
type Provider interface {
	GetBars(ctx context.Context, ticker, interval string, window market.Window) (*market.Series, error)
}

func unavailable(ticker string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, ticker, err)
}

// buildSeries drops flat bars (high == low) and bars outside [start, end]
// then validates what is left.
func buildSeries(ticker, interval string, bars []market.Bar, start, end market.Timestamp) (*market.Series, error) {
	kept := bars[:0]
	for _, b := range bars {
		if b.High == b.Low {
			continue
		}
		ts := market.Naive(b.Time)
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return nil, unavailable(ticker, market.ErrEmptySeries)
	}
	s, err := market.NewSeries(ticker, interval, kept)
	if err != nil {
		return nil, unavailable(ticker, err)
	}
	return s, nil
}
