package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

// CSV reads bars from {Dir}/{ticker}_{interval}.csv.
//
// Format (header optional):
//
//	time,open,high,low,close,volume
//
// Time may use any layout accepted by market.ParseTimestamp.
type CSV struct {
	Dir string
	Now func() time.Time
}

func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir, Now: time.Now}
}

// Path returns the file the provider reads for ticker and interval.
func (c *CSV) Path(ticker, interval string) string {
	name := strings.NewReplacer("/", "_", "=", "_").Replace(ticker)
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", name, interval))
}

func (c *CSV) GetBars(ctx context.Context, ticker, interval string, window market.Window) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(ticker, err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	start, end, err := window.Bounds(market.Naive(now()).Time())
	if err != nil {
		return nil, unavailable(ticker, err)
	}

	f, err := os.Open(c.Path(ticker, interval))
	if err != nil {
		return nil, unavailable(ticker, err)
	}
	defer f.Close()

	bars, err := ReadBars(f)
	if err != nil {
		return nil, unavailable(ticker, err)
	}
	return buildSeries(ticker, interval, bars, market.Naive(start), market.Naive(end))
}

// ReadBars parses OHLCV rows from r.
func ReadBars(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []market.Bar
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, b)
	}
}

func parseBarRow(row []string) (market.Bar, error) {
	if len(row) < 5 {
		return market.Bar{}, fmt.Errorf("bad row (need time,open,high,low,close[,volume]): %v", row)
	}

	ts, err := market.ParseTimestamp(row[0])
	if err != nil {
		return market.Bar{}, err
	}

	vals := make([]float64, 5)
	names := []string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		col := i + 1
		if col >= len(row) {
			break
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("bad %s %q: %w", names[i], row[col], err)
		}
		vals[i] = v
	}

	return market.Bar{
		Time:   ts.Time(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// WriteBars writes bars in the format ReadBars accepts.
func WriteBars(w io.Writer, bars []market.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range bars {
		rec := []string{market.Naive(b.Time).String(), f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
