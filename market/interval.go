package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntervalDuration maps a bar interval string ("15m", "1h", "1d", "1wk") to
// its duration.
func IntervalDuration(interval string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1m":
		return time.Minute, nil
	case "2m":
		return 2 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "60m", "1h":
		return time.Hour, nil
	case "90m":
		return 90 * time.Minute, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "5d":
		return 5 * 24 * time.Hour, nil
	case "1wk":
		return 7 * 24 * time.Hour, nil
	case "1mo":
		return 30 * 24 * time.Hour, nil
	case "3mo":
		return 90 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval: %s", interval)
	}
}

// PeriodDuration maps a lookback window ("5d", "60d", "1mo", "2y", "max") to
// a duration. "max" returns zero, meaning no lower bound.
func PeriodDuration(period string) (time.Duration, error) {
	const day = 24 * time.Hour

	p := strings.ToLower(strings.TrimSpace(period))
	if p == "max" {
		return 0, nil
	}

	units := []struct {
		suffix string
		days   int
	}{
		{"mo", 30},
		{"wk", 7},
		{"d", 1},
		{"y", 365},
	}
	for _, u := range units {
		if !strings.HasSuffix(p, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(p, u.suffix))
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("unsupported period: %s", period)
		}
		return time.Duration(n*u.days) * day, nil
	}
	return 0, fmt.Errorf("unsupported period: %s", period)
}

// Window is the time range requested from a data provider.
type Window struct {
	Period string
	Start  time.Time
	End    time.Time
}

// Bounds resolves the window against now. Explicit Start/End win over Period.
func (w Window) Bounds(now time.Time) (start, end time.Time, err error) {
	end = w.End
	if end.IsZero() {
		end = now
	}
	if !w.Start.IsZero() {
		return w.Start, end, nil
	}
	d, err := PeriodDuration(w.Period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if d == 0 {
		return time.Time{}, end, nil
	}
	return end.Add(-d), end, nil
}
