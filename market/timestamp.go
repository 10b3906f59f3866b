package market

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical text form of a Timestamp.
const Layout = "2006-01-02 15:04:05.000000"

var parseLayouts = []string{
	Layout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a zone-less instant: the wall clock of the original time with
// any offset dropped. Values are only produced by Naive and ParseTimestamp so
// comparisons never mix normalized and raw times.
type Timestamp struct {
	t time.Time
}

// Naive drops the zone of t and keeps its wall clock fields.
func Naive(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return Timestamp{t: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)}
}

// ParseTimestamp accepts the canonical layout and a few common variants.
// Offsets present in the text are dropped, not applied.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, l := range parseLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return Naive(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("bad timestamp %q", s)
}

func (ts Timestamp) Time() time.Time { return ts.t }
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }
func (ts Timestamp) After(o Timestamp) bool { return ts.t.After(o.t) }
func (ts Timestamp) Before(o Timestamp) bool { return ts.t.Before(o.t) }
func (ts Timestamp) Equal(o Timestamp) bool { return ts.t.Equal(o.t) }
func (ts Timestamp) Sub(o Timestamp) time.Duration { return ts.t.Sub(o.t) }

func (ts Timestamp) String() string {
	if ts.t.IsZero() {
		return ""
	}
	return ts.t.Format(Layout)
}
