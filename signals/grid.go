package signals

import (
	"sort"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

const (
	// GridSpan is the distance covered on each side of the reference level.
	GridSpan = 1000.0

	DefaultGridDistance = 25.0
)

// Grid is a ladder of price lines Distance apart covering
// [mid-GridSpan, mid+GridSpan).
type Grid struct {
	Mid      float64
	Distance float64
	Lines    []float64
}

// NewGrid builds the ladder around mid. A non-positive distance yields an
// empty grid.
func NewGrid(mid, distance float64) Grid {
	g := Grid{Mid: mid, Distance: distance}
	if distance <= 0 {
		return g
	}
	n := int((2 * GridSpan) / distance)
	g.Lines = make([]float64, 0, n+1)
	for k := 0; ; k++ {
		v := mid - GridSpan + float64(k)*distance
		if v >= mid+GridSpan {
			break
		}
		g.Lines = append(g.Lines, v)
	}
	return g
}

// Crosses reports whether any line lies within [low, high].
func (g Grid) Crosses(low, high float64) bool {
	i := sort.SearchFloat64s(g.Lines, low)
	return i < len(g.Lines) && g.Lines[i] <= high
}

// gridCrossing marks every bar whose range touches a grid line built around
// the first close. The value only says "a level was crossed"; the grid
// decider picks the sides.
func gridCrossing(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.ATR, Name: "atr", Period: 28},
	})
	if err != nil {
		return nil, nil, err
	}

	g := NewGrid(s.First().Close, param(p, "grid_distance", DefaultGridDistance))
	highs, lows := cols["high"], cols["low"]

	out := make([]Signal, s.Len())
	for i := range out {
		if g.Crosses(lows[i], highs[i]) {
			out[i] = Sell
		}
	}
	return cols, out, nil
}
