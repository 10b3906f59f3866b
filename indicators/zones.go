package indicators

import (
	"math"
	"sort"
)

// ZoneType classifies a support/resistance level.
type ZoneType string

const (
	Support    ZoneType = "support"
	Resistance ZoneType = "resistance"
	Both       ZoneType = "both"
)

// Zone is a price level built from one or more pivots.
type Zone struct {
	Price   float64
	Type    ZoneType
	Touches int
}

// PivotZones finds local extrema in closes (strictly above or below every
// neighbour within order bars), then merges levels closer than mergePct of
// the previous level using a touches-weighted average. Merged zones mixing
// support and resistance are dropped.
func PivotZones(closes []float64, order int, mergePct float64) []Zone {
	if order < 1 {
		order = 1
	}

	var raw []Zone
	for i := 1; i < len(closes)-1; i++ {
		hi, lo := true, true
		for k := 1; k <= order; k++ {
			for _, j := range []int{i - k, i + k} {
				if j < 0 || j >= len(closes) {
					continue
				}
				if closes[i] <= closes[j] {
					hi = false
				}
				if closes[i] >= closes[j] {
					lo = false
				}
			}
		}
		switch {
		case hi:
			raw = append(raw, Zone{Price: closes[i], Type: Resistance, Touches: 1})
		case lo:
			raw = append(raw, Zone{Price: closes[i], Type: Support, Touches: 1})
		}
	}

	sort.SliceStable(raw, func(a, b int) bool { return raw[a].Price < raw[b].Price })

	var merged []Zone
	for _, z := range raw {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if math.Abs(z.Price-last.Price)/last.Price < mergePct {
				last.Price = (last.Price*float64(last.Touches) + z.Price) / float64(last.Touches+1)
				last.Touches++
				if last.Type != z.Type {
					last.Type = Both
				}
				continue
			}
		}
		merged = append(merged, z)
	}

	out := merged[:0]
	for _, z := range merged {
		if z.Type != Both {
			out = append(out, z)
		}
	}
	return out
}

// NearestZone returns the zone closest to price in relative terms, when that
// distance is below proximity.
func NearestZone(price float64, zones []Zone, proximity float64) (Zone, bool) {
	best, found := Zone{}, false
	min := math.Inf(1)
	for _, z := range zones {
		d := math.Abs(price-z.Price) / z.Price
		if d < proximity && d < min {
			min, best, found = d, z, true
		}
	}
	return best, found
}
