package strategies

import (
	"maps"
	"slices"
)

// Params are the tunable values of one evaluation. Booleans are 0/1.
// A Params value is never mutated once handed to a decider; With and Merge
// return copies.
type Params map[string]float64

// Parameter keys shared by several strategies.
const (
	SLCoef       = "slcoef"
	TPSLRatio    = "tpsl_ratio"
	TPCoef       = "tpcoef"
	GridDistance = "grid_distance"
	Size         = "size"
	MaxLongs     = "max_longs"
	MaxShorts    = "max_shorts"
)

func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	return int(p.Get(key, float64(def)))
}

func (p Params) With(key string, v float64) Params {
	out := p.Merge(nil)
	out[key] = v
	return out
}

// Merge returns p overlaid with o.
func (p Params) Merge(o map[string]float64) Params {
	out := make(Params, len(p)+len(o))
	maps.Copy(out, p)
	maps.Copy(out, o)
	return out
}

// Keys returns the parameter names, sorted.
func (p Params) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}
