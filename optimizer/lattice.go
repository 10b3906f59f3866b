package optimizer

import (
	"math"

	"github.com/samber/lo"
)

// Axis is one named parameter with its candidate values in ascending order.
type Axis struct {
	Name   string
	Values []float64
}

// Lattice is the ordered product of its axes. The first axis is the most
// significant when combinations are ordered.
type Lattice []Axis

// Range returns start, start+step, ... up to and including end. Values are
// rounded to 10 decimals so that 0.1 steps stay printable.
func Range(start, end, step float64) []float64 {
	if step <= 0 || end < start {
		return nil
	}
	return lo.Map(lo.RangeWithSteps(0, int(math.Round((end-start)/step))+1, 1), func(k int, _ int) float64 {
		return round10(start + float64(k)*step)
	})
}

// Values is a literal axis.
func Values(vs ...float64) []float64 { return vs }

func round10(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

// Size is the number of combinations, 0 for an empty lattice or axis.
func (l Lattice) Size() int {
	if len(l) == 0 {
		return 0
	}
	n := 1
	for _, a := range l {
		n *= len(a.Values)
	}
	return n
}

func (l Lattice) Names() []string {
	return lo.Map(l, func(a Axis, _ int) string { return a.Name })
}

// At returns combination k in lexicographic order (last axis varies fastest).
func (l Lattice) At(k int) []float64 {
	out := make([]float64, len(l))
	for i := len(l) - 1; i >= 0; i-- {
		n := len(l[i].Values)
		out[i] = l[i].Values[k%n]
		k /= n
	}
	return out
}

// Params names a combination's values.
func (l Lattice) Params(values []float64) map[string]float64 {
	out := make(map[string]float64, len(l))
	for i, a := range l {
		out[a.Name] = values[i]
	}
	return out
}
