package risk

import "math"

// Inputs describes a risk-sized entry.
type Inputs struct {
	Equity       float64
	RiskPct      float64 // percent of equity, 1 = 1%
	StopDistance float64
	// VolFactor scales the raw size, 1 when unused.
	VolFactor float64
	Floor     float64
	Cap       float64
}

type Result struct {
	Size       float64
	RiskAmount float64
}

// Calculate sizes a position as equity·risk / stop distance, scaled by the
// volatility factor and clamped to [Floor, Cap]. A zero stop distance
// yields Cap.
func Calculate(in Inputs) Result {
	riskAmt := in.Equity * in.RiskPct / 100
	factor := in.VolFactor
	if factor == 0 {
		factor = 1
	}

	raw := math.Inf(1)
	if in.StopDistance > 0 {
		raw = riskAmt / in.StopDistance * factor
	}

	return Result{
		Size:       Clamp(raw, in.Floor, in.Cap),
		RiskAmount: riskAmt,
	}
}

// VolFactor is base/vol clamped to [0.5, 2]. Volatility below 1 counts as 1.
func VolFactor(base, vol float64) float64 {
	return Clamp(base/math.Max(vol, 1), 0.5, 2)
}
