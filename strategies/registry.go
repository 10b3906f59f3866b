package strategies

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rustyeddy/signalbot/optimizer"
	"github.com/rustyeddy/signalbot/signals"
)

// Cash is the starting balance of every backtest.
const Cash = 100000.0

// Definition is everything the service needs to backtest a strategy.
type Definition struct {
	Name      string
	Defaults  Params
	Lattice   optimizer.Lattice
	Objective optimizer.Objective
	MaxTries  int
	// Margin is the required margin ratio, 1/leverage.
	Margin float64
	// Size pins the lot size. Zero lets the caller pass one in Params.
	Size    float64
	Hedging bool
	New     func(Params) Decider
}

// Params layers p over the defaults and applies a pinned size.
func (d Definition) Params(p map[string]float64) Params {
	out := d.Defaults.Merge(p)
	if d.Size > 0 {
		out[Size] = d.Size
	}
	return out
}

// Decider builds a fresh decider for one run.
func (d Definition) Decider(p map[string]float64) Decider {
	return d.New(d.Params(p))
}

var registry = map[string]Definition{
	"ema_bollinger": {
		Defaults: Params{SLCoef: 2.2, TPSLRatio: 2.0},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Range(1.0, 2.5, 0.1)},
			{Name: TPSLRatio, Values: optimizer.Range(1.0, 2.5, 0.1)},
		},
		Objective: optimizer.Return,
		MaxTries:  300,
		Margin:    1.0 / 500,
		Size:      0.03,
		New:       newEMABollinger,
	},
	"macd_1": {
		Defaults: Params{SLCoef: 2.2, TPSLRatio: 2.0, MaxLongs: 1, MaxShorts: 1},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Range(1.0, 4.0, 0.1)},
			{Name: TPSLRatio, Values: optimizer.Range(1.0, 4.0, 0.1)},
		},
		Objective: optimizer.Return,
		MaxTries:  500,
		Margin:    1.0 / 100,
		Size:      0.03,
		New:       newMACD,
	},
	"clf_bollinger_rsi": {
		Defaults: Params{SLCoef: 3, TPCoef: 2},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Range(6.0, 9.5, 0.5)},
			{Name: TPCoef, Values: optimizer.Range(8.0, 12.5, 0.5)},
		},
		Objective: optimizer.SharpeRatio,
		MaxTries:  500,
		Margin:    1.0 / 100,
		Size:      0.01,
		New:       newReversal("clf_bollinger_rsi"),
	},
	"eurjpy_bollinger_rsi_60m": {
		Defaults: Params{SLCoef: 3, TPCoef: 2},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Range(0.3, 9.8, 0.5)},
			{Name: TPCoef, Values: optimizer.Range(1.0, 6.0, 0.5)},
		},
		Objective: optimizer.Return,
		MaxTries:  500,
		Margin:    1.0 / 200,
		Size:      0.01,
		New:       newReversal("eurjpy_bollinger_rsi_60m"),
	},
	"grid_trading": {
		Defaults: Params{GridDistance: 30},
		Lattice: optimizer.Lattice{
			{Name: GridDistance, Values: optimizer.Range(10, 45, 5)},
		},
		Objective: optimizer.MaxDrawdown,
		MaxTries:  500,
		Margin:    1.0 / 100,
		Size:      0.1,
		Hedging:   true,
		New:       newGrid,
	},
	"fvg_confirmation": {
		Defaults: Params{TPSLRatio: 2.0},
		Lattice: optimizer.Lattice{
			{Name: TPSLRatio, Values: optimizer.Values(1.25, 1.5, 2.0, 2.5)},
		},
		Objective: optimizer.WinRate,
		Margin:    1.0 / 500,
		New:       newFVG,
	},
	"super_safe": {
		Defaults: Params{
			SLCoef:          4,
			TPSLRatio:       3,
			"trailing_sl":   2.5,
			"max_positions": 1,
			"max_risk_pct":  1,
			"min_atr_value": 0.0005,
		},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Values(2, 4, 8, 12, 16, 20)},
			{Name: TPSLRatio, Values: optimizer.Range(1.5, 4.0, 0.5)},
			{Name: "trailing_sl", Values: optimizer.Range(1.5, 3.5, 0.5)},
			{Name: "max_positions", Values: optimizer.Values(1, 2)},
			{Name: "max_risk_pct", Values: optimizer.Values(0.5, 1, 1.5, 2)},
			{Name: "min_atr_value", Values: optimizer.Values(0.0001, 0.0005, 0.001)},
		},
		Objective: optimizer.SharpeRatio,
		MaxTries:  300,
		Margin:    1.0 / 100,
		New:       newSuperSafe,
	},
	"swing_1": {
		Defaults: Params{SLCoef: 2.2, TPSLRatio: 2.0},
		Lattice: optimizer.Lattice{
			{Name: SLCoef, Values: optimizer.Range(1.0, 5.0, 0.2)},
			{Name: TPSLRatio, Values: optimizer.Range(1.5, 2.3, 0.2)},
		},
		Objective: optimizer.WinRate,
		MaxTries:  300,
		Margin:    1.0 / 500,
		New:       newSwing,
	},
}

// Lookup returns the named strategy's definition.
func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", signals.ErrUnknownStrategy, name)
	}
	d.Name = name
	return d, nil
}

// Names lists the registered strategies, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}
