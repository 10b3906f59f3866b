package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"capped", Inputs{Equity: 100000, RiskPct: 1, StopDistance: 10, Floor: 0.005, Cap: 0.02}, 0.02},
		{"floored", Inputs{Equity: 100, RiskPct: 0.5, StopDistance: 1e6, Floor: 0.005, Cap: 0.02}, 0.005},
		{"inside", Inputs{Equity: 1000, RiskPct: 1, StopDistance: 1000, VolFactor: 1.5, Floor: 0.001, Cap: 1}, 0.015},
		{"zero stop", Inputs{Equity: 1000, RiskPct: 1, Floor: 0.1, Cap: 0.3}, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Calculate(tt.in).Size, 1e-12)
		})
	}
}

func TestVolFactor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, VolFactor(15, 0.2))
	assert.Equal(t, 1.5, VolFactor(15, 10))
	assert.Equal(t, 0.5, VolFactor(15, 60))
}

func TestBracketAndMinStop(t *testing.T) {
	t.Parallel()

	sl, tp := Bracket(true, 100, 2, 4)
	assert.Equal(t, 98.0, sl)
	assert.Equal(t, 104.0, tp)

	sl, tp = Bracket(false, 100, 2, 4)
	assert.Equal(t, 102.0, sl)
	assert.Equal(t, 96.0, tp)

	assert.InDelta(t, 99.9, MinStop(true, 100, 99.95, 0.001), 1e-9)
	assert.InDelta(t, 100.1, MinStop(false, 100, 100.01, 0.001), 1e-9)
	assert.Equal(t, 98.0, MinStop(true, 100, 98, 0.001))
}

func TestRR(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.0, RR(100, 98, 104))
	assert.Zero(t, RR(100, 100, 104))
	assert.Equal(t, 0.5, RR(100, 102, 99))
}
