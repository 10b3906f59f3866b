package signals

import (
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

const (
	pivotOrder      = 5
	zoneMergePct    = 0.015
	zoneProximity   = 0.02
	swingOversold   = 30
	swingOverbought = 70
	zoneRSIBuy      = 40
	zoneRSISell     = 60
)

// swingZones trades reversals at support and resistance zones. Near a zone
// a matching candlestick pattern decides, with an RSI lean as fallback.
// Away from every zone only extreme RSI readings fire.
func swingZones(s *market.Series, p map[string]float64) (indicators.Columns, []Signal, error) {
	cols, err := indicators.Compute(s, indicators.Spec{
		{Kind: indicators.TRMean, Name: "atr", Period: 14},
		{Kind: indicators.RSI, Name: "rsi", Period: 14},
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		closes = cols["close"]
		rsi    = cols["rsi"]
		atr    = cols["atr"]
	)
	zones := indicators.PivotZones(closes, pivotOrder, param(p, "zone_merge_pct", zoneMergePct))
	patterns := indicators.FirstPattern(cols["open"], cols["high"], cols["low"], closes)
	proximity := param(p, "zone_proximity", zoneProximity)

	out := make([]Signal, s.Len())
	for i := range out {
		if !indicators.Defined(rsi[i], atr[i]) {
			continue
		}
		z, near := indicators.NearestZone(closes[i], zones, proximity)
		switch {
		case near && z.Type == indicators.Support && (patterns[i] == 1 || rsi[i] < zoneRSIBuy):
			out[i] = Buy
		case near && z.Type == indicators.Resistance && (patterns[i] == -1 || rsi[i] > zoneRSISell):
			out[i] = Sell
		case !near && rsi[i] < swingOversold:
			out[i] = Buy
		case !near && rsi[i] > swingOverbought:
			out[i] = Sell
		}
	}
	return cols, out, nil
}
