package sim

import (
	"math"
	"time"

	"github.com/rustyeddy/signalbot/optimizer"
)

// Stats are the performance figures of one run. Percentages are in
// percent; drawdowns are negative. Undefined figures are NaN.
type Stats struct {
	Start       time.Time
	End         time.Time
	Duration    time.Duration
	ExposurePct float64

	EquityFinal      float64
	EquityPeak       float64
	ReturnPct        float64
	BuyHoldReturnPct float64
	ReturnAnnPct     float64
	VolatilityAnnPct float64

	Sharpe  float64
	Sortino float64
	Calmar  float64

	MaxDrawdownPct float64
	AvgDrawdownPct float64
	MaxDrawdownDur time.Duration
	AvgDrawdownDur time.Duration

	Trades        int
	WinRate       float64
	BestTradePct  float64
	WorstTradePct float64
	AvgTradePct   float64
	MaxTradeDur   time.Duration
	AvgTradeDur   time.Duration
	ProfitFactor  float64
}

// Metric returns the figure an optimizer objective maximizes.
func (s Stats) Metric(o optimizer.Objective) float64 {
	switch o {
	case optimizer.Return:
		return s.ReturnPct
	case optimizer.SharpeRatio:
		return s.Sharpe
	case optimizer.WinRate:
		return s.WinRate
	case optimizer.MaxDrawdown:
		return s.MaxDrawdownPct
	}
	return math.NaN()
}

func computeStats(cash float64, curve []float64, times []time.Time, closes []float64, trades []Trade) Stats {
	nan := math.NaN()
	s := Stats{
		EquityFinal: cash, EquityPeak: cash,
		ReturnAnnPct: nan, VolatilityAnnPct: nan,
		Sharpe: nan, Sortino: nan, Calmar: nan,
		WinRate: nan, BestTradePct: nan, WorstTradePct: nan, AvgTradePct: nan, ProfitFactor: nan,
		BuyHoldReturnPct: nan,
	}
	n := len(curve)
	if n == 0 {
		return s
	}

	s.Start, s.End = times[0], times[n-1]
	s.Duration = s.End.Sub(s.Start)
	s.EquityFinal = curve[n-1]
	s.ReturnPct = (s.EquityFinal - cash) / cash * 100
	s.BuyHoldReturnPct = (closes[n-1] - closes[0]) / closes[0] * 100

	exposed := make([]bool, n)
	for _, t := range trades {
		for i := t.EntryBar; i <= t.ExitBar && i < n; i++ {
			exposed[i] = true
		}
	}
	var held int
	for _, x := range exposed {
		if x {
			held++
		}
	}
	s.ExposurePct = float64(held) / float64(n) * 100

	// Drawdown relative to the running peak, with each episode running from
	// the last peak to recovery (or the final bar).
	var (
		peak      = curve[0]
		maxDD     float64
		ddPeaks   []float64
		ddDurs    []time.Duration
		start     = 0
		inDD      bool
		episodeDD float64
	)
	for i, v := range curve {
		if v >= peak {
			if inDD {
				ddPeaks = append(ddPeaks, episodeDD)
				ddDurs = append(ddDurs, times[i].Sub(times[start]))
				inDD, episodeDD = false, 0
			}
			peak, start = v, i
			continue
		}
		dd := 1 - v/peak
		inDD = true
		episodeDD = math.Max(episodeDD, dd)
		maxDD = math.Max(maxDD, dd)
	}
	if inDD {
		ddPeaks = append(ddPeaks, episodeDD)
		ddDurs = append(ddDurs, times[n-1].Sub(times[start]))
	}
	s.EquityPeak = math.Max(cash, peak)
	s.MaxDrawdownPct = -maxDD * 100
	s.AvgDrawdownPct = -mean(ddPeaks) * 100
	if len(ddPeaks) == 0 {
		s.AvgDrawdownPct = nan
	}
	s.MaxDrawdownDur, s.AvgDrawdownDur = durStats(ddDurs)

	annualize(&s, curve, times, maxDD)

	if len(trades) > 0 {
		s.Trades = len(trades)
		var wins int
		var gain, loss float64
		rets := make([]float64, len(trades))
		durs := make([]time.Duration, len(trades))
		s.BestTradePct, s.WorstTradePct = math.Inf(-1), math.Inf(1)
		for i, t := range trades {
			r := t.ReturnPct()
			rets[i], durs[i] = r, t.Duration()
			if t.PL > 0 {
				wins++
			}
			if r > 0 {
				gain += r
			} else {
				loss -= r
			}
			s.BestTradePct = math.Max(s.BestTradePct, r*100)
			s.WorstTradePct = math.Min(s.WorstTradePct, r*100)
		}
		s.WinRate = float64(wins) / float64(len(trades)) * 100
		s.AvgTradePct = geometricMean(rets) * 100
		s.MaxTradeDur, s.AvgTradeDur = durStats(durs)
		if loss > 0 {
			s.ProfitFactor = gain / loss
		}
	}
	return s
}

// annualize fills the return, volatility and ratio figures from daily
// returns. Calendars with a weekend share above 60% of 2/7 count 365
// trading days, otherwise 252.
func annualize(s *Stats, curve []float64, times []time.Time, maxDD float64) {
	var daily []float64
	var last time.Time
	for i, v := range curve {
		y, m, d := times[i].Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if len(daily) > 0 && day.Equal(last) {
			daily[len(daily)-1] = v
			continue
		}
		daily = append(daily, v)
		last = day
	}
	if len(daily) < 2 {
		return
	}
	rets := make([]float64, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		rets[i-1] = daily[i]/daily[i-1] - 1
	}

	var weekend int
	for _, t := range times {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
	}
	days := 252.0
	if float64(weekend)/float64(len(times)) > 2.0/7*0.6 {
		days = 365
	}

	g := geometricMean(append([]float64{0}, rets...))
	annRet := math.Pow(1+g, days) - 1
	s.ReturnAnnPct = annRet * 100

	if len(rets) > 1 {
		v := variance(rets)
		s.VolatilityAnnPct = math.Sqrt(math.Pow(v+math.Pow(1+g, 2), days)-math.Pow(1+g, 2*days)) * 100
		if s.VolatilityAnnPct > 0 {
			s.Sharpe = s.ReturnAnnPct / s.VolatilityAnnPct
		}
	}

	var down float64
	for _, r := range rets {
		if r < 0 {
			down += r * r
		}
	}
	if down > 0 {
		s.Sortino = annRet / (math.Sqrt(down/float64(len(rets))) * math.Sqrt(days))
	}
	if maxDD > 0 {
		s.Calmar = annRet / maxDD
	}
}

// geometricMean of fractional returns, 0 when any return wipes out the
// position.
func geometricMean(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	var logSum float64
	for _, r := range rets {
		if r <= -1 {
			return 0
		}
		logSum += math.Log1p(r)
	}
	return math.Exp(logSum/float64(len(rets))) - 1
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// variance is the sample variance.
func variance(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return ss / float64(len(xs)-1)
}

func durStats(ds []time.Duration) (longest, avg time.Duration) {
	if len(ds) == 0 {
		return 0, 0
	}
	var sum time.Duration
	for _, d := range ds {
		longest = max(longest, d)
		sum += d
	}
	return longest, sum / time.Duration(len(ds))
}
