package service

import (
	"fmt"
	"io"
	"math"
	"sort"
)

func PrintBacktest(w io.Writer, r BacktestResult) {
	st := r.Stat
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Backtest ID:   %d\n", st.ID)
	fmt.Fprintf(w, "Ref ID:        %s\n", st.RefID)
	fmt.Fprintf(w, "Strategy:      %s\n", st.Strategy)
	fmt.Fprintf(w, "Ticker:        %s\n", st.Ticker)
	fmt.Fprintf(w, "Interval:      %s\n", st.Interval)
	fmt.Fprintf(w, "Period:        %s\n", st.Period)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", st.Start)
	fmt.Fprintf(w, "End:           %s\n", st.End)
	fmt.Fprintf(w, "Duration:      %s\n", st.Duration)
	fmt.Fprintf(w, "Exposure:      %s%%\n", num(st.ExposurePct))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Strategy Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-14s %g\n", k+":", r.Params[k])
	}
	if r.Optimized {
		fmt.Fprintf(w, "Optimized:     yes (%d cells)\n", len(r.Heatmap.Cells))
	} else {
		fmt.Fprintln(w, "Optimized:     no")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", st.Trades)
	fmt.Fprintf(w, "Win Rate:      %s%%\n", num(st.WinRate))
	fmt.Fprintf(w, "Best Trade:    %s%%\n", num(st.BestTradePct))
	fmt.Fprintf(w, "Worst Trade:   %s%%\n", num(st.WorstTradePct))
	fmt.Fprintf(w, "Avg Trade:     %s%%\n", num(st.AvgTradePct))
	fmt.Fprintf(w, "Profit Factor: %s\n", num(st.ProfitFactor))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Final Equity:  %s\n", num(st.EquityFinal))
	fmt.Fprintf(w, "Peak Equity:   %s\n", num(st.EquityPeak))
	fmt.Fprintf(w, "Return:        %s%%\n", num(st.ReturnPct))
	fmt.Fprintf(w, "Buy & Hold:    %s%%\n", num(st.BuyHoldReturnPct))
	fmt.Fprintf(w, "Return (Ann.): %s%%\n", num(st.ReturnAnnPct))
	fmt.Fprintf(w, "Sharpe:        %s\n", num(st.Sharpe))
	fmt.Fprintf(w, "Sortino:       %s\n", num(st.Sortino))
	fmt.Fprintf(w, "Calmar:        %s\n", num(st.Calmar))
	fmt.Fprintf(w, "Max Drawdown:  %s%%\n", num(st.MaxDrawdownPct))

	if r.SkippedBars > 0 {
		fmt.Fprintf(w, "Skipped Bars:  %d\n", r.SkippedBars)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "New Trade Actions")
	fmt.Fprintln(w, "--------------------------------------------------")
	if len(r.Actions) == 0 {
		fmt.Fprintln(w, "- none")
	}
	for _, a := range r.Actions {
		fmt.Fprintf(w, "- %s %-5s price %.5f size %g\n", a.Time, a.Kind, a.Price, a.Size)
	}
	fmt.Fprintf(w, "Notifications: %v\n", r.NotificationsOn)
	fmt.Fprintln(w)
}

func PrintReplay(w io.Writer, r ReplayResult) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Replay Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Backtest ID:   %d\n", r.Stat.ID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Stat.Strategy)
	fmt.Fprintf(w, "Ticker:        %s %s %s\n", r.Stat.Ticker, r.Stat.Interval, r.Stat.Period)

	fmt.Fprintln(w)
	for _, row := range r.Replay.Log {
		fmt.Fprintf(w, "- %s %-5s %-9s price %.5f\n", row.Time, row.Kind, row.Status, row.Price)
	}

	st := r.Replay.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Trades:        %d\n", st.Trades)
	fmt.Fprintf(w, "Return:        %s%%\n", num(st.ReturnPct))
	fmt.Fprintf(w, "Max Drawdown:  %s%%\n", num(st.MaxDrawdownPct))
	fmt.Fprintln(w)
}

func PrintSignals(w io.Writer, r SignalResult) {
	fmt.Fprintf(w, "%s %s %s %s\n", r.Request.Strategy, r.Request.Ticker, r.Request.Interval, r.Request.Period)
	fmt.Fprintf(w, "Latest: %s %s close %.5f\n", r.Latest.Time, r.Latest.Signal, r.Latest.Close)
	for _, rec := range r.All {
		fmt.Fprintf(w, "  %s %-4s %.5f\n", rec.Time, rec.Signal, rec.Close)
	}
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

