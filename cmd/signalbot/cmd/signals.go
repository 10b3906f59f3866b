package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/service"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Compute a strategy's signals over fresh market data",
	Long: `Fetch bars for a ticker and print every buy and sell signal the
strategy produces, followed by the signal of the latest bar.

Example:
  signalbot signals --ticker BTC-USD --interval 1h --period 1mo --strategy grid_trading`,
	Args: cobra.NoArgs,
	RunE: runSignals,
}

// requestFlags are shared by signals and backtest.
type requestFlags struct {
	ticker   string
	interval string
	period   string
	strategy string
	start    string
	end      string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ticker, "ticker", "t", "BTC-USD", "ticker symbol")
	cmd.Flags().StringVarP(&f.interval, "interval", "i", "1h", "bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
	cmd.Flags().StringVarP(&f.period, "period", "p", "1mo", "lookback period (5d, 1mo, 3mo, 6mo, 1y)")
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "strategy name (see: signalbot strategies) (required)")
	cmd.Flags().StringVar(&f.start, "start", "", "window start, overrides --period")
	cmd.Flags().StringVar(&f.end, "end", "", "window end")
	_ = cmd.MarkFlagRequired("strategy")
}

func (f *requestFlags) window() (start, end time.Time, err error) {
	if start, err = parseTime(f.start); err != nil {
		return
	}
	end, err = parseTime(f.end)
	return
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := market.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.Time(), nil
}

var sigFlags requestFlags

func init() {
	rootCmd.AddCommand(signalsCmd)
	sigFlags.register(signalsCmd)
}

func runSignals(cmd *cobra.Command, args []string) error {
	start, end, err := sigFlags.window()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.RunSignals(cmd.Context(), service.SignalRequest{
		Ticker:   sigFlags.ticker,
		Interval: sigFlags.interval,
		Period:   sigFlags.period,
		Strategy: sigFlags.strategy,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return err
	}
	service.PrintSignals(cmd.OutOrStdout(), res)
	return nil
}
