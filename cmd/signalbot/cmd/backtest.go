package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/service"
	"github.com/rustyeddy/signalbot/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Optimize, backtest and journal a strategy",
	Long: `Backtest fetches bars, searches the strategy's parameter lattice,
runs one recording backtest with the winning parameters and stores the
result and any new trade actions in the journal. Flagged strategies
notify the configured Discord channel.

With --skip-optimization the parameters given by flags are used as is.

Examples:
  signalbot backtest -s grid_trading -t BTC-USD -i 1h -p 1mo
  signalbot backtest -s ema_bollinger -t EURUSD=X --skip-optimization --sl-coef 1.8 --tpsl-ratio 2`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	btFlags      requestFlags
	btSkipOpt    bool
	btSLCoef     float64
	btTPSLRatio  float64
	btTPCoef     float64
	btGridDist   float64
	btSize       float64
	btActionsCSV string
	btOrg        string
)

// paramFlags maps parameter flags to strategy parameter names.
var paramFlags = map[string]string{
	"sl-coef":       strategies.SLCoef,
	"tpsl-ratio":    strategies.TPSLRatio,
	"tp-coef":       strategies.TPCoef,
	"grid-distance": strategies.GridDistance,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	btFlags.register(backtestCmd)

	backtestCmd.Flags().BoolVar(&btSkipOpt, "skip-optimization", false, "use the parameter flags instead of optimizing")
	backtestCmd.Flags().Float64Var(&btSLCoef, "sl-coef", 0, "stop-loss coefficient")
	backtestCmd.Flags().Float64Var(&btTPSLRatio, "tpsl-ratio", 0, "take-profit to stop-loss ratio")
	backtestCmd.Flags().Float64Var(&btTPCoef, "tp-coef", 0, "take-profit coefficient")
	backtestCmd.Flags().Float64Var(&btGridDist, "grid-distance", 0, "grid_trading: distance between grid lines")
	backtestCmd.Flags().Float64Var(&btSize, "size", 0, "lot size; below 1 is a fraction of equity (ignored by strategies with a fixed size)")
	backtestCmd.Flags().StringVar(&btActionsCSV, "actions-csv", "", "write every trade action of the run to this CSV file")
	backtestCmd.Flags().StringVar(&btOrg, "org", "", "write the result as an Org-mode entry to this file")
}

// bestParams collects the parameter flags the user set.
func bestParams(cmd *cobra.Command) map[string]float64 {
	out := make(map[string]float64)
	for flag, name := range paramFlags {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		v, _ := cmd.Flags().GetFloat64(flag)
		out[name] = v
	}
	return out
}

func runBacktest(cmd *cobra.Command, args []string) error {
	start, end, err := btFlags.window()
	if err != nil {
		return err
	}
	best := bestParams(cmd)
	if btSkipOpt && len(best) == 0 {
		return fmt.Errorf("--skip-optimization needs at least one of --sl-coef, --tpsl-ratio, --tp-coef, --grid-distance")
	}

	req := service.BacktestRequest{
		Ticker:           btFlags.ticker,
		Interval:         btFlags.interval,
		Period:           btFlags.period,
		Strategy:         btFlags.strategy,
		Start:            start,
		End:              end,
		SkipOptimization: btSkipOpt,
		BestParams:       best,
	}
	if cmd.Flags().Changed("size") {
		req.Params = map[string]float64{strategies.Size: btSize}
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.RunBacktest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", req, err)
	}
	service.PrintBacktest(cmd.OutOrStdout(), res)

	if btActionsCSV != "" {
		if err := writeFile(btActionsCSV, func(f *os.File) error {
			return journal.WriteActionsCSV(f, res.AllActions)
		}); err != nil {
			return err
		}
	}
	if btOrg != "" {
		if err := writeFile(btOrg, func(f *os.File) error {
			return journal.WriteOrg(f, res.Stat, res.Actions)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
