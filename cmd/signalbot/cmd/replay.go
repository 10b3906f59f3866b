package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/service"
)

var replayCmd = &cobra.Command{
	Use:   "replay <backtest-id>",
	Short: "Replay a journaled backtest's trade actions on fresh bars",
	Long: `Replay loads the trade actions stored for a backtest and executes
them in time order against bars fetched fresh for its ticker, interval
and period. Actions whose brackets no longer fit the price are retried
without stop-loss and take-profit.

Exits with status 2 when the backtest or its actions cannot be found.

Example:
  signalbot replay 12`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("backtest id %q: %w", args[0], err)
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.ReplayBacktest(cmd.Context(), id)
	if err != nil {
		return err
	}
	service.PrintReplay(cmd.OutOrStdout(), res)
	return nil
}
