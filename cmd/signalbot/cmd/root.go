package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/config"
	"github.com/rustyeddy/signalbot/logging"
	"github.com/rustyeddy/signalbot/market/data"
	"github.com/rustyeddy/signalbot/replay"
	"github.com/rustyeddy/signalbot/signals"
)

// Exit codes beyond the generic failure.
const (
	exitFailure     = 1
	exitNotFound    = 2
	exitUnavailable = 3
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "signalbot",
	Short: "Trading signal generation, backtesting and notification",
	Long: `Signalbot computes trading signals from market data, backtests and
optimizes strategies on them, journals the results to SQLite and notifies
a Discord channel about new trade actions of promising strategies.

Configuration is read from --config (YAML or JSON), then overridden by
environment variables and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err = logging.New(cfg.Log.Level, cfg.Log.Dev)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, replay.ErrReplayScheduleInvalid), errors.Is(err, signals.ErrUnknownStrategy):
		return exitNotFound
	case errors.Is(err, data.ErrDataUnavailable):
		return exitUnavailable
	}
	return exitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
