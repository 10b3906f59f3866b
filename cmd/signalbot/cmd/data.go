package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/market/data"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download and prepare market data",
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download bars from Binance into the CSV data directory",
	Long: `Fetch downloads bars for a ticker from Binance and writes them to
{data.csv_dir}/{ticker}_{interval}.csv, the file the csv provider reads.

Example:
  signalbot data fetch -t BTC-USD -i 1h -p 6mo`,
	Args: cobra.NoArgs,
	RunE: runDataFetch,
}

var fetchFlags requestFlags

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)

	f := dataFetchCmd.Flags()
	f.StringVarP(&fetchFlags.ticker, "ticker", "t", "BTC-USD", "ticker symbol")
	f.StringVarP(&fetchFlags.interval, "interval", "i", "1h", "bar interval")
	f.StringVarP(&fetchFlags.period, "period", "p", "1mo", "lookback period")
	f.StringVar(&fetchFlags.start, "start", "", "window start, overrides --period")
	f.StringVar(&fetchFlags.end, "end", "", "window end")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	start, end, err := fetchFlags.window()
	if err != nil {
		return err
	}
	src := data.NewBinance(cfg.Data.APIKey, cfg.Data.Secret, cfg.Data.RateLimit, log)
	series, err := src.GetBars(cmd.Context(), fetchFlags.ticker, fetchFlags.interval, market.Window{
		Period: fetchFlags.period,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Data.CSVDir, 0o755); err != nil {
		return err
	}
	path := data.NewCSV(cfg.Data.CSVDir).Path(fetchFlags.ticker, fetchFlags.interval)
	if err := writeFile(path, func(f *os.File) error {
		return data.WriteBars(f, series.Bars())
	}); err != nil {
		return err
	}
	log.Info("bars written", zap.String("path", path), zap.Int("bars", series.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bars to %s\n", series.Len(), path)
	return nil
}
