package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Run one pass of the notification job",
	Long: `Re-run every journaled backtest, reusing stored parameters while
the last optimization is recent, and notify about new trade actions.`,
	Args: cobra.NoArgs,
	RunE: runJob,
}

func init() {
	rootCmd.AddCommand(jobCmd)
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.svc.NotificationJob(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ran %d, optimized %d, failed %d, notified %d\n",
		rep.Ran, rep.Optimized, rep.Failed, rep.Notified)
	return nil
}
