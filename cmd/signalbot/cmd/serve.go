package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/signalbot/metrics"
	"github.com/rustyeddy/signalbot/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notification job on a schedule and expose metrics",
	Long: `Serve runs the notification job every service.job_interval and
serves Prometheus metrics on metrics.addr until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveNow bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNow, "now", true, "run the job once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	interval, err := cfg.Service.Interval()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("metrics listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	g.Go(func() error {
		return schedule(ctx, a.svc, interval, serveNow)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// schedule runs the job every interval until ctx is done. A failed pass
// is logged and the next one still runs.
func schedule(ctx context.Context, svc *service.Service, interval time.Duration, now bool) error {
	run := func() {
		if _, err := svc.NotificationJob(ctx); err != nil && ctx.Err() == nil {
			log.Error("notification job failed", zap.Error(err))
		}
	}
	if now {
		run()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			run()
		}
	}
}
