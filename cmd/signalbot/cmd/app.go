package cmd

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/signalbot/config"
	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market/data"
	"github.com/rustyeddy/signalbot/notify"
	"github.com/rustyeddy/signalbot/service"
)

// app bundles what the service commands share. Close releases the
// journal and the notifier.
type app struct {
	svc      *service.Service
	store    *journal.SQLite
	notifier notify.Notifier
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	provider, err := newProvider(cfg.Data, log)
	if err != nil {
		return nil, err
	}
	store, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	notifier, err := newNotifier(cfg.Notify, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := service.New(store, provider, notifier, service.Options{
		PoolSize:      cfg.Service.PoolSize,
		Workers:       cfg.Optimizer.Workers,
		MaxTries:      cfg.Optimizer.MaxTries,
		Seed:          cfg.Optimizer.Seed,
		OptimizeEvery: time.Duration(cfg.Service.OptimizeEvery) * 24 * time.Hour,
		CryptoSize:    cfg.Service.CryptoSize,
		DefaultSize:   cfg.Service.DefaultSize,
		ReplayCash:    cfg.Account.Cash,
		ReplayMargin:  cfg.Account.Margin,
		Links:         notify.Links{BaseURL: cfg.Notify.BaseURL},
		Logger:        log,
	})
	return &app{svc: svc, store: store, notifier: notifier}, nil
}

func (a *app) Close() {
	_ = a.notifier.Close()
	_ = a.store.Close()
}

func newProvider(c config.DataConfig, log *zap.Logger) (data.Provider, error) {
	switch c.Provider {
	case "csv":
		return data.NewCSV(c.CSVDir), nil
	case "binance":
		return data.NewBinance(c.APIKey, c.Secret, c.RateLimit, log), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", c.Provider)
}

// newNotifier returns a Discord notifier when a token and channel are
// configured and a no-op otherwise.
func newNotifier(c config.NotifyConfig, log *zap.Logger) (notify.Notifier, error) {
	if c.DiscordToken == "" || c.DiscordChannel == "" {
		log.Info("discord not configured, notifications disabled")
		return notify.NoOp{}, nil
	}
	d, err := notify.NewDiscord(c.DiscordToken, c.DiscordChannel, log)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	return d, nil
}
