package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 100000.0, cfg.Account.Cash)
	assert.Equal(t, 3, cfg.Service.OptimizeEvery)
	assert.Equal(t, 0.01, cfg.Service.CryptoSize)
	assert.Equal(t, 0.03, cfg.Service.DefaultSize)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"zero cash", func(c *Config) { c.Account.Cash = 0 }, "account.cash must be positive"},
		{"margin above one", func(c *Config) { c.Account.Margin = 2 }, "account.margin must be in (0, 1]"},
		{"unknown provider", func(c *Config) { c.Data.Provider = "yahoo" }, "data.provider must be 'csv' or 'binance'"},
		{"csv without dir", func(c *Config) { c.Data.Provider, c.Data.CSVDir = "csv", "" }, "data.csv_dir required for csv provider"},
		{"zero pool", func(c *Config) { c.Service.PoolSize = 0 }, "service.pool_size must be positive"},
		{"bad job interval", func(c *Config) { c.Service.JobInterval = "soon" }, `service.job_interval "soon" must be a positive duration`},
		{"no db path", func(c *Config) { c.Journal.DBPath = "" }, "journal.db_path is required"},
		{"token without channel", func(c *Config) { c.Notify.DiscordToken = "x" }, "notify.discord_token and notify.discord_channel must be set together"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level must be debug, info, warn or error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.errMsg)
		})
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Optimizer.Workers = 3
	cfg.Notify.BaseURL = "https://signals.example.com"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveAndLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := Default()
	cfg.Data.Provider = "csv"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "csv", loaded.Data.Provider)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, Default().Journal.DBPath, cfg.Journal.DBPath)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  cash: -1\n"), 0o600))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "account.cash must be positive")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SIGNALBOT_DB_PATH", "/tmp/x.sqlite")
	t.Setenv("SIGNALBOT_LOG_LEVEL", "warn")
	t.Setenv("SIGNALBOT_DISCORD_TOKEN", "tok")
	t.Setenv("SIGNALBOT_DISCORD_CHANNEL", "123")
	t.Setenv("SIGNALBOT_LOG_DEV", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.sqlite", cfg.Journal.DBPath)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "tok", cfg.Notify.DiscordToken)
	assert.Equal(t, "123", cfg.Notify.DiscordChannel)
	assert.True(t, cfg.Log.Dev)
}
