package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete signalbot configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Optimizer OptimizerConfig `json:"optimizer" yaml:"optimizer"`
	Service   ServiceConfig   `json:"service" yaml:"service"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// AccountConfig is the simulated account replays run against. Backtests
// use each strategy's own margin.
type AccountConfig struct {
	Cash   float64 `json:"cash" yaml:"cash"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// DataConfig selects the market data provider.
type DataConfig struct {
	Provider  string  `json:"provider" yaml:"provider"` // "csv" or "binance"
	CSVDir    string  `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"` // requests per second
	APIKey    string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Secret    string  `json:"secret,omitempty" yaml:"secret,omitempty"`
}

type OptimizerConfig struct {
	Workers  int    `json:"workers" yaml:"workers"` // 0 means GOMAXPROCS
	MaxTries int    `json:"max_tries" yaml:"max_tries"`
	Seed     uint64 `json:"seed" yaml:"seed"`
}

type ServiceConfig struct {
	PoolSize      int     `json:"pool_size" yaml:"pool_size"`
	OptimizeEvery int     `json:"optimize_every_days" yaml:"optimize_every_days"`
	JobInterval   string  `json:"job_interval" yaml:"job_interval"`
	CryptoSize    float64 `json:"crypto_size" yaml:"crypto_size"`
	DefaultSize   float64 `json:"default_size" yaml:"default_size"`
}

type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type NotifyConfig struct {
	DiscordToken   string `json:"discord_token,omitempty" yaml:"discord_token,omitempty"`
	DiscordChannel string `json:"discord_channel,omitempty" yaml:"discord_channel,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	Dev   bool   `json:"dev" yaml:"dev"`
}

type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Load reads an optional .env file, then path (or Default when path is
// empty), then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from SIGNALBOT_* environment variables.
func (c *Config) ApplyEnv() {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set("SIGNALBOT_DB_PATH", &c.Journal.DBPath)
	set("SIGNALBOT_LOG_LEVEL", &c.Log.Level)
	set("SIGNALBOT_DISCORD_TOKEN", &c.Notify.DiscordToken)
	set("SIGNALBOT_DISCORD_CHANNEL", &c.Notify.DiscordChannel)
	set("SIGNALBOT_BINANCE_API_KEY", &c.Data.APIKey)
	set("SIGNALBOT_BINANCE_SECRET", &c.Data.Secret)
	set("SIGNALBOT_DATA_PROVIDER", &c.Data.Provider)

	if v, ok := os.LookupEnv("SIGNALBOT_LOG_DEV"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Dev = b
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	if c.Account.Margin <= 0 || c.Account.Margin > 1 {
		return fmt.Errorf("account.margin must be in (0, 1]")
	}
	switch c.Data.Provider {
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("data.csv_dir required for csv provider")
		}
	case "binance":
	default:
		return fmt.Errorf("data.provider must be 'csv' or 'binance'")
	}
	if c.Data.RateLimit <= 0 {
		return fmt.Errorf("data.rate_limit must be positive")
	}
	if c.Optimizer.Workers < 0 {
		return fmt.Errorf("optimizer.workers must not be negative")
	}
	if c.Optimizer.MaxTries < 0 {
		return fmt.Errorf("optimizer.max_tries must not be negative")
	}
	if c.Service.PoolSize <= 0 {
		return fmt.Errorf("service.pool_size must be positive")
	}
	if c.Service.OptimizeEvery < 0 {
		return fmt.Errorf("service.optimize_every_days must not be negative")
	}
	if c.Service.CryptoSize <= 0 || c.Service.DefaultSize <= 0 {
		return fmt.Errorf("service sizes must be positive")
	}
	if _, err := c.Service.Interval(); err != nil {
		return err
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if (c.Notify.DiscordToken == "") != (c.Notify.DiscordChannel == "") {
		return fmt.Errorf("notify.discord_token and notify.discord_channel must be set together")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Cash:   100000,
			Margin: 1.0 / 500,
		},
		Data: DataConfig{
			Provider:  "binance",
			CSVDir:    "./data",
			RateLimit: 10,
		},
		Optimizer: OptimizerConfig{
			MaxTries: 500,
		},
		Service: ServiceConfig{
			PoolSize:      4,
			OptimizeEvery: 3,
			JobInterval:   "1h",
			CryptoSize:    0.01,
			DefaultSize:   0.03,
		},
		Journal: JournalConfig{
			DBPath: "./signalbot.sqlite",
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Interval parses JobInterval.
func (s ServiceConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(s.JobInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("service.job_interval %q must be a positive duration", s.JobInterval)
	}
	return d, nil
}
