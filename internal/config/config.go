// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Trading   TradingConfig   `mapstructure:"trading"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode              string  `mapstructure:"mode"`                // "live", "paper"
	DefaultUnderlying string  `mapstructure:"default_underlying"`  // BTC, ETH
	MaxStrikeDevPct   float64 `mapstructure:"max_strike_dev_pct"`  // reject chains whose nearest strike deviates more than this fraction of spot
	MaxSnapshotAge    time.Duration `mapstructure:"max_snapshot_age"` // staleness bound for chain snapshots
}

// ExecutionConfig holds execution coordinator configuration.
type ExecutionConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // whole-request bound, not per leg
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	UnwindTimeout  time.Duration `mapstructure:"unwind_timeout"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	MaxLotSize    int  `mapstructure:"max_lot_size"` // global cap over preset limits
	MarginCheck   bool `mapstructure:"margin_check"`
}

// ExchangeConfig holds exchange connectivity configuration.
type ExchangeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SocketURL string        `mapstructure:"socket_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	EncryptCredentials bool `mapstructure:"encrypt_credentials"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/straddle-trader"
	}
	return filepath.Join(home, ".config", "straddle-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if werr := writeTemplate(configDir); werr != nil {
			return nil, fmt.Errorf("creating config template: %w", werr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.default_underlying", "BTC")
	v.SetDefault("trading.max_strike_dev_pct", 0.05)
	v.SetDefault("trading.max_snapshot_age", 30*time.Second)

	v.SetDefault("execution.request_timeout", 30*time.Second)
	v.SetDefault("execution.poll_interval", 2*time.Second)
	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.retry_delay", 500*time.Millisecond)
	v.SetDefault("execution.unwind_timeout", 15*time.Second)

	v.SetDefault("risk.max_lot_size", 100)
	v.SetDefault("risk.margin_check", true)

	v.SetDefault("exchange.base_url", "https://api.india.delta.exchange")
	v.SetDefault("exchange.socket_url", "wss://socket.india.delta.exchange")
	v.SetDefault("exchange.timeout", 10*time.Second)

	v.SetDefault("security.encrypt_credentials", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("DELTA_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("DELTA_SOCKET_URL"); v != "" {
		cfg.Exchange.SocketURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "" && c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}
	if c.Trading.MaxStrikeDevPct <= 0 || c.Trading.MaxStrikeDevPct > 1 {
		return fmt.Errorf("max_strike_dev_pct must be in (0, 1]")
	}
	if c.Execution.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Execution.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.Risk.MaxLotSize < 0 {
		return fmt.Errorf("max_lot_size must be non-negative")
	}
	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}

const configTemplate = `# straddle-trader configuration

[trading]
# "live" or "paper"
mode = "paper"
default_underlying = "BTC"
# Reject selection when the nearest strike deviates more than this
# fraction of spot (guards against sparse or stale chains).
max_strike_dev_pct = 0.05
max_snapshot_age = "30s"

[execution]
request_timeout = "30s"
poll_interval = "2s"
max_retries = 3
retry_delay = "500ms"
unwind_timeout = "15s"

[risk]
max_lot_size = 100
margin_check = true

[exchange]
base_url = "https://api.india.delta.exchange"
socket_url = "wss://socket.india.delta.exchange"
timeout = "10s"

[security]
encrypt_credentials = true
`

// WriteTemplate writes the default config template into configDir
// (the default config directory when empty) and returns its path.
// An existing config.toml is left untouched.
func WriteTemplate(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := writeTemplate(configDir); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(configTemplate), 0600)
}
