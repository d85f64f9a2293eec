// Package config provides configuration management for the trading terminal.
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
	Eviction EvictionConfig `mapstructure:"eviction"`
	Chains   ChainsConfig   `mapstructure:"chains"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// EvictionConfig holds position-eviction configuration.
type EvictionConfig struct {
	// GreeksTimeout bounds the wait for delta population on a fresh
	// option subscription.
	GreeksTimeout time.Duration `mapstructure:"greeks_timeout"`
	// GreeksPollInterval is the delay between delta polls.
	GreeksPollInterval time.Duration `mapstructure:"greeks_poll_interval"`
}

// ChainsConfig holds option-chain lookup configuration.
type ChainsConfig struct {
	// FetchTimeout bounds one upstream expirations fetch. The upstream
	// applies server-side pacing under heavy use, so this is generous.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// LookaheadDays is how many trading days ahead to request
	// expirations for when the symbol is not an exact option contract.
	LookaheadDays int `mapstructure:"lookahead_days"`
	// FetchAttempts is how many times one month bucket is retried.
	FetchAttempts int `mapstructure:"fetch_attempts"`
}

// CacheConfig holds chain-cache expiry configuration.
type CacheConfig struct {
	Path string `mapstructure:"path"`
	// ExpiryDays is the number of calendar days a chain entry lives.
	ExpiryDays int `mapstructure:"expiry_days"`
	// ExpiryHour anchors the expiry instant's time of day so entries
	// never disappear mid-session.
	ExpiryHour int `mapstructure:"expiry_hour"`
	// ExpiryTimezone is the exchange timezone the anchor is taken in.
	ExpiryTimezone string `mapstructure:"expiry_timezone"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// ConfigDir returns the application configuration directory.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ibkr-terminal")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Eviction: EvictionConfig{
			GreeksTimeout:      10 * time.Second,
			GreeksPollInterval: 3 * time.Millisecond,
		},
		Chains: ChainsConfig{
			FetchTimeout:  3 * time.Minute,
			LookaheadDays: 40,
			FetchAttempts: 2,
		},
		Cache: CacheConfig{
			Path:           filepath.Join(ConfigDir(), "cache.db"),
			ExpiryDays:     10,
			ExpiryHour:     17,
			ExpiryTimezone: "America/New_York",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       true,
			FilePath:   filepath.Join(ConfigDir(), "logs", "terminal.log"),
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
	}
}

// Load reads configuration from the config file and environment,
// falling back to defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")
	v.SetEnvPrefix("IBKR_TERMINAL")
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("eviction.greeks_timeout", cfg.Eviction.GreeksTimeout)
	v.SetDefault("eviction.greeks_poll_interval", cfg.Eviction.GreeksPollInterval)
	v.SetDefault("chains.fetch_timeout", cfg.Chains.FetchTimeout)
	v.SetDefault("chains.lookahead_days", cfg.Chains.LookaheadDays)
	v.SetDefault("chains.fetch_attempts", cfg.Chains.FetchAttempts)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.expiry_days", cfg.Cache.ExpiryDays)
	v.SetDefault("cache.expiry_hour", cfg.Cache.ExpiryHour)
	v.SetDefault("cache.expiry_timezone", cfg.Cache.ExpiryTimezone)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Eviction.GreeksTimeout <= 0 {
		return fmt.Errorf("eviction.greeks_timeout must be positive")
	}
	if c.Eviction.GreeksPollInterval <= 0 {
		return fmt.Errorf("eviction.greeks_poll_interval must be positive")
	}
	if c.Chains.FetchTimeout <= 0 {
		return fmt.Errorf("chains.fetch_timeout must be positive")
	}
	if c.Chains.LookaheadDays <= 0 {
		return fmt.Errorf("chains.lookahead_days must be positive")
	}
	if c.Cache.ExpiryDays <= 0 {
		return fmt.Errorf("cache.expiry_days must be positive")
	}
	if c.Cache.ExpiryHour < 0 || c.Cache.ExpiryHour > 23 {
		return fmt.Errorf("cache.expiry_hour must be in [0, 23]")
	}
	if _, err := time.LoadLocation(c.Cache.ExpiryTimezone); err != nil {
		return fmt.Errorf("cache.expiry_timezone: %w", err)
	}
	return nil
}

// ExpiryLocation returns the configured expiry anchor timezone.
func (c *Config) ExpiryLocation() *time.Location {
	loc, err := time.LoadLocation(c.Cache.ExpiryTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
