// Package config loads client configuration from a YAML file with
// environment-variable overrides. A .env file, when present, is folded into
// the environment first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// ServiceURL is the base URL of the remote P2P trading service.
	ServiceURL string `yaml:"serviceUrl"`

	// Administrator enables dispute-resolution operations.
	Administrator bool `yaml:"administrator"`

	// PriceInterval is the price-feed poll interval.
	PriceInterval time.Duration `yaml:"priceInterval"`

	// SyncInterval is the offer/trade/wallet refresh interval.
	SyncInterval time.Duration `yaml:"syncInterval"`

	// DataDir holds the local preference store.
	DataDir string `yaml:"dataDir"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"outputFile"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

func defaults() Config {
	return Config{
		ServiceURL:    "https://api.peerdex.example",
		PriceInterval: 10 * time.Second,
		SyncInterval:  15 * time.Second,
		DataDir:       "data",
		Log: LogConfig{
			Level:      "info",
			OutputFile: "logs/client.log",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Load reads path (optional) over the defaults, then applies environment
// overrides. Missing file with empty path is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("serviceUrl is required")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("P2P_SERVICE_URL"); v != "" {
		cfg.ServiceURL = v
	}
	if v := os.Getenv("P2P_ADMINISTRATOR"); v != "" {
		cfg.Administrator, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("P2P_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("P2P_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("P2P_PRICE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PriceInterval = d
		}
	}
	if v := os.Getenv("P2P_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = d
		}
	}
}
