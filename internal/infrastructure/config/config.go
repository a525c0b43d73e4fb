package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type Provider struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
	RestURL string `toml:"rest_url"`
	// hyperevm: builder-dex 命名空间
	Dex string `toml:"dex"`
	// tradingview: scanner 市场与条数
	ScanMarket string `toml:"scan_market"`
	ScanLimit  int    `toml:"scan_limit"`
}

type Config struct {
	App struct {
		SnapshotEveryMin     int `toml:"snapshot_every_min"`
		HealthCheckSec       int `toml:"health_check_sec"`
		StaleAfterSec        int `toml:"stale_after_sec"`
		ReconnectCooldownSec int `toml:"reconnect_cooldown_sec"`
		RolloverBufferSec    int `toml:"rollover_buffer_sec"`
	} `toml:"app"`

	Selection struct {
		Default string `toml:"default"`
		Max     int    `toml:"max"`
	} `toml:"selection"`

	Provider struct {
		Coinbase    Provider `toml:"coinbase"`
		Hyperliquid Provider `toml:"hyperliquid"`
		HyperEVM    Provider `toml:"hyperevm"`
		TradingView Provider `toml:"tradingview"`
	} `toml:"provider"`

	Storage struct {
		SQLite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled bool   `toml:"enabled"`
			Addr    string `toml:"addr"`
			Prefix  string `toml:"prefix"`
			TTLSec  int    `toml:"ttl_sec"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.App.HealthCheckSec <= 0 {
		cfg.App.HealthCheckSec = 30
	}
	if cfg.App.StaleAfterSec <= 0 {
		cfg.App.StaleAfterSec = 60
	}
	if cfg.App.ReconnectCooldownSec <= 0 {
		cfg.App.ReconnectCooldownSec = 5
	}
	if cfg.App.RolloverBufferSec <= 0 {
		cfg.App.RolloverBufferSec = 90
	}
	if cfg.Selection.Max <= 0 || cfg.Selection.Max > 3 {
		cfg.Selection.Max = 3
	}
	if strings.TrimSpace(cfg.Selection.Default) == "" {
		cfg.Selection.Default = "CB:BTC-USD"
	}
	if strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		cfg.Storage.SQLite.Path = "data/watchbar.db"
	}
	if strings.TrimSpace(cfg.Storage.Redis.Prefix) == "" {
		cfg.Storage.Redis.Prefix = "watchbar"
	}
	if cfg.Provider.TradingView.ScanMarket == "" {
		cfg.Provider.TradingView.ScanMarket = "america"
	}
	if cfg.Provider.TradingView.ScanLimit <= 0 {
		cfg.Provider.TradingView.ScanLimit = 50
	}
}

func validate(cfg *Config) error {
	type named struct {
		name string
		p    Provider
	}
	providers := []named{
		{"coinbase", cfg.Provider.Coinbase},
		{"hyperliquid", cfg.Provider.Hyperliquid},
		{"hyperevm", cfg.Provider.HyperEVM},
		{"tradingview", cfg.Provider.TradingView},
	}

	anyEnabled := false
	for _, n := range providers {
		if !n.p.Enabled {
			continue
		}
		anyEnabled = true
		if strings.TrimSpace(n.p.WsURL) == "" {
			return errors.New("provider." + n.name + ".ws_url empty but enabled")
		}
		if strings.TrimSpace(n.p.RestURL) == "" {
			return errors.New("provider." + n.name + ".rest_url empty but enabled")
		}
	}
	if !anyEnabled {
		return errors.New("no provider enabled")
	}

	if cfg.Provider.HyperEVM.Enabled && strings.TrimSpace(cfg.Provider.HyperEVM.Dex) == "" {
		return errors.New("provider.hyperevm.dex empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	return nil
}
