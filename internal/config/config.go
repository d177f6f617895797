package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ShenMinX/duallauncher/internal/logger"
)

// ServerConfig is the HTTP control API listener.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

// MetricsConfig is the optional Prometheus listener. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// HooksConfig controls the post-launch helpers.
type HooksConfig struct {
	WindowHelper string        `mapstructure:"window_helper"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	OpenBrowser  bool          `mapstructure:"open_browser"`
}

// Config is the daemon-level configuration, loaded from TOML. Profile data
// lives separately in launch.conf.
type Config struct {
	LaunchConf          string        `mapstructure:"launch_conf"`
	WatchLaunchConf     bool          `mapstructure:"watch_launch_conf"`
	HistoryDSN          string        `mapstructure:"history_dsn"`
	TriggerPollInterval time.Duration `mapstructure:"trigger_poll_interval"`
	StopGrace           time.Duration `mapstructure:"stop_grace"`
	Server              ServerConfig  `mapstructure:"server"`
	Metrics             MetricsConfig `mapstructure:"metrics"`
	Log                 logger.Config `mapstructure:"log"`
	Hooks               HooksConfig   `mapstructure:"hooks"`
}

// Load reads a TOML daemon config. A missing path yields pure defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("launch_conf", "launch.conf")
	v.SetDefault("watch_launch_conf", true)
	v.SetDefault("trigger_poll_interval", "2s")
	v.SetDefault("stop_grace", "3s")
	v.SetDefault("server.listen", "127.0.0.1:8088")
	v.SetDefault("server.base_path", "/duallauncher")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)
	v.SetDefault("hooks.settle_delay", "1s")
	v.SetDefault("hooks.open_browser", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.LaunchConf == "" {
		return nil, fmt.Errorf("launch_conf must not be empty")
	}
	return &cfg, nil
}
