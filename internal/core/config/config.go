package config

import (
	"strings"
	"time"
)

const (
	DefaultFile        = "mymake.toml"
	DefaultMakefile    = "Makefile.mymake"
	DefaultHistoryPath = ".mymake/history.db"
)

type Config struct {
	Make          Make          `toml:"make"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Make struct {
	File        string `toml:"file"`
	MultiTarget *bool  `toml:"multi_target"`
	Shell       string `toml:"shell"`
	KeepGoing   bool   `toml:"keep_going"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
	RebuildRate  float64       `toml:"rebuild_rate"` // rebuild cycles per second
	RebuildBurst int           `toml:"rebuild_burst"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddr   string `toml:"metrics_addr"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// MultiTargetEnabled reports whether rule lines may name several targets.
func (m Make) MultiTargetEnabled() bool {
	if m.MultiTarget == nil {
		return true
	}
	return *m.MultiTarget
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Make.File) == "" {
		cfg.Make.File = DefaultMakefile
	}
	if strings.TrimSpace(cfg.Make.Shell) == "" {
		cfg.Make.Shell = "/bin/sh"
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", ".mymake", "node_modules"}
	}
	if cfg.Watch.RebuildRate == 0 {
		cfg.Watch.RebuildRate = 2
	}
	if cfg.Watch.RebuildBurst == 0 {
		cfg.Watch.RebuildBurst = 1
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = DefaultHistoryPath
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
}
