package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: MYMAKE_[SECTION]_[KEY] (e.g., MYMAKE_LOG_LEVEL).
func ApplyEnvOverrides(cfg *Config) {
	// Make
	setEnvString(&cfg.Make.File, "MYMAKE_MAKE_FILE")
	setEnvString(&cfg.Make.Shell, "MYMAKE_MAKE_SHELL")
	setEnvBool(&cfg.Make.KeepGoing, "MYMAKE_MAKE_KEEP_GOING")
	if val, ok := os.LookupEnv("MYMAKE_MAKE_MULTI_TARGET"); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			logOverride("MYMAKE_MAKE_MULTI_TARGET", val)
			cfg.Make.MultiTarget = &b
		}
	}

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "MYMAKE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RebuildRate, "MYMAKE_WATCH_REBUILD_RATE")
	setEnvInt(&cfg.Watch.RebuildBurst, "MYMAKE_WATCH_REBUILD_BURST")

	// History
	setEnvBool(&cfg.History.Enabled, "MYMAKE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "MYMAKE_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "MYMAKE_OBSERVABILITY_METRICS_ADDR")
	setEnvBool(&cfg.Observability.EnableTracing, "MYMAKE_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "MYMAKE_OBSERVABILITY_OTLP_ENDPOINT")

	// Log
	setEnvString(&cfg.Log.Level, "MYMAKE_LOG_LEVEL")
	setEnvString(&cfg.Log.Format, "MYMAKE_LOG_FORMAT")
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
