package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"mymake/internal/core/config/helpers"
	"mymake/internal/core/errors"
)

func normalize(cfg *Config) {
	cfg.Make.File = strings.TrimSpace(cfg.Make.File)
	cfg.Make.Shell = strings.TrimSpace(cfg.Make.Shell)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.MetricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddr)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Watch.ExcludeDirs = trimAll(cfg.Watch.ExcludeDirs)
	cfg.Watch.ExcludeFiles = trimAll(cfg.Watch.ExcludeFiles)
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func invalid(format string, args ...any) error {
	return errors.Newf(errors.CodeValidationError, format, args...)
}

func validateMake(cfg *Config) error {
	if cfg.Make.File == "" {
		return invalid("make.file must not be empty")
	}
	if cfg.Make.Shell == "" {
		return invalid("make.shell must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 || cfg.Watch.Debounce > time.Minute {
		return invalid("watch.debounce must be between 0s and 1m, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.RebuildRate <= 0 {
		return invalid("watch.rebuild_rate must be > 0, got %v", cfg.Watch.RebuildRate)
	}
	if cfg.Watch.RebuildBurst < 1 {
		return invalid("watch.rebuild_burst must be >= 1, got %d", cfg.Watch.RebuildBurst)
	}
	for i, dir := range cfg.Watch.ExcludeDirs {
		if helpers.HasWildcard(dir) {
			return invalid("watch.exclude_dirs[%d] must be a plain directory name, got %q", i, dir)
		}
		for _, other := range cfg.Watch.ExcludeDirs[:i] {
			if helpers.IsPathOverlap(dir, other) {
				return invalid("watch.exclude_dirs[%d] %q overlaps %q", i, dir, other)
			}
		}
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return invalid("watch.exclude_files[%d] is not a valid glob %q: %v", i, pattern, err)
		}
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && cfg.History.Path == "" {
		return invalid("history.path must not be empty when history.enabled=true")
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be one of: text, json")
	}
	return nil
}

// Describe renders the effective settings for --verbose startup logging.
func Describe(cfg *Config) string {
	return fmt.Sprintf("file=%s shell=%s keep_going=%t history=%t metrics=%q",
		cfg.Make.File, cfg.Make.Shell, cfg.Make.KeepGoing, cfg.History.Enabled, cfg.Observability.MetricsAddr)
}
