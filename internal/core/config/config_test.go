package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mymake/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mymake.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
[make]
file = "build.mymake"
multi_target = false
shell = "/bin/bash"
keep_going = true

[watch]
debounce = "1s"
exclude_dirs = [".git", "out"]
exclude_files = ["*.tmp", "*~"]
rebuild_rate = 0.5
rebuild_burst = 3

[history]
enabled = true
path = "runs.db"

[observability]
metrics_addr = "127.0.0.1:9464"
enable_tracing = true
otlp_endpoint = "localhost:4317"

[log]
level = "DEBUG"
format = "json"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Make.File != "build.mymake" {
		t.Errorf("Expected make.file build.mymake, got %s", cfg.Make.File)
	}
	if cfg.Make.MultiTargetEnabled() {
		t.Error("Expected multi_target to be disabled")
	}
	if cfg.Make.Shell != "/bin/bash" || !cfg.Make.KeepGoing {
		t.Errorf("Unexpected make section: %+v", cfg.Make)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.ExcludeDirs) != 2 || cfg.Watch.ExcludeDirs[1] != "out" {
		t.Errorf("Unexpected exclude_dirs: %v", cfg.Watch.ExcludeDirs)
	}
	if cfg.Watch.RebuildRate != 0.5 || cfg.Watch.RebuildBurst != 3 {
		t.Errorf("Unexpected rebuild limits: %v/%d", cfg.Watch.RebuildRate, cfg.Watch.RebuildBurst)
	}
	if !cfg.History.Enabled || cfg.History.Path != "runs.db" {
		t.Errorf("Unexpected history section: %+v", cfg.History)
	}
	if cfg.Observability.MetricsAddr != "127.0.0.1:9464" || !cfg.Observability.EnableTracing {
		t.Errorf("Unexpected observability section: %+v", cfg.Observability)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Expected normalized log settings, got %+v", cfg.Log)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[make]\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Make.File != DefaultMakefile {
		t.Errorf("Expected default makefile %s, got %s", DefaultMakefile, cfg.Make.File)
	}
	if !cfg.Make.MultiTargetEnabled() {
		t.Error("Expected multi_target to default to true")
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("Expected default debounce 300ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.History.Enabled || cfg.History.Path != DefaultHistoryPath {
		t.Errorf("Unexpected history defaults: %+v", cfg.History)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}

	_, err = Load(writeConfig(t, "bad = toml = format"))
	if err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOptional failed: %v", err)
	}
	if cfg.Make.File != DefaultMakefile {
		t.Errorf("Expected defaults, got %+v", cfg.Make)
	}

	if _, err := LoadOptional(writeConfig(t, "[log]\nlevel = \"loud\"\n")); err == nil {
		t.Error("Expected validation error to surface from an existing file")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"log level", "[log]\nlevel = \"trace\"\n", "log.level"},
		{"log format", "[log]\nformat = \"xml\"\n", "log.format"},
		{"negative rate", "[watch]\nrebuild_rate = -1.0\n", "watch.rebuild_rate"},
		{"burst", "[watch]\nrebuild_burst = -2\n", "watch.rebuild_burst"},
		{"debounce", "[watch]\ndebounce = \"2m\"\n", "watch.debounce"},
		{"wildcard dir", "[watch]\nexclude_dirs = [\"build*\"]\n", "exclude_dirs[0]"},
		{"overlapping dirs", "[watch]\nexclude_dirs = [\"out\", \"out/obj\"]\n", "overlaps"},
		{"bad glob", "[watch]\nexclude_files = [\"[a-\"]\n", "exclude_files[0]"},
		{"history path", "[history]\nenabled = true\npath = \"  \"\n", "history.path"},
		{"shell", "[make]\nshell = \" \"\n", "make.shell"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.IsCode(err, errors.CodeValidationError) {
				t.Errorf("Expected validation code, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MYMAKE_MAKE_FILE", "env.mymake")
	t.Setenv("MYMAKE_MAKE_MULTI_TARGET", "false")
	t.Setenv("MYMAKE_WATCH_DEBOUNCE", "750ms")
	t.Setenv("MYMAKE_WATCH_REBUILD_BURST", "4")
	t.Setenv("MYMAKE_HISTORY_ENABLED", "TRUE")
	t.Setenv("MYMAKE_LOG_LEVEL", "warn")
	t.Setenv("MYMAKE_OBSERVABILITY_METRICS_ADDR", ":9000")
	t.Setenv("MYMAKE_WATCH_REBUILD_RATE", "not-a-number")

	cfg, err := Load(writeConfig(t, "[make]\nfile = \"file.mymake\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Make.File != "env.mymake" {
		t.Errorf("Expected env override for make.file, got %s", cfg.Make.File)
	}
	if cfg.Make.MultiTargetEnabled() {
		t.Error("Expected multi_target override to disable it")
	}
	if cfg.Watch.Debounce != 750*time.Millisecond || cfg.Watch.RebuildBurst != 4 {
		t.Errorf("Unexpected watch overrides: %+v", cfg.Watch)
	}
	if cfg.Watch.RebuildRate != 2 {
		t.Errorf("Expected unparsable override to be ignored, got %v", cfg.Watch.RebuildRate)
	}
	if !cfg.History.Enabled || cfg.Log.Level != "warn" || cfg.Observability.MetricsAddr != ":9000" {
		t.Errorf("Unexpected overrides: history=%+v log=%+v obs=%+v", cfg.History, cfg.Log, cfg.Observability)
	}
}
