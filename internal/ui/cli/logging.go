package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"mymake/internal/core/config"
)

// configureLogging installs the default slog logger and returns the writer
// it logs to. In UI mode logs go to a file so they do not corrupt the
// dashboard; the returned close func releases that file.
func configureLogging(cfg config.Log, uiMode bool, stderr io.Writer) (io.Writer, func()) {
	output := stderr
	closeFn := func() {}

	if uiMode {
		logPath := resolveLogPath()
		if f, err := openLogFile(logPath); err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
		} else {
			output = f
			closeFn = func() { _ = f.Close() }
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slog.SetDefault(slog.New(handler))
	return output, closeFn
}

func openLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log dir for %s: %w", logPath, err)
	}
	if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
		return nil, fmt.Errorf("refusing to write logs to symlink path %s", logPath)
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	return f, nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "mymake", "mymake.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "mymake", "mymake.log")
	}

	return "mymake.log"
}
