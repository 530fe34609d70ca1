package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mymake/internal/core/app"
	"mymake/internal/core/config"
	"mymake/internal/core/errors"
	"mymake/internal/data/history"
	"mymake/internal/engine/build"
	"mymake/internal/shared/observability"
	"mymake/internal/ui/report"
	"mymake/internal/ui/tui"
)

const shutdownTimeout = 5 * time.Second

// reportedError is a failure the user has already been told about.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Run executes mymake with args and returns the process exit status: 0 on
// success, 1 when parsing or a build fails, 2 on usage errors.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var usage usageError
	if stderrors.As(err, &usage) {
		fmt.Fprintf(stderr, "Error: %v.\n", usage.err)
		fmt.Fprintln(stderr, "Run 'mymake --help' for usage.")
		return 2
	}

	var reported reportedError
	if stderrors.As(err, &reported) {
		slog.Debug("mymake failed", "code", errors.CodeOf(err), "error", err)
		return 1
	}

	fmt.Fprintf(stderr, "Error: %s.\n", describeError(err))
	return 1
}

func execute(cmd *cobra.Command, opts *options, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)

	logOut, closeLog := configureLogging(cfg.Log, opts.ui, stderr)
	defer closeLog()
	slog.Debug("configuration loaded", "settings", config.Describe(cfg))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:  cfg.Observability.EnableTracing,
		Endpoint: cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if cmd.Flags().Changed("history-list") {
		return listHistory(ctx, cfg.History.Path, opts.historyList, opts.historyJSON, stdout)
	}

	// Recipe output would corrupt the dashboard, so it shares the log file.
	out, errOut := stdout, stderr
	if opts.ui {
		out, errOut = logOut, logOut
	}
	deps := app.Dependencies{Out: out, ErrOut: errOut}
	if cfg.History.Enabled {
		store, err := openHistory(cfg.History.Path)
		if err != nil {
			slog.Warn("build history disabled", "path", cfg.History.Path, "error", err)
		} else {
			defer store.Close()
			deps.History = store
		}
	}

	a, err := app.NewWithDependencies(cfg, deps)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Load(ctx); err != nil {
		return err
	}

	switch {
	case opts.check:
		return checkCycles(a, stdout)
	case opts.why != "":
		from, to, _ := parseWhy(opts.why)
		chain, err := a.Why(from, to)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, app.FormatChain(chain))
		return nil
	case opts.graphPath != "":
		if err := a.WriteGraph(opts.graphPath); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote dependency graph to %s\n", opts.graphPath)
		return nil
	}

	req := app.BuildRequest{
		Goals:     args,
		Options:   build.BuildOptions{Verbose: opts.verbose, DryRun: opts.dryRun},
		KeepGoing: cfg.Make.KeepGoing,
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		server := NewObservabilityServer(addr, app.NewHealthService(a))
		if err := server.Start(ctx); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "cannot serve metrics on "+addr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	if opts.watch {
		return watch(ctx, a, req, opts.ui)
	}
	if err := a.Build(ctx, req); err != nil {
		return reportedError{err: err}
	}
	return nil
}

func loadConfig(opts *options) (*config.Config, error) {
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "cannot load config"), errors.CtxPath, opts.configPath)
		}
		return cfg, nil
	}
	return config.LoadOptional(config.DefaultFile)
}

// watch runs the watcher and, in UI mode, the dashboard until ctx is done or
// the dashboard is closed.
func watch(ctx context.Context, a *app.App, req app.BuildRequest, uiMode bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Watch(gctx, req)
	})
	if uiMode {
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, a, req)
		})
	}
	return g.Wait()
}

func checkCycles(a *app.App, w io.Writer) error {
	cycles, err := a.Cycles()
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Fprintln(w, "No dependency cycles found.")
		return nil
	}
	for _, cycle := range cycles {
		fmt.Fprintf(w, "Cycle: %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
	}
	return reportedError{err: errors.Newf(errors.CodeValidationError, "%d dependency cycles found", len(cycles))}
}

// openHistory opens the store at path and flags a damaged database file.
func openHistory(path string) (*history.Store, error) {
	store, err := history.Open(path)
	if err != nil && history.IsCorruptError(err) {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "history database is corrupt, remove it to start a new one"),
			errors.CtxPath, path,
		)
	}
	return store, err
}

func listHistory(ctx context.Context, path string, limit int, asJSON bool, w io.Writer) error {
	store, err := openHistory(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	var data []byte
	if asJSON {
		data, err = report.RenderRunsJSON(runs)
	} else {
		data, err = report.RenderRunsTSV(runs)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// describeError renders the innermost domain failure of err, prefixed with
// the makefile path and the innermost known line.
func describeError(err error) string {
	var (
		inner *errors.DomainError
		path  string
		line  int
	)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		de, ok := e.(*errors.DomainError)
		if !ok {
			continue
		}
		if p, ok := de.Context[errors.CtxPath].(string); ok && path == "" {
			path = p
		}
		if l, ok := de.Context[errors.CtxLine].(int); ok {
			line = l
		}
		inner = de
	}
	if inner == nil {
		return err.Error()
	}

	msg := inner.Message
	if inner.Err != nil {
		msg += ": " + inner.Err.Error()
	}
	switch {
	case path != "" && line > 0:
		return fmt.Sprintf("%s:%d: %s", path, line, msg)
	case path != "":
		return fmt.Sprintf("%s: %s", path, msg)
	default:
		return msg
	}
}
