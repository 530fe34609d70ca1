// Package app wires the parser, the build orchestrator and the optional
// collaborators (history, watcher, graph exports) into the operations the
// command line exposes.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mymake/internal/core/config"
	"mymake/internal/core/errors"
	"mymake/internal/core/ports"
	"mymake/internal/core/watcher"
	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
	"mymake/internal/engine/parser"
	"mymake/internal/engine/system"
	"mymake/internal/shared/observability"
)

// Dependencies are the collaborators an App may be given instead of the
// defaults. Zero fields fall back to the real file system, a shell and
// os.Stdout/os.Stderr; a nil History disables run recording.
type Dependencies struct {
	Stamper  ports.Stamper
	Executor ports.RecipeExecutor
	History  ports.HistoryStore
	Out      io.Writer
	ErrOut   io.Writer
}

type App struct {
	Config *config.Config

	stamper  ports.Stamper
	executor ports.RecipeExecutor
	history  ports.HistoryStore
	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger

	// mu serializes every use of builder; Builder itself is not safe for
	// concurrent use.
	mu       sync.Mutex
	builder  *build.Builder
	loadedAt time.Time

	updateMu sync.RWMutex
	onUpdate func(Update)

	watchMu       sync.RWMutex
	activeWatcher *watcher.Watcher
}

func New(cfg *config.Config) (*App, error) {
	return NewWithDependencies(cfg, Dependencies{})
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}

	a := &App{
		Config:   cfg,
		stamper:  deps.Stamper,
		executor: deps.Executor,
		history:  deps.History,
		out:      deps.Out,
		errOut:   deps.ErrOut,
		logger:   slog.Default().With("component", "app"),
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	if a.stamper == nil {
		a.stamper = system.Stamper{}
	}
	if a.executor == nil {
		a.executor = &system.Shell{
			Path:   cfg.Make.Shell,
			Stdout: a.out,
			Stderr: a.errOut,
		}
	}
	return a, nil
}

// Close releases the loaded graph. The history store belongs to the caller.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.builder != nil {
		a.builder.Destroy()
		a.builder = nil
	}
}

// Load parses the configured makefile and replaces the current graph.
func (a *App) Load(ctx context.Context) error {
	path := a.Config.Make.File
	f, err := os.Open(path)
	if err != nil {
		return errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "cannot open makefile"),
			errors.CtxPath, path,
		)
	}
	defer f.Close()

	if err := a.LoadReader(ctx, f); err != nil {
		return errors.AddContext(err, errors.CtxPath, path)
	}
	return nil
}

// LoadReader parses r and replaces the current graph. On failure the
// previous graph, if any, stays in place.
func (a *App) LoadReader(ctx context.Context, r io.Reader) error {
	_, span := observability.Tracer.Start(ctx, "app.Load", trace.WithAttributes(
		attribute.String("makefile", a.Config.Make.File),
	))
	defer span.End()

	start := time.Now()
	b := build.New(a.out, a.errOut,
		build.WithStamper(a.stamper),
		build.WithExecutor(a.executor),
	)

	opts := []parser.Option{parser.WithMultiTarget(a.Config.Make.MultiTargetEnabled())}
	if b.SupportsVariables() {
		opts = append(opts, parser.WithVariables(func(_ int, name, value string) error {
			return b.AddVariable(name, value)
		}))
	}

	rules := 0
	err := parser.New(opts...).Parse(r, func(rule parser.Rule) error {
		rules++
		return b.AddRule(rule)
	})
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	observability.RulesParsedTotal.Add(float64(rules))
	if err != nil {
		b.Destroy()
		span.RecordError(err)
		return err
	}

	a.mu.Lock()
	old := a.builder
	a.builder = b
	a.loadedAt = time.Now().UTC()
	a.mu.Unlock()
	if old != nil {
		old.Destroy()
	}

	span.SetAttributes(
		attribute.Int("rules", rules),
		attribute.Int("targets", b.Graph().Len()),
	)
	a.logger.Debug("makefile loaded", "rules", rules, "targets", b.Graph().Len(), "links", b.Graph().EdgeCount(), "duration", time.Since(start))
	return nil
}

// Loaded reports whether a makefile has been parsed successfully.
func (a *App) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.builder != nil
}

// DefaultGoal returns the first target of the loaded makefile.
func (a *App) DefaultGoal() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.builder == nil {
		return ""
	}
	return a.builder.DefaultGoal()
}

// Targets returns every target of the loaded makefile in declaration order.
func (a *App) Targets() []build.Target {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.builder == nil {
		return nil
	}
	return a.builder.Targets()
}

// withBuilder runs fn under the graph lock.
func (a *App) withBuilder(fn func(b *build.Builder) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.builder == nil {
		return errors.New(errors.CodeInternal, "no makefile loaded")
	}
	return fn(a.builder)
}

func findTarget(g *graph.Digraph[*build.Target], name string) *graph.Node[*build.Target] {
	return g.Find(func(n *graph.Node[*build.Target]) bool {
		return n.Data().Name == name
	})
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}
