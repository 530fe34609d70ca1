package app

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mymake/internal/core/errors"
	"mymake/internal/data/history"
	"mymake/internal/engine/build"
	"mymake/internal/shared/observability"
)

// Reasons a goal was built, reported in Update and the rebuild counter.
const (
	ReasonRequested = "requested"
	ReasonChange    = "change"
	ReasonMakefile  = "makefile"
)

// Update describes one finished goal build.
type Update struct {
	Run    history.Run
	Reason string
}

// BuildRequest names the goals to build. An empty Goals builds the default
// goal. Without KeepGoing the first failing goal stops the request.
type BuildRequest struct {
	Goals     []string
	Options   build.BuildOptions
	KeepGoing bool
}

// Build brings each requested goal up to date in order and returns the
// joined failures.
func (a *App) Build(ctx context.Context, req BuildRequest) error {
	return a.buildGoals(ctx, req, ReasonRequested)
}

func (a *App) buildGoals(ctx context.Context, req BuildRequest, reason string) error {
	ctx, span := observability.Tracer.Start(ctx, "app.Build", trace.WithAttributes(
		attribute.StringSlice("goals", req.Goals),
		attribute.String("reason", reason),
	))
	defer span.End()

	goals := req.Goals
	if len(goals) == 0 {
		goals = []string{""}
	}

	var errs []error
	for _, goal := range goals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.buildGoal(ctx, goal, req.Options, reason); err != nil {
			errs = append(errs, err)
			if !req.KeepGoing {
				break
			}
		}
	}
	return stderrors.Join(errs...)
}

func (a *App) buildGoal(ctx context.Context, goal string, opts build.BuildOptions, reason string) error {
	var run history.Run
	err := a.withBuilder(func(b *build.Builder) error {
		name := goal
		if name == "" {
			name = b.DefaultGoal()
		}
		run = history.NewRun(name, a.Config.Make.File, time.Now())
		run.DryRun = opts.DryRun
		run.Targets = b.Graph().Len()
		run.Links = b.Graph().EdgeCount()

		start := time.Now()
		err := b.Build(ctx, goal, opts)
		run.Finish(time.Since(start), err)
		return err
	})
	if run.ID == "" {
		return err
	}

	a.record(ctx, run)
	a.emitUpdate(Update{Run: run, Reason: reason})
	a.logger.Debug("goal finished", "goal", run.Goal, "ok", run.Success, "duration", run.Duration, "reason", reason)
	return err
}

func (a *App) record(ctx context.Context, run history.Run) {
	if a.history == nil {
		return
	}
	if err := a.history.SaveRun(ctx, run); err != nil {
		observability.HistoryWriteErrorsTotal.Inc()
		a.logger.Warn("failed to record build run", "run", run.ID, "goal", run.Goal, "error", err)
	}
}

// RecentRuns returns up to limit recorded runs, newest first.
func (a *App) RecentRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "build history is disabled")
	}
	return a.history.RecentRuns(ctx, limit)
}
