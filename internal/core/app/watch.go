package app

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"mymake/internal/core/errors"
	"mymake/internal/core/watcher"
	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
	"mymake/internal/shared/observability"
	"mymake/internal/shared/util"
)

// Watch builds the requested goals once, then rebuilds the goals affected by
// every later change to a graph artifact or to the makefile until ctx is
// done. A makefile change reparses it and rebuilds all requested goals; a
// makefile that no longer parses leaves the previous graph in place.
// Build failures are reported and do not end the watch.
func (a *App) Watch(ctx context.Context, req BuildRequest) error {
	root, err := filepath.Abs(".")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "resolve working directory")
	}
	makefile, err := filepath.Abs(a.Config.Make.File)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "resolve makefile path")
	}

	if err := a.buildGoals(ctx, req, ReasonRequested); err != nil {
		a.logger.Warn("initial build failed", "error", err)
	}

	s := &watchSession{
		app:      a,
		root:     root,
		makefile: makefile,
		req:      req,
		limiter:  util.NewLimiter(a.Config.Watch.RebuildRate, a.Config.Watch.RebuildBurst),
	}
	s.refresh()

	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Watch.ExcludeDirs,
		a.Config.Watch.ExcludeFiles,
		func(paths []string) { s.handle(ctx, paths) },
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "create watcher")
	}
	w.SetFilter(s.interested)
	if err := w.Watch([]string{root}); err != nil {
		_ = w.Close()
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "watch directory"), errors.CtxPath, root)
	}

	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()
	a.logger.Info("watching for changes", "root", root, "makefile", a.Config.Make.File)

	<-ctx.Done()

	a.watchMu.Lock()
	a.activeWatcher = nil
	a.watchMu.Unlock()
	return w.Close()
}

// Watching reports whether a watch is running.
func (a *App) Watching() bool {
	a.watchMu.RLock()
	defer a.watchMu.RUnlock()
	return a.activeWatcher != nil
}

type watchSession struct {
	app      *App
	root     string
	makefile string
	req      BuildRequest
	limiter  *util.Limiter

	// stamps is only touched from handle, which the watcher serializes.
	stamps map[string]uint64

	namesMu sync.RWMutex
	names   map[string]struct{}
}

// refresh records the current stamp of every target. Anything the last
// build wrote is captured here, so its own artifacts never count as
// changes.
func (s *watchSession) refresh() {
	stamps := make(map[string]uint64)
	names := make(map[string]struct{})
	_ = s.app.withBuilder(func(b *build.Builder) error {
		for _, t := range b.Targets() {
			names[t.Name] = struct{}{}
			stamps[t.Name] = s.app.stamper.LastModification(t.Name)
		}
		return nil
	})
	s.stamps = stamps

	s.namesMu.Lock()
	s.names = names
	s.namesMu.Unlock()
}

func (s *watchSession) interested(path string) bool {
	if path == s.makefile {
		return true
	}
	name, ok := util.TargetName(s.root, path)
	if !ok {
		return false
	}
	s.namesMu.RLock()
	defer s.namesMu.RUnlock()
	_, ok = s.names[name]
	return ok
}

func (s *watchSession) handle(ctx context.Context, paths []string) {
	if ctx.Err() != nil {
		return
	}
	defer s.refresh()

	req := s.req
	reason := ReasonChange
	if slices.Contains(paths, s.makefile) {
		if err := s.app.Load(ctx); err != nil {
			s.app.logger.Error("makefile reload failed, keeping the previous graph", "error", err)
			return
		}
		reason = ReasonMakefile
	} else {
		req.Goals = s.affectedGoals(paths)
		if len(req.Goals) == 0 {
			s.app.logger.Debug("changes do not affect any goal", "paths", len(paths))
			return
		}
	}

	if d := s.limiter.Delay(); d > 0 {
		s.app.logger.Info("rebuild throttled", "reason", reason, "wait", d)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	observability.WatchRebuildsTotal.WithLabelValues(reason).Inc()
	s.app.logger.Info("rebuilding", "reason", reason, "goals", req.Goals)
	if err := s.app.buildGoals(ctx, req, reason); err != nil {
		s.app.logger.Warn("rebuild failed", "error", err)
	}
}

// affectedGoals returns the requested goals, in request order, whose
// dependency closure contains a target whose stamp moved since the last
// refresh.
func (s *watchSession) affectedGoals(paths []string) []string {
	var goals []string
	_ = s.app.withBuilder(func(b *build.Builder) error {
		g := b.Graph()
		var changed []*graph.Node[*build.Target]
		for _, path := range paths {
			name, ok := util.TargetName(s.root, path)
			if !ok {
				continue
			}
			n := findTarget(g, name)
			if n == nil {
				continue
			}
			if s.app.stamper.LastModification(name) == s.stamps[name] {
				continue
			}
			changed = append(changed, n)
		}
		if len(changed) == 0 {
			return nil
		}

		affected := make(map[*graph.Node[*build.Target]]bool)
		for _, n := range g.Dependents(changed...) {
			affected[n] = true
		}

		requested := s.req.Goals
		if len(requested) == 0 {
			requested = []string{b.DefaultGoal()}
		}
		for _, goal := range requested {
			if n := findTarget(g, goal); n != nil && affected[n] {
				goals = append(goals, goal)
			}
		}
		return nil
	})
	return goals
}
