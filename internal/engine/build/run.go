package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mymake/internal/core/errors"
	"mymake/internal/engine/graph"
	"mymake/internal/engine/system"
	"mymake/internal/shared/observability"
)

type BuildOptions struct {
	Verbose bool
	DryRun  bool
}

// Build brings target up to date, or the default goal when target is "".
// Building the default goal of an empty graph succeeds without doing
// anything. Failures are written to the error writer as they happen and
// returned; a nil error means success.
//
// A dependency is visited when its artifact is missing or newer than the
// target's. Every stale dependency is visited even after a sibling failed,
// and any dependency that did not fail triggers the target's recipe.
// A target reached twice in one build is skipped; verbose output calls it a
// cycle only when the target is still being worked on further up the chain.
func (b *Builder) Build(ctx context.Context, target string, opts BuildOptions) (err error) {
	ctx, span := observability.Tracer.Start(ctx, "build.Build", trace.WithAttributes(
		attribute.String("target", target),
		attribute.Bool("dry_run", opts.DryRun),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		result := observability.ResultSuccess
		if err != nil {
			result = observability.ResultFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.BuildDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	var root *graph.Node[*Target]
	if target == "" {
		if b.first == nil {
			return nil
		}
		root = b.first
	} else {
		root = b.find(target)
		if root == nil {
			return b.report(errors.AddContext(
				errors.Newf(errors.CodeNotFound, "unable to find target %s", target),
				errors.CtxTarget, target,
			))
		}
	}

	r := &run{
		b:       b,
		ctx:     ctx,
		opts:    opts,
		visited: make(map[*graph.Node[*Target]]struct{}),
		active:  make(map[*graph.Node[*Target]]struct{}),
	}
	b.logger.Debug("build started", "target", root.Data().Name, "dry_run", opts.DryRun)
	err = r.walk(root)
	b.logger.Debug("build finished", "target", root.Data().Name, "ok", err == nil, "duration", time.Since(start))
	return err
}

// frame is one target whose dependencies are being worked through.
type frame struct {
	node      *graph.Node[*Target]
	root      bool
	next      int
	triggered bool
	errs      []error
}

func (f *frame) record(err error) {
	if err != nil {
		f.errs = append(f.errs, err)
		return
	}
	f.triggered = true
}

// run is the state of one Build call.
type run struct {
	b       *Builder
	ctx     context.Context
	opts    BuildOptions
	visited map[*graph.Node[*Target]]struct{}
	// active holds the targets with a frame on the stack.
	active map[*graph.Node[*Target]]struct{}
}

// walk traverses depth-first with an explicit stack so deep dependency
// chains do not grow the goroutine stack.
func (r *run) walk(root *graph.Node[*Target]) error {
	f, err := r.enter(root, true)
	if f == nil {
		return err
	}

	stack := []*frame{f}
	for len(stack) > 0 {
		if err := r.ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if dep, ok := top.node.Link(top.next); ok {
			top.next++
			if !r.stale(dep, top.node) {
				r.verbosef("Not building: dependency %s is not newer than its target %s.", dep.Data().Name, top.node.Data().Name)
				continue
			}
			r.verbosef("Building: dependency %s is newer than its target %s.", dep.Data().Name, top.node.Data().Name)

			child, err := r.enter(dep, false)
			if child != nil {
				stack = append(stack, child)
				continue
			}
			top.record(err)
			continue
		}

		err := r.finish(top)
		delete(r.active, top.node)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return err
		}
		stack[len(stack)-1].record(err)
	}
	return nil
}

// enter handles everything that can be decided without visiting
// dependencies. It returns a frame when n's dependencies must be walked,
// otherwise nil and n's result.
func (r *run) enter(n *graph.Node[*Target], root bool) (*frame, error) {
	t := n.Data()
	if _, seen := r.visited[n]; seen {
		if _, onStack := r.active[n]; onStack {
			r.verbosef("Cycle detected on %s. Skipping.", t.Name)
		} else {
			r.verbosef("Target %s was already visited. Skipping.", t.Name)
		}
		return nil, nil
	}
	r.visited[n] = struct{}{}

	if !t.hasRecipe() && !root {
		if r.stamp(t.Name) == system.Missing {
			return nil, r.b.report(errors.AddContext(
				errors.Newf(errors.CodeNoRule, "no rule to build %s", t.Name),
				errors.CtxTarget, t.Name,
			))
		}
		return nil, nil
	}

	if n.OutgoingCount() == 0 {
		if r.stamp(t.Name) == system.Missing {
			return nil, r.execute(t)
		}
		r.verbosef("Target %s is up to date.", t.Name)
		if root {
			r.printf("No need to build %s.", t.Name)
		}
		return nil, nil
	}

	r.active[n] = struct{}{}
	return &frame{node: n, root: root}, nil
}

// finish decides a target once all of its dependencies have been checked.
func (r *run) finish(f *frame) error {
	t := f.node.Data()
	if f.triggered {
		r.verbosef("Building target %s.", t.Name)
		return r.execute(t)
	}

	r.verbosef("No criteria met for building target %s.", t.Name)
	if f.root && len(f.errs) == 0 {
		r.printf("No need to build %s.", t.Name)
	}
	return stderrors.Join(f.errs...)
}

// stale reports whether dep must be visited before target: its artifact is
// missing or newer than target's.
func (r *run) stale(dep, target *graph.Node[*Target]) bool {
	depStamp := r.stamp(dep.Data().Name)
	return depStamp == system.Missing || depStamp > r.stamp(target.Data().Name)
}

func (r *run) stamp(name string) uint64 {
	return r.b.stamper.LastModification(name)
}

func (r *run) execute(t *Target) error {
	if !t.hasRecipe() {
		return nil
	}
	observability.RecipesExecutedTotal.Inc()
	if err := r.b.executor.ExecuteRecipe(r.ctx, t.Recipe, r.b.out, r.opts.DryRun); err != nil {
		observability.RecipeFailuresTotal.Inc()
		if !errors.IsCode(err, errors.CodeRecipeFailed) {
			err = errors.Wrap(err, errors.CodeRecipeFailed, "recipe command failed")
		}
		return r.b.report(errors.AddContext(err, errors.CtxTarget, t.Name))
	}
	return nil
}

// report writes a failure to the error writer and returns it unchanged.
func (b *Builder) report(err error) error {
	target, _ := contextString(err, errors.CtxTarget)
	switch {
	case errors.IsCode(err, errors.CodeRecipeFailed):
		if command, ok := contextString(err, errors.CtxCommand); ok {
			fmt.Fprintf(b.errOut, "Error: recipe for %s failed at %q: %v\n", target, command, stderrors.Unwrap(err))
			return err
		}
		fmt.Fprintf(b.errOut, "Error: recipe for %s failed: %v\n", target, stderrors.Unwrap(err))
	default:
		fmt.Fprintf(b.errOut, "Error: %s.\n", errors.MessageOf(err))
	}
	return err
}

func contextString(err error, key string) (string, bool) {
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		return "", false
	}
	v, ok := de.Context[key].(string)
	return v, ok
}

func (r *run) verbosef(format string, args ...any) {
	if r.opts.Verbose {
		r.printf(format, args...)
	}
}

func (r *run) printf(format string, args ...any) {
	fmt.Fprintf(r.b.out, format+"\n", args...)
}
