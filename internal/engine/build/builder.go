// Package build turns parsed rules into a dependency graph of targets and
// brings goals up to date by comparing artifact timestamps.
//
// A Builder owns one graph. The first target ever added becomes the default
// goal. Dependencies that have not been declared yet are stored as
// recipe-less placeholders and replaced when their own rule shows up.
//
// Builder is not safe for concurrent use; builds run one at a time and
// recipes run sequentially.
package build

import (
	"io"
	"log/slog"
	"slices"

	"mymake/internal/core/errors"
	"mymake/internal/core/ports"
	"mymake/internal/engine/graph"
	"mymake/internal/engine/parser"
	"mymake/internal/engine/system"
	"mymake/internal/shared/observability"
)

// Target is the payload of a graph node. A Target without a recipe is a
// source file or a placeholder for a rule not seen yet.
type Target struct {
	Name   string
	Recipe []string
}

func (t *Target) hasRecipe() bool {
	return len(t.Recipe) > 0
}

type Builder struct {
	graph    *graph.Digraph[*Target]
	first    *graph.Node[*Target]
	out      io.Writer
	errOut   io.Writer
	stamper  ports.Stamper
	executor ports.RecipeExecutor
	logger   *slog.Logger
}

type Option func(*Builder)

func WithStamper(s ports.Stamper) Option {
	return func(b *Builder) {
		if s != nil {
			b.stamper = s
		}
	}
}

func WithExecutor(e ports.RecipeExecutor) Option {
	return func(b *Builder) {
		if e != nil {
			b.executor = e
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty Builder. Recipe echoes and verbose narration go to
// out, failures to errOut. Neither writer is closed by the Builder.
func New(out, errOut io.Writer, opts ...Option) *Builder {
	b := &Builder{
		out:      out,
		errOut:   errOut,
		stamper:  system.Stamper{},
		executor: &system.Shell{},
		logger:   slog.Default().With("component", "build"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.graph = graph.New(b.release)
	return b
}

// Destroy releases every target. The Builder must not be used afterwards.
func (b *Builder) Destroy() {
	b.graph.Destroy()
	b.first = nil
}

func (b *Builder) release(t *Target) {
	b.logger.Debug("target released", "target", t.Name)
}

// AddTarget declares name with its dependencies and recipe. Declaring a
// target whose stored rule already has a recipe fails with
// CodeDuplicateRecipe and leaves the graph untouched. Listing a dependency
// twice links it twice.
func (b *Builder) AddTarget(name string, deps, recipe []string) error {
	if name == "" {
		return errors.New(errors.CodeValidationError, "target name must not be empty")
	}
	if slices.Contains(deps, name) {
		return errors.AddContext(
			errors.Newf(errors.CodeValidationError, "target %s depends on itself", name),
			errors.CtxTarget, name,
		)
	}

	node := b.find(name)
	if node != nil && node.Data().hasRecipe() {
		return errors.AddContext(
			errors.Newf(errors.CodeDuplicateRecipe, "multiple recipes for %s", name),
			errors.CtxTarget, name,
		)
	}

	t := &Target{Name: name, Recipe: slices.Clone(recipe)}
	if node == nil {
		node = b.graph.AddNode(t)
		if b.first == nil {
			b.first = node
		}
	} else {
		b.release(b.graph.SetData(node, t))
	}

	for _, dep := range deps {
		depNode := b.find(dep)
		if depNode == nil {
			depNode = b.graph.AddNode(&Target{Name: dep})
		}
		b.graph.AddLink(node, depNode)
	}

	observability.GraphNodes.Set(float64(b.graph.Len()))
	observability.GraphEdges.Set(float64(b.graph.EdgeCount()))
	return nil
}

// AddRule declares every target of a parsed rule, stopping at the first
// failure.
func (b *Builder) AddRule(r parser.Rule) error {
	for _, name := range r.Targets {
		if err := b.AddTarget(name, r.Dependencies, r.Recipe); err != nil {
			return errors.AddContext(err, errors.CtxLine, r.Line)
		}
	}
	return nil
}

// SupportsVariables reports whether AddVariable can succeed. It cannot.
func (b *Builder) SupportsVariables() bool {
	return false
}

func (b *Builder) AddVariable(name, value string) error {
	return errors.AddContext(
		errors.New(errors.CodeNotSupported, "this make does not support variables"),
		"variable", name,
	)
}

// find matches on the full target name.
func (b *Builder) find(name string) *graph.Node[*Target] {
	return b.graph.Find(func(n *graph.Node[*Target]) bool {
		return n.Data().Name == name
	})
}

// Lookup returns a copy of the target stored under name.
func (b *Builder) Lookup(name string) (Target, bool) {
	n := b.find(name)
	if n == nil {
		return Target{}, false
	}
	return n.Data().clone(), true
}

// DefaultGoal returns the name of the first target ever added, or "" when
// the graph is empty.
func (b *Builder) DefaultGoal() string {
	if b.first == nil {
		return ""
	}
	return b.first.Data().Name
}

// Targets returns copies of all targets in insertion order.
func (b *Builder) Targets() []Target {
	out := make([]Target, 0, b.graph.Len())
	b.graph.Visit(func(n *graph.Node[*Target]) bool {
		out = append(out, n.Data().clone())
		return true
	})
	return out
}

// Graph exposes the underlying graph for read-only analyses such as cycle
// detection and DOT export. Callers must not mutate it.
func (b *Builder) Graph() *graph.Digraph[*Target] {
	return b.graph
}

func (t *Target) clone() Target {
	return Target{Name: t.Name, Recipe: slices.Clone(t.Recipe)}
}
