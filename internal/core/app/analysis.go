package app

import (
	"fmt"
	"strings"

	"mymake/internal/core/errors"
	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
	"mymake/internal/shared/util"
	"mymake/internal/ui/report"
)

// Cycles returns every dependency cycle of the loaded graph by target name.
func (a *App) Cycles() ([][]string, error) {
	var cycles [][]string
	err := a.withBuilder(func(b *build.Builder) error {
		cycles = namedCycles(b.Graph())
		return nil
	})
	return cycles, err
}

func namedCycles(g *graph.Digraph[*build.Target]) [][]string {
	found := g.Cycles()
	out := make([][]string, 0, len(found))
	for _, cycle := range found {
		out = append(out, targetNames(cycle))
	}
	return out
}

func targetNames(nodes []*graph.Node[*build.Target]) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Data().Name
	}
	return names
}

// Why returns the shortest dependency chain from one target to another,
// both ends included.
func (a *App) Why(from, to string) ([]string, error) {
	var chain []string
	err := a.withBuilder(func(b *build.Builder) error {
		g := b.Graph()
		src := findTarget(g, from)
		if src == nil {
			return errors.AddContext(errors.Newf(errors.CodeNotFound, "unable to find target %s", from), errors.CtxTarget, from)
		}
		dst := findTarget(g, to)
		if dst == nil {
			return errors.AddContext(errors.Newf(errors.CodeNotFound, "unable to find target %s", to), errors.CtxTarget, to)
		}
		path, ok := g.Path(src, dst)
		if !ok {
			return errors.Newf(errors.CodeNotFound, "%s does not depend on %s", from, to)
		}
		chain = targetNames(path)
		return nil
	})
	return chain, err
}

// FormatChain renders a chain from Why one target per line.
func FormatChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dependency chain: %s -> %s\n\n", chain[0], chain[len(chain)-1])
	for i, name := range chain {
		if i > 0 {
			b.WriteString("  -> ")
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String()
}

// WriteGraph renders the loaded graph to path, as Mermaid for .mmd files
// and DOT otherwise, highlighting cycles.
func (a *App) WriteGraph(path string) error {
	var content string
	err := a.withBuilder(func(b *build.Builder) error {
		var err error
		content, err = report.GeneratorFor(path, b.Graph()).Generate(namedCycles(b.Graph()))
		return err
	})
	if err != nil {
		return err
	}
	if err := util.WriteFileWithDirs(path, []byte(content), 0o644); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write graph"), errors.CtxPath, path)
	}
	return nil
}
