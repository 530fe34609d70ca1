package report

import (
	"fmt"
	"strings"
	"unicode"

	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
)

// view is a flattened, render-ready copy of a build graph.
type view struct {
	names  []string
	rules  map[string]bool
	edges  [][2]string
	recipe map[string]int
}

func newView(g *graph.Digraph[*build.Target]) view {
	v := view{
		rules:  make(map[string]bool),
		recipe: make(map[string]int),
	}
	seen := make(map[[2]string]bool)
	g.Visit(func(n *graph.Node[*build.Target]) bool {
		t := n.Data()
		v.names = append(v.names, t.Name)
		if len(t.Recipe) > 0 {
			v.rules[t.Name] = true
			v.recipe[t.Name] = len(t.Recipe)
		}
		g.VisitLinks(n, func(dep *graph.Node[*build.Target]) bool {
			edge := [2]string{t.Name, dep.Data().Name}
			if !seen[edge] {
				seen[edge] = true
				v.edges = append(v.edges, edge)
			}
			return true
		})
		return true
	})
	return v
}

func (v view) label(name string) string {
	if n := v.recipe[name]; n > 0 {
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return fmt.Sprintf("%s\\n(%d command%s)", name, n, plural)
	}
	return name
}

func cycleEdgeSet(cycles [][]string) map[string]bool {
	edges := make(map[string]bool)
	for _, cycle := range cycles {
		for i := range cycle {
			edges[cycle[i]+"->"+cycle[(i+1)%len(cycle)]] = true
		}
	}
	return edges
}

func cycleNodeSet(cycles [][]string) map[string]bool {
	nodes := make(map[string]bool)
	for _, cycle := range cycles {
		for _, name := range cycle {
			nodes[name] = true
		}
	}
	return nodes
}

func sanitizeID(name string) string {
	if name == "" {
		return "t"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "t_" + out
	}
	return out
}

// makeIDs assigns every name a distinct identifier; names that sanitize to
// the same base get a numeric suffix in order of appearance.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
