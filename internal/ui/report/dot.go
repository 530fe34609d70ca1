package report

import (
	"fmt"
	"strings"

	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
)

type DOTGenerator struct {
	graph *graph.Digraph[*build.Target]
}

func NewDOTGenerator(g *graph.Digraph[*build.Target]) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the graph in Graphviz DOT. Targets with a recipe are
// grouped in a cluster; sources sit outside it. Links that close one of
// cycles are drawn red.
func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	v := newView(d.graph)
	cycleEdges := cycleEdgeSet(cycles)
	cycleNodes := cycleNodeSet(cycles)

	var buf strings.Builder
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  overlap=false;\n\n")

	buf.WriteString("  subgraph cluster_rules {\n")
	buf.WriteString("    label=\"Rules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, name := range v.names {
		if !v.rules[name] {
			continue
		}
		label := escapeLabel(v.label(name))
		if cycleNodes[name] {
			fmt.Fprintf(&buf, "    \"%s\" [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", escapeLabel(name), label)
			continue
		}
		fmt.Fprintf(&buf, "    \"%s\" [label=\"%s\", color=\"darkslategrey\"];\n", escapeLabel(name), label)
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  // Sources\n")
	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, name := range v.names {
		if v.rules[name] {
			continue
		}
		if cycleNodes[name] {
			fmt.Fprintf(&buf, "  \"%s\" [fillcolor=\"mistyrose\", color=\"red\"];\n", escapeLabel(name))
			continue
		}
		fmt.Fprintf(&buf, "  \"%s\";\n", escapeLabel(name))
	}
	buf.WriteString("\n")

	for _, edge := range v.edges {
		from, to := escapeLabel(edge[0]), escapeLabel(edge[1])
		switch {
		case cycleEdges[edge[0]+"->"+edge[1]]:
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\" [color=\"red\", penwidth=3.0, label=\"CYCLE\"];\n", from, to)
		case v.rules[edge[1]]:
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\" [color=\"forestgreen\", penwidth=1.8];\n", from, to)
		default:
			fmt.Fprintf(&buf, "  \"%s\" -> \"%s\" [color=\"grey\", style=dashed];\n", from, to)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}
