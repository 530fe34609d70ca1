package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"mymake/internal/engine/build"
	"mymake/internal/engine/graph"
)

type MermaidGenerator struct {
	graph *graph.Digraph[*build.Target]
}

func NewMermaidGenerator(g *graph.Digraph[*build.Target]) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

func (m *MermaidGenerator) Generate(cycles [][]string) (string, error) {
	v := newView(m.graph)
	ids := makeIDs(v.names)
	cycleEdges := cycleEdgeSet(cycles)
	cycleNodes := cycleNodeSet(cycles)

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, name := range v.names {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[name], escapeLabel(strings.ReplaceAll(v.label(name), "\\n", "<br/>")))
	}

	var rules, sources, inCycle []string
	for _, name := range v.names {
		if v.rules[name] {
			rules = append(rules, ids[name])
		} else {
			sources = append(sources, ids[name])
		}
		if cycleNodes[name] {
			inCycle = append(inCycle, ids[name])
		}
	}

	b.WriteString("\n")
	if len(rules) > 0 {
		b.WriteString("  classDef ruleNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px,color:#000000;\n")
		fmt.Fprintf(&b, "  class %s ruleNode;\n", strings.Join(rules, ","))
	}
	if len(sources) > 0 {
		b.WriteString("  classDef sourceNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3,color:#000000;\n")
		fmt.Fprintf(&b, "  class %s sourceNode;\n", strings.Join(sources, ","))
	}
	if len(inCycle) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px,color:#000000;\n")
		fmt.Fprintf(&b, "  class %s cycleNode;\n", strings.Join(inCycle, ","))
	}

	b.WriteString("\n")
	var cycleLinks []string
	for i, edge := range v.edges {
		label := ""
		if cycleEdges[edge[0]+"->"+edge[1]] {
			label = "|CYCLE|"
			cycleLinks = append(cycleLinks, strconv.Itoa(i))
		}
		fmt.Fprintf(&b, "  %s -->%s %s\n", ids[edge[0]], label, ids[edge[1]])
	}
	if len(cycleLinks) > 0 {
		fmt.Fprintf(&b, "\n  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", strings.Join(cycleLinks, ","))
	}

	return b.String(), nil
}

type GraphGenerator interface {
	Generate(cycles [][]string) (string, error)
}

// GeneratorFor picks the renderer from the output file extension: .mmd and
// .mermaid get Mermaid, anything else DOT.
func GeneratorFor(path string, g *graph.Digraph[*build.Target]) GraphGenerator {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmd", ".mermaid":
		return NewMermaidGenerator(g)
	default:
		return NewDOTGenerator(g)
	}
}
