package graph

// Dependents returns every node that can reach one of changed by following
// links, changed nodes included, in insertion order. It answers "which goals
// are stale if these files change".
func (g *Digraph[T]) Dependents(changed ...*Node[T]) []*Node[T] {
	if len(changed) == 0 {
		return nil
	}

	// Reverse adjacency is built on demand; the graph does not keep one.
	importedBy := make(map[*Node[T]][]*Node[T], len(g.nodes))
	for _, n := range g.nodes {
		for _, dst := range n.out {
			importedBy[dst] = append(importedBy[dst], n)
		}
	}

	seen := make(map[*Node[T]]bool, len(changed))
	queue := make([]*Node[T], 0, len(changed))
	for _, n := range changed {
		g.mustOwn(n, "Dependents")
		if !seen[n] {
			seen[n] = true
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, src := range importedBy[curr] {
			if seen[src] {
				continue
			}
			seen[src] = true
			queue = append(queue, src)
		}
	}

	out := make([]*Node[T], 0, len(seen))
	for _, n := range g.nodes {
		if seen[n] {
			out = append(out, n)
		}
	}
	return out
}
