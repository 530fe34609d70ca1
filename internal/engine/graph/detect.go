// # internal/engine/graph/detect.go
package graph

type dfsFrame[T any] struct {
	node *Node[T]
	next int
}

// Cycles reports every elementary cycle closed by a back link during a
// depth-first walk started from each unvisited node in insertion order. Each
// cycle starts at the node the back link points to. Duplicate links yield a
// single cycle.
//
// The walk keeps an explicit stack so deep dependency chains cannot exhaust
// the goroutine stack.
func (g *Digraph[T]) Cycles() [][]*Node[T] {
	var cycles [][]*Node[T]
	visited := make(map[*Node[T]]bool, len(g.nodes))
	onStack := make(map[*Node[T]]int, len(g.nodes))
	backLinks := make(map[[2]*Node[T]]bool)

	for _, root := range g.nodes {
		if visited[root] {
			continue
		}

		var path []*Node[T]
		stack := []dfsFrame[T]{{node: root}}
		visited[root] = true
		onStack[root] = 0
		path = append(path, root)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.node.out) {
				delete(onStack, top.node)
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			next := top.node.out[top.next]
			top.next++

			if pos, ok := onStack[next]; ok {
				key := [2]*Node[T]{top.node, next}
				if backLinks[key] {
					continue
				}
				backLinks[key] = true
				cycle := make([]*Node[T], len(path)-pos)
				copy(cycle, path[pos:])
				cycles = append(cycles, cycle)
				continue
			}
			if visited[next] {
				continue
			}

			visited[next] = true
			onStack[next] = len(path)
			path = append(path, next)
			stack = append(stack, dfsFrame[T]{node: next})
		}
	}

	return cycles
}

// Path returns the shortest chain of links leading from -> to, both ends
// included. Ties are broken by link order.
func (g *Digraph[T]) Path(from, to *Node[T]) ([]*Node[T], bool) {
	g.mustOwn(from, "Path")
	g.mustOwn(to, "Path")
	if from == to {
		return []*Node[T]{from}, true
	}

	queue := []*Node[T]{from}
	visited := map[*Node[T]]bool{from: true}
	prev := make(map[*Node[T]]*Node[T])

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range curr.out {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []*Node[T]{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}
