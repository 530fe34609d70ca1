// Package graph provides a generic directed graph with owned nodes.
//
// A Digraph stores nodes in insertion order. Each node owns one payload, an
// ordered list of outgoing links (duplicates allowed, self links forbidden)
// and a count of incoming links. The graph knows nothing about what its
// payloads mean; build targets are only one client.
//
// There is no reverse adjacency index. RemoveNode rescans every node's link
// list, which costs O(V·E) in the worst case. Build graphs are small, so the
// scan is cheaper to maintain than a second index that every AddLink would
// have to update.
//
// A Digraph is not safe for concurrent use. All mutation requires exclusive
// access, and Visit/Find callbacks must not mutate the graph.
package graph

import (
	"fmt"
	"slices"
)

// Node is a stable handle to a graph node. It stays valid until the node is
// removed or the owning graph is destroyed.
type Node[T any] struct {
	owner    *Digraph[T]
	out      []*Node[T]
	incoming int
	data     T
}

// Digraph is a directed graph of owned payloads.
type Digraph[T any] struct {
	nodes   []*Node[T]
	destroy func(T)
}

// New creates an empty graph. destroy, when non-nil, is called with the
// payload of every node removed by RemoveNode or Destroy.
func New[T any](destroy func(T)) *Digraph[T] {
	return &Digraph[T]{destroy: destroy}
}

// Destroy disposes of every remaining payload in insertion order and releases
// all nodes. Handles obtained earlier are invalid afterwards.
func (g *Digraph[T]) Destroy() {
	for _, n := range g.nodes {
		if g.destroy != nil {
			g.destroy(n.data)
		}
		n.release()
	}
	g.nodes = nil
}

// AddNode appends a node carrying payload and returns its handle. The graph
// takes ownership of payload.
func (g *Digraph[T]) AddNode(payload T) *Node[T] {
	n := &Node[T]{owner: g, data: payload}
	g.nodes = append(g.nodes, n)
	return n
}

// RemoveNode deletes n, every link pointing at it and every link leaving it.
// The remaining links of each node keep their relative order. The payload is
// passed to the destroy callback.
func (g *Digraph[T]) RemoveNode(n *Node[T]) {
	g.mustOwn(n, "RemoveNode")

	idx := -1
	for i, other := range g.nodes {
		if other == n {
			idx = i
			continue
		}
		if n.incoming == 0 {
			continue
		}
		other.out = slices.DeleteFunc(other.out, func(m *Node[T]) bool { return m == n })
	}

	for _, dst := range n.out {
		if dst != n {
			dst.incoming--
		}
	}

	g.nodes = slices.Delete(g.nodes, idx, idx+1)
	if g.destroy != nil {
		g.destroy(n.data)
	}
	n.release()
}

// AddLink adds a directed link from -> to and bumps to's incoming count.
// Linking a node to itself, or passing a nil or foreign node, panics.
func (g *Digraph[T]) AddLink(from, to *Node[T]) {
	g.mustOwn(from, "AddLink")
	g.mustOwn(to, "AddLink")
	if from == to {
		panic("graph: AddLink: self link")
	}
	from.out = append(from.out, to)
	to.incoming++
}

// Visit calls fn on every node in insertion order until fn returns false.
// It returns false when the graph is empty or fn stopped the walk early.
func (g *Digraph[T]) Visit(fn func(*Node[T]) bool) bool {
	if len(g.nodes) == 0 {
		return false
	}
	for _, n := range g.nodes {
		if !fn(n) {
			return false
		}
	}
	return true
}

// Find returns the first node, in insertion order, for which pred is true.
func (g *Digraph[T]) Find(pred func(*Node[T]) bool) *Node[T] {
	for _, n := range g.nodes {
		if pred(n) {
			return n
		}
	}
	return nil
}

// VisitLinks calls fn on each outgoing link of n in order until fn returns
// false. It returns false when n has no links or fn stopped early.
func (g *Digraph[T]) VisitLinks(n *Node[T], fn func(*Node[T]) bool) bool {
	g.mustOwn(n, "VisitLinks")
	if len(n.out) == 0 {
		return false
	}
	for _, dst := range n.out {
		if !fn(dst) {
			return false
		}
	}
	return true
}

// SetData replaces n's payload and hands the previous one back to the
// caller, who becomes responsible for disposing of it.
func (g *Digraph[T]) SetData(n *Node[T], payload T) T {
	g.mustOwn(n, "SetData")
	old := n.data
	n.data = payload
	return old
}

// Len returns the number of nodes.
func (g *Digraph[T]) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of links across the whole graph.
func (g *Digraph[T]) EdgeCount() int {
	total := 0
	for _, n := range g.nodes {
		total += len(n.out)
	}
	return total
}

// Nodes returns a snapshot of the nodes in insertion order.
func (g *Digraph[T]) Nodes() []*Node[T] {
	return slices.Clone(g.nodes)
}

func (g *Digraph[T]) mustOwn(n *Node[T], op string) {
	if n == nil {
		panic(fmt.Sprintf("graph: %s: nil node", op))
	}
	if n.owner != g {
		panic(fmt.Sprintf("graph: %s: node does not belong to this graph", op))
	}
}

// Data returns the node's current payload. Ownership stays with the graph.
func (n *Node[T]) Data() T {
	return n.data
}

// OutgoingCount returns the number of links leaving n.
func (n *Node[T]) OutgoingCount() int {
	return len(n.out)
}

// IncomingCount returns the number of links pointing at n.
func (n *Node[T]) IncomingCount() int {
	return n.incoming
}

// Link returns the destination of n's idx-th outgoing link. ok is false when
// idx is outside [0, OutgoingCount()).
func (n *Node[T]) Link(idx int) (dst *Node[T], ok bool) {
	if idx < 0 || idx >= len(n.out) {
		return nil, false
	}
	return n.out[idx], true
}

func (n *Node[T]) release() {
	var zero T
	n.owner = nil
	n.out = nil
	n.incoming = 0
	n.data = zero
}
