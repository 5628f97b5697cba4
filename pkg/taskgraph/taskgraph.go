// Package taskgraph provides a directed acyclic graph of deferred
// computations. Nodes are registered with explicit dependencies and a
// function that receives the dependency results; executors evaluate nodes on
// demand, memoizing every result so each node function runs at most once.
//
// The graph itself never executes anything. Building a graph is cheap and
// side-effect free; cost is only paid for the nodes an executor actually
// pulls.
package taskgraph

import (
	"context"
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownDependency is returned by [Graph.AddNode] when a declared
	// dependency has not been registered yet. Nodes must be added in
	// dependency order.
	ErrUnknownDependency = errors.New("unknown dependency node")

	// ErrUnknownNode is returned by executors when asked to evaluate a node
	// that does not exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrMissingFunc is returned by [Graph.AddNode] when the node has no
	// function attached.
	ErrMissingFunc = errors.New("node function must not be nil")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle is
	// detected. Cycles are found using depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Func computes a node value. It receives the results of the node's
// dependencies in declaration order. Errors are propagated to the caller of
// the executor unwrapped.
type Func func(ctx context.Context, deps []any) (any, error)

// Node is a deferred computation with explicit dependencies.
type Node struct {
	ID   string   // Unique identifier
	Deps []string // IDs of nodes whose results feed Run, in order
	Run  Func     // The computation
}

// Graph is an append-only arena of deferred computation nodes. Because
// [Graph.AddNode] requires dependencies to exist, a Graph is acyclic by
// construction; Validate exists as an integrity check for graphs assembled
// through other means.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// mutation.
type Graph struct {
	nodes      map[string]*Node
	order      []string            // insertion order
	dependents map[string][]string // nodeID -> IDs depending on it
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		dependents: make(map[string][]string),
	}
}

// AddNode registers a node. Dependencies must already be present, so graphs
// are built bottom-up and stay acyclic.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Run == nil {
		return ErrMissingFunc
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	for _, dep := range n.Deps {
		if _, ok := g.nodes[dep]; !ok {
			return ErrUnknownDependency
		}
	}
	node := &n
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	for _, dep := range node.Deps {
		g.dependents[dep] = append(g.dependents[dep], node.ID)
	}
	return nil
}

// Node returns the node with the given ID and true, or nil and false.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.order) }

// Deps returns the dependency IDs of the node. The returned slice should not
// be modified.
func (g *Graph) Deps(id string) []string {
	if n, ok := g.nodes[id]; ok {
		return n.Deps
	}
	return nil
}

// Dependents returns the IDs of nodes that depend on this node. The returned
// slice should not be modified.
func (g *Graph) Dependents(id string) []string { return g.dependents[id] }

// Sinks returns the IDs of nodes nothing depends on, in insertion order.
func (g *Graph) Sinks() []string {
	var sinks []string
	for _, id := range g.order {
		if len(g.dependents[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	return sinks
}

// Reachable returns the set of node IDs reachable from id through
// dependencies, including id itself. Returns nil when the node is unknown.
func (g *Graph) Reachable(id string) map[string]bool {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	seen := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, g.nodes[cur].Deps...)
	}
	return seen
}

// Validate checks that the graph is acyclic. Returns ErrGraphHasCycle
// otherwise. Runs in O(N+E) time using depth-first search.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, dep := range g.nodes[id].Deps {
			switch color[dep] {
			case white:
				dfs(dep)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range g.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
