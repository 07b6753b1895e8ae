package dag

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNodeNotFound is returned for an id that was never added.
	ErrNodeNotFound = errors.New("node not found")
	// ErrSelfEdge is returned when a node would depend on itself.
	ErrSelfEdge = errors.New("self-referential edge not allowed")
	// ErrCycle is returned by DetectCycles and TopologicalOrder.
	ErrCycle = errors.New("cycle detected")
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Adding the same
// edge twice is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: %s", ErrSelfEdge, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, err := g.lookup(fromID)
	if err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	toNode, err := g.lookup(toID)
	if err != nil {
		return fmt.Errorf("edge destination: %w", err)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Dependencies returns the sorted IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, err := g.lookup(id)
	if err != nil {
		return nil, err
	}
	return sortedKeys(n.dependents), nil
}

// DetectCycles checks the graph for any cycles. Nodes are visited in sorted
// order so the node named in the error is stable across runs.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// permanent: fully visited and not part of a cycle.
	// temporary: on the current recursion stack.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("%w involving node '%s'", ErrCycle, n.id)
		}

		temporary[n.id] = true
		for _, id := range sortedKeys(n.dependents) {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}

	return nil
}

// lookup must be called with the mutex held.
func (g *Graph) lookup(id string) (*node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
