package pipeline

import (
	"errors"
	"sort"

	"github.com/specialistvlad/dwigrid/internal/dag"
	"github.com/specialistvlad/dwigrid/internal/nodeid"
)

// FlatNode is a node with its fully qualified address.
type FlatNode struct {
	ID   string
	Node *Node
}

// Flat is a workflow with every nesting level expanded. Edge endpoints
// are fully qualified.
type Flat struct {
	Nodes []FlatNode
	Edges []Edge
	errs  []error
}

// Flatten expands w. Nodes and edges are sorted, so the result is a pure
// function of the workflow's contents.
func (w *Workflow) Flatten() *Flat {
	f := &Flat{}
	w.flattenInto(f, nodeid.New(w.Name))

	sort.Slice(f.Nodes, func(i, j int) bool { return f.Nodes[i].ID < f.Nodes[j].ID })
	sort.Slice(f.Edges, func(i, j int) bool {
		a, b := f.Edges[i], f.Edges[j]
		if a.To != b.To {
			return a.To < b.To
		}
		if a.ToPort != b.ToPort {
			return a.ToPort < b.ToPort
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.FromPort < b.FromPort
	})
	return f
}

func (w *Workflow) flattenInto(f *Flat, prefix *nodeid.Address) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	f.errs = append(f.errs, w.errs...)
	for name, n := range w.nodes {
		f.Nodes = append(f.Nodes, FlatNode{ID: prefix.Child(name).String(), Node: n})
	}
	for _, e := range w.edges {
		f.Edges = append(f.Edges, Edge{
			From:     prefix.Join(nodeid.MustParse(e.From)).String(),
			FromPort: e.FromPort,
			To:       prefix.Join(nodeid.MustParse(e.To)).String(),
			ToPort:   e.ToPort,
		})
	}
	for name, c := range w.children {
		c.flattenInto(f, prefix.Child(name))
	}
}

// Node returns the flattened node with the given id.
func (f *Flat) Node(id string) *Node {
	i := sort.Search(len(f.Nodes), func(i int) bool { return f.Nodes[i].ID >= id })
	if i < len(f.Nodes) && f.Nodes[i].ID == id {
		return f.Nodes[i].Node
	}
	return nil
}

// Graph converts the flattened workflow into a dependency graph.
func (f *Flat) Graph() (*dag.Graph, error) {
	g := dag.New()
	for _, n := range f.Nodes {
		g.AddNode(n.ID)
	}
	for _, e := range f.Edges {
		if e.From == e.To {
			return nil, graphErrorf(ErrCycle, "node %s feeds itself", e.From)
		}
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, graphErrorf(ErrUnknownEndpoint, "%v", err)
		}
	}
	return g, nil
}

// Validate reports every recorded wiring defect, every mandatory input
// that is not satisfied exactly once, and cycles. Ports are satisfied by
// an incoming edge or a bound value.
func (w *Workflow) Validate() error {
	f := w.Flatten()
	errs := append([]error(nil), f.errs...)

	incoming := make(map[string]int, len(f.Edges))
	for _, e := range f.Edges {
		incoming[e.To+"#"+e.ToPort]++
	}

	for _, fn := range f.Nodes {
		n := fn.Node
		for _, port := range sortedPorts(n.bound) {
			if _, ok := n.Input(port); !ok {
				errs = append(errs, graphErrorf(ErrUnknownEndpoint, "%s has no input %s to bind", fn.ID, port))
			}
		}
		for _, p := range n.Inputs {
			count := incoming[fn.ID+"#"+p.Name]
			if _, ok := n.bound[p.Name]; ok {
				count++
			}
			switch {
			case count == 0 && !p.Optional:
				errs = append(errs, graphErrorf(ErrDanglingPort, "%s.%s is not connected", fn.ID, p.Name))
			case count > 1:
				errs = append(errs, graphErrorf(ErrPortConflict, "%s.%s is satisfied %d times", fn.ID, p.Name, count))
			}
		}
	}

	g, err := f.Graph()
	if err != nil {
		errs = append(errs, err)
	} else if err := g.DetectCycles(); err != nil {
		errs = append(errs, graphErrorf(ErrCycle, "%v", err))
	}
	return errors.Join(errs...)
}

func sortedPorts(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
