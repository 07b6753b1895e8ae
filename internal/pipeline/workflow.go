package pipeline

import (
	"strings"
	"sync"

	"github.com/specialistvlad/dwigrid/internal/nodeid"
)

// Names of the identity nodes every workflow exposes.
const (
	InputNode  = "inputnode"
	OutputNode = "outputnode"
)

// Edge connects an output port to an input port. Endpoints are dotted node
// addresses relative to the workflow owning the edge, e.g.
// "tensor_estimation_wf.inputnode".
type Edge struct {
	From     string
	FromPort string
	To       string
	ToPort   string
}

// Workflow is a named sub-graph. It is safe for concurrent reads.
type Workflow struct {
	Name string
	Exec ExecContext

	mu       sync.RWMutex
	nodes    map[string]*Node
	children map[string]*Workflow
	edges    []Edge
	errs     []error
}

// Add registers nodes. Invalid or duplicate names are recorded.
func (w *Workflow) Add(nodes ...*Node) *Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, n := range nodes {
		if w.claim(n.Name) {
			w.nodes[n.Name] = n
		}
	}
	return w
}

// AddWorkflow registers child workflows.
func (w *Workflow) AddWorkflow(children ...*Workflow) *Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, c := range children {
		if w.claim(c.Name) {
			w.children[c.Name] = c
		}
	}
	return w
}

// claim must be called with the write lock held.
func (w *Workflow) claim(name string) bool {
	if err := nodeid.ValidateSegment(name); err != nil {
		w.errs = append(w.errs, graphErrorf(ErrUnknownEndpoint, "workflow %s: %v", w.Name, err))
		return false
	}
	_, isNode := w.nodes[name]
	_, isChild := w.children[name]
	if isNode || isChild {
		w.errs = append(w.errs, graphErrorf(ErrDuplicateNode, "workflow %s already contains %s", w.Name, name))
		return false
	}
	return true
}

// Child returns the direct child workflow called name, or nil.
func (w *Workflow) Child(name string) *Workflow {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.children[name]
}

// Node resolves a dotted address relative to w, or returns nil.
func (w *Workflow) Node(path string) *Node {
	addr, err := nodeid.Parse(path)
	if err != nil {
		return nil
	}
	cur := w
	for _, seg := range addr.Path[:len(addr.Path)-1] {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	cur.mu.RLock()
	defer cur.mu.RUnlock()
	return cur.nodes[addr.Last()]
}

// Connect wires from.fromPort into to.toPort. Endpoints must already exist
// and declare the ports; otherwise the defect is recorded.
func (w *Workflow) Connect(from, fromPort, to, toPort string) *Workflow {
	var errs []error
	if src := w.Node(from); src == nil {
		errs = append(errs, graphErrorf(ErrUnknownEndpoint, "workflow %s: no node %s", w.Name, from))
	} else if !src.HasOutput(fromPort) {
		errs = append(errs, graphErrorf(ErrUnknownEndpoint, "workflow %s: node %s has no output %s", w.Name, from, fromPort))
	}
	if dst := w.Node(to); dst == nil {
		errs = append(errs, graphErrorf(ErrUnknownEndpoint, "workflow %s: no node %s", w.Name, to))
	} else if _, ok := dst.Input(toPort); !ok {
		errs = append(errs, graphErrorf(ErrUnknownEndpoint, "workflow %s: node %s has no input %s", w.Name, to, toPort))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(errs) > 0 {
		w.errs = append(w.errs, errs...)
		return w
	}
	w.edges = append(w.edges, Edge{From: from, FromPort: fromPort, To: to, ToPort: toPort})
	return w
}

// ConnectMany wires several ports between the same two nodes. Each entry
// is either "port", connecting equally named ports, or "src:dst".
func (w *Workflow) ConnectMany(from, to string, ports ...string) *Workflow {
	for _, p := range ports {
		src, dst, ok := strings.Cut(p, ":")
		if !ok {
			dst = src
		}
		w.Connect(from, src, to, dst)
	}
	return w
}

// Edges returns the edges owned directly by w.
func (w *Workflow) Edges() []Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Edge(nil), w.edges...)
}
