package pipeline

import (
	"maps"
	"slices"

	"github.com/specialistvlad/dwigrid/internal/bids"
)

// Kind classifies what a node runs.
type Kind string

const (
	// KindFunction runs an in-process helper, e.g. shell detection.
	KindFunction Kind = "function"
	// KindTool runs an external command-line tool.
	KindTool Kind = "tool"
	// KindIdentity forwards its inputs unchanged.
	KindIdentity Kind = "identity"
	// KindSink copies its input to a derivative path.
	KindSink Kind = "sink"
)

// Port is a declared input. Optional ports may stay unconnected.
type Port struct {
	Name     string
	Optional bool
}

// Ports declares mandatory inputs.
func Ports(names ...string) []Port {
	out := make([]Port, len(names))
	for i, n := range names {
		out[i] = Port{Name: n}
	}
	return out
}

// Optional declares an input that may stay unconnected.
func Optional(name string) Port {
	return Port{Name: name, Optional: true}
}

// ExecContext is where the engine runs a node and writes its crash files.
type ExecContext struct {
	WorkDir  string
	CrashDir string
}

// Node is one task of the graph.
type Node struct {
	Name    string
	Kind    Kind
	Tool    string
	Inputs  []Port
	Outputs []string
	Params  map[string]any
	Exec    ExecContext

	// Entities and Path are set on sinks only. Path is absolute.
	Entities bids.Entities
	Path     string

	bound map[string]any
}

// Bind fixes the value of an input port. It returns n for chaining.
func (n *Node) Bind(port string, value any) *Node {
	if n.bound == nil {
		n.bound = make(map[string]any)
	}
	n.bound[port] = value
	return n
}

// Bound returns the value bound to port.
func (n *Node) Bound(port string) (any, bool) {
	v, ok := n.bound[port]
	return v, ok
}

// BoundValues returns a copy of every bound port value.
func (n *Node) BoundValues() map[string]any {
	return maps.Clone(n.bound)
}

// Input returns the declared input port with the given name.
func (n *Node) Input(name string) (Port, bool) {
	i := slices.IndexFunc(n.Inputs, func(p Port) bool { return p.Name == name })
	if i < 0 {
		return Port{}, false
	}
	return n.Inputs[i], true
}

// HasOutput reports whether n declares the output port.
func (n *Node) HasOutput(name string) bool {
	return slices.Contains(n.Outputs, name)
}
