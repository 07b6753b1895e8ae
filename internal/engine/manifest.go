package engine

import (
	"fmt"
	"io"

	"github.com/specialistvlad/dwigrid/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Manifest is the serialized form of a graph.
type Manifest struct {
	Workflow string         `yaml:"workflow" json:"workflow"`
	Nodes    []ManifestNode `yaml:"nodes" json:"nodes"`
	Edges    []ManifestEdge `yaml:"edges" json:"edges"`
}

// ManifestNode is one node. Inputs lists mandatory ports, Optional the rest.
type ManifestNode struct {
	ID       string         `yaml:"id" json:"id"`
	Kind     string         `yaml:"kind" json:"kind"`
	Tool     string         `yaml:"tool,omitempty" json:"tool,omitempty"`
	Inputs   []string       `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Optional []string       `yaml:"optional,omitempty" json:"optional,omitempty"`
	Outputs  []string       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Params   map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
	Bound    map[string]any `yaml:"bound,omitempty" json:"bound,omitempty"`
	WorkDir  string         `yaml:"work_dir" json:"work_dir"`
	CrashDir string         `yaml:"crash_dir" json:"crash_dir"`
	// Path is the derivative written by a sink.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ManifestEdge connects an output port to an input port.
type ManifestEdge struct {
	From     string `yaml:"from" json:"from"`
	FromPort string `yaml:"from_port" json:"from_port"`
	To       string `yaml:"to" json:"to"`
	ToPort   string `yaml:"to_port" json:"to_port"`
}

// BuildManifest flattens wf and orders its nodes topologically. Ties are
// broken by node id, so equal graphs give equal manifests.
func BuildManifest(wf *pipeline.Workflow) (Manifest, error) {
	flat := wf.Flatten()
	g, err := flat.Graph()
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to build dependency graph of %s: %w", wf.Name, err)
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to order %s: %w", wf.Name, err)
	}

	m := Manifest{Workflow: wf.Name, Nodes: make([]ManifestNode, 0, len(order))}
	for _, id := range order {
		n := flat.Node(id)
		if n == nil {
			return Manifest{}, fmt.Errorf("node %s is ordered but not part of %s", id, wf.Name)
		}
		mn := ManifestNode{
			ID:       id,
			Kind:     string(n.Kind),
			Tool:     n.Tool,
			Outputs:  n.Outputs,
			Params:   n.Params,
			WorkDir:  n.Exec.WorkDir,
			CrashDir: n.Exec.CrashDir,
			Path:     n.Path,
		}
		for _, p := range n.Inputs {
			if p.Optional {
				mn.Optional = append(mn.Optional, p.Name)
			} else {
				mn.Inputs = append(mn.Inputs, p.Name)
			}
		}
		if bound := n.BoundValues(); len(bound) > 0 {
			mn.Bound = bound
		}
		m.Nodes = append(m.Nodes, mn)
	}
	for _, e := range flat.Edges {
		m.Edges = append(m.Edges, ManifestEdge{From: e.From, FromPort: e.FromPort, To: e.To, ToPort: e.ToPort})
	}
	return m, nil
}

// WriteManifest writes m as YAML.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest of %s: %w", m.Workflow, err)
	}
	return enc.Close()
}

// ReadManifest decodes a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}
