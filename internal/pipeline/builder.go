package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/dwigrid/internal/bids"
)

// Builder constructs nodes and workflows that share one execution context
// and one derivatives root.
type Builder struct {
	exec      ExecContext
	outputDir string
}

// NewBuilder creates a builder. Sink paths are rooted at outputDir.
func NewBuilder(exec ExecContext, outputDir string) *Builder {
	return &Builder{exec: exec, outputDir: outputDir}
}

// Exec returns the execution context injected into every node.
func (b *Builder) Exec() ExecContext { return b.exec }

// Function creates a node running an in-process helper.
func (b *Builder) Function(name, fn string, inputs []Port, outputs ...string) *Node {
	return b.node(name, KindFunction, fn, inputs, outputs, nil)
}

// Tool creates a node running an external tool with fixed parameters.
func (b *Builder) Tool(name, tool string, inputs []Port, outputs []string, params map[string]any) *Node {
	return b.node(name, KindTool, tool, inputs, outputs, params)
}

// Identity creates a node forwarding every field unchanged.
func (b *Builder) Identity(name string, fields ...string) *Node {
	return b.node(name, KindIdentity, "", Ports(fields...), fields, nil)
}

// Sink creates a derivative sink. Its path is rendered from seed and
// overrides under the builder's output directory.
func (b *Builder) Sink(name string, seed, overrides bids.Entities) (*Node, error) {
	ents := seed.Merge(overrides)
	rel, err := bids.Name(ents, nil)
	if err != nil {
		return nil, fmt.Errorf("sink %s: %w", name, err)
	}
	n := b.node(name, KindSink, "DerivativesDataSink", Ports("in_file"), []string{"out_file"}, nil)
	n.Entities = ents
	n.Path = filepath.Join(b.outputDir, filepath.FromSlash(rel))
	return n, nil
}

// Workflow creates an empty workflow exposing the given input and output
// fields through its inputnode and outputnode.
func (b *Builder) Workflow(name string, inputs, outputs []string) *Workflow {
	w := &Workflow{
		Name:     name,
		Exec:     b.exec,
		nodes:    make(map[string]*Node),
		children: make(map[string]*Workflow),
	}
	w.Add(b.Identity(InputNode, inputs...), b.Identity(OutputNode, outputs...))
	return w
}

func (b *Builder) node(name string, kind Kind, tool string, inputs []Port, outputs []string, params map[string]any) *Node {
	return &Node{
		Name:    name,
		Kind:    kind,
		Tool:    tool,
		Inputs:  slices.Clone(inputs),
		Outputs: slices.Clone(outputs),
		Params:  params,
		Exec:    b.exec,
	}
}
