// Package pipeline is the graph model handed to the execution engine.
//
// A Workflow owns Nodes and child Workflows and the Edges between them.
// Every workflow exposes two identity nodes, inputnode and outputnode,
// through which its parent connects to it. Nodes are built by a Builder so
// the execution context (work and crash directory) is fixed at construction.
//
// Wiring mistakes do not abort construction. They are recorded and
// reported, together with unsatisfied or over-satisfied ports and cycles,
// by Workflow.Validate.
package pipeline
