// Package dag holds the plain dependency structure of an assembled pipeline:
// node ids and the edges between them. It knows nothing about ports or
// tools. The pipeline package flattens a workflow tree into a Graph to check
// it for cycles and to compute the deterministic order in which nodes are
// handed to the execution engine.
package dag
