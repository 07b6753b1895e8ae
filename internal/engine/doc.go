// Package engine hands an assembled graph to the execution engine. The graph
// is serialized as a manifest: every node in topological order with its
// ports, parameters, bound values, execution context and sink path, plus
// every edge. A Submitter delivers the manifest either as a file in the work
// directory or over a socket.io connection to a running engine.
package engine
