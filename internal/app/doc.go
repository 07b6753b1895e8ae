// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle: resolve the run
// configuration, index the dataset, assemble every subject's graph and hand
// the result to the execution engine. It is decoupled from any specific
// entrypoint like a CLI.
package app
