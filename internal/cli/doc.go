// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into app.Config, marking which values override the
// run configuration file.
package cli
