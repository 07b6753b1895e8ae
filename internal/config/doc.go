// Package config defines the format-agnostic run configuration.
//
// A RunConfig is built once per run from Defaults, overlaid by a
// configuration file (see the hcl_adapter package) and command-line
// overrides, then normalized. After Normalize it is treated as read-only and
// passed explicitly to every component; nothing reads it from global state.
package config
