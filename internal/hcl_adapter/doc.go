// Package hcl_adapter implements configuration persistence in HCL: the run
// configuration file (one block per section) and the user atlas catalog.
//
// Decoding goes through gohcl into pointer-typed structs so that an absent
// attribute keeps its default, and encoding goes back through gohcl into an
// hclwrite file so a saved configuration loads into an identical RunConfig.
package hcl_adapter
