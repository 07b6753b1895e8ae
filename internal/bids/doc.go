// Package bids implements the derivative file naming convention: parsing
// naming entities out of existing file names and rendering a canonical
// relative output path from a seed entity set plus stage overrides.
//
// Every function here is pure. The same inputs always render the same path,
// which the execution engine relies on for content-addressed caching.
package bids
