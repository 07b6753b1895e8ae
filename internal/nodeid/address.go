package nodeid

import (
	"slices"
	"strings"
)

// Address is the structured representation of a qualified node identifier.
type Address struct {
	Path []string
}

// New builds an Address from already validated segments.
func New(segments ...string) *Address {
	return &Address{Path: slices.Clone(segments)}
}

// String serializes the Address into its canonical dotted form.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Path, ".")
}

// Equal checks two addresses segment by segment.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}

// Child returns a new address one level below a.
func (a *Address) Child(name string) *Address {
	if a == nil {
		return New(name)
	}
	return &Address{Path: append(slices.Clone(a.Path), name)}
}

// Join appends every segment of rel below a.
func (a *Address) Join(rel *Address) *Address {
	if rel == nil {
		return a
	}
	if a == nil {
		return New(rel.Path...)
	}
	return &Address{Path: append(slices.Clone(a.Path), rel.Path...)}
}

// Parent drops the last segment. The parent of a single-segment address is nil.
func (a *Address) Parent() *Address {
	if a == nil || len(a.Path) < 2 {
		return nil
	}
	return New(a.Path[:len(a.Path)-1]...)
}

// Last returns the final segment, the node's own name.
func (a *Address) Last() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[len(a.Path)-1]
}

// HasPrefix reports whether prefix names a workflow enclosing a.
func (a *Address) HasPrefix(prefix *Address) bool {
	if prefix == nil {
		return true
	}
	if a == nil || len(prefix.Path) > len(a.Path) {
		return false
	}
	return slices.Equal(a.Path[:len(prefix.Path)], prefix.Path)
}
