package pipeline

import (
	"slices"
	"strings"
)

// Axis is one dimension of a fan-out.
type Axis struct {
	Name   string
	Values []string
}

// Coordinate is the value taken on one axis.
type Coordinate struct {
	Axis  string
	Value string
}

// Tuple is one instance of a fan-out, one coordinate per axis.
type Tuple []Coordinate

// Product enumerates the cartesian product of axes. Values are sorted per
// axis and the enumeration is lexicographic in axis order, so the same axes
// always yield the same tuples in the same order.
func Product(axes ...Axis) []Tuple {
	out := []Tuple{{}}
	for _, a := range axes {
		values := slices.Clone(a.Values)
		slices.Sort(values)
		values = slices.Compact(values)

		next := make([]Tuple, 0, len(out)*len(values))
		for _, t := range out {
			for _, v := range values {
				nt := append(slices.Clone(t), Coordinate{Axis: a.Name, Value: v})
				next = append(next, nt)
			}
		}
		out = next
	}
	return out
}

// Value returns the coordinate on axis, or "".
func (t Tuple) Value(axis string) string {
	for _, c := range t {
		if c.Axis == axis {
			return c.Value
		}
	}
	return ""
}

// Suffix renders the tuple as "<axis>-<value>" pairs joined by "_".
func (t Tuple) Suffix() string {
	parts := make([]string, len(t))
	for i, c := range t {
		parts[i] = c.Axis + "-" + c.Value
	}
	return strings.Join(parts, "_")
}

// Name derives the instance name of base for this tuple.
func (t Tuple) Name(base string) string {
	if len(t) == 0 {
		return base
	}
	return base + "_" + t.Suffix()
}
