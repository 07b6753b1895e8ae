package bids

import (
	"maps"
	"slices"
)

// Entity keys. Filename entities use their short BIDS tag as the key.
const (
	Subject        = "sub"
	Session        = "ses"
	Task           = "task"
	Acquisition    = "acq"
	Direction      = "dir"
	Reconstruction = "rec"
	Run            = "run"
	Echo           = "echo"
	Software       = "software"
	Atlas          = "atlas"
	Density        = "den"
	Division       = "division"
	Resolution     = "res"
	Space          = "space"
	From           = "from"
	To             = "to"
	Mode           = "mode"
	Label          = "label"
	Measure        = "measure"
	Scale          = "scale"
	Weight         = "weight"
	Desc           = "desc"

	// Non-filename entities.
	Suffix    = "suffix"
	Extension = "extension"
	Datatype  = "datatype"
	Subtype   = "subtype"
)

// filenameOrder is the fixed vocabulary, in rendering order.
var filenameOrder = []string{
	Subject, Session, Task, Acquisition, Direction, Reconstruction, Run, Echo,
	Software, Atlas, Density, Division, Resolution, Space, From, To, Mode,
	Label, Measure, Scale, Weight, Desc,
}

var structural = []string{Suffix, Extension, Datatype, Subtype}

// identityKeys survive from a source file into a derivative seed.
var identityKeys = []string{Subject, Session, Task, Acquisition, Direction, Run, Echo, Datatype}

// atlasKeys are derived from an upstream atlas file rather than supplied.
var atlasKeys = []string{Atlas, Density, Division, Resolution}

// Entities maps an entity key to its value. An empty value means "unset"
// and is never rendered.
type Entities map[string]string

// IsKnown reports whether key belongs to the naming vocabulary.
func IsKnown(key string) bool {
	return slices.Contains(filenameOrder, key) || slices.Contains(structural, key)
}

// Clone returns an independent copy.
func (e Entities) Clone() Entities {
	if e == nil {
		return Entities{}
	}
	return maps.Clone(e)
}

// Merge returns a new set where every key present in overrides replaces the
// value in e, including overrides that clear a key with "".
func (e Entities) Merge(overrides Entities) Entities {
	out := e.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Only returns the subset of e restricted to keys.
func (e Entities) Only(keys ...string) Entities {
	out := Entities{}
	for _, k := range keys {
		if v, ok := e[k]; ok && v != "" {
			out[k] = v
		}
	}
	return out
}
