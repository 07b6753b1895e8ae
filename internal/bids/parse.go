package bids

import (
	"path/filepath"
	"strings"
)

var datatypes = map[string]bool{"anat": true, "dwi": true, "func": true, "fmap": true, "perf": true}

// SplitExt splits a base name at its first dot, so "x_dwi.nii.gz" yields
// ("x_dwi", ".nii.gz").
func SplitExt(base string) (stem, ext string) {
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i], base[i:]
	}
	return base, ""
}

// ParseEntities extracts the naming entities of a file path. Key/value pairs
// outside the vocabulary are ignored. The datatype is taken from the parent
// directory when it names one.
func ParseEntities(path string) Entities {
	ents := Entities{}

	base := filepath.Base(path)
	stem, ext := SplitExt(base)
	if ext != "" {
		ents[Extension] = ext
	}

	parts := strings.Split(stem, "_")
	for i, part := range parts {
		key, value, ok := strings.Cut(part, "-")
		if !ok {
			if i == len(parts)-1 && part != "" {
				ents[Suffix] = part
			}
			continue
		}
		if value == "" || !IsKnown(key) || key == Suffix || key == Extension {
			continue
		}
		ents[key] = value
	}

	if dir := filepath.Base(filepath.Dir(path)); datatypes[dir] {
		ents[Datatype] = dir
	}
	return ents
}

// SourceEntities returns the entities of path that identify the acquisition
// it came from. This is the seed of every derivative computed from it.
func SourceEntities(path string) Entities {
	return ParseEntities(path).Only(identityKeys...)
}

// DeriveAtlasEntities parses the atlas-identifying entities out of an
// atlas-derived file, so downstream consumers need not know which atlas
// produced their input.
func DeriveAtlasEntities(path string) Entities {
	return ParseEntities(path).Only(atlasKeys...)
}

// AtlasReferenceEntities reads the atlas entities of a reference atlas image
// in template space. Its desc entity carries the network division.
func AtlasReferenceEntities(path string) Entities {
	parsed := ParseEntities(path)
	ents := parsed.Only(Atlas, Density, Resolution)
	if d := parsed[Desc]; d != "" {
		ents[Division] = d
	}
	return ents
}

// GetEntity returns the value of a single entity of path.
func GetEntity(path, key string) string {
	return ParseEntities(path)[key]
}
