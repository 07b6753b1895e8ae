package bids

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"
)

var (
	// ErrUnknownEntity is returned for a key outside the naming vocabulary.
	ErrUnknownEntity = errors.New("unknown naming entity")
	// ErrInvalidEntity is returned when a required entity is missing or a
	// value cannot be rendered unambiguously.
	ErrInvalidEntity = errors.New("invalid naming entity")
)

// Name composes seed and overrides and renders the canonical relative path
// of a derivative. Values in overrides always win. Empty values are omitted.
func Name(seed, overrides Entities) (string, error) {
	ents := seed.Merge(overrides)

	unknown := make([]string, 0)
	for k := range ents {
		if !IsKnown(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, strings.Join(unknown, ", "))
	}

	if ents[Subject] == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidEntity)
	}
	if ents[Suffix] == "" {
		return "", fmt.Errorf("%w: suffix is required", ErrInvalidEntity)
	}

	var fields []string
	for _, key := range filenameOrder {
		v := ents[key]
		if v == "" {
			continue
		}
		if strings.ContainsAny(v, "_-/. ") {
			return "", fmt.Errorf("%w: %s value %q must be alphanumeric", ErrInvalidEntity, key, v)
		}
		fields = append(fields, key+"-"+v)
	}
	if strings.ContainsAny(ents[Suffix], "_-/. ") {
		return "", fmt.Errorf("%w: suffix %q must be alphanumeric", ErrInvalidEntity, ents[Suffix])
	}
	ext := ents[Extension]
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	filename := strings.Join(append(fields, ents[Suffix]), "_") + ext

	dirs := []string{Subject + "-" + ents[Subject]}
	if ses := ents[Session]; ses != "" {
		dirs = append(dirs, Session+"-"+ses)
	}
	for _, key := range []string{Datatype, Subtype} {
		if v := ents[key]; v != "" {
			dirs = append(dirs, v)
		}
	}
	return path.Join(append(dirs, filename)...), nil
}

// NameFrom names a derivative of sourcePath. When derivedFrom is non-empty
// its atlas entities are applied between the source seed and the overrides.
func NameFrom(sourcePath, derivedFrom string, overrides Entities) (string, error) {
	seed := SourceEntities(sourcePath)
	if derivedFrom != "" {
		seed = seed.Merge(DeriveAtlasEntities(derivedFrom))
	}
	return Name(seed, overrides)
}

// Sanitize turns a free-form value such as an algorithm name into an entity
// value by dropping every non-alphanumeric rune ("SD_Stream" -> "SDStream").
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
