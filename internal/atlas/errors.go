package atlas

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownAtlas is matched by every *UnknownAtlasError.
	ErrUnknownAtlas = errors.New("unknown atlas")
	// ErrDuplicateAtlas is returned when an id is registered twice.
	ErrDuplicateAtlas = errors.New("duplicate atlas id")
	// ErrAtlasFileMissing is returned when a descriptor's files are absent on disk.
	ErrAtlasFileMissing = errors.New("atlas file missing")
)

// UnknownAtlasError names the requested id that is not registered.
type UnknownAtlasError struct {
	ID    string
	Valid []string
}

func (e *UnknownAtlasError) Error() string {
	return fmt.Sprintf("unknown atlas %q (valid atlases: %s)", e.ID, strings.Join(e.Valid, ", "))
}

// Unwrap allows errors.Is(err, ErrUnknownAtlas).
func (e *UnknownAtlasError) Unwrap() error {
	return ErrUnknownAtlas
}
