package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrDanglingPort    = errors.New("dangling port")
	ErrPortConflict    = errors.New("port conflict")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrDuplicateNode   = errors.New("duplicate node")
	ErrCycle           = errors.New("cycle detected")
)

// GraphError is a structural defect of a workflow. Kind is one of the
// sentinel errors above.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func graphErrorf(kind error, format string, args ...any) error {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
