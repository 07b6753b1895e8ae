package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrToolFailure is reported when the engine ran the graph and at least one
// node failed.
var ErrToolFailure = errors.New("tool failure")

// Status is the overall outcome of a submission.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is what the engine reports back.
type Result struct {
	Status      Status   `json:"status" yaml:"status"`
	FailedNodes []string `json:"failed_nodes,omitempty" yaml:"failed_nodes,omitempty"`
	Artifacts   []string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// Err returns an ErrToolFailure naming the failed nodes, or nil.
func (r Result) Err() error {
	if r.Status != StatusFailure {
		return nil
	}
	if len(r.FailedNodes) == 0 {
		return ErrToolFailure
	}
	return fmt.Errorf("%w: %s", ErrToolFailure, strings.Join(r.FailedNodes, ", "))
}

// Submitter delivers a manifest to an execution engine.
type Submitter interface {
	Submit(ctx context.Context, m Manifest) (Result, error)
}
