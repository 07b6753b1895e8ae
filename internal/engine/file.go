package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/dwigrid/internal/ctxlog"
)

// GraphFileName is the manifest written into the work directory.
const GraphFileName = "graph.yaml"

// FileSubmitter writes the manifest into a directory for an engine that
// picks it up from disk.
type FileSubmitter struct {
	Dir string
}

var _ Submitter = (*FileSubmitter)(nil)

// NewFileSubmitter creates a FileSubmitter writing into dir.
func NewFileSubmitter(dir string) *FileSubmitter {
	return &FileSubmitter{Dir: dir}
}

// Submit writes <Dir>/graph.yaml. The result lists the written file.
func (s *FileSubmitter) Submit(ctx context.Context, m Manifest) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", s.Dir, err)
	}
	path := filepath.Join(s.Dir, GraphFileName)
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteManifest(f, m); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("Engine: graph written.", "path", path, "nodes", len(m.Nodes), "edges", len(m.Edges))
	return Result{Status: StatusSuccess, Artifacts: []string{path}}, nil
}
