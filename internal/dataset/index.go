package dataset

import (
	"context"
	"slices"
	"sync"

	"github.com/specialistvlad/dwigrid/internal/bids"
)

// Query selects files of one subject. An empty Session matches files of
// any session, including session-less ones.
type Query struct {
	Subject  string
	Session  string
	Entities map[string]string
	Absent   []string
}

// Matches reports whether a file with the given entities satisfies q.
func (q Query) Matches(ents bids.Entities) bool {
	if ents[bids.Subject] != q.Subject {
		return false
	}
	if q.Session != "" && ents[bids.Session] != q.Session {
		return false
	}
	for k, v := range q.Entities {
		if ents[k] != v {
			return false
		}
	}
	for _, k := range q.Absent {
		if ents[k] != "" {
			return false
		}
	}
	return true
}

// Index answers entity queries over a scanned dataset.
type Index interface {
	// Get returns every matching path in lexicographic order.
	Get(ctx context.Context, q Query) ([]string, error)
	// Subjects returns every subject id in sorted order.
	Subjects(ctx context.Context) ([]string, error)
	// Sessions returns the sorted session ids of subject.
	Sessions(ctx context.Context, subject string) ([]string, error)
}

// MemoryIndex is an Index over an in-memory file list.
type MemoryIndex struct {
	mu    sync.RWMutex
	files []File
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an index over files.
func NewMemoryIndex(files []File) *MemoryIndex {
	return &MemoryIndex{files: slices.Clone(files)}
}

// Add appends files to the index.
func (m *MemoryIndex) Add(files ...File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, files...)
}

// Get implements Index.
func (m *MemoryIndex) Get(ctx context.Context, q Query) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, f := range m.files {
		if q.Matches(f.Entities) {
			out = append(out, f.Path)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Subjects implements Index.
func (m *MemoryIndex) Subjects(ctx context.Context) ([]string, error) {
	return m.distinct(ctx, func(f File) (string, bool) {
		return f.Entities[bids.Subject], true
	})
}

// Sessions implements Index.
func (m *MemoryIndex) Sessions(ctx context.Context, subject string) ([]string, error) {
	return m.distinct(ctx, func(f File) (string, bool) {
		return f.Entities[bids.Session], f.Entities[bids.Subject] == subject
	})
}

func (m *MemoryIndex) distinct(ctx context.Context, pick func(File) (string, bool)) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, f := range m.files {
		if v, ok := pick(f); ok && v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
