package atlas

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/specialistvlad/dwigrid/internal/ctxlog"
)

// All is the sentinel that expands to every registered atlas.
const All = "all"

// Descriptor describes one atlas. It is immutable once registered.
type Descriptor struct {
	ID             string
	ReferenceImage string
	RegionTable    string
	LabelColumn    string
	// IndexColumn is the table column holding the region index, if any.
	IndexColumn *int
}

// Registry is a concurrency-safe catalog of descriptors keyed by id.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Descriptor)}
}

// Register adds a single descriptor.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" || d.ID == All {
		return fmt.Errorf("invalid atlas id %q", d.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAtlas, d.ID)
	}
	r.byID[d.ID] = d
	return nil
}

// RegisterFamily expands a family into descriptors and registers each one.
func (r *Registry) RegisterFamily(f Family) error {
	descs, err := f.Expand()
	if err != nil {
		return err
	}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get looks up a single descriptor.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Resolve turns an atlas selection into descriptors, sorted by id and free of
// duplicates. An empty selection or one containing All expands to every
// registered atlas. Resolving the output ids again yields the same list.
func (r *Registry) Resolve(ids []string) ([]Descriptor, error) {
	if len(ids) == 0 || slices.Contains(ids, All) {
		ids = r.IDs()
	}

	wanted := slices.Clone(ids)
	sort.Strings(wanted)
	wanted = slices.Compact(wanted)

	out := make([]Descriptor, 0, len(wanted))
	for _, id := range wanted {
		d, ok := r.Get(id)
		if !ok {
			return nil, &UnknownAtlasError{ID: id, Valid: r.IDs()}
		}
		out = append(out, d)
	}
	return out, nil
}

// Validate checks that the files of every descriptor exist on disk.
func (r *Registry) Validate(ctx context.Context, descs []Descriptor) error {
	logger := ctxlog.FromContext(ctx)
	for _, d := range descs {
		for _, path := range []string{d.ReferenceImage, d.RegionTable} {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("%w: atlas %s: %s: %w", ErrAtlasFileMissing, d.ID, path, err)
			}
		}
	}
	logger.Debug("Atlas files validated.", "count", len(descs))
	return nil
}
