package atlas

import (
	"fmt"
	"path/filepath"
)

const (
	templateSpace = "MNI152"
	defaultRes    = "1mm"
)

// Family is an atlas published at several granularities. Every combination
// of density and network count becomes one descriptor with id
// <name>_<density>_<networks>. A family with no densities is a single atlas.
type Family struct {
	Name        string
	Root        string
	Densities   []int
	Networks    []int
	LabelColumn string
	IndexColumn *int
}

// Expand returns the family's descriptors in deterministic order.
func (f Family) Expand() ([]Descriptor, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("atlas family requires a name")
	}
	dir := filepath.Join(f.Root, f.Name, templateSpace)
	if len(f.Densities) == 0 {
		stem := fmt.Sprintf("space-%s_atlas-%s_res-%s_dseg", templateSpace, f.Name, defaultRes)
		return []Descriptor{f.descriptor(f.Name, dir, stem)}, nil
	}
	if len(f.Networks) == 0 {
		return nil, fmt.Errorf("atlas family %s lists densities but no network counts", f.Name)
	}

	var out []Descriptor
	for _, den := range f.Densities {
		for _, nets := range f.Networks {
			id := fmt.Sprintf("%s_%d_%d", f.Name, den, nets)
			stem := fmt.Sprintf("space-%s_atlas-%s_res-%s_den-%d_desc-%dnetworks_dseg", templateSpace, f.Name, defaultRes, den, nets)
			out = append(out, f.descriptor(id, dir, stem))
		}
	}
	return out, nil
}

func (f Family) descriptor(id, dir, stem string) Descriptor {
	return Descriptor{
		ID:             id,
		ReferenceImage: filepath.Join(dir, stem+".nii.gz"),
		RegionTable:    filepath.Join(dir, stem+".csv"),
		LabelColumn:    f.LabelColumn,
		IndexColumn:    f.IndexColumn,
	}
}

func intPtr(i int) *int { return &i }

// BuiltinFamilies is the catalog shipped with the pipeline, rooted at root.
func BuiltinFamilies(root string) []Family {
	densities := make([]int, 0, 10)
	for d := 100; d <= 1000; d += 100 {
		densities = append(densities, d)
	}
	return []Family{
		{Name: "fan2016", Root: root, LabelColumn: "Label"},
		{Name: "huang2022", Root: root, LabelColumn: "HCPex_label", IndexColumn: intPtr(0)},
		{Name: "schaefer2018", Root: root, Densities: densities, Networks: []int{7, 17}, LabelColumn: "index", IndexColumn: intPtr(0)},
	}
}

// NewDefault returns a registry holding the built-in catalog.
func NewDefault(root string) *Registry {
	r := New()
	for _, f := range BuiltinFamilies(root) {
		if err := r.RegisterFamily(f); err != nil {
			// The built-in catalog has unique, non-empty ids.
			panic(err)
		}
	}
	return r
}
