package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
)

// Catalog is the set of atlases declared by one or more catalog files.
type Catalog struct {
	Atlases  []atlas.Descriptor
	Families []atlas.Family
}

// LoadAtlasCatalog reads every .hcl file found under paths. Relative file
// references resolve against the directory of the file declaring them, and
// a family without a root is rooted at that directory.
func (l *Loader) LoadAtlasCatalog(ctx context.Context, paths ...string) (Catalog, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return Catalog{}, err
	}
	logger.Debug("HCL loader: discovered atlas catalog files.", "count", len(files))

	var cat Catalog
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return Catalog{}, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root catalogRoot
		diags = gohcl.DecodeBody(hclFile.Body, l.evalContext(), &root)
		if diags.HasErrors() {
			return Catalog{}, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		dir := filepath.Dir(file)
		for _, a := range root.Atlases {
			cat.Atlases = append(cat.Atlases, atlas.Descriptor{
				ID:             a.ID,
				ReferenceImage: resolvePath(dir, a.ReferenceImage),
				RegionTable:    resolvePath(dir, a.RegionTable),
				LabelColumn:    a.LabelColumn,
				IndexColumn:    a.IndexColumn,
			})
		}
		for _, f := range root.Families {
			cat.Families = append(cat.Families, atlas.Family{
				Name:        f.Name,
				Root:        resolvePath(dir, f.Root),
				Densities:   f.Densities,
				Networks:    f.Networks,
				LabelColumn: f.LabelColumn,
				IndexColumn: f.IndexColumn,
			})
		}
	}

	logger.Debug("HCL loader: atlas catalog loaded.", "atlases", len(cat.Atlases), "families", len(cat.Families))
	return cat, nil
}

// RegisterInto adds every catalog entry to reg. Ids clashing with an already
// registered atlas are rejected.
func (c Catalog) RegisterInto(reg *atlas.Registry) error {
	for _, d := range c.Atlases {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	for _, f := range c.Families {
		if err := reg.RegisterFamily(f); err != nil {
			return err
		}
	}
	return nil
}

func resolvePath(dir, p string) string {
	if p == "" {
		return dir
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
