package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader and config.Saver.
type Loader struct {
	// environ is swapped in tests.
	environ func() []string
}

var (
	_ config.Loader = (*Loader)(nil)
	_ config.Saver  = (*Loader)(nil)
)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load parses the file at path and overlays it on config.Defaults. Unknown
// blocks or attributes are errors.
func (l *Loader) Load(ctx context.Context, path string) (config.RunConfig, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader: reading configuration.", "path", path)

	cfg := config.Defaults()
	if path == "" {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return config.RunConfig{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root configRoot
	diags = gohcl.DecodeBody(file.Body, l.evalContext(), &root)
	if diags.HasErrors() {
		return config.RunConfig{}, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	translateConfig(&cfg, &root)
	logger.Debug("HCL loader: configuration loaded.", "path", path)
	return cfg, nil
}

// Save writes cfg with every field populated, creating parent directories.
func (l *Loader) Save(ctx context.Context, path string, cfg config.RunConfig) error {
	logger := ctxlog.FromContext(ctx)

	f := hclwrite.NewEmptyFile()
	root := encodeConfig(cfg)
	body := f.Body()
	for i, section := range []struct {
		name string
		val  any
	}{
		{"execution", root.Execution},
		{"workflow", root.Workflow},
		{"engine", root.Engine},
		{"seeds", root.Seeds},
	} {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock(section.name, nil)
		gohcl.EncodeIntoBody(section.val, block.Body())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", path, err)
	}
	logger.Debug("HCL loader: configuration saved.", "path", path)
	return nil
}

// evalContext exposes the process environment as the "env" object, so a
// file can say input_dir = env.BIDS_DIR.
func (l *Loader) evalContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	environ := l.environ
	if environ == nil {
		environ = os.Environ
	}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of the .hcl files found. Missing paths are skipped.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
