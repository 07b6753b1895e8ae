package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/driver"
	"github.com/specialistvlad/dwigrid/internal/engine"
	"github.com/specialistvlad/dwigrid/internal/sqliteindex"
)

// ErrSubjectsFailed is returned after the hand-off when some, but not all,
// subjects could not be assembled.
var ErrSubjectsFailed = errors.New("some subjects failed to assemble")

// Run resolves the run configuration, assembles the graph of every selected
// subject and hands the combined graph to the engine.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	reg, err := a.atlasRegistry(ctx)
	if err != nil {
		return err
	}

	cfg, err := config.Normalize(a.runConfig, reg)
	if err != nil {
		return err
	}
	a.logger.Info("Run configuration resolved.",
		"input_dir", cfg.Execution.InputDir,
		"output_dir", cfg.Execution.OutputDir,
		"run_uuid", cfg.Execution.RunUUID,
		"atlases", len(cfg.Workflow.Atlases),
	)

	descs, err := reg.Resolve(cfg.Workflow.Atlases)
	if err != nil {
		return err
	}
	if a.appConfig.ValidateAtlases {
		if err := reg.Validate(ctx, descs); err != nil {
			return err
		}
	}

	idx, closeIndex, err := openIndex(ctx, cfg.Execution)
	if err != nil {
		return err
	}
	defer closeIndex()

	combined, err := driver.RunAll(ctx, cfg, driver.Deps{
		Dataset: dataset.NewResolver(idx, cfg.Execution.InputDir),
		Atlases: descs,
		Saver:   a.store,
	})
	if err != nil {
		return fmt.Errorf("failed to assemble graphs: %w", err)
	}

	manifest, err := engine.BuildManifest(combined.Workflow)
	if err != nil {
		return fmt.Errorf("failed to build engine manifest: %w", err)
	}
	a.logger.Info("Graph assembled.", "subjects", len(combined.Subjects), "nodes", len(manifest.Nodes), "edges", len(manifest.Edges))

	for _, s := range a.submittersFor(cfg) {
		result, err := s.Submit(ctx, manifest)
		if err != nil {
			return fmt.Errorf("failed to submit graph: %w", err)
		}
		if err := result.Err(); err != nil {
			return err
		}
	}

	if len(combined.Failures) > 0 {
		failed := make([]string, 0, len(combined.Failures))
		for s := range combined.Failures {
			failed = append(failed, s)
		}
		sort.Strings(failed)
		return fmt.Errorf("%w: %v", ErrSubjectsFailed, failed)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// atlasRegistry returns the built-in catalog rooted at the atlas directory,
// extended with the user catalog when one is configured.
func (a *App) atlasRegistry(ctx context.Context) (*atlas.Registry, error) {
	ex := config.ApplyDefaults(a.runConfig).Execution
	reg := atlas.NewDefault(ex.AtlasDir)
	if ex.AtlasCatalog == "" {
		return reg, nil
	}

	catalog, err := a.store.LoadAtlasCatalog(ctx, ex.AtlasCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load atlas catalog: %w", err)
	}
	if err := catalog.RegisterInto(reg); err != nil {
		return nil, fmt.Errorf("failed to register atlas catalog: %w", err)
	}
	a.logger.Debug("Atlas catalog registered.", "path", ex.AtlasCatalog, "atlases", len(reg.IDs()))
	return reg, nil
}

// openIndex returns the persistent sqlite index when a database directory is
// configured and an in-memory index of a fresh scan otherwise.
func openIndex(ctx context.Context, ex config.Execution) (dataset.Index, func(), error) {
	logger := ctxlog.FromContext(ctx)

	if ex.DatabaseDir != "" {
		idx, err := sqliteindex.Build(ctx, ex.DatabaseDir, ex.InputDir, ex.ResetDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open dataset index: %w", err)
		}
		return idx, func() {
			if err := idx.Close(); err != nil {
				logger.Warn("Failed to close dataset index.", "error", err)
			}
		}, nil
	}

	files, err := dataset.Scan(ctx, ex.InputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index dataset: %w", err)
	}
	return dataset.NewMemoryIndex(files), func() {}, nil
}

func (a *App) submittersFor(cfg config.RunConfig) []engine.Submitter {
	if a.submitters != nil {
		return a.submitters
	}
	var out []engine.Submitter
	if cfg.Execution.WriteGraph {
		out = append(out, engine.NewFileSubmitter(cfg.Execution.WorkDir))
	}
	if cfg.Execution.EngineURL != "" {
		out = append(out, engine.NewSocketIOSubmitter(cfg.Execution.EngineURL))
	}
	if len(out) == 0 {
		a.logger.Warn("No engine hand-off configured, the graph is discarded.")
	}
	return out
}
