package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/engine"
	"github.com/specialistvlad/dwigrid/internal/hcl_adapter"
)

// ConfigStore reads and writes the run configuration and the atlas catalog.
// hcl_adapter.Loader is the production implementation.
type ConfigStore interface {
	config.Loader
	config.Saver
	LoadAtlasCatalog(ctx context.Context, paths ...string) (hcl_adapter.Catalog, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	appConfig *Config
	runConfig config.RunConfig
	store     ConfigStore

	// submitters overrides the engine hand-off derived from the run
	// configuration. Tests use it.
	submitters []engine.Submitter
}

// NewApp is the constructor for the main application. It loads the run
// configuration file and overlays the CLI values on it. A configuration
// file that cannot be loaded is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, store ConfigStore) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	fromFile, err := store.Load(ctx, appConfig.ConfigFile)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Run configuration loaded.", "path", appConfig.ConfigFile)

	return &App{
		outW:      outW,
		logger:    logger,
		appConfig: appConfig,
		runConfig: appConfig.Apply(fromFile),
		store:     store,
	}
}

// RunConfig returns the configuration the app will run with, before derived
// defaults are applied. This is primarily for testing.
func (a *App) RunConfig() config.RunConfig {
	return a.runConfig.Clone()
}
