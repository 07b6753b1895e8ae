package config

import "context"

// Loader reads a configuration file and overlays it on Defaults.
type Loader interface {
	Load(ctx context.Context, path string) (RunConfig, error)
}

// Saver writes a configuration so that loading it again yields the same
// RunConfig.
type Saver interface {
	Save(ctx context.Context, path string, cfg RunConfig) error
}
