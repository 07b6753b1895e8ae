package app

import (
	"errors"
	"slices"

	"github.com/specialistvlad/dwigrid/internal/config"
)

var (
	logFormats = []string{"json", "text"}
	logLevels  = []string{"debug", "error", "info", "warn"}
)

// Config holds all the necessary configuration for an App instance to run.
// Empty strings, nil slices and nil pointers leave the value from the run
// configuration file untouched.
type Config struct {
	ConfigFile string // run configuration, .hcl

	InputDir     string
	OutputDir    string
	WorkDir      string
	DatabaseDir  string
	AtlasDir     string
	AtlasCatalog string
	EngineURL    string

	ParticipantLabel []string
	Atlases          []string

	AnatOnly           *bool
	DoTractography     *bool
	DoSift             *bool
	ResetDatabase      *bool
	WriteGraph         *bool
	StopOnFirstFailure *bool

	// ValidateAtlases checks that every selected atlas file exists before
	// anything is assembled.
	ValidateAtlases bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.InputDir == "" && cfg.ConfigFile == "" {
		return nil, errors.New("either an input directory or a configuration file is required")
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, errors.New("LogFormat must be 'text' or 'json'")
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, errors.New("LogLevel must be 'debug', 'info', 'warn', or 'error'")
	}
	return &cfg, nil
}

// Apply overlays the values set on c onto rc.
func (c *Config) Apply(rc config.RunConfig) config.RunConfig {
	out := rc.Clone()
	ex, wf := &out.Execution, &out.Workflow

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setString(&ex.InputDir, c.InputDir)
	setString(&ex.OutputDir, c.OutputDir)
	setString(&ex.WorkDir, c.WorkDir)
	setString(&ex.DatabaseDir, c.DatabaseDir)
	setString(&ex.AtlasDir, c.AtlasDir)
	setString(&ex.AtlasCatalog, c.AtlasCatalog)
	setString(&ex.EngineURL, c.EngineURL)
	setString(&ex.LogLevel, c.LogLevel)

	if c.ParticipantLabel != nil {
		ex.ParticipantLabel = slices.Clone(c.ParticipantLabel)
	}
	if c.Atlases != nil {
		wf.Atlases = slices.Clone(c.Atlases)
	}

	setBool(&wf.AnatOnly, c.AnatOnly)
	setBool(&wf.DoTractography, c.DoTractography)
	setBool(&wf.DoSift, c.DoSift)
	setBool(&ex.ResetDatabase, c.ResetDatabase)
	setBool(&ex.WriteGraph, c.WriteGraph)
	setBool(&ex.StopOnFirstFailure, c.StopOnFirstFailure)
	return out
}
