package config

import (
	"testing"
	"time"

	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *testing.T) {
	t.Helper()
	origNow, origUUID, origSeed := now, newUUID, newSeed
	now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC) }
	newUUID = func() string { return "00000000-0000-4000-8000-000000000000" }
	newSeed = func() int { return 42 }
	t.Cleanup(func() { now, newUUID, newSeed = origNow, origUUID, origSeed })
}

func baseConfig() RunConfig {
	cfg := Defaults()
	cfg.Execution.InputDir = "/data/keprep"
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	fixedClock(t)

	cfg := ApplyDefaults(baseConfig())
	assert.Equal(t, "/data/dwigrid", cfg.Execution.OutputDir)
	assert.Equal(t, "/data/freesurfer", cfg.Execution.FSSubjectsDir)
	assert.Equal(t, "/data/atlases", cfg.Execution.AtlasDir)
	assert.Equal(t, "/data/dwigrid/logs", cfg.Execution.LogDir)
	assert.Equal(t, "20240301-123005_00000000-0000-4000-8000-000000000000", cfg.Execution.RunUUID)
	assert.Equal(t, 42, cfg.Seeds.Master)
	assert.NotZero(t, cfg.Seeds.ANTs)
	assert.NotZero(t, cfg.Seeds.NumPy)

	t.Run("output dir gets the pipeline name appended", func(t *testing.T) {
		in := baseConfig()
		in.Execution.OutputDir = "/results"
		assert.Equal(t, "/results/dwigrid", ApplyDefaults(in).Execution.OutputDir)

		in.Execution.OutputDir = "/results/dwigrid"
		assert.Equal(t, "/results/dwigrid", ApplyDefaults(in).Execution.OutputDir)
	})

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, cfg, ApplyDefaults(cfg))
	})

	t.Run("does not alias the input", func(t *testing.T) {
		in := baseConfig()
		in.Execution.ParticipantLabel = []string{"02", "01", "02"}
		out := ApplyDefaults(in)
		assert.Equal(t, []string{"01", "02"}, out.Execution.ParticipantLabel)
		assert.Equal(t, []string{"02", "01", "02"}, in.Execution.ParticipantLabel)
	})
}

func TestNormalize_Atlases(t *testing.T) {
	fixedClock(t)
	reg := atlas.NewDefault("/atlases")

	t.Run("sentinel expands once", func(t *testing.T) {
		cfg, err := Normalize(baseConfig(), reg)
		require.NoError(t, err)
		assert.Equal(t, reg.IDs(), cfg.Workflow.Atlases)
		require.NoError(t, cfg.Validate())

		again, err := Normalize(cfg, reg)
		require.NoError(t, err)
		assert.Equal(t, cfg, again)
	})

	t.Run("unknown atlas is an invalid config", func(t *testing.T) {
		in := baseConfig()
		in.Workflow.Atlases = []string{"aal"}
		_, err := Normalize(in, reg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.ErrorIs(t, err, atlas.ErrUnknownAtlas)
	})

	t.Run("unresolved config fails validation", func(t *testing.T) {
		assert.ErrorIs(t, ApplyDefaults(baseConfig()).Validate(), ErrInvalidConfig)
	})
}

func TestNormalize_SiftTargets(t *testing.T) {
	fixedClock(t)
	reg := atlas.NewDefault("/atlases")

	testCases := []struct {
		name      string
		nTracts   int
		ratio     float64
		doSift    bool
		expectErr bool
	}{
		{name: "count only", nTracts: 20000, doSift: true},
		{name: "ratio only", ratio: 0.1, doSift: true},
		{name: "neither", doSift: true, expectErr: true},
		{name: "both", nTracts: 20000, ratio: 0.1, doSift: true, expectErr: true},
		{name: "neither without sift", doSift: false},
		{name: "ratio above one", ratio: 1.5, doSift: true, expectErr: true},
		{name: "count above raw tracts", nTracts: 300000, doSift: true, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseConfig()
			in.Workflow.DoSift = tc.doSift
			in.Workflow.NTracts = tc.nTracts
			in.Workflow.SiftTermRatio = tc.ratio

			_, err := Normalize(in, reg)
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalize_Validation(t *testing.T) {
	fixedClock(t)
	reg := atlas.NewDefault("/atlases")

	testCases := []struct {
		name     string
		mutate   func(*RunConfig)
		contains string
	}{
		{"missing input dir", func(c *RunConfig) { c.Execution.InputDir = "" }, "input_dir"},
		{"bad 5tt algorithm", func(c *RunConfig) { c.Workflow.FiveTissueTypeAlgorithm = "freesurfer" }, "five_tissue_type_algorithm"},
		{"bad threshold", func(c *RunConfig) { c.Workflow.GMProbsegThreshold = 1.5 }, "gm_probseg_threshold"},
		{"bad tracking length", func(c *RunConfig) { c.Workflow.TrackingLenscaleMin = 600 }, "tracking_lenscale_min"},
		{"bad plugin", func(c *RunConfig) { c.Engine.Plugin = "SLURM" }, "engine.plugin"},
		{"bad log level", func(c *RunConfig) { c.Execution.LogLevel = "trace" }, "log_level"},
		{"bad prob algorithm", func(c *RunConfig) { c.Workflow.ProbTrackingAlgorithm = "SD_Stream" }, "prob_tracking_algorithm"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseConfig()
			tc.mutate(&in)
			_, err := Normalize(in, reg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tc.contains)
		})
	}

	t.Run("tracking limits are ignored without tractography", func(t *testing.T) {
		in := baseConfig()
		in.Workflow.DoTractography = false
		in.Workflow.TrackingLenscaleMin = 600
		_, err := Normalize(in, reg)
		assert.NoError(t, err)
	})
}

func TestWorkflowHelpers(t *testing.T) {
	wf := Defaults().Workflow
	assert.Equal(t, []string{"SD_Stream", "iFOD2"}, wf.TrackingAlgorithms())
	require.NotNil(t, wf.MaxBval())
	assert.Equal(t, 1000.0, *wf.MaxBval())

	wf.TensorMaxBval = 0
	assert.Nil(t, wf.MaxBval())

	ex := Execution{Debug: []string{"sift"}}
	assert.True(t, ex.DebugEnabled("sift"))
	assert.False(t, ex.DebugEnabled("graph"))
}
