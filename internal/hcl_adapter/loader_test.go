package hcl_adapter

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		environ []string
		check   func(t *testing.T, cfg config.RunConfig)
		wantErr string
	}{
		{
			name:    "empty file keeps defaults",
			content: ``,
			check: func(t *testing.T, cfg config.RunConfig) {
				assert.Empty(t, cmp.Diff(config.Defaults(), cfg))
			},
		},
		{
			name: "attributes overlay defaults",
			content: `
execution {
  input_dir         = "/data/bids"
  participant_label = ["02", "01"]
}

workflow {
  atlases         = ["fan2016"]
  tensor_max_bval = 0
  do_sift         = false
}

seeds {
  master = 7
}
`,
			check: func(t *testing.T, cfg config.RunConfig) {
				assert.Equal(t, "/data/bids", cfg.Execution.InputDir)
				assert.Equal(t, []string{"02", "01"}, cfg.Execution.ParticipantLabel)
				assert.Equal(t, []string{"fan2016"}, cfg.Workflow.Atlases)
				assert.Nil(t, cfg.Workflow.MaxBval())
				assert.False(t, cfg.Workflow.DoSift)
				assert.Equal(t, 7, cfg.Seeds.Master)
				// Untouched attributes keep their defaults.
				assert.Equal(t, "iFOD2", cfg.Workflow.ProbTrackingAlgorithm)
				assert.Equal(t, "work", cfg.Execution.WorkDir)
			},
		},
		{
			name: "environment is available as env",
			content: `
execution {
  input_dir = env.BIDS_DIR
}
`,
			environ: []string{"BIDS_DIR=/mnt/bids", "MALFORMED"},
			check: func(t *testing.T, cfg config.RunConfig) {
				assert.Equal(t, "/mnt/bids", cfg.Execution.InputDir)
			},
		},
		{
			name: "unknown attribute is rejected",
			content: `
workflow {
  n_streamlines = 5
}
`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "unknown block is rejected",
			content: `plugins {}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name: "wrong type is rejected",
			content: `
engine {
  nprocs = "many"
}
`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "syntax error",
			content: `execution {`,
			wantErr: "failed to parse HCL file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.NewContext(t)
			path := filepath.Join(t.TempDir(), "dwigrid.hcl")
			testutil.WriteFile(t, path, tc.content)

			l := NewLoader()
			l.environ = func() []string { return tc.environ }

			cfg, err := l.Load(ctx, path)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	ctx, _ := testutil.NewContext(t)

	cfg, err := NewLoader().Load(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(config.Defaults(), cfg))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *config.RunConfig)
	}{
		{name: "defaults", mutate: func(c *config.RunConfig) {}},
		{
			name: "normalized run",
			mutate: func(c *config.RunConfig) {
				c.Execution.InputDir = "/data/bids"
				c.Execution.OutputDir = "/data/derivatives/dwigrid"
				c.Execution.ParticipantLabel = []string{"01", "02"}
				c.Execution.RunUUID = "20240301-123005_00000000-0000-4000-8000-000000000000"
				c.Execution.Debug = []string{"graph"}
				c.Workflow.Atlases = []string{"fan2016", "schaefer2018_100_7"}
				c.Workflow.TensorMaxBval = 0
				c.Workflow.GMProbsegThreshold = 0.0001
				c.Workflow.NTracts = 0
				c.Workflow.SiftTermRatio = 0.1
				c.Engine.MemoryGB = 15.5
				c.Seeds = config.Seeds{Master: 42, ANTs: 1234567, NumPy: 89}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.NewContext(t)
			path := filepath.Join(t.TempDir(), "nested", "dwigrid.hcl")

			want := config.Defaults()
			tc.mutate(&want)

			l := NewLoader()
			require.NoError(t, l.Save(ctx, path, want))

			got, err := l.Load(ctx, path)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(want, got))
		})
	}
}
