package assembler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
	"github.com/specialistvlad/dwigrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAtlases() []atlas.Descriptor {
	index := 0
	return []atlas.Descriptor{
		{
			ID:             "fan2016",
			ReferenceImage: "/atlases/fan2016/MNI152/space-MNI152_atlas-fan2016_res-1mm_dseg.nii.gz",
			RegionTable:    "/atlases/fan2016/MNI152/space-MNI152_atlas-fan2016_res-1mm_dseg.csv",
			LabelColumn:    "Label",
		},
		{
			ID:             "schaefer2018_100_7",
			ReferenceImage: "/atlases/schaefer2018/MNI152/space-MNI152_atlas-schaefer2018_res-1mm_den-100_desc-7networks_dseg.nii.gz",
			RegionTable:    "/atlases/schaefer2018/MNI152/space-MNI152_atlas-schaefer2018_res-1mm_den-100_desc-7networks_dseg.csv",
			LabelColumn:    "index",
			IndexColumn:    &index,
		},
	}
}

type fixture struct {
	ctx  context.Context
	asm  *Assembler
	cfg  config.RunConfig
	root string
}

func newFixture(t *testing.T, subjects ...testutil.SubjectFixture) fixture {
	t.Helper()
	ctx, _ := testutil.NewContext(t)

	root := testutil.WriteDataset(t, t.TempDir(), subjects...)
	files, err := dataset.Scan(ctx, root)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Execution.InputDir = root
	cfg.Execution.OutputDir = filepath.Join(t.TempDir(), "dwigrid")
	cfg.Execution.RunUUID = "run1"
	cfg.Workflow.Atlases = []string{"fan2016", "schaefer2018_100_7"}

	return fixture{
		ctx:  ctx,
		asm:  New(dataset.NewResolver(dataset.NewMemoryIndex(files), root)),
		cfg:  cfg,
		root: root,
	}
}

func (f fixture) assemble(t *testing.T, cfg config.RunConfig, atlases []atlas.Descriptor) *pipeline.Flat {
	t.Helper()
	wf, err := f.asm.Assemble(f.ctx, "01", cfg, atlases)
	require.NoError(t, err)
	require.Equal(t, "single_subject_01_wf", wf.Name)
	return wf.Flatten()
}

func oneSession() testutil.SubjectFixture {
	return testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}}
}

func nodeIDs(flat *pipeline.Flat) []string {
	ids := make([]string, len(flat.Nodes))
	for i, n := range flat.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func sinkPaths(flat *pipeline.Flat) map[string]string {
	paths := make(map[string]string)
	for _, n := range flat.Nodes {
		if n.Node.Kind == pipeline.KindSink {
			paths[n.ID] = n.Node.Path
		}
	}
	return paths
}

func countMatching(flat *pipeline.Flat, match func(id string) bool) int {
	count := 0
	for _, n := range flat.Nodes {
		if match(n.ID) {
			count++
		}
	}
	return count
}

func TestAssemble_WiringIsComplete(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *config.RunConfig)
		atlases bool
	}{
		{name: "defaults", atlases: true},
		{name: "no atlases", mutate: func(cfg *config.RunConfig) { cfg.Workflow.Atlases = nil }},
		{name: "anat only", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.AnatOnly = true }},
		{name: "no tractography", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.DoTractography = false }},
		{name: "no sift", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.DoSift = false }},
		{name: "sift ratio with debug output", atlases: true, mutate: func(cfg *config.RunConfig) {
			cfg.Workflow.NTracts = 0
			cfg.Workflow.SiftTermRatio = 0.1
			cfg.Workflow.DebugSift = true
		}},
		{name: "fsl segmentation and single-tissue fod", atlases: true, mutate: func(cfg *config.RunConfig) {
			cfg.Workflow.FiveTissueTypeAlgorithm = "fsl"
			cfg.Workflow.ResponseAlgorithm = "tournier"
			cfg.Workflow.FODAlgorithm = "csd"
		}},
		{name: "msmt_5tt response", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.ResponseAlgorithm = "msmt_5tt" }},
		{name: "restore with estimated sigma", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.DipyReconstructionMethod = "restore" }},
		{name: "RT with fixed sigma", atlases: true, mutate: func(cfg *config.RunConfig) {
			cfg.Workflow.DipyReconstructionMethod = "RT"
			cfg.Workflow.DipyReconstructionSigma = 12.5
		}},
		{name: "observed max bval", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.TensorMaxBval = 0 }},
		{name: "whole-brain parcellation", atlases: true, mutate: func(cfg *config.RunConfig) { cfg.Workflow.ParcellateGM = false }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, testutil.SubjectFixture{ID: "01", Sessions: []string{"1", "2"}})
			cfg := f.cfg.Clone()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			var atlases []atlas.Descriptor
			if tc.atlases {
				atlases = testAtlases()
			}

			wf, err := f.asm.Assemble(f.ctx, "01", cfg, atlases)
			require.NoError(t, err)
			require.NoError(t, wf.Validate())
			assert.NotEmpty(t, wf.Flatten().Nodes)
		})
	}
}

func TestAssemble_Connectomes(t *testing.T) {
	f := newFixture(t, oneSession())
	flat := f.assemble(t, f.cfg, testAtlases())

	isConnectome := func(id string) bool { return strings.Contains(id, ".ds_connectome_") }
	isAssignments := func(id string) bool { return strings.Contains(id, ".ds_assignments_") }
	assert.Equal(t, 2*2*32, countMatching(flat, isConnectome))
	assert.Equal(t, 2*2*32, countMatching(flat, isAssignments))

	instance := ".connectome_wf_atlas-fan2016_algorithm-iFOD2."
	assert.Equal(t, 32, countMatching(flat, func(id string) bool { return strings.Contains(id, instance) && isConnectome(id) }))
	assert.Equal(t, 32, countMatching(flat, func(id string) bool { return strings.Contains(id, instance) && isAssignments(id) }))

	seen := make(map[string]string)
	for id, path := range sinkPaths(flat) {
		other, dup := seen[path]
		require.False(t, dup, "%s and %s write %s", id, other, path)
		seen[path] = id
	}

	sessionWF := "single_subject_01_wf.dwi_postproc_ses_1_space_dwi_desc_preproc_wf"
	unsifted := flat.Node(sessionWF + instance + "ds_connectome_scale-length_metric-mean_tracts-unsifted")
	require.NotNil(t, unsifted)
	assert.Equal(t,
		filepath.Join(f.cfg.Execution.OutputDir, "sub-01/ses-1/dwi/connectomes/sub-01_ses-1_rec-iFOD2_atlas-fan2016_res-1mm_measure-mean_scale-length_weight-SIFT2_connectome.csv"),
		unsifted.Path)

	build := flat.Node(sessionWF + instance + "build_connectome_scale-raw_metric-sum_tracts-sifted")
	require.NotNil(t, build)
	assert.Equal(t, "sum", build.Params["stat_edge"])
	assert.NotContains(t, build.Params, "scale")
}

func TestAssemble_WithoutSiftOnlyUnfilteredConnectomes(t *testing.T) {
	f := newFixture(t, oneSession())
	cfg := f.cfg.Clone()
	cfg.Workflow.DoSift = false
	flat := f.assemble(t, cfg, testAtlases())

	assert.Zero(t, countMatching(flat, func(id string) bool { return strings.Contains(id, "tcksift") }))
	assert.Zero(t, countMatching(flat, func(id string) bool { return strings.Contains(id, "tracts-sifted") }))
	assert.Equal(t, 2*2*16, countMatching(flat, func(id string) bool { return strings.Contains(id, ".ds_connectome_") }))
}

func TestAssemble_TractographyOff(t *testing.T) {
	f := newFixture(t, oneSession())
	cfg := f.cfg.Clone()
	cfg.Workflow.DoTractography = false
	flat := f.assemble(t, cfg, testAtlases())

	for _, id := range nodeIDs(flat) {
		assert.NotContains(t, id, "tractography_wf")
		assert.NotContains(t, id, "connectome_wf")
	}
	has := func(part string) bool {
		return countMatching(flat, func(id string) bool { return strings.Contains(id, part) }) > 0
	}
	assert.True(t, has(".tensor_estimation_wf.dipy_tensor_wf.dipy_fit"))
	assert.True(t, has(".tensor_estimation_wf.mrtrix3_tensor_wf.tensor2metric"))
	assert.True(t, has(".qc_wf.ds_snr"))
	assert.True(t, has(".parcellations_wf_atlas-fan2016_software-dipy.parcellate_fa"))
}

func TestAssemble_Sessions(t *testing.T) {
	t.Run("no sessions is a missing input", func(t *testing.T) {
		f := newFixture(t, testutil.SubjectFixture{ID: "01"})
		_, err := f.asm.Assemble(f.ctx, "01", f.cfg, testAtlases())
		require.Error(t, err)
		assert.ErrorIs(t, err, dataset.ErrMissingInput)
	})

	t.Run("anat only needs no sessions", func(t *testing.T) {
		f := newFixture(t, testutil.SubjectFixture{ID: "01"})
		cfg := f.cfg.Clone()
		cfg.Workflow.AnatOnly = true
		flat := f.assemble(t, cfg, testAtlases())

		for _, id := range nodeIDs(flat) {
			assert.NotContains(t, id, "dwi_postproc")
		}
		wholebrain := flat.Node("single_subject_01_wf.anatomical_wf.ds_wholebrain_atlas-fan2016")
		require.NotNil(t, wholebrain)
		assert.Equal(t,
			filepath.Join(f.cfg.Execution.OutputDir, "sub-01/anat/sub-01_atlas-fan2016_res-1mm_space-T1w_label-WholeBrain_dseg.nii.gz"),
			wholebrain.Path)
		assert.NotNil(t, flat.Node("single_subject_01_wf.anatomical_wf.five_tissue_type_wf.locate_fs_subject_dir"))
	})

	t.Run("every session gets its own branch", func(t *testing.T) {
		f := newFixture(t, testutil.SubjectFixture{ID: "01", Sessions: []string{"1", "2"}})
		flat := f.assemble(t, f.cfg, testAtlases())
		assert.NotNil(t, flat.Node("single_subject_01_wf.dwi_postproc_ses_1_space_dwi_desc_preproc_wf.qc_wf.ds_snr"))
		assert.NotNil(t, flat.Node("single_subject_01_wf.dwi_postproc_ses_2_space_dwi_desc_preproc_wf.qc_wf.ds_snr"))
	})

	t.Run("missing eddy qc directory", func(t *testing.T) {
		f := newFixture(t, testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}, Omit: []string{"eddy_qc"}})
		_, err := f.asm.Assemble(f.ctx, "01", f.cfg, testAtlases())
		var missing *dataset.MissingInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, dataset.EddyQC, missing.Role)
	})
}

func TestAssemble_AcquisitionLabel(t *testing.T) {
	testCases := []struct {
		name     string
		maxBval  float64
		expected string
	}{
		{name: "configured maximum", maxBval: 1000, expected: "acq-shell1000"},
		{name: "observed maximum", maxBval: 0, expected: "acq-shell2000"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, oneSession())
			cfg := f.cfg.Clone()
			cfg.Workflow.TensorMaxBval = tc.maxBval
			flat := f.assemble(t, cfg, testAtlases())

			for _, part := range []string{".dipy_tensor_wf.ds_fa", ".mrtrix3_tensor_wf.ds_fa", ".parcellations_wf_atlas-fan2016_software-dipy.ds_fa"} {
				var path string
				for id, p := range sinkPaths(flat) {
					if strings.HasSuffix(id, part) {
						path = p
					}
				}
				require.NotEmpty(t, path, part)
				assert.Contains(t, filepath.Base(path), tc.expected)
			}
		})
	}

	t.Run("no shell below the maximum", func(t *testing.T) {
		f := newFixture(t, testutil.SubjectFixture{ID: "01", Sessions: []string{"1"}, Bvals: "0 0 0\n"})
		_, err := f.asm.Assemble(f.ctx, "01", f.cfg, testAtlases())
		require.Error(t, err)
	})
}

func TestAssemble_SoftwareOnlyDistinguishesToolchains(t *testing.T) {
	f := newFixture(t, oneSession())
	flat := f.assemble(t, f.cfg, testAtlases())
	paths := sinkPaths(flat)

	var dipy, mrtrix string
	for id, p := range paths {
		switch {
		case strings.HasSuffix(id, ".dipy_tensor_wf.ds_fa"):
			dipy = filepath.Base(p)
		case strings.HasSuffix(id, ".mrtrix3_tensor_wf.ds_fa"):
			mrtrix = filepath.Base(p)
		}
	}
	assert.Equal(t, strings.Replace(dipy, "software-dipy", "software-mrtrix3", 1), mrtrix)
}

func TestAssemble_Deterministic(t *testing.T) {
	f := newFixture(t, testutil.SubjectFixture{ID: "01", Sessions: []string{"1", "2"}})
	first := f.assemble(t, f.cfg, testAtlases())
	second := f.assemble(t, f.cfg, testAtlases())

	assert.Empty(t, cmp.Diff(nodeIDs(first), nodeIDs(second)))
	assert.Empty(t, cmp.Diff(sinkPaths(first), sinkPaths(second)))
	assert.Empty(t, cmp.Diff(first.Edges, second.Edges))
}

func TestAssemble_ExecContextOnEveryNode(t *testing.T) {
	f := newFixture(t, oneSession())
	flat := f.assemble(t, f.cfg, testAtlases())

	expected := pipeline.ExecContext{
		WorkDir:  f.cfg.Execution.WorkDir,
		CrashDir: filepath.Join(f.cfg.Execution.OutputDir, "sub-01", "log", "run1"),
	}
	for _, n := range flat.Nodes {
		require.Equal(t, expected, n.Node.Exec, n.ID)
	}
}

func TestAssemble_RejectsUnnormalizedConfig(t *testing.T) {
	f := newFixture(t, oneSession())
	cfg := f.cfg.Clone()
	cfg.Workflow.Atlases = []string{atlas.All}

	_, err := f.asm.Assemble(f.ctx, "01", cfg, testAtlases())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestStages(t *testing.T) {
	testCases := []struct {
		name       string
		mutate     func(cfg *config.RunConfig)
		hasAtlases bool
		expected   []Stage
	}{
		{
			name:       "defaults",
			hasAtlases: true,
			expected: []Stage{
				StageAnatomical, StageAtlasCoregistration, StageAtlasRegistration, StageConnectome,
				StageFiveTissueType, StageParcellation, StageQC, StageSession, StageSift,
				StageTensorEstimation, StageTissueCoregistration, StageTractography,
			},
		},
		{
			name:       "anat only",
			hasAtlases: true,
			mutate:     func(cfg *config.RunConfig) { cfg.Workflow.AnatOnly = true },
			expected:   []Stage{StageAnatomical, StageAtlasRegistration, StageFiveTissueType},
		},
		{
			name:     "no atlases",
			expected: []Stage{StageAnatomical, StageFiveTissueType, StageQC, StageSession, StageSift, StageTensorEstimation, StageTissueCoregistration, StageTractography},
		},
		{
			name:       "no tractography drops sift and connectome",
			hasAtlases: true,
			mutate:     func(cfg *config.RunConfig) { cfg.Workflow.DoTractography = false },
			expected: []Stage{
				StageAnatomical, StageAtlasCoregistration, StageAtlasRegistration,
				StageFiveTissueType, StageParcellation, StageQC, StageSession,
				StageTensorEstimation, StageTissueCoregistration,
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Defaults()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			assert.Equal(t, tc.expected, Stages(cfg, tc.hasAtlases).List())
		})
	}
}
