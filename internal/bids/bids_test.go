package bids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntities(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		expected Entities
	}{
		{
			name: "preprocessed diffusion volume",
			path: "/data/sub-01/ses-1/dwi/sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz",
			expected: Entities{
				Subject: "01", Session: "1", Space: "dwi", Desc: "preproc",
				Suffix: "dwi", Extension: ".nii.gz", Datatype: "dwi",
			},
		},
		{
			name: "transform with from/to/mode",
			path: "sub-02/anat/sub-02_from-MNI152NLin2009cAsym_to-T1w_mode-image_xfm.h5",
			expected: Entities{
				Subject: "02", From: "MNI152NLin2009cAsym", To: "T1w", Mode: "image",
				Suffix: "xfm", Extension: ".h5", Datatype: "anat",
			},
		},
		{
			name: "unknown keys are ignored",
			path: "sub-03_foo-bar_label-GM_probseg.nii.gz",
			expected: Entities{
				Subject: "03", Label: "GM", Suffix: "probseg", Extension: ".nii.gz",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseEntities(tc.path))
		})
	}
}

func TestName(t *testing.T) {
	seed := SourceEntities("/in/sub-01/ses-1/dwi/sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz")

	t.Run("renders vocabulary order with directories", func(t *testing.T) {
		got, err := Name(seed, Entities{
			Acquisition: "shell1000", Software: "dipy", Desc: "fa",
			Suffix: "dwiref", Extension: ".nii.gz", Resolution: "dwi",
		})
		require.NoError(t, err)
		assert.Equal(t, "sub-01/ses-1/dwi/sub-01_ses-1_acq-shell1000_software-dipy_res-dwi_desc-fa_dwiref.nii.gz", got)
	})

	t.Run("override order does not matter", func(t *testing.T) {
		a, err := Name(seed, Entities{Label: "GM", Suffix: "probseg", Extension: ".nii.gz"})
		require.NoError(t, err)
		b, err := Name(seed, Entities{Extension: ".nii.gz", Suffix: "probseg", Label: "GM"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("overrides win and empty values are omitted", func(t *testing.T) {
		withDesc := seed.Merge(Entities{Desc: "preproc"})
		got, err := Name(withDesc, Entities{Desc: "", Space: "", Suffix: "mask", Extension: ".nii.gz"})
		require.NoError(t, err)
		assert.Equal(t, "sub-01/ses-1/dwi/sub-01_ses-1_mask.nii.gz", got)
		assert.NotContains(t, got, "None")
	})

	t.Run("subtype directory", func(t *testing.T) {
		got, err := Name(seed, Entities{Subtype: "connectomes", Suffix: "connectome", Extension: ".csv", Weight: "SIFT"})
		require.NoError(t, err)
		assert.Equal(t, "sub-01/ses-1/dwi/connectomes/sub-01_ses-1_weight-SIFT_connectome.csv", got)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Name(Entities{Suffix: "dwi"}, nil)
		assert.ErrorIs(t, err, ErrInvalidEntity)

		_, err = Name(seed, Entities{"flavour": "x", Suffix: "dwi"})
		assert.ErrorIs(t, err, ErrUnknownEntity)

		_, err = Name(seed, Entities{Reconstruction: "SD_Stream", Suffix: "tracts"})
		assert.ErrorIs(t, err, ErrInvalidEntity)
	})
}

func TestNameFrom_DerivesAtlasEntities(t *testing.T) {
	source := "/in/sub-01/ses-1/dwi/sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz"
	atlasDerivative := "/out/sub-01/anat/sub-01_atlas-schaefer2018_den-100_division-7networks_res-1mm_space-T1w_label-GM_dseg.nii.gz"

	got, err := NameFrom(source, atlasDerivative, Entities{Software: "mrtrix3", Desc: "fa", Suffix: "parc", Extension: ".csv"})
	require.NoError(t, err)
	assert.Equal(t, "sub-01/ses-1/dwi/sub-01_ses-1_software-mrtrix3_atlas-schaefer2018_den-100_division-7networks_res-1mm_desc-fa_parc.csv", got)

	again, err := NameFrom(source, atlasDerivative, Entities{Suffix: "parc", Extension: ".csv", Desc: "fa", Software: "mrtrix3"})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestAtlasReferenceEntities(t *testing.T) {
	ref := "/atlases/schaefer2018/MNI152/space-MNI152_atlas-schaefer2018_res-1mm_den-400_desc-17networks_dseg.nii.gz"
	assert.Equal(t, Entities{Atlas: "schaefer2018", Resolution: "1mm", Density: "400", Division: "17networks"}, AtlasReferenceEntities(ref))

	plain := "/atlases/fan2016/MNI152/space-MNI152_atlas-fan2016_res-1mm_dseg.nii.gz"
	assert.Equal(t, Entities{Atlas: "fan2016", Resolution: "1mm"}, AtlasReferenceEntities(plain))
}

func TestSessionWorkflowName(t *testing.T) {
	testCases := map[string]string{
		"/made/up/path/sub-01_dir-AP_acq-64grad_dwi.nii.gz":               "dwi_postproc_dir_AP_acq_64grad_wf",
		"/made/up/path/sub-01_dir-RL_run-01_echo-1_dwi.nii.gz":            "dwi_postproc_dir_RL_run_01_echo_1_wf",
		"sub-01/ses-1/dwi/sub-01_ses-1_space-dwi_desc-preproc_dwi.nii.gz": "dwi_postproc_ses_1_space_dwi_desc_preproc_wf",
	}
	for in, want := range testCases {
		t.Run(want, func(t *testing.T) {
			assert.Equal(t, want, SessionWorkflowName(in))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "SDStream", Sanitize("SD_Stream"))
	assert.Equal(t, "iFOD2", Sanitize("iFOD2"))
	assert.Equal(t, "TensorDet", Sanitize("Tensor_Det"))
}
