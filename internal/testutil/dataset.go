package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// DefaultBvals is a two-shell acquisition with b=0 volumes.
const DefaultBvals = "0 1005 1000 2000 0 995 2005\n"

// SubjectFixture describes one subject of a preprocessed dataset tree.
type SubjectFixture struct {
	ID       string
	Sessions []string
	// Bvals is written to every session's .bval file. DefaultBvals when empty.
	Bvals string
	// Omit lists relative file names (without the sub-<id> prefix) to skip,
	// e.g. "label-GM_probseg.nii.gz".
	Omit []string
}

// WriteFile creates path with content, making parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// WriteDataset lays out the subject under root the way the upstream
// preprocessing pipeline does and returns root.
func WriteDataset(t *testing.T, root string, subjects ...SubjectFixture) string {
	t.Helper()

	for _, s := range subjects {
		skip := make(map[string]bool, len(s.Omit))
		for _, o := range s.Omit {
			skip[o] = true
		}
		write := func(dir, prefix, name, content string) {
			if skip[name] {
				return
			}
			WriteFile(t, filepath.Join(dir, prefix+"_"+name), content)
		}

		sub := "sub-" + s.ID
		anat := filepath.Join(root, sub, "anat")
		for _, name := range []string{
			"desc-preproc_T1w.nii.gz",
			"desc-brain_mask.nii.gz",
			"label-GM_probseg.nii.gz",
			"label-WM_probseg.nii.gz",
			"label-CSF_probseg.nii.gz",
			"space-MNI152NLin2009cAsym_desc-preproc_T1w.nii.gz",
			"from-MNI152NLin2009cAsym_to-T1w_mode-image_xfm.h5",
			"from-T1w_to-MNI152NLin2009cAsym_mode-image_xfm.h5",
		} {
			write(anat, sub, name, "")
		}

		bvals := s.Bvals
		if bvals == "" {
			bvals = DefaultBvals
		}
		for _, ses := range s.Sessions {
			prefix := fmt.Sprintf("%s_ses-%s", sub, ses)
			dwi := filepath.Join(root, sub, "ses-"+ses, "dwi")
			for _, name := range []string{
				"space-dwi_desc-preproc_dwi.nii.gz",
				"space-dwi_desc-preproc_dwi.bvec",
				"space-dwi_desc-preproc_dwi.b",
				"space-dwi_dwiref.nii.gz",
				"space-dwi_desc-brain_mask.nii.gz",
				"from-T1w_to-dwi_mode-image_xfm.txt",
				"from-dwi_to-T1w_mode-image_xfm.txt",
			} {
				write(dwi, prefix, name, "")
			}
			write(dwi, prefix, "space-dwi_desc-preproc_dwi.bval", bvals)
			if !skip["eddy_qc"] {
				WriteFile(t, filepath.Join(dwi, "eddy_qc", "qc.json"), "{}")
			}
		}
	}
	return root
}

// WriteAtlasFiles creates an empty reference image and region table for
// every path pair, as listed by the atlas registry.
func WriteAtlasFiles(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		content := ""
		if strings.HasSuffix(p, ".csv") {
			content = "index,Label\n1,region\n"
		}
		WriteFile(t, p, content)
	}
}
