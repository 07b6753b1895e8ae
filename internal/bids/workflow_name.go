package bids

import (
	"path/filepath"
	"strings"
)

// SessionWorkflowName derives the name of the per-acquisition workflow from
// its diffusion file, dropping the subject entity:
// "sub-01_dir-AP_acq-64grad_dwi.nii.gz" -> "dwi_postproc_dir_AP_acq_64grad_wf".
func SessionWorkflowName(dwiPath string) string {
	stem, _ := SplitExt(filepath.Base(dwiPath))
	stem = strings.ReplaceAll(stem, "_dwi", "_wf")
	if _, rest, ok := strings.Cut(stem, "_"); ok {
		stem = rest
	}
	stem = strings.NewReplacer(".", "_", " ", "", "-", "_").Replace(stem)
	return "dwi_postproc_" + stem
}
