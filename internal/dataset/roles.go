package dataset

import (
	"github.com/specialistvlad/dwigrid/internal/bids"
)

// Role names one input file of the pipeline.
type Role string

const (
	T1wPreproc           Role = "t1w_preproc"
	T1wBrainMask         Role = "t1w_brain_mask"
	MNIToNativeTransform Role = "mni_to_native_transform"
	NativeToMNITransform Role = "native_to_mni_transform"
	GMProbseg            Role = "gm_probseg"
	WMProbseg            Role = "wm_probseg"
	CSFProbseg           Role = "csf_probseg"

	DWINifti          Role = "dwi_nifti"
	DWIBval           Role = "dwi_bval"
	DWIBvec           Role = "dwi_bvec"
	DWIGrad           Role = "dwi_grad"
	DWIReference      Role = "dwi_reference"
	DWIMask           Role = "dwi_mask"
	T1wToDWITransform Role = "t1w_to_dwi_transform"
	DWIToT1wTransform Role = "dwi_to_t1w_transform"
	// EddyQC is the eddy quality-control directory next to the dwi files.
	EddyQC Role = "eddy_qc"
)

// template is the entity pattern a role's file must match. Keys listed in
// absent must not be present at all.
type template struct {
	entities map[string]string
	absent   []string
}

const templateSpace = "MNI152NLin2009cAsym"

var subjectTemplates = map[Role]template{
	T1wPreproc: {
		entities: map[string]string{bids.Desc: "preproc", bids.Suffix: "T1w", bids.Datatype: "anat", bids.Extension: ".nii.gz"},
		absent:   []string{bids.Space},
	},
	T1wBrainMask: {
		entities: map[string]string{bids.Desc: "brain", bids.Suffix: "mask", bids.Datatype: "anat", bids.Extension: ".nii.gz"},
		absent:   []string{bids.Space},
	},
	MNIToNativeTransform: {
		entities: map[string]string{bids.From: templateSpace, bids.To: "T1w", bids.Suffix: "xfm", bids.Mode: "image", bids.Extension: ".h5"},
	},
	NativeToMNITransform: {
		entities: map[string]string{bids.From: "T1w", bids.To: templateSpace, bids.Suffix: "xfm", bids.Mode: "image", bids.Extension: ".h5"},
	},
	GMProbseg: {
		entities: map[string]string{bids.Suffix: "probseg", bids.Label: "GM", bids.Extension: ".nii.gz"},
		absent:   []string{bids.Space},
	},
	WMProbseg: {
		entities: map[string]string{bids.Suffix: "probseg", bids.Label: "WM", bids.Extension: ".nii.gz"},
		absent:   []string{bids.Space},
	},
	CSFProbseg: {
		entities: map[string]string{bids.Suffix: "probseg", bids.Label: "CSF", bids.Extension: ".nii.gz"},
		absent:   []string{bids.Space},
	},
}

var sessionTemplates = map[Role]template{
	DWINifti: {
		entities: map[string]string{bids.Desc: "preproc", bids.Datatype: "dwi", bids.Suffix: "dwi", bids.Space: "dwi", bids.Extension: ".nii.gz"},
	},
	DWIBval: {
		entities: map[string]string{bids.Desc: "preproc", bids.Datatype: "dwi", bids.Suffix: "dwi", bids.Space: "dwi", bids.Extension: ".bval"},
	},
	DWIBvec: {
		entities: map[string]string{bids.Desc: "preproc", bids.Datatype: "dwi", bids.Suffix: "dwi", bids.Space: "dwi", bids.Extension: ".bvec"},
	},
	DWIGrad: {
		entities: map[string]string{bids.Desc: "preproc", bids.Datatype: "dwi", bids.Suffix: "dwi", bids.Space: "dwi", bids.Extension: ".b"},
	},
	DWIReference: {
		entities: map[string]string{bids.Datatype: "dwi", bids.Suffix: "dwiref", bids.Space: "dwi", bids.Extension: ".nii.gz"},
	},
	DWIMask: {
		entities: map[string]string{bids.Desc: "brain", bids.Datatype: "dwi", bids.Suffix: "mask", bids.Space: "dwi", bids.Extension: ".nii.gz"},
	},
	T1wToDWITransform: {
		entities: map[string]string{bids.From: "T1w", bids.To: "dwi", bids.Suffix: "xfm", bids.Mode: "image", bids.Extension: ".txt"},
	},
	DWIToT1wTransform: {
		entities: map[string]string{bids.From: "dwi", bids.To: "T1w", bids.Suffix: "xfm", bids.Mode: "image", bids.Extension: ".txt"},
	},
}

// SubjectRoles lists the subject-scoped roles in resolution order.
var SubjectRoles = []Role{
	T1wPreproc, T1wBrainMask, MNIToNativeTransform, NativeToMNITransform,
	GMProbseg, WMProbseg, CSFProbseg,
}

// SessionRoles lists the session-scoped roles in resolution order. EddyQC
// is a directory and is located on disk rather than through the index.
var SessionRoles = []Role{
	DWINifti, DWIBval, DWIBvec, DWIGrad, DWIReference, DWIMask,
	T1wToDWITransform, DWIToT1wTransform, EddyQC,
}

// QueryFor builds the index query of role. Session is ignored for
// subject-scoped roles.
func QueryFor(role Role, subject, session string) (Query, bool) {
	if tpl, ok := subjectTemplates[role]; ok {
		return Query{Subject: subject, Entities: tpl.entities, Absent: tpl.absent}, true
	}
	if tpl, ok := sessionTemplates[role]; ok {
		return Query{Subject: subject, Session: session, Entities: tpl.entities, Absent: tpl.absent}, true
	}
	return Query{}, false
}
