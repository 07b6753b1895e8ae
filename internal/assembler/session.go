package assembler

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
	"github.com/specialistvlad/dwigrid/internal/shells"
)

// sessionForwarded are the subject-level inputs every session consumes.
var sessionForwarded = []string{
	string(dataset.T1wPreproc),
	string(dataset.NativeToMNITransform),
	string(dataset.GMProbseg),
	string(dataset.WMProbseg),
	string(dataset.CSFProbseg),
}

// tissues are the tissue classes, in fan-out order.
var tissues = []string{"CSF", "GM", "WM"}

// session carries what the branches of one diffusion session share.
type session struct {
	wf   *pipeline.Workflow
	seed bids.Entities
	// acq is the acquisition label of shell-restricted derivatives.
	acq string
}

// session builds the diffusion branch of one session inside parent.
func (a *assembly) session(parent *pipeline.Workflow, anat string, in dataset.SessionInputs) {
	logger := ctxlog.FromContext(a.ctx)
	dwi := in.Files[dataset.DWINifti]

	acq, err := a.acquisitionLabel(in)
	if err != nil {
		a.errs = append(a.errs, err)
		return
	}

	fields := make([]string, 0, len(dataset.SessionRoles)+len(sessionForwarded)+1+2*len(a.atlases))
	for _, r := range dataset.SessionRoles {
		fields = append(fields, string(r))
	}
	fields = append(fields, sessionForwarded...)
	if a.stages.Has(StageTractography) {
		fields = append(fields, fiveTissueField)
	}
	if a.stages.Has(StageAtlasCoregistration) {
		for _, at := range a.atlases {
			fields = append(fields, at.tuple.Name(wholeBrainField), at.tuple.Name(gmCroppedField))
		}
	}

	s := &session{
		wf:   a.b.Workflow(bids.SessionWorkflowName(dwi), fields, nil),
		seed: bids.SourceEntities(dwi),
		acq:  acq,
	}
	logger.Debug("Assemble: building session branch.", "session", in.SessionID, "workflow", s.wf.Name, "acq", acq)

	inNode := s.wf.Node(pipeline.InputNode)
	for _, r := range dataset.SessionRoles {
		inNode.Bind(string(r), in.Files[r])
	}

	parent.AddWorkflow(s.wf)
	sesIn := s.wf.Name + "." + pipeline.InputNode
	parent.ConnectMany(pipeline.InputNode, sesIn, sessionForwarded...)
	anatOut := anat + "." + pipeline.OutputNode
	for _, f := range fields[len(dataset.SessionRoles)+len(sessionForwarded):] {
		parent.Connect(anatOut, f, sesIn, f)
	}

	if a.stages.Has(StageTissueCoregistration) {
		a.tissueCoregistration(s)
	}
	if a.stages.Has(StageTensorEstimation) {
		a.tensorEstimation(s)
	}
	if a.stages.Has(StageQC) {
		a.qc(s)
	}
	if a.stages.Has(StageTractography) {
		a.tractography(s)
	}
	if a.stages.Has(StageAtlasCoregistration) {
		for _, at := range a.atlases {
			a.atlasCoregistration(s, at)
		}
	}
	if a.stages.Has(StageConnectome) {
		for _, at := range a.atlases {
			for _, alg := range a.trackingInstances() {
				a.connectome(s, at, alg)
			}
		}
	}
	if a.stages.Has(StageParcellation) {
		for _, at := range a.atlases {
			for _, sw := range softwareInstances() {
				a.parcellations(s, at, sw)
			}
		}
	}
}

// acquisitionLabel derives the acquisition label from the session's
// gradient table and the configured maximum b-value.
func (a *assembly) acquisitionLabel(in dataset.SessionInputs) (string, error) {
	path := in.Files[dataset.DWIBval]
	bvals, err := shells.ReadBvalFile(path)
	if err != nil {
		return "", fmt.Errorf("session %s: %w", in.SessionID, err)
	}
	_, effective, err := shells.DetectShells(bvals, a.cfg.Workflow.MaxBval(), shells.DefaultTolerance)
	if err != nil {
		return "", fmt.Errorf("session %s: %s: %w", in.SessionID, path, err)
	}
	return shells.GenAcqLabel(effective), nil
}

// tissueCoregistration builds tissue_coregistration_wf, moving the three
// tissue probability maps into diffusion space.
func (a *assembly) tissueCoregistration(s *session) {
	outputs := make([]string, len(tissues))
	for i, t := range tissues {
		outputs[i] = probsegField(t)
	}
	wf := a.b.Workflow("tissue_coregistration_wf",
		append([]string{string(dataset.DWIReference), string(dataset.T1wToDWITransform)}, outputs...),
		outputs)

	for _, t := range pipeline.Product(pipeline.Axis{Name: "label", Values: tissues}) {
		label := t.Value("label")
		field := probsegField(label)
		apply := t.Name("apply_transforms")
		wf.Add(applyXFM(a.b, apply, "nearestneighbour"))
		wf.ConnectMany(pipeline.InputNode, apply,
			field+":in_file",
			string(dataset.DWIReference)+":reference",
			string(dataset.T1wToDWITransform)+":in_matrix_file")
		a.sink(wf, t.Name("ds_probseg"), apply, "out_file", s.seed, bids.Entities{
			bids.Space:     "dwi",
			bids.Label:     label,
			bids.Suffix:    "probseg",
			bids.Extension: ".nii.gz",
		})
		wf.Connect(apply, "out_file", pipeline.OutputNode, field)
	}

	s.wf.AddWorkflow(wf)
	s.wf.ConnectMany(pipeline.InputNode, wf.Name+"."+pipeline.InputNode,
		append([]string{string(dataset.DWIReference), string(dataset.T1wToDWITransform)}, outputs...)...)
}

func probsegField(label string) string {
	return strings.ToLower(label) + "_probseg"
}

// applyXFM is an affine resampling node. Label images need nearest
// neighbour interpolation.
func applyXFM(b *pipeline.Builder, name, interp string) *pipeline.Node {
	return b.Tool(name, "fsl.ApplyXFM",
		pipeline.Ports("in_file", "reference", "in_matrix_file"),
		[]string{"out_file"},
		map[string]any{"interp": interp, "apply_xfm": true})
}
