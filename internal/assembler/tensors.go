package assembler

import (
	"slices"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
	"github.com/specialistvlad/dwigrid/internal/shells"
)

const (
	tensorWorkflow = "tensor_estimation_wf"
	acqLabelField  = "acq_label"
	mniSpace       = "MNI152NLin2009cAsym"
)

// toolchain is one tensor reconstruction software and the metrics it
// reports.
type toolchain struct {
	software string
	metrics  []string
	// port names the fit output carrying metric m.
	port func(m string) string
}

var (
	dipyToolchain = toolchain{
		software: "dipy",
		metrics:  []string{"ad", "fa", "ga", "md", "mode", "rd"},
		port:     func(m string) string { return m + "_file" },
	}
	mrtrixToolchain = toolchain{
		software: "mrtrix3",
		metrics:  []string{"ad", "adc", "cl", "cp", "cs", "fa", "rd"},
		port:     func(m string) string { return "out_" + m },
	}
)

func toolchains() []toolchain { return []toolchain{dipyToolchain, mrtrixToolchain} }

// metricField is the tensor_estimation_wf output carrying a metric map.
func (tc toolchain) metricField(m string) string { return tc.software + "_" + m }

// tensorInputs are forwarded from the session inputnode.
var tensorInputs = []string{
	string(dataset.DWINifti),
	string(dataset.DWIBval),
	string(dataset.DWIGrad),
	string(dataset.DWIMask),
	string(dataset.T1wPreproc),
	string(dataset.NativeToMNITransform),
	string(dataset.DWIToT1wTransform),
}

// tensorEstimation builds tensor_estimation_wf: shell restriction followed
// by the dipy and mrtrix3 tensor fits.
func (a *assembly) tensorEstimation(s *session) {
	outputs := []string{acqLabelField}
	for _, tc := range toolchains() {
		for _, m := range tc.metrics {
			outputs = append(outputs, tc.metricField(m))
		}
	}
	wf := a.b.Workflow(tensorWorkflow, tensorInputs, outputs)

	detect := a.b.Function("detect_shells", "shells.DetectShells",
		[]pipeline.Port{{Name: "bvals"}, pipeline.Optional("max_bval"), {Name: "tolerance"}},
		"shells", "max_bval").
		Bind("tolerance", float64(shells.DefaultTolerance))
	if mb := a.cfg.Workflow.MaxBval(); mb != nil {
		detect.Bind("max_bval", *mb)
	}
	wf.Add(
		detect,
		a.b.Tool("dwiextract", "mrtrix3.DWIExtract",
			pipeline.Ports("in_file", "grad_file", "shell"),
			[]string{"out_file"},
			map[string]any{"nthreads": a.cfg.Engine.OMPNThreads}),
		a.b.Tool("mrconvert", "mrtrix3.MRConvert",
			pipeline.Ports("in_file"),
			[]string{"out_file", "out_bvec", "out_bval", "out_mrtrix_grad"},
			map[string]any{"out_file": "dwi.nii.gz"}),
		a.b.Function("acq_label", "shells.GenAcqLabel", pipeline.Ports("max_bval"), acqLabelField),
	)
	wf.Connect(pipeline.InputNode, string(dataset.DWIBval), "detect_shells", "bvals")
	wf.ConnectMany(pipeline.InputNode, "dwiextract",
		string(dataset.DWINifti)+":in_file",
		string(dataset.DWIGrad)+":grad_file")
	wf.Connect("detect_shells", "shells", "dwiextract", "shell")
	wf.Connect("dwiextract", "out_file", "mrconvert", "in_file")
	wf.Connect("detect_shells", "max_bval", "acq_label", "max_bval")
	wf.Connect("acq_label", acqLabelField, pipeline.OutputNode, acqLabelField)

	for _, tc := range toolchains() {
		child := a.tensorFit(s, tc)
		childIn := child.Name + "." + pipeline.InputNode
		childOut := child.Name + "." + pipeline.OutputNode
		wf.AddWorkflow(child)
		wf.ConnectMany(pipeline.InputNode, childIn,
			string(dataset.DWIMask),
			string(dataset.T1wPreproc),
			string(dataset.NativeToMNITransform),
			string(dataset.DWIToT1wTransform))
		wf.Connect("dwiextract", "out_file", childIn, "dwi_mif")
		if tc.software == dipyToolchain.software {
			wf.ConnectMany("mrconvert", childIn,
				"out_file:"+string(dataset.DWINifti),
				"out_bvec:"+string(dataset.DWIBvec),
				"out_bval:"+string(dataset.DWIBval))
		}
		for _, m := range tc.metrics {
			wf.Connect(childOut, m, pipeline.OutputNode, tc.metricField(m))
		}
	}

	s.wf.AddWorkflow(wf)
	s.wf.ConnectMany(pipeline.InputNode, wf.Name+"."+pipeline.InputNode, tensorInputs...)
}

// tensorFit builds <software>_tensor_wf. Every metric map is written in
// diffusion space, coregistered to T1w and normalized to the template.
func (a *assembly) tensorFit(s *session, tc toolchain) *pipeline.Workflow {
	inputs := []string{
		"dwi_mif",
		string(dataset.DWIMask),
		string(dataset.T1wPreproc),
		string(dataset.NativeToMNITransform),
		string(dataset.DWIToT1wTransform),
	}
	if tc.software == dipyToolchain.software {
		inputs = append(inputs, string(dataset.DWINifti), string(dataset.DWIBvec), string(dataset.DWIBval))
	}
	wf := a.b.Workflow(tc.software+"_tensor_wf", inputs, slices.Clone(tc.metrics))

	var fit string
	switch tc.software {
	case dipyToolchain.software:
		fit = a.dipyFit(wf, tc)
	default:
		fit = a.mrtrixFit(wf, tc)
	}

	for _, m := range tc.metrics {
		port := tc.port(m)
		ents := func(space string) bids.Entities {
			return bids.Entities{
				bids.Acquisition: s.acq,
				bids.Software:    tc.software,
				bids.Space:       space,
				bids.Desc:        m,
				bids.Suffix:      "dwiref",
				bids.Extension:   ".nii.gz",
			}
		}

		a.sink(wf, "ds_"+m, fit, port, s.seed, ents("dwi"))

		coreg := "coreg_" + m
		wf.Add(applyXFM(a.b, coreg, "trilinear"))
		wf.Connect(fit, port, coreg, "in_file")
		wf.ConnectMany(pipeline.InputNode, coreg,
			string(dataset.T1wPreproc)+":reference",
			string(dataset.DWIToT1wTransform)+":in_matrix_file")
		a.sink(wf, "ds_coreg_"+m, coreg, "out_file", s.seed, ents("T1w"))

		normalize := "normalize_" + m
		wf.Add(a.b.Tool(normalize, "ants.ApplyTransforms",
			pipeline.Ports("input_image", "transforms"),
			[]string{"output_image"},
			map[string]any{"reference_template": mniSpace, "interpolation": "Linear", "dimension": 3}))
		wf.Connect(coreg, "out_file", normalize, "input_image")
		wf.Connect(pipeline.InputNode, string(dataset.NativeToMNITransform), normalize, "transforms")
		a.sink(wf, "ds_normalize_"+m, normalize, "output_image", s.seed, ents(mniSpace))

		wf.Connect(fit, port, pipeline.OutputNode, m)
	}
	return wf
}

func (a *assembly) dipyFit(wf *pipeline.Workflow, tc toolchain) string {
	wcfg := a.cfg.Workflow
	outputs := make([]string, len(tc.metrics))
	for i, m := range tc.metrics {
		outputs[i] = tc.port(m)
	}
	fit := a.b.Tool("dipy_fit", "dipy.ReconstDTI",
		append(pipeline.Ports("in_file", "in_bvec", "in_bval", "mask_file"), pipeline.Optional("sigma")),
		outputs,
		map[string]any{"fit_method": wcfg.DipyReconstructionMethod})
	wf.Add(fit)
	wf.ConnectMany(pipeline.InputNode, "dipy_fit",
		string(dataset.DWINifti)+":in_file",
		string(dataset.DWIBvec)+":in_bvec",
		string(dataset.DWIBval)+":in_bval",
		string(dataset.DWIMask)+":mask_file")

	robust := wcfg.DipyReconstructionMethod == "RT" || wcfg.DipyReconstructionMethod == "restore"
	switch {
	case robust && wcfg.DipyReconstructionSigma > 0:
		fit.Bind("sigma", wcfg.DipyReconstructionSigma)
	case robust:
		wf.Add(
			a.b.Tool("extract_b0", "mrtrix3.DWIExtract",
				pipeline.Ports("in_file"),
				[]string{"out_file"},
				map[string]any{"bzero": true, "out_file": "b0.nii.gz"}),
			a.b.Function("estimate_sigma", "dipy.EstimateSigma", pipeline.Ports("in_file", "in_mask"), "sigma"),
		)
		wf.Connect(pipeline.InputNode, "dwi_mif", "extract_b0", "in_file")
		wf.Connect("extract_b0", "out_file", "estimate_sigma", "in_file")
		wf.Connect(pipeline.InputNode, string(dataset.DWIMask), "estimate_sigma", "in_mask")
		wf.Connect("estimate_sigma", "sigma", "dipy_fit", "sigma")
	}
	return "dipy_fit"
}

func (a *assembly) mrtrixFit(wf *pipeline.Workflow, tc toolchain) string {
	outputs := make([]string, len(tc.metrics))
	for i, m := range tc.metrics {
		outputs[i] = tc.port(m)
	}
	wf.Add(
		a.b.Tool("dwi2tensor", "mrtrix3.FitTensor",
			pipeline.Ports("in_file", "in_mask"),
			[]string{"out_file"},
			map[string]any{"nthreads": a.cfg.Engine.OMPNThreads}),
		a.b.Tool("tensor2metric", "mrtrix3.TensorMetrics",
			append(pipeline.Ports("in_file"), pipeline.Optional("in_mask")),
			outputs, nil),
	)
	wf.ConnectMany(pipeline.InputNode, "dwi2tensor",
		"dwi_mif:in_file",
		string(dataset.DWIMask)+":in_mask")
	wf.Connect("dwi2tensor", "out_file", "tensor2metric", "in_file")
	wf.Connect(pipeline.InputNode, string(dataset.DWIMask), "tensor2metric", "in_mask")
	return "tensor2metric"
}
