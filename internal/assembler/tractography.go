package assembler

import (
	"strings"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

const tractographyWorkflow = "tractography_wf"

// Per-algorithm outputs of tractography_wf.
const (
	unfilteredField = "unfiltered_tracts"
	siftedField     = "sifted_tracts"
	sift2Field      = "sift2_weights"
	tdiField        = "tdi_map"
)

var tractographyInputs = []string{
	string(dataset.DWINifti),
	string(dataset.DWIGrad),
	string(dataset.DWIReference),
	string(dataset.DWIMask),
	string(dataset.T1wPreproc),
	string(dataset.T1wToDWITransform),
	fiveTissueField,
}

// trackingInstances is the fan-out over the deterministic and the
// probabilistic tracking algorithm.
func (a *assembly) trackingInstances() []pipeline.Tuple {
	return pipeline.Product(pipeline.Axis{Name: "algorithm", Values: a.cfg.Workflow.TrackingAlgorithms()})
}

// fodLabels are the tissues whose FOD the configured algorithm estimates.
func (a *assembly) fodLabels() []string {
	if a.cfg.Workflow.FODAlgorithm == "msmt_csd" {
		return tissues
	}
	return []string{"WM"}
}

// tractography builds tractography_wf: response and FOD estimation, then
// whole-brain tracking and filtering per algorithm.
func (a *assembly) tractography(s *session) {
	wcfg := a.cfg.Workflow
	sift := a.stages.Has(StageSift)

	var outputs []string
	for _, t := range a.trackingInstances() {
		outputs = append(outputs, t.Name(unfilteredField), t.Name(tdiField))
		if sift {
			outputs = append(outputs, t.Name(siftedField), t.Name(sift2Field))
		}
	}
	wf := a.b.Workflow(tractographyWorkflow, tractographyInputs, outputs)

	coreg := a.coregFiveTissueType()
	coregIn := coreg.Name + "." + pipeline.InputNode
	coregOut := coreg.Name + "." + pipeline.OutputNode
	wf.AddWorkflow(coreg)
	wf.ConnectMany(pipeline.InputNode, coregIn,
		string(dataset.DWIReference),
		string(dataset.T1wToDWITransform),
		string(dataset.T1wPreproc),
		fiveTissueField)

	labels := a.fodLabels()
	fodInputs := []pipeline.Port{{Name: "in_file"}, {Name: "mask_file"}, {Name: "wm_txt"}, pipeline.Optional("gm_txt"), pipeline.Optional("csf_txt")}
	wf.Add(
		a.b.Tool("mrconvert", "mrtrix3.MRConvert",
			pipeline.Ports("in_file", "grad_file"),
			[]string{"out_file"},
			map[string]any{"out_file": "dwi.mif"}),
		a.b.Tool("dwi2response", "mrtrix3.ResponseSD",
			append(pipeline.Ports("in_file", "in_mask"), pipeline.Optional("mtt_file")),
			[]string{"wm_file", "gm_file", "csf_file"},
			map[string]any{"algorithm": wcfg.ResponseAlgorithm, "nthreads": a.cfg.Engine.OMPNThreads}),
		a.b.Tool("dwi2fod", "mrtrix3.ConstrainedSphericalDeconvolution",
			fodInputs,
			[]string{"wm_odf", "gm_odf", "csf_odf", "predicted_signal"},
			map[string]any{"algorithm": wcfg.FODAlgorithm, "nthreads": a.cfg.Engine.OMPNThreads}),
	)
	wf.ConnectMany(pipeline.InputNode, "mrconvert",
		string(dataset.DWINifti)+":in_file",
		string(dataset.DWIGrad)+":grad_file")
	wf.Connect("mrconvert", "out_file", "dwi2response", "in_file")
	wf.Connect(pipeline.InputNode, string(dataset.DWIMask), "dwi2response", "in_mask")
	if wcfg.ResponseAlgorithm == "msmt_5tt" {
		wf.Connect(coregOut, fiveTissueField, "dwi2response", "mtt_file")
	}
	wf.Connect("mrconvert", "out_file", "dwi2fod", "in_file")
	wf.Connect(pipeline.InputNode, string(dataset.DWIMask), "dwi2fod", "mask_file")
	for _, t := range pipeline.Product(pipeline.Axis{Name: "label", Values: labels}) {
		tissue := strings.ToLower(t.Value("label"))
		wf.Connect("dwi2response", tissue+"_file", "dwi2fod", tissue+"_txt")
		a.sink(wf, t.Name("ds_fod"), "dwi2fod", tissue+"_odf", s.seed, bids.Entities{
			bids.Space:     "dwi",
			bids.Label:     t.Value("label"),
			bids.Desc:      "FOD",
			bids.Suffix:    "dwiref",
			bids.Extension: ".nii.gz",
		})
	}

	for _, t := range a.trackingInstances() {
		a.track(wf, s, t, coregOut, sift)
	}

	s.wf.AddWorkflow(wf)
	s.wf.ConnectMany(pipeline.InputNode, wf.Name+"."+pipeline.InputNode, tractographyInputs...)
}

// track adds one tracking algorithm instance to wf.
func (a *assembly) track(wf *pipeline.Workflow, s *session, t pipeline.Tuple, coregOut string, sift bool) {
	wcfg := a.cfg.Workflow
	name := t.Name
	alg := t.Value("algorithm")
	rec := bids.Sanitize(alg)

	wf.Add(
		a.b.Function(name("estimate_tracts_parameters"), "tractography.EstimateParameters",
			pipeline.Ports("in_file", "stepscale", "lenscale_min", "lenscale_max"),
			"step_size", "min_length", "max_length").
			Bind("stepscale", wcfg.TrackingStepscale).
			Bind("lenscale_min", wcfg.TrackingLenscaleMin).
			Bind("lenscale_max", wcfg.TrackingLenscaleMax),
		a.b.Tool(name("tractography"), "mrtrix3.Tractography",
			pipeline.Ports("in_file", "seed_image", "act_file", "step_size", "min_length", "max_length"),
			[]string{"out_file"},
			map[string]any{
				"algorithm": alg,
				"angle":     wcfg.TrackingMaxAngle,
				"select":    wcfg.NRawTracts,
				"nthreads":  a.cfg.Engine.OMPNThreads,
			}),
		a.b.Tool(name("tckmap"), "mrtrix3.TckMap",
			pipeline.Ports("in_file", "template", "scalar_image"),
			[]string{"out_file"},
			map[string]any{"contrast": "scalar_map"}),
	)
	wf.Connect(pipeline.InputNode, string(dataset.DWINifti), name("estimate_tracts_parameters"), "in_file")
	wf.ConnectMany(name("estimate_tracts_parameters"), name("tractography"), "step_size", "min_length", "max_length")
	wf.Connect("dwi2fod", "wm_odf", name("tractography"), "in_file")
	wf.Connect(pipeline.InputNode, string(dataset.DWIMask), name("tractography"), "seed_image")
	wf.Connect(coregOut, fiveTissueField, name("tractography"), "act_file")

	wf.Connect(name("tractography"), "out_file", name("tckmap"), "in_file")
	wf.Connect(pipeline.InputNode, string(dataset.DWIReference), name("tckmap"), "template")
	wf.Connect("dwi2fod", "wm_odf", name("tckmap"), "scalar_image")

	tractEnts := func(desc, suffix, ext string) bids.Entities {
		return bids.Entities{
			bids.Reconstruction: rec,
			bids.Desc:           desc,
			bids.Suffix:         suffix,
			bids.Extension:      ext,
		}
	}
	a.sink(wf, name("ds_unfiltered_tracts"), name("tractography"), "out_file", s.seed, tractEnts("unfiltered", "tracts", ".tck"))
	a.sink(wf, name("ds_tdi_map"), name("tckmap"), "out_file", s.seed, tractEnts("TDI", "dwiref", ".nii.gz"))
	wf.Connect(name("tractography"), "out_file", pipeline.OutputNode, name(unfilteredField))
	wf.Connect(name("tckmap"), "out_file", pipeline.OutputNode, name(tdiField))

	if !sift {
		return
	}

	params := map[string]any{"fd_scale_gm": wcfg.FSScaleGM, "nthreads": a.cfg.Engine.OMPNThreads}
	if wcfg.SiftTermRatio > 0 {
		params["term_ratio"] = wcfg.SiftTermRatio
	} else {
		params["term_number"] = wcfg.NTracts
	}
	outputs := []string{"out_file"}
	if wcfg.DebugSift {
		params["out_debug"] = true
		outputs = append(outputs, "out_debug")
	}
	wf.Add(
		a.b.Tool(name("tcksift"), "mrtrix3.TckSift",
			pipeline.Ports("in_file", "in_fod", "act_file"),
			outputs, params),
		a.b.Tool(name("tcksift2"), "mrtrix3.TckSift2",
			pipeline.Ports("in_file", "in_fod", "act_file"),
			[]string{"out_file"},
			map[string]any{"fd_scale_gm": wcfg.FSScaleGM, "nthreads": a.cfg.Engine.OMPNThreads}),
	)
	for _, n := range []string{name("tcksift"), name("tcksift2")} {
		wf.Connect(name("tractography"), "out_file", n, "in_file")
		wf.Connect("dwi2fod", "wm_odf", n, "in_fod")
		wf.Connect(coregOut, fiveTissueField, n, "act_file")
	}
	a.sink(wf, name("ds_sifted_tracts"), name("tcksift"), "out_file", s.seed, tractEnts("SIFT", "tracts", ".tck"))
	a.sink(wf, name("ds_sift2_weights"), name("tcksift2"), "out_file", s.seed, tractEnts("SIFT2", "weights", ".txt"))
	wf.Connect(name("tcksift"), "out_file", pipeline.OutputNode, name(siftedField))
	wf.Connect(name("tcksift2"), "out_file", pipeline.OutputNode, name(sift2Field))
}

// coregFiveTissueType builds coreg_5tt_wf, moving the five-tissue-type
// image into diffusion space.
func (a *assembly) coregFiveTissueType() *pipeline.Workflow {
	wf := a.b.Workflow("coreg_5tt_wf", []string{
		string(dataset.DWIReference),
		string(dataset.T1wToDWITransform),
		string(dataset.T1wPreproc),
		fiveTissueField,
	}, []string{fiveTissueField})

	wf.Add(
		a.b.Tool("transform_convert", "mrtrix3.TransformFSLConvert",
			pipeline.Ports("in_file", "reference", "in_transform"),
			[]string{"out_transform"},
			map[string]any{"flirt_import": true}),
		a.b.Tool("mrtransform", "mrtrix3.MRTransform",
			pipeline.Ports("in_files", "linear_transform"),
			[]string{"out_file"},
			map[string]any{"inverse": true}),
	)
	wf.ConnectMany(pipeline.InputNode, "transform_convert",
		string(dataset.T1wPreproc)+":in_file",
		string(dataset.DWIReference)+":reference",
		string(dataset.T1wToDWITransform)+":in_transform")
	wf.Connect(pipeline.InputNode, fiveTissueField, "mrtransform", "in_files")
	wf.Connect("transform_convert", "out_transform", "mrtransform", "linear_transform")
	wf.Connect("mrtransform", "out_file", pipeline.OutputNode, fiveTissueField)
	return wf
}
