package assembler

import (
	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

var qcInputs = []string{
	string(dataset.DWINifti),
	string(dataset.DWIGrad),
	string(dataset.DWIBval),
	string(dataset.DWIMask),
	string(dataset.EddyQC),
}

// qc builds qc_wf: the b0 SNR map, the per-volume tissue SNR series and
// the eddy quality files.
func (a *assembly) qc(s *session) {
	tissueFields := make([]string, len(tissues))
	for i, t := range tissues {
		tissueFields[i] = probsegField(t)
	}
	wf := a.b.Workflow("qc_wf", append(append([]string(nil), qcInputs...), tissueFields...),
		[]string{"snr", "snr_series", "eddy_qc"})

	wf.Add(
		a.b.Tool("extract_b0", "mrtrix3.DWIExtract",
			pipeline.Ports("in_file", "grad_file"),
			[]string{"out_file"},
			map[string]any{"bzero": true, "out_file": "b0.mif"}),
		a.b.Tool("calc_mean_b0", "mrtrix3.MRMath",
			pipeline.Ports("in_file"),
			[]string{"out_file"},
			map[string]any{"operation": "mean", "axis": 3, "out_file": "mean_b0.nii.gz"}),
		a.b.Tool("calc_std_b0", "mrtrix3.MRMath",
			pipeline.Ports("in_file"),
			[]string{"out_file"},
			map[string]any{"operation": "std", "axis": 3, "out_file": "std_b0.nii.gz"}),
		a.b.Tool("calc_snr", "fsl.BinaryMaths",
			pipeline.Ports("in_file", "operand_file"),
			[]string{"out_file"},
			map[string]any{"operation": "div"}),
		a.b.Tool("median_filter", "mrtrix3.MRFilter",
			pipeline.Ports("in_file"),
			[]string{"out_file"},
			map[string]any{"filter": "median", "out_file": "snr.nii.gz"}),
		a.b.Function("calc_snr_series", "qc.SNRSeries",
			pipeline.Ports("dwi_file", "bval_file", "brain_mask", "gm_probseg", "wm_probseg", "csf_probseg"),
			"out_file"),
		a.b.Function("collect_eddy_qc", "qc.CollectEddyQC", pipeline.Ports("eddyqc_dir"), "out_file"),
	)

	wf.ConnectMany(pipeline.InputNode, "extract_b0",
		string(dataset.DWINifti)+":in_file",
		string(dataset.DWIGrad)+":grad_file")
	wf.Connect("extract_b0", "out_file", "calc_mean_b0", "in_file")
	wf.Connect("extract_b0", "out_file", "calc_std_b0", "in_file")
	wf.Connect("calc_mean_b0", "out_file", "calc_snr", "in_file")
	wf.Connect("calc_std_b0", "out_file", "calc_snr", "operand_file")
	wf.Connect("calc_snr", "out_file", "median_filter", "in_file")

	wf.ConnectMany(pipeline.InputNode, "calc_snr_series",
		string(dataset.DWINifti)+":dwi_file",
		string(dataset.DWIBval)+":bval_file",
		string(dataset.DWIMask)+":brain_mask")
	wf.ConnectMany(pipeline.InputNode, "calc_snr_series", tissueFields...)
	wf.Connect(pipeline.InputNode, string(dataset.EddyQC), "collect_eddy_qc", "eddyqc_dir")

	a.sink(wf, "ds_snr", "median_filter", "out_file", s.seed, bids.Entities{
		bids.Space: "dwi", bids.Desc: "SNR", bids.Suffix: "dwiref", bids.Extension: ".nii.gz",
	})
	a.sink(wf, "ds_snr_series", "calc_snr_series", "out_file", s.seed, bids.Entities{
		bids.Desc: "SNR", bids.Suffix: "timeseries", bids.Extension: ".csv",
	})
	a.sink(wf, "ds_eddy_qc", "collect_eddy_qc", "out_file", s.seed, bids.Entities{
		bids.Desc: "eddy", bids.Suffix: "qc", bids.Extension: ".json",
	})

	wf.Connect("median_filter", "out_file", pipeline.OutputNode, "snr")
	wf.Connect("calc_snr_series", "out_file", pipeline.OutputNode, "snr_series")
	wf.Connect("collect_eddy_qc", "out_file", pipeline.OutputNode, "eddy_qc")

	s.wf.AddWorkflow(wf)
	in := wf.Name + "." + pipeline.InputNode
	s.wf.ConnectMany(pipeline.InputNode, in, qcInputs...)
	s.wf.ConnectMany("tissue_coregistration_wf."+pipeline.OutputNode, in, tissueFields...)
}
