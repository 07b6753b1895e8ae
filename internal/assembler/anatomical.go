package assembler

import (
	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

const anatomicalWorkflow = "anatomical_wf"

// anatomicalInputs are forwarded from the subject inputnode.
var anatomicalInputs = []string{
	"subject_id",
	string(dataset.T1wPreproc),
	string(dataset.MNIToNativeTransform),
	string(dataset.GMProbseg),
}

const (
	wholeBrainField = "whole_brain_parcellation"
	gmCroppedField  = "gm_cropped_parcellation"
	fiveTissueField = "five_tissue_type"
)

// anatomical builds anatomical_wf: atlas registration into T1w space and
// the five-tissue-type segmentation.
func (a *assembly) anatomical() *pipeline.Workflow {
	outputs := []string{fiveTissueField}
	if a.stages.Has(StageAtlasRegistration) {
		for _, at := range a.atlases {
			outputs = append(outputs, at.tuple.Name(wholeBrainField), at.tuple.Name(gmCroppedField))
		}
	}
	wf := a.b.Workflow(anatomicalWorkflow, anatomicalInputs, outputs)
	seed := bids.SourceEntities(a.inputs.Anat[dataset.T1wPreproc])

	if a.stages.Has(StageAtlasRegistration) {
		for _, at := range a.atlases {
			a.registerAtlas(wf, at, seed)
		}
	}

	if a.stages.Has(StageFiveTissueType) {
		ftt := a.fiveTissueType(seed)
		wf.AddWorkflow(ftt)
		wf.ConnectMany(pipeline.InputNode, ftt.Name+"."+pipeline.InputNode, "subject_id", string(dataset.T1wPreproc))
		wf.Connect(ftt.Name+"."+pipeline.OutputNode, fiveTissueField, pipeline.OutputNode, fiveTissueField)
	}
	return wf
}

func (a *assembly) registerAtlas(wf *pipeline.Workflow, at atlasInstance, seed bids.Entities) {
	name := at.tuple.Name
	wf.Add(
		a.b.Function(name("get_atlas_info"), "atlas.GetAtlasInfo",
			pipeline.Ports("atlas_id", "reference_image", "region_table"),
			"atlas_nifti", "region_table").
			Bind("atlas_id", at.ID).
			Bind("reference_image", at.ReferenceImage).
			Bind("region_table", at.RegionTable),
		a.b.Tool(name("register_atlas"), "ants.ApplyTransforms",
			pipeline.Ports("input_image", "reference_image", "transforms"),
			[]string{"output_image"},
			map[string]any{"interpolation": "NearestNeighbor", "dimension": 3}),
		a.b.Tool(name("resample_gm"), "ants.ApplyTransforms",
			pipeline.Ports("input_image", "reference_image"),
			[]string{"output_image"},
			map[string]any{"transforms": "identity", "interpolation": "Linear", "dimension": 3}),
		a.b.Tool(name("threshold_gm"), "fsl.Threshold",
			pipeline.Ports("in_file"),
			[]string{"out_file"},
			map[string]any{"thresh": a.cfg.Workflow.GMProbsegThreshold, "direction": "below", "args": "-bin"}),
		a.b.Tool(name("crop_to_gm"), "fsl.ApplyMask",
			pipeline.Ports("in_file", "mask_file"),
			[]string{"out_file"}, nil),
		a.b.Function(name("atlas_registration_report"), "reports.AtlasRegistrationReport",
			pipeline.Ports("t1w_file", "atlas_file"), "out_report"),
		a.b.Function(name("n_voxels_in_atlas"), "reports.NVoxelsInAtlas",
			pipeline.Ports("whole_brain", "gm_cropped", "region_table"), "out_file"),
	)

	wf.Connect(name("get_atlas_info"), "atlas_nifti", name("register_atlas"), "input_image")
	wf.Connect(pipeline.InputNode, string(dataset.T1wPreproc), name("register_atlas"), "reference_image")
	wf.Connect(pipeline.InputNode, string(dataset.MNIToNativeTransform), name("register_atlas"), "transforms")

	wf.Connect(pipeline.InputNode, string(dataset.GMProbseg), name("resample_gm"), "input_image")
	wf.Connect(name("register_atlas"), "output_image", name("resample_gm"), "reference_image")
	wf.Connect(name("resample_gm"), "output_image", name("threshold_gm"), "in_file")
	wf.Connect(name("register_atlas"), "output_image", name("crop_to_gm"), "in_file")
	wf.Connect(name("threshold_gm"), "out_file", name("crop_to_gm"), "mask_file")

	wf.Connect(pipeline.InputNode, string(dataset.T1wPreproc), name("atlas_registration_report"), "t1w_file")
	wf.Connect(name("register_atlas"), "output_image", name("atlas_registration_report"), "atlas_file")
	wf.Connect(name("register_atlas"), "output_image", name("n_voxels_in_atlas"), "whole_brain")
	wf.Connect(name("crop_to_gm"), "out_file", name("n_voxels_in_atlas"), "gm_cropped")
	wf.Connect(name("get_atlas_info"), "region_table", name("n_voxels_in_atlas"), "region_table")

	atlasSeed := seed.Merge(at.entities)
	a.sink(wf, name("ds_wholebrain"), name("register_atlas"), "output_image", atlasSeed, parcellationEntities("T1w", "WholeBrain"))
	a.sink(wf, name("ds_gm_cropped"), name("crop_to_gm"), "out_file", atlasSeed, parcellationEntities("T1w", "GM"))

	wf.Connect(name("register_atlas"), "output_image", pipeline.OutputNode, name(wholeBrainField))
	wf.Connect(name("crop_to_gm"), "out_file", pipeline.OutputNode, name(gmCroppedField))
}

func parcellationEntities(space, label string) bids.Entities {
	return bids.Entities{
		bids.Space:     space,
		bids.Label:     label,
		bids.Suffix:    "dseg",
		bids.Extension: ".nii.gz",
	}
}

// fiveTissueType builds five_tissue_type_wf. The hsvs algorithm segments
// the FreeSurfer reconstruction, every other algorithm the T1w image.
func (a *assembly) fiveTissueType(seed bids.Entities) *pipeline.Workflow {
	algo := a.cfg.Workflow.FiveTissueTypeAlgorithm
	wf := a.b.Workflow("five_tissue_type_wf", []string{"subject_id", string(dataset.T1wPreproc)}, []string{fiveTissueField})

	wf.Add(a.b.Tool("generate_5tt", "mrtrix3.Generate5tt",
		pipeline.Ports("in_file"),
		[]string{"out_file"},
		map[string]any{"algorithm": algo, "out_file": "5tt.mif", "nthreads": a.cfg.Engine.OMPNThreads}))

	if algo == "hsvs" {
		wf.Add(a.b.Function("locate_fs_subject_dir", "freesurfer.LocateSubjectDir",
			pipeline.Ports("subject_id", "fs_subjects_dir"), "subject_dir").
			Bind("fs_subjects_dir", a.cfg.Execution.FSSubjectsDir))
		wf.Connect(pipeline.InputNode, "subject_id", "locate_fs_subject_dir", "subject_id")
		wf.Connect("locate_fs_subject_dir", "subject_dir", "generate_5tt", "in_file")
	} else {
		wf.Connect(pipeline.InputNode, string(dataset.T1wPreproc), "generate_5tt", "in_file")
	}

	a.sink(wf, "ds_5tt", "generate_5tt", "out_file", seed, bids.Entities{
		bids.Space:          "T1w",
		bids.Reconstruction: bids.Sanitize(algo),
		bids.Suffix:         "5TT",
		bids.Extension:      ".mif",
	})
	wf.Connect("generate_5tt", "out_file", pipeline.OutputNode, fiveTissueField)
	return wf
}
