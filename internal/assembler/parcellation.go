package assembler

import (
	"slices"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

// parcellationMeasures is the battery of robust region summaries computed
// for every region of every metric map.
var parcellationMeasures = []string{"mean", "zfmean", "qfmean", "iqrmean", "median", "madmedian"}

func softwareInstances() []pipeline.Tuple {
	var names []string
	for _, tc := range toolchains() {
		names = append(names, tc.software)
	}
	return pipeline.Product(pipeline.Axis{Name: "software", Values: names})
}

func toolchainFor(software string) toolchain {
	for _, tc := range toolchains() {
		if tc.software == software {
			return tc
		}
	}
	panic("unknown tensor software " + software)
}

// atlasCoregistration builds atlas_coregistration_wf for one atlas, moving
// both parcellations into diffusion space.
func (a *assembly) atlasCoregistration(s *session, at atlasInstance) {
	fields := []string{wholeBrainField, gmCroppedField}
	wf := a.b.Workflow(at.tuple.Name("atlas_coregistration_wf"),
		append([]string{string(dataset.DWIReference), string(dataset.T1wToDWITransform)}, fields...),
		fields)
	seed := s.seed.Merge(at.entities)

	for _, p := range []struct{ field, node, sink, label string }{
		{wholeBrainField, "apply_transforms_wholebrain", "ds_wholebrain", "WholeBrain"},
		{gmCroppedField, "apply_transforms_gm_cropped", "ds_gm_cropped", "GM"},
	} {
		wf.Add(applyXFM(a.b, p.node, "nearestneighbour"))
		wf.ConnectMany(pipeline.InputNode, p.node,
			p.field+":in_file",
			string(dataset.DWIReference)+":reference",
			string(dataset.T1wToDWITransform)+":in_matrix_file")
		a.sink(wf, p.sink, p.node, "out_file", seed, parcellationEntities("dwi", p.label))
		wf.Connect(p.node, "out_file", pipeline.OutputNode, p.field)
	}

	s.wf.AddWorkflow(wf)
	in := wf.Name + "." + pipeline.InputNode
	s.wf.ConnectMany(pipeline.InputNode, in, string(dataset.DWIReference), string(dataset.T1wToDWITransform))
	for _, f := range fields {
		s.wf.Connect(pipeline.InputNode, at.tuple.Name(f), in, f)
	}
}

// parcellations builds parcellations_wf for one atlas and tensor software:
// every metric map is summarized per atlas region.
func (a *assembly) parcellations(s *session, at atlasInstance, sw pipeline.Tuple) {
	tc := toolchainFor(sw.Value("software"))
	instance := append(slices.Clone(at.tuple), sw...)
	wf := a.b.Workflow(instance.Name("parcellations_wf"),
		append([]string{"atlas_nifti"}, tc.metrics...), nil)

	atlasField, label := wholeBrainField, "WholeBrain"
	if a.cfg.Workflow.ParcellateGM {
		atlasField, label = gmCroppedField, "GM"
	}
	seed := s.seed.Merge(at.entities)

	for _, m := range tc.metrics {
		parcellate := "parcellate_" + m
		n := a.b.Function(parcellate, "parcellation.ParcellateAllMeasures",
			[]pipeline.Port{
				{Name: "in_file"}, {Name: "atlas_nifti"}, {Name: "region_table"},
				{Name: "label_column"}, pipeline.Optional("index_column"), {Name: "measures"},
			},
			"out_file").
			Bind("region_table", at.RegionTable).
			Bind("label_column", at.LabelColumn).
			Bind("measures", parcellationMeasures)
		if at.IndexColumn != nil {
			n.Bind("index_column", *at.IndexColumn)
		}
		wf.Add(n)
		wf.Connect(pipeline.InputNode, m, parcellate, "in_file")
		wf.Connect(pipeline.InputNode, "atlas_nifti", parcellate, "atlas_nifti")

		a.sink(wf, "ds_"+m, parcellate, "out_file", seed, bids.Entities{
			bids.Acquisition: s.acq,
			bids.Software:    tc.software,
			bids.Space:       "dwi",
			bids.Label:       label,
			bids.Desc:        m,
			bids.Suffix:      "parc",
			bids.Extension:   ".csv",
		})
	}

	s.wf.AddWorkflow(wf)
	in := wf.Name + "." + pipeline.InputNode
	s.wf.Connect(at.tuple.Name("atlas_coregistration_wf")+"."+pipeline.OutputNode, atlasField, in, "atlas_nifti")
	for _, m := range tc.metrics {
		s.wf.Connect(tensorWorkflow+"."+pipeline.OutputNode, tc.metricField(m), in, m)
	}
}
