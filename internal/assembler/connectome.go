package assembler

import (
	"slices"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

var (
	connectomeScales  = []string{"invlength", "invnodevol", "length", "raw"}
	connectomeMetrics = []string{"max", "mean", "min", "sum"}
)

const (
	sifted   = "sifted"
	unsifted = "unsifted"
)

// connectomeAxes are the fan-out axes of one connectome_wf. Without SIFT
// only the unfiltered tracts exist.
func (a *assembly) connectomeAxes() []pipeline.Axis {
	tracts := []string{unsifted}
	if a.stages.Has(StageSift) {
		tracts = append(tracts, sifted)
	}
	return []pipeline.Axis{
		{Name: "scale", Values: connectomeScales},
		{Name: "metric", Values: connectomeMetrics},
		{Name: "tracts", Values: tracts},
	}
}

// connectome builds connectome_wf for one atlas and tracking algorithm.
func (a *assembly) connectome(s *session, at atlasInstance, alg pipeline.Tuple) {
	sift := a.stages.Has(StageSift)
	inputs := []string{"atlas_nifti", "tracts_unsifted"}
	if sift {
		inputs = append(inputs, "tracts_sifted", "tck_weights")
	}
	instance := append(slices.Clone(at.tuple), alg...)
	wf := a.b.Workflow(instance.Name("connectome_wf"), inputs, nil)
	seed := s.seed.Merge(at.entities)
	rec := bids.Sanitize(alg.Value("algorithm"))

	for _, c := range pipeline.Product(a.connectomeAxes()...) {
		scale, metric, tracts := c.Value("scale"), c.Value("metric"), c.Value("tracts")
		build := c.Name("build_connectome")

		params := map[string]any{"stat_edge": metric, "out_assignments": true, "symmetric": true, "zero_diagonal": true}
		if scale != "raw" {
			params["scale"] = scale
		}
		wf.Add(a.b.Tool(build, "mrtrix3.BuildConnectome",
			append(pipeline.Ports("in_tracts", "in_nodes"), pipeline.Optional("tck_weights_in")),
			[]string{"out_file", "out_assignments"},
			params))
		wf.Connect(pipeline.InputNode, "atlas_nifti", build, "in_nodes")
		wf.Connect(pipeline.InputNode, "tracts_"+tracts, build, "in_tracts")

		weight := ""
		switch {
		case tracts == sifted:
			weight = "SIFT"
		case sift:
			weight = "SIFT2"
			wf.Connect(pipeline.InputNode, "tck_weights", build, "tck_weights_in")
		}

		ents := func(suffix string) bids.Entities {
			return bids.Entities{
				bids.Reconstruction: rec,
				bids.Weight:         weight,
				bids.Scale:          scale,
				bids.Measure:        metric,
				bids.Subtype:        "connectomes",
				bids.Suffix:         suffix,
				bids.Extension:      ".csv",
			}
		}
		a.sink(wf, c.Name("ds_connectome"), build, "out_file", seed, ents("connectome"))
		a.sink(wf, c.Name("ds_assignments"), build, "out_assignments", seed, ents("assignments"))
	}

	s.wf.AddWorkflow(wf)
	in := wf.Name + "." + pipeline.InputNode
	tracts := tractographyWorkflow + "." + pipeline.OutputNode
	s.wf.Connect(at.tuple.Name("atlas_coregistration_wf")+"."+pipeline.OutputNode, wholeBrainField, in, "atlas_nifti")
	s.wf.Connect(tracts, alg.Name(unfilteredField), in, "tracts_unsifted")
	if sift {
		s.wf.Connect(tracts, alg.Name(siftedField), in, "tracts_sifted")
		s.wf.Connect(tracts, alg.Name(sift2Field), in, "tck_weights")
	}
}
