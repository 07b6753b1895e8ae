package assembler

import (
	"slices"

	"github.com/specialistvlad/dwigrid/internal/config"
)

// Stage names one optional branch of the subject graph.
type Stage string

const (
	StageAnatomical           Stage = "anatomical"
	StageFiveTissueType       Stage = "five_tissue_type"
	StageAtlasRegistration    Stage = "atlas_registration"
	StageSession              Stage = "session"
	StageTissueCoregistration Stage = "tissue_coregistration"
	StageTensorEstimation     Stage = "tensor_estimation"
	StageQC                   Stage = "qc"
	StageTractography         Stage = "tractography"
	StageSift                 Stage = "sift"
	StageConnectome           Stage = "connectome"
	StageParcellation         Stage = "parcellation"
	StageAtlasCoregistration  Stage = "atlas_coregistration"
)

// StageSet is the set of branches wired for one run.
type StageSet map[Stage]bool

// Has reports whether s is in the set.
func (s StageSet) Has(st Stage) bool { return s[st] }

// List returns the stages in sorted order.
func (s StageSet) List() []Stage {
	out := make([]Stage, 0, len(s))
	for st, ok := range s {
		if ok {
			out = append(out, st)
		}
	}
	slices.Sort(out)
	return out
}

// Stages derives the stage set from the configuration. It is computed once
// per assembly and every conditional wiring decision consults only it.
func Stages(cfg config.RunConfig, hasAtlases bool) StageSet {
	wf := cfg.Workflow
	s := StageSet{
		StageAnatomical:     true,
		StageFiveTissueType: true,
	}
	if hasAtlases {
		s[StageAtlasRegistration] = true
	}
	if wf.AnatOnly {
		return s
	}

	s[StageSession] = true
	s[StageTissueCoregistration] = true
	s[StageTensorEstimation] = true
	s[StageQC] = true

	if wf.DoTractography {
		s[StageTractography] = true
		if wf.DoSift {
			s[StageSift] = true
		}
		if hasAtlases {
			s[StageConnectome] = true
		}
	}
	if hasAtlases {
		s[StageParcellation] = true
		s[StageAtlasCoregistration] = true
	}
	return s
}
