package hcl_adapter

import (
	"slices"

	"github.com/specialistvlad/dwigrid/internal/config"
)

func overlay[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// overlaySlice keeps an empty list as nil so a saved nil slice loads back
// unchanged.
func overlaySlice[T any](dst *[]T, src *[]T) {
	if src == nil {
		return
	}
	if len(*src) == 0 {
		*dst = nil
		return
	}
	*dst = slices.Clone(*src)
}

func ptr[T any](v T) *T { return &v }

func slicePtr[T any](v []T) *[]T {
	c := slices.Clone(v)
	if c == nil {
		c = []T{}
	}
	return &c
}

// translateConfig overlays every attribute present in root onto cfg.
func translateConfig(cfg *config.RunConfig, root *configRoot) {
	if ex := root.Execution; ex != nil {
		dst := &cfg.Execution
		overlay(&dst.InputDir, ex.InputDir)
		overlay(&dst.DatabaseDir, ex.DatabaseDir)
		overlay(&dst.ResetDatabase, ex.ResetDatabase)
		overlay(&dst.OutputDir, ex.OutputDir)
		overlay(&dst.WorkDir, ex.WorkDir)
		overlay(&dst.LogDir, ex.LogDir)
		overlay(&dst.LogLevel, ex.LogLevel)
		overlay(&dst.FSLicenseFile, ex.FSLicenseFile)
		overlay(&dst.FSSubjectsDir, ex.FSSubjectsDir)
		overlay(&dst.AtlasDir, ex.AtlasDir)
		overlay(&dst.AtlasCatalog, ex.AtlasCatalog)
		overlaySlice(&dst.ParticipantLabel, ex.ParticipantLabel)
		overlay(&dst.RunUUID, ex.RunUUID)
		overlay(&dst.WriteGraph, ex.WriteGraph)
		overlay(&dst.StopOnFirstFailure, ex.StopOnFirstFailure)
		overlay(&dst.EngineURL, ex.EngineURL)
		overlaySlice(&dst.Debug, ex.Debug)
	}

	if wf := root.Workflow; wf != nil {
		dst := &cfg.Workflow
		overlay(&dst.AnatOnly, wf.AnatOnly)
		overlay(&dst.DoTractography, wf.DoTractography)
		overlay(&dst.DoSift, wf.DoSift)
		overlay(&dst.FiveTissueTypeAlgorithm, wf.FiveTissueTypeAlgorithm)
		overlay(&dst.GMProbsegThreshold, wf.GMProbsegThreshold)
		overlaySlice(&dst.Atlases, wf.Atlases)
		overlay(&dst.TensorMaxBval, wf.TensorMaxBval)
		overlay(&dst.DipyReconstructionMethod, wf.DipyReconstructionMethod)
		overlay(&dst.DipyReconstructionSigma, wf.DipyReconstructionSigma)
		overlay(&dst.ParcellateGM, wf.ParcellateGM)
		overlay(&dst.ResponseAlgorithm, wf.ResponseAlgorithm)
		overlay(&dst.FODAlgorithm, wf.FODAlgorithm)
		overlay(&dst.NRawTracts, wf.NRawTracts)
		overlay(&dst.NTracts, wf.NTracts)
		overlay(&dst.SiftTermRatio, wf.SiftTermRatio)
		overlay(&dst.DetTrackingAlgorithm, wf.DetTrackingAlgorithm)
		overlay(&dst.ProbTrackingAlgorithm, wf.ProbTrackingAlgorithm)
		overlay(&dst.TrackingMaxAngle, wf.TrackingMaxAngle)
		overlay(&dst.TrackingLenscaleMin, wf.TrackingLenscaleMin)
		overlay(&dst.TrackingLenscaleMax, wf.TrackingLenscaleMax)
		overlay(&dst.TrackingStepscale, wf.TrackingStepscale)
		overlay(&dst.FSScaleGM, wf.FSScaleGM)
		overlay(&dst.DebugSift, wf.DebugSift)
	}

	if en := root.Engine; en != nil {
		dst := &cfg.Engine
		overlay(&dst.Plugin, en.Plugin)
		overlay(&dst.NProcs, en.NProcs)
		overlay(&dst.OMPNThreads, en.OMPNThreads)
		overlay(&dst.MemoryGB, en.MemoryGB)
		overlay(&dst.StopOnFirstCrash, en.StopOnFirstCrash)
		overlay(&dst.CrashfileFormat, en.CrashfileFormat)
		overlay(&dst.ResourceMonitor, en.ResourceMonitor)
	}

	if s := root.Seeds; s != nil {
		overlay(&cfg.Seeds.Master, s.Master)
		overlay(&cfg.Seeds.ANTs, s.ANTs)
		overlay(&cfg.Seeds.NumPy, s.NumPy)
	}
}

// encodeConfig is the inverse of translateConfig: every field is written,
// so the file is complete on its own.
func encodeConfig(cfg config.RunConfig) *configRoot {
	ex, wf, en := cfg.Execution, cfg.Workflow, cfg.Engine
	return &configRoot{
		Execution: &executionBlock{
			InputDir:           ptr(ex.InputDir),
			DatabaseDir:        ptr(ex.DatabaseDir),
			ResetDatabase:      ptr(ex.ResetDatabase),
			OutputDir:          ptr(ex.OutputDir),
			WorkDir:            ptr(ex.WorkDir),
			LogDir:             ptr(ex.LogDir),
			LogLevel:           ptr(ex.LogLevel),
			FSLicenseFile:      ptr(ex.FSLicenseFile),
			FSSubjectsDir:      ptr(ex.FSSubjectsDir),
			AtlasDir:           ptr(ex.AtlasDir),
			AtlasCatalog:       ptr(ex.AtlasCatalog),
			ParticipantLabel:   slicePtr(ex.ParticipantLabel),
			RunUUID:            ptr(ex.RunUUID),
			WriteGraph:         ptr(ex.WriteGraph),
			StopOnFirstFailure: ptr(ex.StopOnFirstFailure),
			EngineURL:          ptr(ex.EngineURL),
			Debug:              slicePtr(ex.Debug),
		},
		Workflow: &workflowBlock{
			AnatOnly:                 ptr(wf.AnatOnly),
			DoTractography:           ptr(wf.DoTractography),
			DoSift:                   ptr(wf.DoSift),
			FiveTissueTypeAlgorithm:  ptr(wf.FiveTissueTypeAlgorithm),
			GMProbsegThreshold:       ptr(wf.GMProbsegThreshold),
			Atlases:                  slicePtr(wf.Atlases),
			TensorMaxBval:            ptr(wf.TensorMaxBval),
			DipyReconstructionMethod: ptr(wf.DipyReconstructionMethod),
			DipyReconstructionSigma:  ptr(wf.DipyReconstructionSigma),
			ParcellateGM:             ptr(wf.ParcellateGM),
			ResponseAlgorithm:        ptr(wf.ResponseAlgorithm),
			FODAlgorithm:             ptr(wf.FODAlgorithm),
			NRawTracts:               ptr(wf.NRawTracts),
			NTracts:                  ptr(wf.NTracts),
			SiftTermRatio:            ptr(wf.SiftTermRatio),
			DetTrackingAlgorithm:     ptr(wf.DetTrackingAlgorithm),
			ProbTrackingAlgorithm:    ptr(wf.ProbTrackingAlgorithm),
			TrackingMaxAngle:         ptr(wf.TrackingMaxAngle),
			TrackingLenscaleMin:      ptr(wf.TrackingLenscaleMin),
			TrackingLenscaleMax:      ptr(wf.TrackingLenscaleMax),
			TrackingStepscale:        ptr(wf.TrackingStepscale),
			FSScaleGM:                ptr(wf.FSScaleGM),
			DebugSift:                ptr(wf.DebugSift),
		},
		Engine: &engineBlock{
			Plugin:           ptr(en.Plugin),
			NProcs:           ptr(en.NProcs),
			OMPNThreads:      ptr(en.OMPNThreads),
			MemoryGB:         ptr(en.MemoryGB),
			StopOnFirstCrash: ptr(en.StopOnFirstCrash),
			CrashfileFormat:  ptr(en.CrashfileFormat),
			ResourceMonitor:  ptr(en.ResourceMonitor),
		},
		Seeds: &seedsBlock{
			Master: ptr(cfg.Seeds.Master),
			ANTs:   ptr(cfg.Seeds.ANTs),
			NumPy:  ptr(cfg.Seeds.NumPy),
		},
	}
}
