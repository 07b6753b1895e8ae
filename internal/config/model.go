package config

import (
	"runtime"
	"slices"
)

// RunConfig is the complete, run-wide configuration.
type RunConfig struct {
	Execution Execution
	Workflow  Workflow
	Engine    Engine
	Seeds     Seeds
}

// Execution holds paths, participant selection and run bookkeeping.
type Execution struct {
	// InputDir is the root of the preprocessed dataset.
	InputDir string
	// DatabaseDir holds the persistent dataset index. Empty keeps the index in memory.
	DatabaseDir   string
	ResetDatabase bool
	OutputDir     string
	WorkDir       string
	LogDir        string
	LogLevel      string
	FSLicenseFile string
	FSSubjectsDir string
	AtlasDir      string
	// AtlasCatalog is an optional HCL file registering extra atlases.
	AtlasCatalog       string
	ParticipantLabel   []string
	RunUUID            string
	WriteGraph         bool
	StopOnFirstFailure bool
	// EngineURL, when set, is the socket.io endpoint the graph is submitted to.
	EngineURL string
	Debug     []string
}

// Workflow holds the scientific choices that shape the graph.
type Workflow struct {
	AnatOnly       bool
	DoTractography bool
	DoSift         bool

	FiveTissueTypeAlgorithm string
	GMProbsegThreshold      float64
	// Atlases holds ids or the sentinel "all" before normalization and a
	// concrete sorted list after it.
	Atlases []string

	// TensorMaxBval of 0 means "use the highest observed shell".
	TensorMaxBval            float64
	DipyReconstructionMethod string
	// DipyReconstructionSigma of 0 lets the RESTORE fit estimate sigma.
	DipyReconstructionSigma float64
	ParcellateGM            bool

	ResponseAlgorithm     string
	FODAlgorithm          string
	NRawTracts            int
	NTracts               int
	SiftTermRatio         float64
	DetTrackingAlgorithm  string
	ProbTrackingAlgorithm string
	TrackingMaxAngle      float64
	TrackingLenscaleMin   float64
	TrackingLenscaleMax   float64
	TrackingStepscale     float64
	FSScaleGM             bool
	DebugSift             bool
}

// Engine holds options forwarded to the execution engine.
type Engine struct {
	Plugin           string
	NProcs           int
	OMPNThreads      int
	MemoryGB         float64
	StopOnFirstCrash bool
	CrashfileFormat  string
	ResourceMonitor  bool
}

// Seeds fixes the random state of the external tools. Zero means unset.
type Seeds struct {
	Master int
	ANTs   int
	NumPy  int
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() RunConfig {
	return RunConfig{
		Execution: Execution{
			ResetDatabase: true,
			WorkDir:       "work",
			LogLevel:      "info",
		},
		Workflow: Workflow{
			DoTractography:           true,
			DoSift:                   true,
			FiveTissueTypeAlgorithm:  "hsvs",
			GMProbsegThreshold:       0.0001,
			Atlases:                  []string{"all"},
			TensorMaxBval:            1000,
			DipyReconstructionMethod: "NLLS",
			ParcellateGM:             true,
			ResponseAlgorithm:        "dhollander",
			FODAlgorithm:             "msmt_csd",
			NRawTracts:               200000,
			NTracts:                  20000,
			DetTrackingAlgorithm:     "SD_Stream",
			ProbTrackingAlgorithm:    "iFOD2",
			TrackingMaxAngle:         45,
			TrackingLenscaleMin:      30,
			TrackingLenscaleMax:      500,
			TrackingStepscale:        0.2,
			FSScaleGM:                true,
		},
		Engine: Engine{
			Plugin:           "MultiProc",
			NProcs:           runtime.NumCPU(),
			OMPNThreads:      8,
			StopOnFirstCrash: true,
			CrashfileFormat:  "txt",
		},
	}
}

// Clone returns a deep copy so callers can derive a config without aliasing
// the slices of the original.
func (c RunConfig) Clone() RunConfig {
	out := c
	out.Execution.ParticipantLabel = slices.Clone(c.Execution.ParticipantLabel)
	out.Execution.Debug = slices.Clone(c.Execution.Debug)
	out.Workflow.Atlases = slices.Clone(c.Workflow.Atlases)
	return out
}

// TrackingAlgorithms returns the deterministic and probabilistic algorithm
// pair used by the tracking fan-out.
func (w Workflow) TrackingAlgorithms() []string {
	return []string{w.DetTrackingAlgorithm, w.ProbTrackingAlgorithm}
}

// MaxBval returns the requested maximum b-value, or nil for "observed maximum".
func (w Workflow) MaxBval() *float64 {
	if w.TensorMaxBval <= 0 {
		return nil
	}
	v := w.TensorMaxBval
	return &v
}

// DebugEnabled reports whether a debug facility was requested.
func (e Execution) DebugEnabled(facility string) bool {
	return slices.Contains(e.Debug, facility) || slices.Contains(e.Debug, "all")
}
