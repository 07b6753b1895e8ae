package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/dwigrid/internal/atlas"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const outputDirName = "dwigrid"

// Hooks for deterministic tests.
var (
	now     = time.Now
	newUUID = uuid.NewString
	newSeed = func() int { return rand.IntN(65536) + 1 }
)

var (
	fiveTissueTypeAlgorithms = []string{"fsl", "hsvs"}
	dipyMethods              = []string{"NLLS", "OLS", "RT", "WLS", "restore"}
	responseAlgorithms       = []string{"dhollander", "fa", "manual", "msmt_5tt", "tax", "tournier"}
	fodAlgorithms            = []string{"csd", "msmt_csd"}
	detTrackingAlgorithms    = []string{"FACT", "SD_Stream", "Tensor_Det"}
	probTrackingAlgorithms   = []string{"Tensor_Prob", "iFOD1", "iFOD2"}
	enginePlugins            = []string{"Linear", "MultiProc"}
	crashfileFormats         = []string{"pklz", "txt"}
	logLevels                = []string{"debug", "error", "info", "warn"}
)

// ApplyDefaults fills every value derived from other values: output,
// FreeSurfer and atlas directories, the run id, and the seeds. Values that
// are already set are kept, so ApplyDefaults is idempotent.
func ApplyDefaults(raw RunConfig) RunConfig {
	cfg := raw.Clone()
	ex := &cfg.Execution

	parent := filepath.Dir(filepath.Clean(ex.InputDir))
	if ex.OutputDir == "" {
		ex.OutputDir = filepath.Join(parent, outputDirName)
	} else if filepath.Base(filepath.Clean(ex.OutputDir)) != outputDirName {
		ex.OutputDir = filepath.Join(ex.OutputDir, outputDirName)
	}
	if ex.FSSubjectsDir == "" {
		ex.FSSubjectsDir = filepath.Join(parent, "freesurfer")
	}
	if ex.AtlasDir == "" {
		ex.AtlasDir = filepath.Join(parent, "atlases")
	}
	if ex.WorkDir == "" {
		ex.WorkDir = "work"
	}
	if ex.LogDir == "" {
		ex.LogDir = filepath.Join(ex.OutputDir, "logs")
	}
	if ex.RunUUID == "" {
		ex.RunUUID = fmt.Sprintf("%s_%s", now().Format("20060102-150405"), newUUID())
	}

	seeds := &cfg.Seeds
	if seeds.Master == 0 {
		seeds.Master = newSeed()
	}
	rng := rand.New(rand.NewPCG(uint64(seeds.Master), 0))
	if seeds.ANTs == 0 {
		seeds.ANTs = rng.IntN(65536) + 1
	}
	if seeds.NumPy == 0 {
		seeds.NumPy = rng.IntN(65536) + 1
	}

	slices.Sort(ex.ParticipantLabel)
	ex.ParticipantLabel = slices.Compact(ex.ParticipantLabel)
	return cfg
}

// Normalize applies derived defaults, validates every constraint, and
// resolves the atlas selection through reg so that downstream consumers see
// a concrete, sorted list of ids.
func Normalize(raw RunConfig, reg *atlas.Registry) (RunConfig, error) {
	cfg := ApplyDefaults(raw)

	if err := validate(cfg, false); err != nil {
		return RunConfig{}, err
	}

	descs, err := reg.Resolve(cfg.Workflow.Atlases)
	if err != nil {
		return RunConfig{}, fmt.Errorf("%w: workflow.atlases: %w", ErrInvalidConfig, err)
	}
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		ids = append(ids, d.ID)
	}
	cfg.Workflow.Atlases = ids
	return cfg, nil
}

// Validate re-checks a normalized configuration. The graph assembler calls it
// before building anything.
func (c RunConfig) Validate() error {
	return validate(c, true)
}

func validate(c RunConfig, normalized bool) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	oneOf := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			fail("%s %q is not one of %v", field, value, allowed)
		}
	}

	ex, wf, en := c.Execution, c.Workflow, c.Engine

	if ex.InputDir == "" {
		fail("execution.input_dir is required")
	}
	oneOf("execution.log_level", ex.LogLevel, logLevels)

	oneOf("workflow.five_tissue_type_algorithm", wf.FiveTissueTypeAlgorithm, fiveTissueTypeAlgorithms)
	oneOf("workflow.dipy_reconstruction_method", wf.DipyReconstructionMethod, dipyMethods)
	oneOf("workflow.response_algorithm", wf.ResponseAlgorithm, responseAlgorithms)
	oneOf("workflow.fod_algorithm", wf.FODAlgorithm, fodAlgorithms)
	oneOf("workflow.det_tracking_algorithm", wf.DetTrackingAlgorithm, detTrackingAlgorithms)
	oneOf("workflow.prob_tracking_algorithm", wf.ProbTrackingAlgorithm, probTrackingAlgorithms)

	if wf.GMProbsegThreshold < 0 || wf.GMProbsegThreshold > 1 {
		fail("workflow.gm_probseg_threshold %g must be within [0, 1]", wf.GMProbsegThreshold)
	}
	if wf.TensorMaxBval < 0 {
		fail("workflow.tensor_max_bval %g must not be negative", wf.TensorMaxBval)
	}
	if wf.DipyReconstructionSigma < 0 {
		fail("workflow.dipy_reconstruction_sigma %g must not be negative", wf.DipyReconstructionSigma)
	}

	if wf.DoTractography {
		if wf.NRawTracts <= 0 {
			fail("workflow.n_raw_tracts must be positive")
		}
		if wf.TrackingLenscaleMin <= 0 || wf.TrackingLenscaleMin >= wf.TrackingLenscaleMax {
			fail("workflow.tracking_lenscale_min %g must be positive and below tracking_lenscale_max %g", wf.TrackingLenscaleMin, wf.TrackingLenscaleMax)
		}
		if wf.TrackingStepscale <= 0 {
			fail("workflow.tracking_stepscale must be positive")
		}
		if wf.TrackingMaxAngle <= 0 || wf.TrackingMaxAngle > 90 {
			fail("workflow.tracking_max_angle %g must be within (0, 90]", wf.TrackingMaxAngle)
		}
	}

	if wf.DoSift {
		hasCount, hasRatio := wf.NTracts > 0, wf.SiftTermRatio > 0
		switch {
		case hasCount && hasRatio:
			fail("workflow.n_tracts and workflow.sift_term_ratio are mutually exclusive")
		case !hasCount && !hasRatio:
			fail("SIFT filtering needs workflow.n_tracts or workflow.sift_term_ratio")
		}
		if hasRatio && wf.SiftTermRatio > 1 {
			fail("workflow.sift_term_ratio %g must be within (0, 1]", wf.SiftTermRatio)
		}
		if hasCount && wf.NRawTracts > 0 && wf.NTracts > wf.NRawTracts {
			fail("workflow.n_tracts %d exceeds workflow.n_raw_tracts %d", wf.NTracts, wf.NRawTracts)
		}
	}
	if wf.NTracts < 0 || wf.SiftTermRatio < 0 {
		fail("SIFT targets must not be negative")
	}

	oneOf("engine.plugin", en.Plugin, enginePlugins)
	oneOf("engine.crashfile_format", en.CrashfileFormat, crashfileFormats)
	if en.NProcs < 1 || en.OMPNThreads < 1 {
		fail("engine.nprocs and engine.omp_nthreads must be at least 1")
	}
	if en.MemoryGB < 0 {
		fail("engine.memory_gb must not be negative")
	}

	if normalized {
		if slices.Contains(wf.Atlases, atlas.All) {
			fail("workflow.atlases must be resolved before assembly")
		}
		if !slices.IsSorted(wf.Atlases) {
			fail("workflow.atlases must be sorted")
		}
		if ex.RunUUID == "" || ex.OutputDir == "" {
			fail("execution.run_uuid and execution.output_dir must be set")
		}
	}

	return errors.Join(errs...)
}
