package hcl_adapter

// configRoot mirrors the configuration file. Every block is optional and
// every attribute is a pointer, so absence is distinguishable from a zero value.
type configRoot struct {
	Execution *executionBlock `hcl:"execution,block"`
	Workflow  *workflowBlock  `hcl:"workflow,block"`
	Engine    *engineBlock    `hcl:"engine,block"`
	Seeds     *seedsBlock     `hcl:"seeds,block"`
}

type executionBlock struct {
	InputDir           *string   `hcl:"input_dir,optional"`
	DatabaseDir        *string   `hcl:"database_dir,optional"`
	ResetDatabase      *bool     `hcl:"reset_database,optional"`
	OutputDir          *string   `hcl:"output_dir,optional"`
	WorkDir            *string   `hcl:"work_dir,optional"`
	LogDir             *string   `hcl:"log_dir,optional"`
	LogLevel           *string   `hcl:"log_level,optional"`
	FSLicenseFile      *string   `hcl:"fs_license_file,optional"`
	FSSubjectsDir      *string   `hcl:"fs_subjects_dir,optional"`
	AtlasDir           *string   `hcl:"atlas_dir,optional"`
	AtlasCatalog       *string   `hcl:"atlas_catalog,optional"`
	ParticipantLabel   *[]string `hcl:"participant_label,optional"`
	RunUUID            *string   `hcl:"run_uuid,optional"`
	WriteGraph         *bool     `hcl:"write_graph,optional"`
	StopOnFirstFailure *bool     `hcl:"stop_on_first_failure,optional"`
	EngineURL          *string   `hcl:"engine_url,optional"`
	Debug              *[]string `hcl:"debug,optional"`
}

type workflowBlock struct {
	AnatOnly                 *bool     `hcl:"anat_only,optional"`
	DoTractography           *bool     `hcl:"do_tractography,optional"`
	DoSift                   *bool     `hcl:"do_sift,optional"`
	FiveTissueTypeAlgorithm  *string   `hcl:"five_tissue_type_algorithm,optional"`
	GMProbsegThreshold       *float64  `hcl:"gm_probseg_threshold,optional"`
	Atlases                  *[]string `hcl:"atlases,optional"`
	TensorMaxBval            *float64  `hcl:"tensor_max_bval,optional"`
	DipyReconstructionMethod *string   `hcl:"dipy_reconstruction_method,optional"`
	DipyReconstructionSigma  *float64  `hcl:"dipy_reconstruction_sigma,optional"`
	ParcellateGM             *bool     `hcl:"parcellate_gm,optional"`
	ResponseAlgorithm        *string   `hcl:"response_algorithm,optional"`
	FODAlgorithm             *string   `hcl:"fod_algorithm,optional"`
	NRawTracts               *int      `hcl:"n_raw_tracts,optional"`
	NTracts                  *int      `hcl:"n_tracts,optional"`
	SiftTermRatio            *float64  `hcl:"sift_term_ratio,optional"`
	DetTrackingAlgorithm     *string   `hcl:"det_tracking_algorithm,optional"`
	ProbTrackingAlgorithm    *string   `hcl:"prob_tracking_algorithm,optional"`
	TrackingMaxAngle         *float64  `hcl:"tracking_max_angle,optional"`
	TrackingLenscaleMin      *float64  `hcl:"tracking_lenscale_min,optional"`
	TrackingLenscaleMax      *float64  `hcl:"tracking_lenscale_max,optional"`
	TrackingStepscale        *float64  `hcl:"tracking_stepscale,optional"`
	FSScaleGM                *bool     `hcl:"fs_scale_gm,optional"`
	DebugSift                *bool     `hcl:"debug_sift,optional"`
}

type engineBlock struct {
	Plugin           *string  `hcl:"plugin,optional"`
	NProcs           *int     `hcl:"nprocs,optional"`
	OMPNThreads      *int     `hcl:"omp_nthreads,optional"`
	MemoryGB         *float64 `hcl:"memory_gb,optional"`
	StopOnFirstCrash *bool    `hcl:"stop_on_first_crash,optional"`
	CrashfileFormat  *string  `hcl:"crashfile_format,optional"`
	ResourceMonitor  *bool    `hcl:"resource_monitor,optional"`
}

type seedsBlock struct {
	Master *int `hcl:"master,optional"`
	ANTs   *int `hcl:"ants,optional"`
	NumPy  *int `hcl:"numpy,optional"`
}

// catalogRoot mirrors an atlas catalog file.
type catalogRoot struct {
	Atlases  []*atlasBlock  `hcl:"atlas,block"`
	Families []*familyBlock `hcl:"family,block"`
}

type atlasBlock struct {
	ID             string `hcl:"id,label"`
	ReferenceImage string `hcl:"reference_image"`
	RegionTable    string `hcl:"region_table"`
	LabelColumn    string `hcl:"label_column"`
	IndexColumn    *int   `hcl:"index_column,optional"`
}

type familyBlock struct {
	Name        string `hcl:"name,label"`
	Root        string `hcl:"root,optional"`
	Densities   []int  `hcl:"densities,optional"`
	Networks    []int  `hcl:"networks,optional"`
	LabelColumn string `hcl:"label_column"`
	IndexColumn *int   `hcl:"index_column,optional"`
}
