// Package assembler composes the complete processing graph of one subject
// from its resolved inputs, the run configuration and the selected atlases.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
)

// SubjectResolver locates the input files of one subject.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, subject string, anatOnly bool) (*dataset.SubjectInputSet, error)
}

// Assembler builds subject graphs. It holds no per-subject state, so one
// Assembler may serve every subject of a run.
type Assembler struct {
	resolver SubjectResolver
}

// New creates an Assembler reading inputs through resolver.
func New(resolver SubjectResolver) *Assembler {
	return &Assembler{resolver: resolver}
}

// SubjectWorkflowName is the name of the graph assembled for subject.
func SubjectWorkflowName(subject string) string {
	return "single_subject_" + subject + "_wf"
}

// CrashDir is where the engine writes the crash files of subject.
func CrashDir(cfg config.RunConfig, subject string) string {
	return filepath.Join(cfg.Execution.OutputDir, "sub-"+subject, "log", cfg.Execution.RunUUID)
}

// Assemble builds, validates and returns the graph of subject.
func (a *Assembler) Assemble(ctx context.Context, subject string, cfg config.RunConfig, atlases []atlas.Descriptor) (*pipeline.Workflow, error) {
	logger := ctxlog.FromContext(ctx).With("subject", subject)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inputs, err := a.resolver.ResolveSubject(ctx, subject, cfg.Workflow.AnatOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inputs of subject %s: %w", subject, err)
	}

	st := Stages(cfg, len(atlases) > 0)
	logger.Debug("Assemble: stage set computed.", "stages", st.List(), "atlases", len(atlases), "sessions", len(inputs.Sessions))

	exec := pipeline.ExecContext{WorkDir: cfg.Execution.WorkDir, CrashDir: CrashDir(cfg, subject)}
	asm := &assembly{
		ctx:     ctx,
		b:       pipeline.NewBuilder(exec, cfg.Execution.OutputDir),
		cfg:     cfg,
		stages:  st,
		atlases: atlasInstances(atlases),
		inputs:  inputs,
	}

	wf, err := asm.subject()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble subject %s: %w", subject, err)
	}

	if err := wf.Validate(); err != nil {
		return nil, fmt.Errorf("subject %s graph is inconsistent: %w", subject, err)
	}
	flat := wf.Flatten()
	logger.Info("Assemble: subject graph ready.", "nodes", len(flat.Nodes), "edges", len(flat.Edges))
	return wf, nil
}

// atlasInstance pairs a descriptor with its fan-out tuple and the entities
// it contributes to every derivative computed from it.
type atlasInstance struct {
	atlas.Descriptor
	tuple    pipeline.Tuple
	entities bids.Entities
}

func atlasInstances(descs []atlas.Descriptor) []atlasInstance {
	byID := make(map[string]atlas.Descriptor, len(descs))
	ids := make([]string, 0, len(descs))
	for _, d := range descs {
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	var out []atlasInstance
	for _, t := range pipeline.Product(pipeline.Axis{Name: "atlas", Values: ids}) {
		if len(t) == 0 {
			continue
		}
		d := byID[t.Value("atlas")]
		ents := bids.AtlasReferenceEntities(d.ReferenceImage)
		if ents[bids.Atlas] == "" {
			ents[bids.Atlas] = bids.Sanitize(d.ID)
		}
		out = append(out, atlasInstance{Descriptor: d, tuple: t, entities: ents})
	}
	return out
}

// assembly carries the state of one Assemble call.
type assembly struct {
	ctx     context.Context
	b       *pipeline.Builder
	cfg     config.RunConfig
	stages  StageSet
	atlases []atlasInstance
	inputs  *dataset.SubjectInputSet
	errs    []error
}

// sink adds a derivative sink fed by from.fromPort to wf. Naming failures
// are collected and reported once the graph is complete.
func (a *assembly) sink(wf *pipeline.Workflow, name, from, fromPort string, seed, overrides bids.Entities) {
	n, err := a.b.Sink(name, seed, overrides)
	if err != nil {
		a.errs = append(a.errs, fmt.Errorf("workflow %s: %w", wf.Name, err))
		return
	}
	wf.Add(n)
	wf.Connect(from, fromPort, name, "in_file")
}

func (a *assembly) err() error {
	return errors.Join(a.errs...)
}

// subject builds single_subject_<id>_wf.
func (a *assembly) subject() (*pipeline.Workflow, error) {
	fields := make([]string, 0, len(dataset.SubjectRoles)+1)
	fields = append(fields, "subject_id")
	for _, r := range dataset.SubjectRoles {
		fields = append(fields, string(r))
	}
	wf := a.b.Workflow(SubjectWorkflowName(a.inputs.SubjectID), fields, nil)
	in := wf.Node(pipeline.InputNode)
	in.Bind("subject_id", a.inputs.SubjectID)
	for _, r := range dataset.SubjectRoles {
		in.Bind(string(r), a.inputs.Anat[r])
	}

	anat := a.anatomical()
	wf.AddWorkflow(anat)
	wf.ConnectMany(pipeline.InputNode, anat.Name+"."+pipeline.InputNode, anatomicalInputs...)

	if a.stages.Has(StageSession) {
		for _, ses := range a.inputs.Sessions {
			a.session(wf, anat.Name, ses)
		}
	}
	if err := a.err(); err != nil {
		return nil, err
	}
	return wf, nil
}
