// Package driver assembles the graph of every selected subject and combines
// them under one top-level workflow. A subject that fails to assemble is
// recorded and skipped unless the run stops on the first failure.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/dwigrid/internal/assembler"
	"github.com/specialistvlad/dwigrid/internal/atlas"
	"github.com/specialistvlad/dwigrid/internal/config"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/dataset"
	"github.com/specialistvlad/dwigrid/internal/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Version is the pipeline version. It names the top-level workflow.
var Version = "0.1.0"

// ConfigFileName is the effective configuration written per subject.
const ConfigFileName = "dwigrid.hcl"

// ErrNoGraphs is returned when no subject could be assembled.
var ErrNoGraphs = errors.New("no subject graph could be assembled")

// Dataset lists subjects and resolves their inputs.
type Dataset interface {
	assembler.SubjectResolver
	Subjects(ctx context.Context) ([]string, error)
}

var _ Dataset = (*dataset.Resolver)(nil)

// Deps are the collaborators of RunAll.
type Deps struct {
	Dataset Dataset
	// Atlases are the descriptors of cfg.Workflow.Atlases, in the same order.
	Atlases []atlas.Descriptor
	// Saver writes the effective configuration next to each subject's crash
	// files. Nil disables the dump.
	Saver config.Saver
}

// CombinedGraph is the top-level workflow and the outcome per subject.
type CombinedGraph struct {
	Workflow *pipeline.Workflow
	// Subjects lists the subjects whose graph is part of Workflow.
	Subjects []string
	// Failures maps a subject to the error that kept it out of Workflow.
	Failures map[string]error
}

// TopWorkflowName derives dwigrid_<major>_<minor>_wf from Version.
func TopWorkflowName() string {
	parts := strings.SplitN(Version, ".", 3)
	major, minor := parts[0], "0"
	if len(parts) > 1 {
		minor = parts[1]
	}
	return fmt.Sprintf("dwigrid_%s_%s_wf", major, minor)
}

// RunAll assembles every selected subject.
func RunAll(ctx context.Context, cfg config.RunConfig, deps Deps) (*CombinedGraph, error) {
	logger := ctxlog.FromContext(ctx)

	subjects := cfg.Execution.ParticipantLabel
	if len(subjects) == 0 {
		var err error
		if subjects, err = deps.Dataset.Subjects(ctx); err != nil {
			return nil, fmt.Errorf("failed to list subjects: %w", err)
		}
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("no subjects found in %s", cfg.Execution.InputDir)
	}
	logger.Info("Driver: assembling subjects.", "count", len(subjects), "run_uuid", cfg.Execution.RunUUID)

	b := pipeline.NewBuilder(pipeline.ExecContext{
		WorkDir:  cfg.Execution.WorkDir,
		CrashDir: filepath.Join(cfg.Execution.OutputDir, "log", cfg.Execution.RunUUID),
	}, cfg.Execution.OutputDir)
	combined := &CombinedGraph{
		Workflow: b.Workflow(TopWorkflowName(), nil, nil),
		Failures: make(map[string]error),
	}
	asm := assembler.New(deps.Dataset)

	for _, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return combined, fmt.Errorf("assembly cancelled before subject %s: %w", subject, err)
		}

		wf, err := assembleSubject(ctx, asm, subject, cfg, deps)
		if err != nil {
			combined.Failures[subject] = err
			logger.Error("Driver: subject failed.", "subject", subject, "error", err)
			if cfg.Execution.StopOnFirstFailure {
				return combined, fmt.Errorf("subject %s: %w", subject, err)
			}
			continue
		}
		combined.Workflow.AddWorkflow(wf)
		combined.Subjects = append(combined.Subjects, subject)
	}

	if len(combined.Subjects) == 0 {
		return combined, fmt.Errorf("%w: %d of %d subjects failed", ErrNoGraphs, len(combined.Failures), len(subjects))
	}
	logger.Info("Driver: assembly finished.", "subjects", len(combined.Subjects), "failures", len(combined.Failures))
	return combined, nil
}

func assembleSubject(ctx context.Context, asm *assembler.Assembler, subject string, cfg config.RunConfig, deps Deps) (*pipeline.Workflow, error) {
	ctx, span := otel.Tracer("driver").Start(ctx, "driver.AssembleSubject",
		trace.WithAttributes(
			attribute.String("subject", subject),
			attribute.Int("atlases", len(deps.Atlases)),
		),
	)
	defer span.End()

	wf, err := asm.Assemble(ctx, subject, cfg, deps.Atlases)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assembly failed")
		return nil, err
	}

	if deps.Saver != nil {
		path := filepath.Join(assembler.CrashDir(cfg, subject), ConfigFileName)
		if err := deps.Saver.Save(ctx, path, cfg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "config dump failed")
			return nil, fmt.Errorf("failed to write configuration of subject %s: %w", subject, err)
		}
	}
	span.SetAttributes(attribute.Bool("success", true))
	return wf, nil
}
