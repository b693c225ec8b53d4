package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/promptforge/api/internal/optimizer")

// PipelineResult holds the output of every stage. It is only ever returned complete.
type PipelineResult struct {
	Stage1 string `json:"stage1"`
	Stage2 string `json:"stage2"`
	Stage3 string `json:"stage3"`
}

// step describes one stage: which backend runs it and how its bindings are built
// from the shared context and the outputs of earlier stages.
type step struct {
	stage   Stage
	backend BackendID
	bind    func(input string, prior []string) map[string]string
}

var steps = []step{
	{
		stage:   Stage1,
		backend: BackendA,
		bind: func(input string, _ []string) map[string]string {
			return map[string]string{"input": input}
		},
	},
	{
		stage:   Stage2,
		backend: BackendB,
		bind: func(input string, prior []string) map[string]string {
			return map[string]string{"input": input, "priorOutput": prior[0]}
		},
	},
	{
		stage:   Stage3,
		backend: BackendC,
		bind: func(input string, prior []string) map[string]string {
			return map[string]string{"input": input, "stage1Output": prior[0], "stage2Output": prior[1]}
		},
	},
}

// Pipeline runs the three refinement stages in order. Each stage sees the
// context plus every earlier output, so stages cannot run concurrently.
type Pipeline struct {
	invoker    *Invoker
	templates  *TemplateRegistry
	maxRetries int
	logger     *zap.Logger
}

// NewPipeline creates a pipeline. maxRetries <= 0 uses the invoker's default.
func NewPipeline(invoker *Invoker, templates *TemplateRegistry, maxRetries int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		invoker:    invoker,
		templates:  templates,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Run executes stage 1 to 3. The first failing stage aborts the run with a
// *PipelineStageError and no partial result.
func (p *Pipeline) Run(ctx context.Context, input string, hasHistory bool) (*PipelineResult, error) {
	ctx, span := tracer.Start(ctx, "optimizer.Pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("pipeline.has_history", hasHistory),
		attribute.Int("pipeline.input_length", len(input)),
	)

	outputs := make([]string, 0, len(steps))
	for _, s := range steps {
		out, err := p.runStage(ctx, s, input, hasHistory, outputs)
		if err != nil {
			stageErr := &PipelineStageError{Stage: s.stage, Cause: err}
			span.RecordError(stageErr)
			span.SetStatus(codes.Error, stageErr.Error())
			return nil, stageErr
		}
		outputs = append(outputs, out)
	}

	p.logger.Info("pipeline completed", zap.Bool("has_history", hasHistory))
	return &PipelineResult{
		Stage1: outputs[0],
		Stage2: outputs[1],
		Stage3: outputs[2],
	}, nil
}

func (p *Pipeline) runStage(ctx context.Context, s step, input string, hasHistory bool, prior []string) (string, error) {
	ctx, span := tracer.Start(ctx, "optimizer.stage")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline.stage", s.stage.String()),
		attribute.String("pipeline.backend", string(s.backend)),
	)

	tmpl, ok := p.templates.Lookup(s.stage, hasHistory)
	if !ok {
		return "", fmt.Errorf("no template for %s in %s mode", s.stage, ModeFor(hasHistory))
	}

	p.logger.Info("stage started",
		zap.String("stage", s.stage.String()),
		zap.String("backend", string(s.backend)),
	)
	start := time.Now()
	out, err := p.invoker.Invoke(ctx, tmpl, s.bind(input, prior), s.backend, p.maxRetries)
	elapsed := time.Since(start)
	p.invoker.Recorder().ObserveStage(s.stage, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("stage failed",
			zap.String("stage", s.stage.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}

	p.logger.Info("stage completed",
		zap.String("stage", s.stage.String()),
		zap.Duration("elapsed", elapsed),
		zap.Int("output_length", len(out)),
	)
	return out, nil
}
