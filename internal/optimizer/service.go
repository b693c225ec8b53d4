// Package optimizer implements the three-stage prompt refinement pipeline:
// context assembly from a requirement and conversation history, sequential
// stage execution over three chat backends, and retried model invocation.
//
// The package keeps no state between calls. Endpoint configuration and the
// template registry are read-only once a Service is built, so one Service is
// shared by every request.
package optimizer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Settings tunes the core.
type Settings struct {
	SummaryThreshold int
	MaxRetries       int
	RetryDelay       time.Duration
}

// Service is the entry point used by request handlers and workers.
type Service struct {
	builder    *ContextBuilder
	pipeline   *Pipeline
	summarizer *Summarizer
	titler     *Titler
	logger     *zap.Logger
}

// NewService wires the core components over the given endpoints.
func NewService(endpoints map[BackendID]ChatEndpoint, templates *TemplateRegistry, settings Settings, logger *zap.Logger, opts ...InvokerOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	invoker := NewInvoker(endpoints, LinearBackoff(settings.MaxRetries, settings.RetryDelay), logger, opts...)
	return &Service{
		builder:    NewContextBuilder(settings.SummaryThreshold, logger),
		pipeline:   NewPipeline(invoker, templates, settings.MaxRetries, logger),
		summarizer: NewSummarizer(invoker, templates, settings.MaxRetries, logger),
		titler:     NewTitler(invoker, templates),
		logger:     logger,
	}
}

// Builder exposes the context builder, e.g. for decoding raw history.
func (s *Service) Builder() *ContextBuilder {
	return s.builder
}

// RunOptimization builds the context and runs all three stages. Input limits are
// enforced by the caller before this is invoked.
func (s *Service) RunOptimization(ctx context.Context, rawText string, history History) (*PipelineResult, error) {
	input, hasHistory := s.builder.Build(rawText, history)
	s.logger.Info("optimization requested",
		zap.Int("requirement_length", len(rawText)),
		zap.Int("history_turns", len(history)),
		zap.Bool("has_history", hasHistory),
	)
	return s.pipeline.Run(ctx, input, hasHistory)
}

// SummarizeLongText summarizes content. Callers only use it above the minimum length.
func (s *Service) SummarizeLongText(ctx context.Context, content string) (string, error) {
	return s.summarizer.Summarize(ctx, content)
}

// SessionTitle generates a short session name from content.
func (s *Service) SessionTitle(ctx context.Context, content string) (string, error) {
	return s.titler.Title(ctx, content)
}
