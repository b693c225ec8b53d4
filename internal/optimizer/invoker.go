package optimizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BackendID names one of the configured chat-completion endpoints.
type BackendID string

const (
	BackendA BackendID = "a"
	BackendB BackendID = "b"
	BackendC BackendID = "c"
)

// ChatEndpoint is a single chat-completion backend. Model, base URL, credential
// and per-call timeout belong to the implementation.
type ChatEndpoint interface {
	Complete(ctx context.Context, system, human string) (string, error)
}

// Recorder receives timing and outcome of model calls and pipeline stages.
type Recorder interface {
	ObserveAttempt(backend BackendID, attempt int, elapsed time.Duration, err error)
	ObserveStage(stage Stage, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(BackendID, int, time.Duration, error) {}
func (nopRecorder) ObserveStage(Stage, time.Duration, error)            {}

// Invoker renders a template, calls a backend and retries failures with backoff.
// It holds no per-call state and is safe for concurrent use.
type Invoker struct {
	endpoints map[BackendID]ChatEndpoint
	backoff   Backoff
	sleeper   Sleeper
	recorder  Recorder
	logger    *zap.Logger
}

// InvokerOption customizes an Invoker.
type InvokerOption func(*Invoker)

// WithSleeper replaces the real timer used between attempts.
func WithSleeper(s Sleeper) InvokerOption {
	return func(i *Invoker) { i.sleeper = s }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) InvokerOption {
	return func(i *Invoker) { i.recorder = r }
}

// NewInvoker creates an invoker over the given endpoints.
func NewInvoker(endpoints map[BackendID]ChatEndpoint, backoff Backoff, logger *zap.Logger, opts ...InvokerOption) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	inv := &Invoker{
		endpoints: endpoints,
		backoff:   backoff,
		sleeper:   RealSleeper,
		recorder:  nopRecorder{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Recorder returns the recorder shared with components built on this invoker.
func (i *Invoker) Recorder() Recorder {
	return i.recorder
}

// Invoke calls backend with tmpl rendered against bindings. It makes at most
// maxRetries attempts (the configured default when maxRetries <= 0) and sleeps
// Backoff.Delay(n) after failed attempt n unless it was the last one.
func (i *Invoker) Invoke(ctx context.Context, tmpl Template, bindings map[string]string, backend BackendID, maxRetries int) (string, error) {
	attempts := maxRetries
	if attempts <= 0 {
		attempts = i.backoff.MaxAttempts
	}
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	endpoint, ok := i.endpoints[backend]
	if !ok || endpoint == nil {
		return "", &StageInvocationError{Backend: backend, Cause: ErrUnknownBackend}
	}

	system, human, err := tmpl.Render(bindings)
	if err != nil {
		return "", &StageInvocationError{Backend: backend, Cause: fmt.Errorf("rendering prompt: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		i.logger.Debug("calling model",
			zap.String("backend", string(backend)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
		)

		start := time.Now()
		text, err := endpoint.Complete(ctx, system, human)
		elapsed := time.Since(start)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyCompletion
		}
		i.recorder.ObserveAttempt(backend, attempt, elapsed, err)

		if err == nil {
			i.logger.Info("model call succeeded",
				zap.String("backend", string(backend)),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", elapsed),
			)
			return text, nil
		}

		lastErr = err
		i.logger.Warn("model call attempt failed",
			zap.String("backend", string(backend)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		if attempt == attempts {
			break
		}

		delay := i.delay(attempt)
		i.logger.Debug("retrying model call", zap.String("backend", string(backend)), zap.Duration("delay", delay))
		if err := i.sleeper.Sleep(ctx, delay); err != nil {
			return "", &StageInvocationError{
				Backend:  backend,
				Attempts: attempt,
				Cause:    fmt.Errorf("%w (retry aborted: %v)", lastErr, err),
			}
		}
	}

	i.logger.Error("model call failed",
		zap.String("backend", string(backend)),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return "", &StageInvocationError{Backend: backend, Attempts: attempts, Cause: lastErr}
}

func (i *Invoker) delay(attempt int) time.Duration {
	if i.backoff.Delay == nil {
		return 0
	}
	return i.backoff.Delay(attempt)
}
