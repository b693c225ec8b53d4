package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCompletion is returned by endpoints when the model replied with no text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")

	// ErrUnknownBackend is returned when no endpoint is registered for a backend.
	ErrUnknownBackend = errors.New("unknown model backend")
)

// StageInvocationError reports a model call that failed after exhausting its attempts.
type StageInvocationError struct {
	Backend  BackendID
	Attempts int
	Cause    error
}

func (e *StageInvocationError) Error() string {
	return fmt.Sprintf("backend %s failed after %d attempt(s): %v", e.Backend, e.Attempts, e.Cause)
}

func (e *StageInvocationError) Unwrap() error {
	return e.Cause
}

// PipelineStageError attributes a failed model call to the pipeline stage that issued it.
type PipelineStageError struct {
	Stage Stage
	Cause error
}

func (e *PipelineStageError) Error() string {
	return fmt.Sprintf("pipeline %s failed: %v", e.Stage, e.Cause)
}

func (e *PipelineStageError) Unwrap() error {
	return e.Cause
}
