package orchestration

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/optimizer"
)

// PipelineRunner runs the three-stage refinement.
type PipelineRunner interface {
	RunOptimization(ctx context.Context, rawText string, history optimizer.History) (*optimizer.PipelineResult, error)
}

// ResultSaver persists a finished optimization.
type ResultSaver interface {
	SaveResult(ctx context.Context, r models.OptimizationResult) (*models.OptimizationResult, error)
}

// Activities hosts the side effects of OptimizeWorkflow.
type Activities struct {
	Pipeline PipelineRunner
	Results  ResultSaver
}

// RunPipeline executes all three stages. Stage failures are reported as
// non-retryable since every model call already retries on its own.
func (a *Activities) RunPipeline(ctx context.Context, input models.OptimizeWorkflowInput) (*optimizer.PipelineResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("running optimization pipeline", "user_id", input.UserID.String(), "history_turns", len(input.ConversationHistory))

	history := make(optimizer.History, len(input.ConversationHistory))
	for i, m := range input.ConversationHistory {
		if m.Malformed != "" {
			history[i] = optimizer.MalformedTurn(m.Malformed)
			continue
		}
		history[i] = optimizer.ConversationTurn{User: m.User, AI: m.AI}
	}

	result, err := a.Pipeline.RunOptimization(ctx, input.UserText, history)
	if err != nil {
		var stageErr *optimizer.PipelineStageError
		if errors.As(err, &stageErr) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "PipelineStageError", err, stageErr.Stage.String())
		}
		return nil, err
	}
	return result, nil
}

// SaveResult stores the pipeline output in the session the run was started for.
func (a *Activities) SaveResult(ctx context.Context, input models.OptimizeWorkflowInput, result optimizer.PipelineResult) (*models.OptimizationResult, error) {
	if input.SessionID == nil {
		return nil, temporal.NewNonRetryableApplicationError("no session to save into", "MissingSession", nil)
	}
	return a.Results.SaveResult(ctx, models.OptimizationResult{
		SessionID:      *input.SessionID,
		OriginalPrompt: input.UserText,
		Stage1Result:   result.Stage1,
		Stage2Result:   result.Stage2,
		Stage3Result:   result.Stage3,
	})
}

const (
	// defaultPipelineTimeout covers three stages of three 120s attempts with linear backoff.
	defaultPipelineTimeout = 20 * time.Minute

	// pipelineTimeoutMargin leaves room for activity scheduling around the model calls.
	pipelineTimeoutMargin = time.Minute

	saveResultTimeout = 30 * time.Second
)

// pipelineTimeout is the StartToClose timeout of RunPipeline for a run.
func pipelineTimeout(input models.OptimizeWorkflowInput) time.Duration {
	if input.PipelineTimeout <= 0 {
		return defaultPipelineTimeout
	}
	return input.PipelineTimeout + pipelineTimeoutMargin
}

// OptimizeWorkflow runs the pipeline and, when a session is given, records the result.
// The pipeline activity runs at most once; model calls retry inside it.
func OptimizeWorkflow(ctx workflow.Context, input models.OptimizeWorkflowInput) (*models.OptimizeWorkflowOutput, error) {
	logger := workflow.GetLogger(ctx)

	pipelineCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: pipelineTimeout(input),
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	saveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: saveResultTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var activities *Activities
	var result optimizer.PipelineResult
	if err := workflow.ExecuteActivity(pipelineCtx, activities.RunPipeline, input).Get(ctx, &result); err != nil {
		logger.Error("optimization pipeline failed", "error", err)
		return nil, err
	}

	out := &models.OptimizeWorkflowOutput{
		Stage1: result.Stage1,
		Stage2: result.Stage2,
		Stage3: result.Stage3,
	}
	if input.SessionID == nil {
		return out, nil
	}

	var saved models.OptimizationResult
	if err := workflow.ExecuteActivity(saveCtx, activities.SaveResult, input, result).Get(ctx, &saved); err != nil {
		// A failed save keeps the stage outputs.
		logger.Warn("failed to save optimization result", "error", err)
		return out, nil
	}
	out.ResultID = &saved.ID
	return out, nil
}
