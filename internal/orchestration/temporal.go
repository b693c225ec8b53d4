package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/models"
)

const workflowIDPrefix = "optimize-"

// ErrWorkflowNotFound is returned for unknown workflow IDs.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Workflow run states reported to clients.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Dial connects to the Temporal frontend. The client is heavyweight and is
// created once per process.
func Dial(address string, logger *zap.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort: address,
	})
	if err != nil {
		logger.Warn("unable to create temporal client", zap.String("address", address), zap.Error(err))
		return nil, err
	}
	return c, nil
}

// WorkflowID derives a run ID that records which user started it.
func WorkflowID(userID uuid.UUID) string {
	return workflowIDPrefix + userID.String() + "-" + uuid.NewString()
}

// StartedBy reports whether the workflow ID was issued for userID.
func StartedBy(workflowID string, userID uuid.UUID) bool {
	return strings.HasPrefix(workflowID, workflowIDPrefix+userID.String()+"-")
}

// WorkflowStatus is the client-facing view of a run.
type WorkflowStatus struct {
	WorkflowID string                         `json:"workflow_id"`
	Status     string                         `json:"status"`
	Result     *models.OptimizeWorkflowOutput `json:"result,omitempty"`
	Error      string                         `json:"error,omitempty"`
}

// workflowTimeoutMargin covers saving the result after the pipeline finishes.
const workflowTimeoutMargin = 5 * time.Minute

// Runner starts and inspects optimization workflows.
type Runner struct {
	client          client.Client
	taskQueue       string
	pipelineTimeout time.Duration
}

// NewRunner creates a Runner. pipelineTimeout is the worst-case duration of the
// three model stages and is passed to every run it starts.
func NewRunner(c client.Client, taskQueue string, pipelineTimeout time.Duration) *Runner {
	return &Runner{client: c, taskQueue: taskQueue, pipelineTimeout: pipelineTimeout}
}

// Start launches OptimizeWorkflow and returns its workflow ID.
func (r *Runner) Start(ctx context.Context, input models.OptimizeWorkflowInput) (string, error) {
	if input.PipelineTimeout <= 0 {
		input.PipelineTimeout = r.pipelineTimeout
	}
	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       WorkflowID(input.UserID),
		TaskQueue:                r.taskQueue,
		WorkflowExecutionTimeout: pipelineTimeout(input) + workflowTimeoutMargin,
	}, OptimizeWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("starting workflow: %w", err)
	}
	return run.GetID(), nil
}

// Status describes a run, including its result once completed.
func (r *Runner) Status(ctx context.Context, workflowID string) (*WorkflowStatus, error) {
	desc, err := r.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("describing workflow: %w", err)
	}

	status := &WorkflowStatus{WorkflowID: workflowID}
	switch desc.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		status.Status = StatusRunning
		return status, nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var out models.OptimizeWorkflowOutput
		if err := r.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &out); err != nil {
			return nil, fmt.Errorf("reading workflow result: %w", err)
		}
		status.Status = StatusCompleted
		status.Result = &out
		return status, nil
	default:
		status.Status = StatusFailed
		if err := r.client.GetWorkflow(ctx, workflowID, "").Get(ctx, nil); err != nil {
			status.Error = err.Error()
		}
		return status, nil
	}
}
