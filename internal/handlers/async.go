package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/orchestration"
	"github.com/promptforge/api/internal/repository"
)

// WorkflowRunner starts and inspects durable optimization runs.
type WorkflowRunner interface {
	Start(ctx context.Context, input models.OptimizeWorkflowInput) (string, error)
	Status(ctx context.Context, workflowID string) (*orchestration.WorkflowStatus, error)
}

// AsyncHandler exposes the optimization workflow
type AsyncHandler struct {
	runner   WorkflowRunner
	optimize *OptimizeHandler
	access   *middleware.SessionAccess
	logger   *zap.Logger
}

// NewAsyncHandler reuses the synchronous handler's input validation. A nil
// runner makes both endpoints answer 503.
func NewAsyncHandler(runner WorkflowRunner, optimize *OptimizeHandler, access *middleware.SessionAccess, logger *zap.Logger) *AsyncHandler {
	return &AsyncHandler{runner: runner, optimize: optimize, access: access, logger: logger}
}

type AsyncOptimizeRequest struct {
	UserText            string          `json:"user_text"`
	ConversationHistory json.RawMessage `json:"conversation_history" swaggertype:"array,object"`
	SessionID           string          `json:"session_id,omitempty"`
}

// StartOptimization queues a pipeline run
// @Summary Start an asynchronous optimization
// @Tags optimize
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body AsyncOptimizeRequest true "requirement, history and optional session"
// @Success 202 {object} map[string]interface{}
// @Failure 503 {object} middleware.APIError
// @Router /optimize/async [post]
func (h *AsyncHandler) StartOptimization(c *gin.Context) {
	if h.runner == nil {
		middleware.RespondError(c, http.StatusServiceUnavailable, middleware.ErrCodeAIServiceUnavailable, "async optimization is not available")
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req AsyncOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "invalid request body")
		return
	}
	req.UserText = strings.TrimSpace(req.UserText)
	history := h.optimize.svc.Builder().DecodeHistory(req.ConversationHistory)
	if msg := h.optimize.validateOptimize(req.UserText, history); msg != "" {
		middleware.BadRequest(c, msg)
		return
	}

	input := models.OptimizeWorkflowInput{
		UserID:              userID,
		UserText:            req.UserText,
		ConversationHistory: make([]models.HistoryMessage, len(history)),
	}
	for i, turn := range history {
		input.ConversationHistory[i] = models.HistoryMessage{User: turn.User, AI: turn.AI, Malformed: turn.Problem()}
	}

	if req.SessionID != "" {
		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			middleware.BadRequest(c, "invalid session ID")
			return
		}
		if _, err := h.access.Owned(c.Request.Context(), sessionID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				middleware.NotFound(c, "session not found")
				return
			}
			h.logger.Error("failed to check session access", zap.Error(err))
			middleware.InternalError(c, "internal server error")
			return
		}
		input.SessionID = &sessionID
	}

	workflowID, err := h.runner.Start(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("failed to start optimization workflow", zap.Error(err))
		middleware.InternalError(c, "failed to start optimization")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"workflow_id": workflowID, "status": orchestration.StatusRunning})
}

// GetOptimizationStatus reports a run started by the caller
// @Summary Asynchronous optimization status
// @Tags optimize
// @Produce json
// @Security Bearer
// @Param id path string true "workflow ID"
// @Success 200 {object} orchestration.WorkflowStatus
// @Failure 404 {object} middleware.APIError
// @Router /optimize/async/{id} [get]
func (h *AsyncHandler) GetOptimizationStatus(c *gin.Context) {
	if h.runner == nil {
		middleware.RespondError(c, http.StatusServiceUnavailable, middleware.ErrCodeAIServiceUnavailable, "async optimization is not available")
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	workflowID := c.Param("id")
	if !orchestration.StartedBy(workflowID, userID) {
		middleware.NotFound(c, "optimization not found")
		return
	}

	status, err := h.runner.Status(c.Request.Context(), workflowID)
	if errors.Is(err, orchestration.ErrWorkflowNotFound) {
		middleware.NotFound(c, "optimization not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to read workflow status", zap.Error(err))
		middleware.InternalError(c, "failed to read optimization status")
		return
	}

	c.JSON(http.StatusOK, status)
}
