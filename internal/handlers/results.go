package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/repository"
)

// ResultHandler stores and lists pipeline outputs per session
type ResultHandler struct {
	results ResultStore
	access  *middleware.SessionAccess
	logger  *zap.Logger
}

func NewResultHandler(results ResultStore, access *middleware.SessionAccess, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{results: results, access: access, logger: logger}
}

type SaveResultRequest struct {
	SessionID      string `json:"session_id" binding:"required"`
	OriginalPrompt string `json:"original_prompt" binding:"required"`
	Stage1Result   string `json:"stage1_result"`
	Stage2Result   string `json:"stage2_result"`
	Stage3Result   string `json:"stage3_result"`
}

// SaveResult records an optimization result in an owned session
// @Summary Save an optimization result
// @Tags results
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body SaveResultRequest true "result"
// @Success 201 {object} map[string]interface{}
// @Router /optimization-results [post]
func (h *ResultHandler) SaveResult(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req SaveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "session_id and original_prompt are required")
		return
	}
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

	saved, err := h.results.SaveResult(c.Request.Context(), models.OptimizationResult{
		SessionID:      sessionID,
		OriginalPrompt: req.OriginalPrompt,
		Stage1Result:   req.Stage1Result,
		Stage2Result:   req.Stage2Result,
		Stage3Result:   req.Stage3Result,
	})
	if err != nil {
		h.logger.Error("failed to save result", zap.Error(err))
		middleware.InternalError(c, "failed to save result")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "result_id": saved.ID})
}

// ListResults returns an owned session's results, newest first
// @Summary List optimization results
// @Tags results
// @Produce json
// @Security Bearer
// @Param sessionId path string true "session ID"
// @Success 200 {object} map[string][]models.OptimizationResult
// @Router /optimization-results/{sessionId} [get]
func (h *ResultHandler) ListResults(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		middleware.NotFound(c, "session not found")
		return
	}

	results, err := h.results.ListResults(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("failed to list results", zap.Error(err))
		middleware.InternalError(c, "failed to list results")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
