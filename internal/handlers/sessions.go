package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/repository"
)

// titleInputLength caps how much of a requirement is sent to the title model.
const titleInputLength = 200

// SessionTitler generates short session names.
type SessionTitler interface {
	SessionTitle(ctx context.Context, content string) (string, error)
}

type SessionHandler struct {
	sessions SessionStore
	titles   SessionTitler
	logger   *zap.Logger
}

func NewSessionHandler(sessions SessionStore, titles SessionTitler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, titles: titles, logger: logger}
}

type CreateSessionRequest struct {
	InitialRequirement string `json:"initial_requirement"`
}

// ListSessions returns the caller's active sessions
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Security Bearer
// @Success 200 {object} map[string][]models.Session
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	sessions, err := h.sessions.ListSessions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		middleware.InternalError(c, "failed to list sessions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateSession starts a session, naming it from the requirement when one is given
// @Summary Create a session
// @Tags sessions
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body CreateSessionRequest false "initial requirement"
// @Success 201 {object} models.Session
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.BadRequest(c, "invalid request body")
			return
		}
	}

	name := models.UntitledSessionName
	if requirement := strings.TrimSpace(req.InitialRequirement); requirement != "" {
		title, err := h.titles.SessionTitle(c.Request.Context(), truncateRunes(requirement, titleInputLength))
		if err != nil {
			h.logger.Warn("failed to generate session title", zap.Error(err))
		} else if title != "" {
			name = title
		}
	}

	sess, err := h.sessions.CreateSession(c.Request.Context(), userID, name, req.InitialRequirement)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		middleware.InternalError(c, "failed to create session")
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// DeleteSession deactivates a session owned by the caller
// @Summary Delete a session
// @Tags sessions
// @Security Bearer
// @Param sessionId path string true "session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} middleware.APIError
// @Router /sessions/{sessionId} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		middleware.BadRequest(c, "invalid session ID")
		return
	}

	err = h.sessions.DeactivateSession(c.Request.Context(), sessionID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		middleware.NotFound(c, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete session", zap.Error(err))
		middleware.InternalError(c, "failed to delete session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
