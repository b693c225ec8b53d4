package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/eventbus"
	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/repository"
)

const (
	titleRecentMessages = 3
	titleMessageLength  = 100
)

// ConversationHandler manages the turns of a session
type ConversationHandler struct {
	conversations ConversationStore
	sessions      SessionStore
	access        *middleware.SessionAccess
	titles        SessionTitler
	events        eventbus.Publisher
	logger        *zap.Logger
}

func NewConversationHandler(conversations ConversationStore, sessions SessionStore, access *middleware.SessionAccess,
	titles SessionTitler, events eventbus.Publisher, logger *zap.Logger) *ConversationHandler {
	if events == nil {
		events = eventbus.NopPublisher{}
	}
	return &ConversationHandler{
		conversations: conversations,
		sessions:      sessions,
		access:        access,
		titles:        titles,
		events:        events,
		logger:        logger,
	}
}

type AddConversationRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	UserMessage string `json:"user_message" binding:"required"`
	AIResponse  string `json:"ai_response" binding:"required"`
}

// AddConversationResponse carries the new session name, or null when retitling failed
type AddConversationResponse struct {
	Success        bool    `json:"success"`
	ConversationID string  `json:"conversation_id"`
	TurnNumber     int     `json:"turn_number"`
	NewSessionName *string `json:"new_session_name"`
}

type conversationAdded struct {
	SessionID  string `json:"session_id"`
	TurnNumber int    `json:"turn_number"`
}

// ListConversations returns the turns of an owned session
// @Summary List conversation turns
// @Tags conversations
// @Produce json
// @Security Bearer
// @Param sessionId path string true "session ID"
// @Success 200 {object} map[string][]models.Conversation
// @Router /conversations/{sessionId} [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		middleware.NotFound(c, "session not found")
		return
	}

	turns, err := h.conversations.ListTurns(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		middleware.InternalError(c, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": turns})
}

// AddConversation appends a turn and renames the session from its recent messages
// @Summary Add a conversation turn
// @Tags conversations
// @Accept json
// @Produce json
// @Security Bearer
// @Param body body AddConversationRequest true "turn"
// @Success 201 {object} AddConversationResponse
// @Failure 404 {object} middleware.APIError
// @Router /conversations [post]
func (h *ConversationHandler) AddConversation(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return
	}

	var req AddConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, "session_id, user_message and ai_response are required")
		return
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		middleware.BadRequest(c, "invalid session ID")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.access.Owned(ctx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.NotFound(c, "session not found")
			return
		}
		h.logger.Error("failed to check session access", zap.Error(err))
		middleware.InternalError(c, "internal server error")
		return
	}

	turn, err := h.conversations.AddTurn(ctx, sessionID, req.UserMessage, req.AIResponse)
	if err != nil {
		h.logger.Error("failed to add conversation", zap.Error(err))
		middleware.InternalError(c, "failed to add conversation")
		return
	}

	if err := h.events.Publish(ctx, eventbus.SubjectConversationAdded, conversationAdded{
		SessionID:  sessionID.String(),
		TurnNumber: turn.TurnNumber,
	}); err != nil {
		h.logger.Warn("failed to publish event", zap.Error(err))
	}

	c.JSON(http.StatusCreated, AddConversationResponse{
		Success:        true,
		ConversationID: turn.ID.String(),
		TurnNumber:     turn.TurnNumber,
		NewSessionName: h.retitle(c, sessionID),
	})
}

// retitle names the session after its latest user messages. A failure keeps the
// old name and yields nil.
func (h *ConversationHandler) retitle(c *gin.Context, sessionID uuid.UUID) *string {
	ctx := c.Request.Context()
	messages, err := h.conversations.RecentUserMessages(ctx, sessionID, titleRecentMessages)
	if err != nil || len(messages) == 0 {
		if err != nil {
			h.logger.Warn("failed to load recent messages", zap.Error(err))
		}
		return nil
	}

	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = truncateRunes(m, titleMessageLength)
	}

	title, err := h.titles.SessionTitle(ctx, strings.Join(parts, "\n"))
	if err != nil || title == "" {
		if err != nil {
			h.logger.Warn("failed to generate session title", zap.Error(err))
		}
		return nil
	}
	if err := h.sessions.RenameSession(ctx, sessionID, title); err != nil {
		h.logger.Warn("failed to rename session", zap.Error(err))
		return nil
	}
	return &title
}

// ClearConversations deletes every turn of an owned session
// @Summary Clear conversation turns
// @Tags conversations
// @Security Bearer
// @Param sessionId path string true "session ID"
// @Success 200 {object} map[string]interface{}
// @Router /conversations/{sessionId} [delete]
func (h *ConversationHandler) ClearConversations(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		middleware.NotFound(c, "session not found")
		return
	}

	deleted, err := h.conversations.ClearTurns(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("failed to clear conversations", zap.Error(err))
		middleware.InternalError(c, "failed to clear conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
