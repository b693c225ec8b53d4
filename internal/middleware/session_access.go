package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/repository"
)

const sessionKey = "session"

// SessionLookup loads an active session by ID.
type SessionLookup interface {
	GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// SessionAccess guards routes carrying a :sessionId parameter.
type SessionAccess struct {
	sessions SessionLookup
	logger   *zap.Logger
}

func NewSessionAccess(sessions SessionLookup, logger *zap.Logger) *SessionAccess {
	return &SessionAccess{sessions: sessions, logger: logger}
}

// RequireOwner aborts with 404 unless the session exists, is active and belongs
// to the caller. Foreign sessions are indistinguishable from missing ones.
func (m *SessionAccess) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		sessionID, err := uuid.Parse(c.Param("sessionId"))
		if err != nil {
			BadRequest(c, "invalid session ID")
			c.Abort()
			return
		}

		sess, err := m.Owned(c.Request.Context(), sessionID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "session not found")
			c.Abort()
			return
		}
		if err != nil {
			m.logger.Error("failed to check session access", zap.Error(err))
			InternalError(c, "internal server error")
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// Owned returns the session if userID owns it, or repository.ErrNotFound.
func (m *SessionAccess) Owned(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	sess, err := m.sessions.GetActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

// GetSession returns the session loaded by RequireOwner.
func GetSession(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*models.Session)
	return sess, ok
}
