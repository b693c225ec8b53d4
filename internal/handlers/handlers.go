package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/promptforge/api/internal/models"
	"github.com/promptforge/api/internal/optimizer"
)

// UserStore persists accounts.
type UserStore interface {
	RegisterUser(ctx context.Context, username, passwordHash, sessionName string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, userID uuid.UUID, name, initialRequirement string) (*models.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	GetActiveSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	DeactivateSession(ctx context.Context, id, userID uuid.UUID) error
	RenameSession(ctx context.Context, id uuid.UUID, name string) error
}

// ConversationStore persists conversation turns.
type ConversationStore interface {
	AddTurn(ctx context.Context, sessionID uuid.UUID, userMessage, aiResponse string) (*models.Conversation, error)
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]models.Conversation, error)
	RecentUserMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]string, error)
	ClearTurns(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

// ResultStore persists pipeline outputs.
type ResultStore interface {
	SaveResult(ctx context.Context, r models.OptimizationResult) (*models.OptimizationResult, error)
	ListResults(ctx context.Context, sessionID uuid.UUID) ([]models.OptimizationResult, error)
}

// Optimizer is the prompt refinement core as seen by the HTTP layer.
type Optimizer interface {
	RunOptimization(ctx context.Context, rawText string, history optimizer.History) (*optimizer.PipelineResult, error)
	SummarizeLongText(ctx context.Context, content string) (string, error)
	SessionTitle(ctx context.Context, content string) (string, error)
	Builder() *optimizer.ContextBuilder
}

// SummaryCache remembers summaries by content.
type SummaryCache interface {
	Get(ctx context.Context, content string) (string, bool, error)
	Set(ctx context.Context, content, summary string) error
}

// CacheObserver counts summary cache hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

type nopCacheObserver struct{}

func (nopCacheObserver) ObserveCache(bool) {}
