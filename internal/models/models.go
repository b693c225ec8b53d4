package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionName is given to the session created at registration.
const DefaultSessionName = "Default session"

// UntitledSessionName is used when no title could be generated.
const UntitledSessionName = "New session"

// User represents a registered account
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never serialize
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Session groups the conversation turns and optimization runs of one task
type Session struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	SessionName        string    `json:"session_name"`
	InitialRequirement string    `json:"initial_requirement,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Conversation is one stored turn of a session
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	TurnNumber  int       `json:"turn_number"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	CreatedAt   time.Time `json:"created_at"`
}

// OptimizationResult stores the three stage outputs of a pipeline run
type OptimizationResult struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	OriginalPrompt string    `json:"original_prompt"`
	Stage1Result   string    `json:"stage1_result"`
	Stage2Result   string    `json:"stage2_result"`
	Stage3Result   string    `json:"stage3_result"`
	CreatedAt      time.Time `json:"created_at"`
}
