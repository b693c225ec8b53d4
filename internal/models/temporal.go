package models

import (
	"time"

	"github.com/google/uuid"
)

// OptimizeWorkflowInput is the argument of the asynchronous optimization workflow
type OptimizeWorkflowInput struct {
	UserID              uuid.UUID        `json:"user_id"`
	SessionID           *uuid.UUID       `json:"session_id,omitempty"`
	UserText            string           `json:"user_text"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`

	// PipelineTimeout bounds the pipeline activity. Zero selects the workflow default.
	PipelineTimeout time.Duration `json:"pipeline_timeout,omitempty"`
}

// HistoryMessage mirrors one {user, ai} entry of the request body
type HistoryMessage struct {
	User      string `json:"user"`
	AI        string `json:"ai"`
	Malformed string `json:"malformed,omitempty"`
}

// OptimizeWorkflowOutput is returned when the workflow completes
type OptimizeWorkflowOutput struct {
	Stage1   string     `json:"stage1"`
	Stage2   string     `json:"stage2"`
	Stage3   string     `json:"stage3"`
	ResultID *uuid.UUID `json:"result_id,omitempty"`
}
