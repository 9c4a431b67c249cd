package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type GenerationOutcome string

const (
	OutcomeSuccess               GenerationOutcome = "success"
	OutcomeQuotaExceeded         GenerationOutcome = "quota_exceeded"
	OutcomeGenerationUnavailable GenerationOutcome = "generation_unavailable"
	OutcomeInvalidResponse       GenerationOutcome = "invalid_response_format"
)

// GenerationEvent is one generation attempt as kept in the history table.
type GenerationEvent struct {
	ID            uuid.UUID         `json:"id"`
	ClientID      string            `json:"client_id"`
	SessionID     uuid.UUID         `json:"session_id"`
	Grade         string            `json:"grade"`
	Subject       string            `json:"subject,omitempty"`
	Topic         string            `json:"topic"`
	Difficulty    Difficulty        `json:"difficulty"`
	QuestionCount int               `json:"question_count"`
	Outcome       GenerationOutcome `json:"outcome"`
	ErrorMessage  *string           `json:"error_message"`
	ReturnedCount int               `json:"returned_count"`
	WorksheetJSON json.RawMessage   `json:"worksheet,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	WSGenerationStarted   = "generation_started"
	WSGenerationCompleted = "generation_completed"
	WSGenerationFailed    = "generation_failed"
	WSQuotaExceeded       = "quota_exceeded"
)

type GenerationStatus struct {
	SessionID uuid.UUID  `json:"session_id"`
	Grade     string     `json:"grade"`
	Topic     string     `json:"topic"`
	Questions int        `json:"questions,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	Usage     *UsageView `json:"usage,omitempty"`
}

type UsageView struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func NewUsageView(used, limit int) UsageView {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return UsageView{Used: used, Limit: limit, Remaining: remaining}
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
