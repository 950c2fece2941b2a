package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQuestionCount is used when a quiz request does not specify a count.
const DefaultQuestionCount = 10

// ParsedResult is the typed output of a generation. Implementations are
// ProseResult, QuizResult, FlashcardSet and Schedule.
type ParsedResult interface {
	Shape() OutputShape
	isParsedResult()
}

// ProseResult is rendered Markdown output.
type ProseResult struct {
	HTML string `json:"html"`
}

func (ProseResult) Shape() OutputShape { return ShapeProse }

func (ProseResult) isParsedResult() {}

type GenerationOptions struct {
	QuestionCount int    `json:"question_count"`
	Language      string `json:"language"`
}

// QuestionCountOrDefault returns the requested quiz size, falling back to 10.
func (o GenerationOptions) QuestionCountOrDefault() int {
	if o.QuestionCount <= 0 {
		return DefaultQuestionCount
	}
	return o.QuestionCount
}

type GenerationRequest struct {
	Mode    Mode
	Input   string
	Options GenerationOptions
}

// AccessContext carries who is asking and whether they bypass the free tier.
// A zero UserID means the caller is anonymous.
type AccessContext struct {
	UserID       uuid.UUID
	IsPrivileged bool
}

func (a AccessContext) HasIdentity() bool {
	return a.UserID != uuid.Nil
}

// Generation is the outcome of a successful assistant request.
type Generation struct {
	Mode      Mode         `json:"mode"`
	Shape     OutputShape  `json:"shape"`
	Result    ParsedResult `json:"result"`
	HistoryID *uuid.UUID   `json:"history_id,omitempty"`
}

// HistoryEntry is an append-only record of one completed generation.
type HistoryEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Mode      Mode       `json:"mode"`
	Input     string     `json:"input"`
	Result    string     `json:"result"`
	Kind      ResultKind `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
}

// QuotaStatus summarises today's free-tier usage.
type QuotaStatus struct {
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Premium   bool      `json:"premium"`
	ResetsAt  time.Time `json:"resets_at"`
}

// GenerateRequest is the HTTP payload for a generation.
type GenerateRequest struct {
	Mode    string            `json:"mode"`
	Input   string            `json:"input"`
	Options GenerationOptions `json:"options"`
}

type HistoryDetail struct {
	Entry  *HistoryEntry `json:"entry"`
	Result ParsedResult  `json:"result,omitempty"`
}
