package services

import (
	"errors"
	"fmt"

	"revisia-backend/internal/models"
)

// ErrEmptyInput is returned when a generation has no study material; nothing is checked, called or recorded.
var ErrEmptyInput = errors.New("input is empty")

// DenyReason explains why the free tier refused a request.
type DenyReason string

const (
	DenyModeLocked    DenyReason = "mode_locked"
	DenyQuotaExceeded DenyReason = "quota_exceeded"
)

type AccessDeniedError struct {
	Reason DenyReason
	Mode   models.Mode
}

func (e *AccessDeniedError) Error() string {
	switch e.Reason {
	case DenyModeLocked:
		return fmt.Sprintf("The %s mode is reserved for Premium members. Upgrade to unlock it.", e.Mode)
	case DenyQuotaExceeded:
		return "You have used all of today's free generations. Come back tomorrow or upgrade to Premium."
	}
	return "Access denied"
}

// CompletionFailedError wraps any failure of the LLM provider call.
type CompletionFailedError struct {
	Cause error
}

func (e *CompletionFailedError) Error() string {
	return fmt.Sprintf("completion failed: %v", e.Cause)
}

func (e *CompletionFailedError) Unwrap() error { return e.Cause }

// InvalidModelOutputError means the model's text did not match the mode's output shape.
type InvalidModelOutputError struct {
	Mode    models.Mode
	Snippet string
	Reason  string
}

func (e *InvalidModelOutputError) Error() string {
	return fmt.Sprintf("invalid %s output: %s (got %q)", e.Mode, e.Reason, e.Snippet)
}

// QuotaUnavailableError means the quota could not be checked; the request is refused but may be retried.
type QuotaUnavailableError struct {
	Cause error
}

func (e *QuotaUnavailableError) Error() string {
	return fmt.Sprintf("quota check unavailable: %v", e.Cause)
}

func (e *QuotaUnavailableError) Unwrap() error { return e.Cause }

// ExtractionFailedError is returned by the document collaborator.
type ExtractionFailedError struct {
	Filename string
	Reason   string
	Cause    error
}

func (e *ExtractionFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("could not extract text from %s: %s: %v", e.Filename, e.Reason, e.Cause)
	}
	return fmt.Sprintf("could not extract text from %s: %s", e.Filename, e.Reason)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Cause }

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

func snippet(raw string, max int) string {
	runes := []rune(raw)
	if len(runes) <= max {
		return raw
	}
	return string(runes[:max]) + "..."
}
