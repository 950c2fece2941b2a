package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"revisia-backend/internal/models"
	"revisia-backend/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// validationFields flattens ozzo errors into the envelope's fields map.
func validationFields(prefix string, err error) map[string]string {
	fields := map[string]string{}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		fields[prefix] = err.Error()
		return fields
	}
	for k, v := range verrs {
		if prefix != "" {
			k = prefix + "." + k
		}
		fields[k] = v.Error()
	}
	return fields
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		denied      *services.AccessDeniedError
		completion  *services.CompletionFailedError
		invalid     *services.InvalidModelOutputError
		unavailable *services.QuotaUnavailableError
		extraction  *services.ExtractionFailedError
		validErr    *services.ValidationError
		notFound    *services.NotFoundError
		rateLimit   *services.RateLimitError
	)

	switch {
	case errors.As(err, &denied):
		if denied.Reason == services.DenyModeLocked {
			writeJSON(w, http.StatusForbidden, errorResp("MODE_LOCKED", denied.Error(), r))
			return
		}
		writeJSON(w, http.StatusTooManyRequests, errorResp("QUOTA_EXCEEDED", denied.Error(), r))
	case errors.As(err, &completion), errors.As(err, &invalid):
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", "The assistant could not generate a response. Please try again.", r))
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("QUOTA_UNAVAILABLE", "Usage could not be checked right now. Please try again shortly.", r))
	case errors.As(err, &extraction):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("EXTRACTION_FAILED", extraction.Error(), r))
	case errors.Is(err, services.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", map[string]string{"input": "must not be empty"}, r))
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validErr.Fields, r))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	case errors.As(err, &rateLimit):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateLimit.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
