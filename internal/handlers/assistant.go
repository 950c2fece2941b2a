package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"revisia-backend/internal/middleware"
	"revisia-backend/internal/models"
	"revisia-backend/internal/repository"
	"revisia-backend/internal/services"
)

const maxGenerateBodyBytes = 1 << 20

type assistantService interface {
	Generate(ctx context.Context, req models.GenerationRequest, access models.AccessContext) (*models.Generation, error)
	Reconstruct(entry *models.HistoryEntry) (models.ParsedResult, error)
	Modes(access models.AccessContext) []models.ModeInfo
}

type accessResolver interface {
	AccessContext(ctx context.Context, userID uuid.UUID) models.AccessContext
}

type quotaReporter interface {
	Status(ctx context.Context, userID uuid.UUID, premium bool) (*models.QuotaStatus, error)
}

type historyReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error)
}

type AssistantHandler struct {
	assistant        assistantService
	access           accessResolver
	quota            quotaReporter
	history          historyReader
	maxQuizQuestions int
	log              *zap.Logger
}

func NewAssistantHandler(assistant assistantService, access accessResolver, quota quotaReporter, history historyReader, maxQuizQuestions int, log *zap.Logger) *AssistantHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantHandler{
		assistant:        assistant,
		access:           access,
		quota:            quota,
		history:          history,
		maxQuizQuestions: maxQuizQuestions,
		log:              log,
	}
}

func modeValues() []interface{} {
	out := make([]interface{}, 0, len(models.AllModes))
	for _, m := range models.AllModes {
		out = append(out, string(m))
	}
	return out
}

func (h *AssistantHandler) validateGenerate(req *models.GenerateRequest) map[string]string {
	fields := map[string]string{}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Mode, validation.Required, validation.In(modeValues()...).Error("unknown mode")),
	); err != nil {
		for k, v := range validationFields("", err) {
			fields[k] = v
		}
	}

	opts := &req.Options
	if err := validation.ValidateStruct(opts,
		validation.Field(&opts.QuestionCount, validation.Min(0), validation.Max(h.maxQuizQuestions)),
		validation.Field(&opts.Language, validation.Length(0, 32)),
	); err != nil {
		for k, v := range validationFields("options", err) {
			fields[k] = v
		}
	}

	return fields
}

// Generate runs one assistant request. Anonymous callers are allowed through
// and refused by the access check.
func (h *AssistantHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerateBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := h.validateGenerate(&req); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	access := h.access.AccessContext(r.Context(), userID)

	gen, err := h.assistant.Generate(r.Context(), models.GenerationRequest{
		Mode:    models.Mode(req.Mode),
		Input:   req.Input,
		Options: req.Options,
	}, access)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, gen)
}

func (h *AssistantHandler) Modes(w http.ResponseWriter, r *http.Request) {
	access := h.access.AccessContext(r.Context(), middleware.GetUserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modes":   h.assistant.Modes(access),
		"premium": access.IsPrivileged,
	})
}

func (h *AssistantHandler) Quota(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	access := h.access.AccessContext(r.Context(), userID)

	status, err := h.quota.Status(r.Context(), userID, access.IsPrivileged)
	if err != nil {
		h.log.Warn("quota status failed", zap.String("user_id", userID.String()), zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *AssistantHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := h.history.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("list history failed", zap.String("user_id", userID.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch history", r))
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// HistoryEntry returns one stored entry together with its re-parsed result.
func (h *AssistantHandler) HistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid history ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	entry, err := h.history.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && entry.UserID != userID) {
		handleServiceError(w, r, &services.NotFoundError{Message: "History entry not found"})
		return
	}
	if err != nil {
		h.log.Error("get history failed", zap.String("id", id.String()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch history entry", r))
		return
	}

	detail := models.HistoryDetail{Entry: entry}
	result, err := h.assistant.Reconstruct(entry)
	if err != nil {
		h.log.Warn("stored history entry could not be re-parsed", zap.String("id", id.String()), zap.Error(err))
	} else {
		detail.Result = result
	}

	writeJSON(w, http.StatusOK, detail)
}
