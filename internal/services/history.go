package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"revisia-backend/internal/models"
)

// HistoryStore is the persistence boundary for generation history.
// Implementations: repository.HistoryRepo (Postgres) and repository.SQLiteStore.
type HistoryStore interface {
	HistoryCounter
	Insert(ctx context.Context, entry *models.HistoryEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.HistoryEntry, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.HistoryEntry, error)
}

type historyWriter interface {
	Insert(ctx context.Context, entry *models.HistoryEntry) error
}

// HistoryRecorder appends completed generations. Recording is best effort:
// a failed write is logged and never reaches the caller.
type HistoryRecorder struct {
	store   historyWriter
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewHistoryRecorder(store historyWriter, log *zap.Logger, timeout time.Duration, now func() time.Time) *HistoryRecorder {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryRecorder{store: store, log: log, timeout: timeout, now: now}
}

// Record stores one entry and returns its id, or nil when nothing was stored.
// It runs detached from ctx's cancellation so a client disconnect cannot drop
// a completion that was already paid for.
func (r *HistoryRecorder) Record(ctx context.Context, userID uuid.UUID, mode models.Mode, input, raw string, kind models.ResultKind) *uuid.UUID {
	if userID == uuid.Nil || raw == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	entry := &models.HistoryEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Mode:      mode,
		Input:     input,
		Result:    raw,
		Kind:      kind,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		r.log.Error("persistence failed: history entry not saved",
			zap.String("user_id", userID.String()),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		return nil
	}
	return &entry.ID
}
