package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"revisia-backend/internal/models"
)

// HistoryCounter counts an identity's history entries created at or after since.
type HistoryCounter interface {
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// QuotaLedger decides whether a non-privileged identity still has free
// generations today. It never writes: usage is derived from history, so it
// only grows when the recorder appends an entry.
type QuotaLedger struct {
	counter    HistoryCounter
	dailyLimit int
	loc        *time.Location
	now        func() time.Time
}

func NewQuotaLedger(counter HistoryCounter, dailyLimit int, loc *time.Location, now func() time.Time) *QuotaLedger {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &QuotaLedger{counter: counter, dailyLimit: dailyLimit, loc: loc, now: now}
}

// DayStart returns local midnight of the current day.
func (l *QuotaLedger) DayStart() time.Time {
	now := l.now().In(l.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.loc)
}

// Allowed reports whether the identity may run one more gated generation.
// Anonymous callers are never allowed. A failing store refuses the request.
func (l *QuotaLedger) Allowed(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}

	used, err := l.counter.CountSince(ctx, userID, l.DayStart())
	if err != nil {
		return false, &QuotaUnavailableError{Cause: err}
	}
	return used < l.dailyLimit, nil
}

// Status summarises today's usage for display.
func (l *QuotaLedger) Status(ctx context.Context, userID uuid.UUID, premium bool) (*models.QuotaStatus, error) {
	start := l.DayStart()
	status := &models.QuotaStatus{
		Limit:    l.dailyLimit,
		Premium:  premium,
		ResetsAt: start.AddDate(0, 0, 1),
	}
	if userID == uuid.Nil {
		return status, nil
	}

	used, err := l.counter.CountSince(ctx, userID, start)
	if err != nil {
		return nil, &QuotaUnavailableError{Cause: err}
	}
	status.Used = used
	if remaining := l.dailyLimit - used; remaining > 0 {
		status.Remaining = remaining
	}
	return status, nil
}
