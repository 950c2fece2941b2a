package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"revisia-backend/internal/models"
)

type memoryHistory struct {
	mu        sync.Mutex
	entries   []*models.HistoryEntry
	insertErr error
	countErr  error
}

func (m *memoryHistory) Insert(ctx context.Context, entry *models.HistoryEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryHistory) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type stubCompleter struct {
	reply    string
	err      error
	calls    int
	last     CompletionRequest
	ctxErrAt error
}

func (s *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.calls++
	s.last = req
	s.ctxErrAt = ctx.Err()
	return s.reply, s.err
}

var assistantNow = time.Date(2026, time.February, 10, 15, 0, 0, 0, time.UTC)

func newTestAssistant(store *memoryHistory, llm Completer) *AssistantService {
	now := func() time.Time { return assistantNow }
	return NewAssistantService(AssistantDeps{
		Quota:    NewQuotaLedger(store, 3, time.UTC, now),
		LLM:      llm,
		Recorder: NewHistoryRecorder(store, nil, time.Second, now),
		Timeout:  time.Second,
		Now:      now,
	})
}

func seedHistory(store *memoryHistory, userID uuid.UUID, n int, at time.Time) {
	for i := 0; i < n; i++ {
		store.entries = append(store.entries, &models.HistoryEntry{
			ID: uuid.New(), UserID: userID, Mode: models.ModeSummary, Result: "x", Kind: models.ResultText, CreatedAt: at,
		})
	}
}

func TestAssistant_PrivilegedFlashcardsRecordedAsJSON(t *testing.T) {
	store := &memoryHistory{}
	raw := `{"cards":[{"front":"Mitochondria","back":"Powerhouse of the cell"}]}`
	llm := &stubCompleter{reply: raw}
	svc := newTestAssistant(store, llm)
	user := uuid.New()

	gen, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeFlashcard, Input: "Cell biology"},
		models.AccessContext{UserID: user, IsPrivileged: true},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set, ok := gen.Result.(models.FlashcardSet)
	if !ok || len(set.Cards) != 1 || set.Cards[0].Front != "Mitochondria" {
		t.Fatalf("unexpected result: %#v", gen.Result)
	}
	if !llm.last.Structured {
		t.Fatalf("expected structured completion request")
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.Kind != models.ResultJSON || e.Result != raw || e.Mode != models.ModeFlashcard || e.Input != "Cell biology" || e.UserID != user {
		t.Fatalf("unexpected history entry: %+v", e)
	}
	if gen.HistoryID == nil || *gen.HistoryID != e.ID {
		t.Fatalf("expected generation to carry history id")
	}
}

func TestAssistant_FreeUserWithinQuota(t *testing.T) {
	store := &memoryHistory{}
	user := uuid.New()
	seedHistory(store, user, 2, assistantNow.Add(-time.Hour))
	llm := &stubCompleter{reply: "## Summary\n\nPlants make sugar."}
	svc := newTestAssistant(store, llm)

	gen, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeSummary, Input: "Photosynthesis"},
		models.AccessContext{UserID: user},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.Result.(models.ProseResult); !ok {
		t.Fatalf("expected prose result, got %T", gen.Result)
	}
	if llm.last.Structured {
		t.Fatalf("expected plain completion for prose mode")
	}
	if len(store.entries) != 3 || store.entries[2].Kind != models.ResultText {
		t.Fatalf("expected a third text entry, got %d entries", len(store.entries))
	}
}

func TestAssistant_QuotaExceededMakesNoCall(t *testing.T) {
	store := &memoryHistory{}
	user := uuid.New()
	seedHistory(store, user, 3, assistantNow.Add(-2*time.Hour))
	llm := &stubCompleter{reply: "unused"}
	svc := newTestAssistant(store, llm)

	_, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeSummary, Input: "Photosynthesis"},
		models.AccessContext{UserID: user},
	)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) || denied.Reason != DenyQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("expected no provider call, got %d", llm.calls)
	}
	if len(store.entries) != 3 {
		t.Fatalf("expected no new history entry")
	}
}

func TestAssistant_YesterdayDoesNotCount(t *testing.T) {
	store := &memoryHistory{}
	user := uuid.New()
	seedHistory(store, user, 5, assistantNow.AddDate(0, 0, -1))
	svc := newTestAssistant(store, &stubCompleter{reply: "ok"})

	if _, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeQA, Input: "Why is the sky blue?"},
		models.AccessContext{UserID: user},
	); err != nil {
		t.Fatalf("expected yesterday's usage to be ignored, got %v", err)
	}
}

func TestAssistant_LockedModes(t *testing.T) {
	locked := []models.Mode{models.ModeSheet, models.ModeQuiz, models.ModeFlashcard, models.ModeImprove, models.ModePlanning}

	for _, mode := range locked {
		t.Run(string(mode), func(t *testing.T) {
			store := &memoryHistory{}
			llm := &stubCompleter{reply: "{}"}
			svc := newTestAssistant(store, llm)

			_, err := svc.Generate(context.Background(),
				models.GenerationRequest{Mode: mode, Input: "material"},
				models.AccessContext{UserID: uuid.New()},
			)
			var denied *AccessDeniedError
			if !errors.As(err, &denied) || denied.Reason != DenyModeLocked || denied.Mode != mode {
				t.Fatalf("expected mode_locked, got %v", err)
			}
			if llm.calls != 0 || len(store.entries) != 0 {
				t.Fatalf("expected no side effects for locked mode")
			}
		})
	}
}

func TestAssistant_AnonymousFreeModeIsRefused(t *testing.T) {
	store := &memoryHistory{}
	llm := &stubCompleter{reply: "ok"}
	svc := newTestAssistant(store, llm)

	_, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeExplain, Input: "entropy"},
		models.AccessContext{},
	)
	var denied *AccessDeniedError
	if !errors.As(err, &denied) || denied.Reason != DenyQuotaExceeded {
		t.Fatalf("expected quota_exceeded for anonymous caller, got %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestAssistant_EmptyInputIsNoOp(t *testing.T) {
	store := &memoryHistory{}
	llm := &stubCompleter{reply: "ok"}
	svc := newTestAssistant(store, llm)

	for _, input := range []string{"", "   \n\t"} {
		_, err := svc.Generate(context.Background(),
			models.GenerationRequest{Mode: models.ModeQuiz, Input: input},
			models.AccessContext{UserID: uuid.New()},
		)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	}
	if llm.calls != 0 || len(store.entries) != 0 {
		t.Fatalf("expected no side effects")
	}
}

func TestAssistant_CompletionFailureNotRecorded(t *testing.T) {
	store := &memoryHistory{}
	llm := &stubCompleter{err: errors.New("dial tcp: timeout")}
	svc := newTestAssistant(store, llm)

	_, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeQuiz, Input: "History of Rome"},
		models.AccessContext{UserID: uuid.New(), IsPrivileged: true},
	)
	var failed *CompletionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected CompletionFailedError, got %v", err)
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected no history entry on completion failure")
	}
}

func TestAssistant_InvalidOutputNotRecorded(t *testing.T) {
	store := &memoryHistory{}
	svc := newTestAssistant(store, &stubCompleter{reply: "not json"})

	_, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeQuiz, Input: "History of Rome", Options: models.GenerationOptions{QuestionCount: 5}},
		models.AccessContext{UserID: uuid.New(), IsPrivileged: true},
	)
	var invalid *InvalidModelOutputError
	if !errors.As(err, &invalid) || invalid.Mode != models.ModeQuiz {
		t.Fatalf("expected InvalidModelOutputError, got %v", err)
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected no history entry on invalid output")
	}
}

func TestAssistant_RecordFailureStillReturnsResult(t *testing.T) {
	store := &memoryHistory{insertErr: errors.New("disk full")}
	svc := newTestAssistant(store, &stubCompleter{reply: "Answer"})

	gen, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeQA, Input: "What is DNA?"},
		models.AccessContext{UserID: uuid.New(), IsPrivileged: true},
	)
	if err != nil {
		t.Fatalf("expected success despite persistence failure, got %v", err)
	}
	if gen.HistoryID != nil {
		t.Fatalf("expected no history id when recording failed")
	}
}

func TestAssistant_QuotaStoreFailure(t *testing.T) {
	store := &memoryHistory{countErr: errors.New("connection reset")}
	llm := &stubCompleter{reply: "ok"}
	svc := newTestAssistant(store, llm)

	_, err := svc.Generate(context.Background(),
		models.GenerationRequest{Mode: models.ModeSummary, Input: "notes"},
		models.AccessContext{UserID: uuid.New()},
	)
	var unavailable *QuotaUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected QuotaUnavailableError, got %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestAssistant_CompletionDetachedFromCallerCancellation(t *testing.T) {
	store := &memoryHistory{}
	llm := &stubCompleter{reply: "Answer"}
	svc := newTestAssistant(store, llm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Generate(ctx,
		models.GenerationRequest{Mode: models.ModeQA, Input: "What is DNA?"},
		models.AccessContext{UserID: uuid.New(), IsPrivileged: true},
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.ctxErrAt != nil {
		t.Fatalf("expected provider context to survive caller cancellation, got %v", llm.ctxErrAt)
	}
	if len(store.entries) != 1 {
		t.Fatalf("expected completion to be recorded")
	}
}

func TestAssistant_Reconstruct(t *testing.T) {
	svc := newTestAssistant(&memoryHistory{}, &stubCompleter{})

	entry := &models.HistoryEntry{
		Mode:   models.ModePlanning,
		Result: `{"schedule":[{"day":"Tuesday 10/02","tasks":["18:00-20:00: Chapter 1"],"focus":"Algebra"}],"advice":"Rest"}`,
		Kind:   models.ResultJSON,
	}
	result, err := svc.Reconstruct(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := result.(models.Schedule)
	if !ok || len(s.Days) != 1 || s.Advice != "Rest" {
		t.Fatalf("unexpected reconstruction: %#v", result)
	}
}

func TestAssistant_Modes(t *testing.T) {
	svc := newTestAssistant(&memoryHistory{}, &stubCompleter{})

	for _, info := range svc.Modes(models.AccessContext{UserID: uuid.New()}) {
		if info.Locked == info.Free {
			t.Fatalf("%s: expected locked to be the inverse of free for a free user", info.Mode)
		}
	}
	for _, info := range svc.Modes(models.AccessContext{UserID: uuid.New(), IsPrivileged: true}) {
		if info.Locked {
			t.Fatalf("%s: expected no locked modes for premium", info.Mode)
		}
	}
}
