package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"revisia-backend/internal/models"
)

type quotaChecker interface {
	Allowed(ctx context.Context, userID uuid.UUID) (bool, error)
}

type promptCompiler interface {
	Compile(mode models.Mode, input string, opts models.GenerationOptions, today time.Time) (Prompt, error)
}

type responseParser interface {
	Parse(mode models.Mode, raw string, shape models.OutputShape) (models.ParsedResult, error)
}

type historyRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, mode models.Mode, input, raw string, kind models.ResultKind) *uuid.UUID
}

// AssistantService runs one generation end to end:
// access check, prompt, completion, parse, record.
type AssistantService struct {
	quota    quotaChecker
	compiler promptCompiler
	llm      Completer
	parser   responseParser
	recorder historyRecorder
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

type AssistantDeps struct {
	Quota    quotaChecker
	Compiler promptCompiler
	LLM      Completer
	Parser   responseParser
	Recorder historyRecorder
	// Timeout bounds the provider call once it has been issued.
	Timeout time.Duration
	Now     func() time.Time
	Log     *zap.Logger
}

func NewAssistantService(deps AssistantDeps) *AssistantService {
	s := &AssistantService{
		quota:    deps.Quota,
		compiler: deps.Compiler,
		llm:      deps.LLM,
		parser:   deps.Parser,
		recorder: deps.Recorder,
		timeout:  deps.Timeout,
		now:      deps.Now,
		log:      deps.Log,
	}
	if s.compiler == nil {
		s.compiler = PromptCompiler{}
	}
	if s.parser == nil {
		s.parser = ResponseParser{}
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Generate runs a request for the given caller. Blank input is a no-op that
// returns ErrEmptyInput without touching quota, provider or history.
func (s *AssistantService) Generate(ctx context.Context, req models.GenerationRequest, access models.AccessContext) (*models.Generation, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrEmptyInput
	}
	if !req.Mode.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"mode": "unknown mode"}}
	}

	if err := s.checkAccess(ctx, req.Mode, access); err != nil {
		return nil, err
	}

	prompt, err := s.compiler.Compile(req.Mode, req.Input, req.Options, s.now())
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		s.log.Warn("completion failed",
			zap.String("mode", string(req.Mode)),
			zap.String("user_id", access.UserID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	result, err := s.parser.Parse(req.Mode, raw, prompt.Shape)
	if err != nil {
		s.log.Warn("model output rejected",
			zap.String("mode", string(req.Mode)),
			zap.Error(err),
		)
		return nil, err
	}

	gen := &models.Generation{Mode: req.Mode, Shape: prompt.Shape, Result: result}
	if access.HasIdentity() {
		gen.HistoryID = s.recorder.Record(ctx, access.UserID, req.Mode, req.Input, raw, prompt.Shape.ResultKind())
	}
	return gen, nil
}

// checkAccess lets privileged callers through. Others need a free mode and
// remaining daily quota. The quota is read here and grows only when history
// is recorded, so concurrent requests from one user can overshoot the limit
// by the number in flight.
func (s *AssistantService) checkAccess(ctx context.Context, mode models.Mode, access models.AccessContext) error {
	if access.IsPrivileged {
		return nil
	}
	if !mode.Free() {
		return &AccessDeniedError{Reason: DenyModeLocked, Mode: mode}
	}

	allowed, err := s.quota.Allowed(ctx, access.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		return &AccessDeniedError{Reason: DenyQuotaExceeded, Mode: mode}
	}
	return nil
}

// complete issues the provider call detached from the caller's cancellation,
// bounded by the configured timeout.
func (s *AssistantService) complete(ctx context.Context, prompt Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	raw, err := s.llm.Complete(callCtx, CompletionRequest{
		System:     prompt.System,
		User:       prompt.User,
		Structured: prompt.Shape.Structured(),
	})
	if err != nil {
		if _, ok := err.(*CompletionFailedError); !ok {
			err = &CompletionFailedError{Cause: err}
		}
		return "", err
	}
	return raw, nil
}

// Reconstruct re-parses a stored history entry into its typed result.
func (s *AssistantService) Reconstruct(entry *models.HistoryEntry) (models.ParsedResult, error) {
	return s.parser.Parse(entry.Mode, entry.Result, entry.Mode.Shape())
}

// Modes lists every mode with its lock state for the caller.
func (s *AssistantService) Modes(access models.AccessContext) []models.ModeInfo {
	out := make([]models.ModeInfo, 0, len(models.AllModes))
	for _, m := range models.AllModes {
		out = append(out, models.ModeInfo{
			Mode:   m,
			Shape:  m.Shape(),
			Free:   m.Free(),
			Locked: !access.IsPrivileged && !m.Free(),
		})
	}
	return out
}
