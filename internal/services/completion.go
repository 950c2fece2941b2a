package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Temperature used for every generation.
const completionTemperature = 0.5

var errEmptyCompletion = errors.New("provider returned an empty message")

type CompletionRequest struct {
	System string
	User   string
	// Structured asks the provider for a single JSON object.
	Structured bool
}

// Completer sends one prompt pair to an LLM and returns the raw message text.
// Every failure is a *CompletionFailedError. Implementations do not retry.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// LimitedCompleter bounds the number of in-flight provider calls with a token bucket.
type LimitedCompleter struct {
	next     Completer
	rateChan chan struct{}
	wait     time.Duration
}

func NewLimitedCompleter(next Completer, concurrentReqs int, wait time.Duration) *LimitedCompleter {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	if wait <= 0 {
		wait = 5 * time.Minute
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &LimitedCompleter{next: next, rateChan: rateChan, wait: wait}
}

func (l *LimitedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := l.acquireRate(ctx); err != nil {
		return "", &CompletionFailedError{Cause: err}
	}
	defer l.releaseRate()

	return l.next.Complete(ctx, req)
}

// acquireRate blocks until a rate slot is available
func (l *LimitedCompleter) acquireRate(ctx context.Context) error {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case <-l.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timeout waiting for completion rate slot")
	}
}

func (l *LimitedCompleter) releaseRate() {
	l.rateChan <- struct{}{}
}
