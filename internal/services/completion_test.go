package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func chatCompletionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   DefaultOpenAIModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody(`{"cards":[]}`)))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("test-key", srv.URL, "", 5*time.Second)
	text, err := c.Complete(context.Background(), CompletionRequest{System: "sys", User: "usr", Structured: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"cards":[]}` {
		t.Fatalf("unexpected text %q", text)
	}

	if got["model"] != DefaultOpenAIModel {
		t.Fatalf("expected default model, got %v", got["model"])
	}
	if got["temperature"] != 0.5 {
		t.Fatalf("expected temperature 0.5, got %v", got["temperature"])
	}
	rf, ok := got["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got["response_format"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestOpenAICompleter_ProseHasNoResponseFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody("# Summary")))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("k", srv.URL, "custom-model", 5*time.Second)
	if _, err := c.Complete(context.Background(), CompletionRequest{System: "s", User: "u"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["response_format"]; ok {
		t.Fatalf("expected no response_format for prose, got %v", got["response_format"])
	}
	if got["model"] != "custom-model" {
		t.Fatalf("expected custom model, got %v", got["model"])
	}
}

func TestOpenAICompleter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "provider error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "empty message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(chatCompletionBody("")))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			c := NewOpenAICompleter("k", srv.URL, "", 5*time.Second)
			_, err := c.Complete(context.Background(), CompletionRequest{System: "s", User: "u"})
			var failed *CompletionFailedError
			if !errors.As(err, &failed) {
				t.Fatalf("expected CompletionFailedError, got %v", err)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Fatalf("expected exactly one provider call, got %d", n)
			}
		})
	}
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.groq.com/openai/v1", "https://api.groq.com/openai/v1"},
		{"https://api.groq.com/openai/v1/", "https://api.groq.com/openai/v1"},
		{"https://api.openai.com", "https://api.openai.com/v1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeOpenAIBaseURL(tt.in); got != tt.want {
			t.Fatalf("normalizeOpenAIBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type blockingCompleter struct {
	inFlight int32
	peak     int32
	release  chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	n := atomic.AddInt32(&b.inFlight, 1)
	for {
		p := atomic.LoadInt32(&b.peak)
		if n <= p || atomic.CompareAndSwapInt32(&b.peak, p, n) {
			break
		}
	}
	<-b.release
	atomic.AddInt32(&b.inFlight, -1)
	return "ok", nil
}

func TestLimitedCompleter_BoundsConcurrency(t *testing.T) {
	inner := &blockingCompleter{release: make(chan struct{})}
	limited := NewLimitedCompleter(inner, 2, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.Complete(context.Background(), CompletionRequest{})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if peak := atomic.LoadInt32(&inner.peak); peak > 2 {
		t.Fatalf("expected at most 2 concurrent calls, got %d", peak)
	}
}

func TestLimitedCompleter_CancelledWhileWaiting(t *testing.T) {
	limited := NewLimitedCompleter(&blockingCompleter{release: make(chan struct{})}, 1, time.Second)
	<-limited.rateChan // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := limited.Complete(ctx, CompletionRequest{})
	var failed *CompletionFailedError
	if !errors.As(err, &failed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled CompletionFailedError, got %v", err)
	}
}
