package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"revisia-backend/internal/models"
)

type stubSubscriptionRepo struct {
	sub   *models.Subscription
	err   error
	calls int
}

func (s *stubSubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s.calls++
	return s.sub, s.err
}

type memoryCache struct {
	values map[string]string
	getErr error
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func TestSubscriptionService_IsPremium(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.Subscription
		err  error
		want bool
	}{
		{name: "active", sub: &models.Subscription{Status: models.SubscriptionActive}, want: true},
		{name: "canceled", sub: &models.Subscription{Status: "canceled"}, want: false},
		{name: "no subscription", sub: nil, want: false},
		{name: "lookup error", err: errors.New("db down"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSubscriptionService(&stubSubscriptionRepo{sub: tt.sub, err: tt.err}, nil, time.Minute, nil)
			if got := svc.IsPremium(context.Background(), uuid.New()); got != tt.want {
				t.Fatalf("expected premium=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestSubscriptionService_UsesCache(t *testing.T) {
	repo := &stubSubscriptionRepo{sub: &models.Subscription{Status: models.SubscriptionActive}}
	cache := &memoryCache{values: map[string]string{}}
	svc := NewSubscriptionService(repo, nil, time.Minute, nil)
	svc.cache = cache

	user := uuid.New()
	for i := 0; i < 3; i++ {
		if !svc.IsPremium(context.Background(), user) {
			t.Fatalf("expected premium on call %d", i)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected one repository lookup, got %d", repo.calls)
	}
	if cache.values[subscriptionKey(user)] != cachedPremium {
		t.Fatalf("expected cached premium status, got %q", cache.values[subscriptionKey(user)])
	}
}

func TestSubscriptionService_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := &stubSubscriptionRepo{sub: &models.Subscription{Status: models.SubscriptionActive}}
	svc := NewSubscriptionService(repo, nil, time.Minute, nil)
	svc.cache = &memoryCache{values: map[string]string{}, getErr: errors.New("redis down")}

	if !svc.IsPremium(context.Background(), uuid.New()) {
		t.Fatalf("expected repository result when cache read fails")
	}
}

func TestSubscriptionService_AnonymousIsNotPrivileged(t *testing.T) {
	repo := &stubSubscriptionRepo{sub: &models.Subscription{Status: models.SubscriptionActive}}
	svc := NewSubscriptionService(repo, nil, time.Minute, nil)

	access := svc.AccessContext(context.Background(), uuid.Nil)
	if access.IsPrivileged || access.HasIdentity() {
		t.Fatalf("expected anonymous non-privileged access, got %+v", access)
	}
	if repo.calls != 0 {
		t.Fatalf("expected no lookup for anonymous caller")
	}
}
