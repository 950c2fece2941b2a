package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"revisia-backend/internal/models"
)

type subscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// statusCache is the subset of a key/value cache used for subscription status.
type statusCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const (
	cachedPremium = "premium"
	cachedFree    = "free"
)

// SubscriptionService resolves whether a user bypasses the free tier.
// Lookup failures degrade to the free tier.
type SubscriptionService struct {
	repo  subscriptionRepository
	cache statusCache
	ttl   time.Duration
	log   *zap.Logger
}

// NewSubscriptionService wires the resolver. redisClient may be nil, in which
// case every lookup goes to the repository.
func NewSubscriptionService(repo subscriptionRepository, redisClient *redis.Client, ttl time.Duration, log *zap.Logger) *SubscriptionService {
	var cache statusCache
	if redisClient != nil {
		cache = redisStatusCache{client: redisClient}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, cache: cache, ttl: ttl, log: log}
}

func subscriptionKey(userID uuid.UUID) string {
	return "subscription:" + userID.String()
}

// IsPremium reports whether the user's subscription is active.
func (s *SubscriptionService) IsPremium(ctx context.Context, userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}

	key := subscriptionKey(userID)
	if s.cache != nil {
		val, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("subscription cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		} else if ok {
			return val == cachedPremium
		}
	}

	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.log.Error("subscription lookup failed, treating as free tier", zap.String("user_id", userID.String()), zap.Error(err))
		return false
	}
	premium := sub != nil && sub.Active()

	if s.cache != nil && s.ttl > 0 {
		val := cachedFree
		if premium {
			val = cachedPremium
		}
		if err := s.cache.Set(ctx, key, val, s.ttl); err != nil {
			s.log.Warn("subscription cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return premium
}

// AccessContext builds the access context for an authenticated or anonymous caller.
func (s *SubscriptionService) AccessContext(ctx context.Context, userID uuid.UUID) models.AccessContext {
	return models.AccessContext{UserID: userID, IsPrivileged: s.IsPremium(ctx, userID)}
}

type redisStatusCache struct {
	client *redis.Client
}

func (c redisStatusCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c redisStatusCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
