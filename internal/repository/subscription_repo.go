package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"revisia-backend/internal/models"
)

// SubscriptionRepo reads the billing service's subscription rows.
type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// GetByUserID returns nil without error when the user has never subscribed.
func (r *SubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, status, current_period_end, updated_at
		FROM subscriptions WHERE user_id = $1`, userID,
	).Scan(&s.UserID, &s.Status, &s.CurrentPeriodEnd, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
