package models

import (
	"time"

	"github.com/google/uuid"
)

const SubscriptionActive = "active"

// Subscription mirrors the billing collaborator's status row for a user.
type Subscription struct {
	UserID           uuid.UUID  `json:"user_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (s *Subscription) Active() bool {
	return s != nil && s.Status == SubscriptionActive
}
