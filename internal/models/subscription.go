package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Subscription statuses mirrored from Stripe.
const (
	StatusTrialing          = "trialing"
	StatusActive            = "active"
	StatusCanceled          = "canceled"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusPastDue           = "past_due"
	StatusUnpaid            = "unpaid"
	StatusPaused            = "paused"
)

// Subscription mirrors a Stripe subscription, keyed by the Stripe subscription id.
type Subscription struct {
	ID                 string            `gorm:"primaryKey;size:255" json:"id"`
	UserID             uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Status             string            `gorm:"not null;default:'incomplete';size:50;index" json:"status"`
	PriceID            string            `gorm:"size:255" json:"price_id"`
	Quantity           int64             `gorm:"default:1" json:"quantity"`
	CancelAtPeriodEnd  bool              `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time        `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time        `json:"current_period_end"`
	CanceledAt         *time.Time        `json:"canceled_at"`
	EndedAt            *time.Time        `json:"ended_at"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// StripeCustomerID returns metadata.stripe_customer_id, or "" when unset.
func (s *Subscription) StripeCustomerID() string {
	if s == nil || s.Metadata == nil {
		return ""
	}
	id, _ := s.Metadata["stripe_customer_id"].(string)
	return id
}
