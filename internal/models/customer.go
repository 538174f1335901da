package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer maps a signed-in user to their Stripe customer.
type Customer struct {
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	StripeCustomerID string    `gorm:"size:255;not null;uniqueIndex" json:"stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
