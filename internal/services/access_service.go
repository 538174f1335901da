package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/google/uuid"
)

// Redirect targets used when access is denied.
const (
	RedirectSignIn  = "/signin"
	RedirectPricing = "/pricing"
)

// SubscriptionLookup finds the current subscription for a user. A nil
// subscription with a nil error means the user has none.
type SubscriptionLookup interface {
	ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

// AccessDecision is the outcome of an Access Gate check.
type AccessDecision struct {
	HasAccess bool
	// IsUnsubscribed is set when the subscription will not renew. It does not
	// affect HasAccess; access runs until AccessUntil.
	IsUnsubscribed bool
	AccessUntil    *time.Time
	Status         string
	Redirect       string
}

// EvaluateAccess applies the access rule to a subscription at time now:
// status must be active and now must be before the period end.
func EvaluateAccess(sub *models.Subscription, now time.Time) AccessDecision {
	if sub == nil {
		return AccessDecision{Redirect: RedirectPricing}
	}

	d := AccessDecision{
		IsUnsubscribed: sub.CancelAtPeriodEnd,
		AccessUntil:    sub.CurrentPeriodEnd,
		Status:         sub.Status,
	}
	if sub.Status == models.StatusActive && sub.CurrentPeriodEnd != nil && now.Before(*sub.CurrentPeriodEnd) {
		d.HasAccess = true
		return d
	}
	d.Redirect = RedirectPricing
	return d
}

type AccessService struct {
	subs SubscriptionLookup
	now  func() time.Time
}

func NewAccessService(subs SubscriptionLookup) *AccessService {
	return &AccessService{subs: subs, now: time.Now}
}

// Check evaluates access for userID. Lookup failures deny access and are
// logged; they never surface as errors.
func (s *AccessService) Check(ctx context.Context, userID uuid.UUID) AccessDecision {
	if userID == uuid.Nil {
		metrics.AccessDecisions.WithLabelValues("no_user").Inc()
		return AccessDecision{Redirect: RedirectSignIn}
	}

	sub, err := s.subs.ActiveSubscription(ctx, userID)
	if err != nil {
		slog.Error("subscription lookup failed", "user_id", userID.String(), "error", err)
		metrics.AccessDecisions.WithLabelValues("lookup_failed").Inc()
		return AccessDecision{Redirect: RedirectPricing}
	}

	d := EvaluateAccess(sub, s.now())
	if d.HasAccess {
		metrics.AccessDecisions.WithLabelValues("granted").Inc()
	} else {
		metrics.AccessDecisions.WithLabelValues("denied").Inc()
	}
	return d
}
