package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCustomerNotFound = errors.New("stripe customer not found")

const subscriptionCacheName = "subscription"

type SubscriptionService struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
}

// NewSubscriptionService builds the subscription store. cache may be nil.
func NewSubscriptionService(db *gorm.DB, cache *redis.Client, ttl time.Duration) *SubscriptionService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SubscriptionService{db: db, cache: cache, ttl: ttl}
}

func subscriptionCacheKey(userID uuid.UUID) string {
	return "sub:" + userID.String()
}

// ActiveSubscription returns the user's active subscription with the latest
// period end, else the newest trialing one, or nil when there is none.
func (s *SubscriptionService) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	key := subscriptionCacheKey(userID)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			var sub models.Subscription
			if err := json.Unmarshal([]byte(val), &sub); err == nil {
				metrics.CacheLookups.WithLabelValues(subscriptionCacheName, metrics.CacheHit).Inc()
				return &sub, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("subscription cache read failed", "user_id", userID.String(), "error", err)
		}
		metrics.CacheLookups.WithLabelValues(subscriptionCacheName, metrics.CacheMiss).Inc()
	}

	var candidates []models.Subscription
	err := s.db.WithContext(ctx).
		Scopes(session.ForUser(userID)).
		Where("status IN ?", []string{models.StatusTrialing, models.StatusActive}).
		Order("created_at DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	sub := preferredSubscription(candidates)
	if sub == nil {
		return nil, nil
	}

	if s.cache != nil {
		if data, err := json.Marshal(sub); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
				slog.Warn("subscription cache write failed", "user_id", userID.String(), "error", err)
			}
		}
	}

	return sub, nil
}

// preferredSubscription picks the active row with the latest period end, and
// falls back to the newest trialing row. subs is ordered newest first.
func preferredSubscription(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		sub := &subs[i]
		if sub.Status != models.StatusActive {
			continue
		}
		if best == nil || laterPeriodEnd(sub, best) {
			best = sub
		}
	}
	if best != nil {
		return best
	}
	if len(subs) > 0 {
		return &subs[0]
	}
	return nil
}

func laterPeriodEnd(a, b *models.Subscription) bool {
	switch {
	case a.CurrentPeriodEnd == nil:
		return false
	case b.CurrentPeriodEnd == nil:
		return true
	default:
		return a.CurrentPeriodEnd.After(*b.CurrentPeriodEnd)
	}
}

// Upsert writes a subscription mirrored from Stripe and drops the cached lookup.
func (s *SubscriptionService) Upsert(ctx context.Context, sub *models.Subscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", sub.ID, err)
	}

	s.InvalidateCache(ctx, sub.UserID)
	return nil
}

// InvalidateCache removes the cached subscription for a user.
func (s *SubscriptionService) InvalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, subscriptionCacheKey(userID)).Err(); err != nil {
		slog.Warn("subscription cache invalidation failed", "user_id", userID.String(), "error", err)
	}
}

// CustomerID returns the Stripe customer id stored for a user.
func (s *SubscriptionService) CustomerID(ctx context.Context, userID uuid.UUID) (string, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Scopes(session.ForUser(userID)).Take(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCustomerNotFound
		}
		return "", err
	}
	return customer.StripeCustomerID, nil
}

// UserIDForCustomer resolves a Stripe customer id back to the owning user.
func (s *SubscriptionService) UserIDForCustomer(ctx context.Context, customerID string) (uuid.UUID, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).Take(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrCustomerNotFound
		}
		return uuid.Nil, err
	}
	return customer.UserID, nil
}

// SaveCustomer records the user → Stripe customer mapping.
func (s *SubscriptionService) SaveCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	customer := models.Customer{UserID: userID, StripeCustomerID: customerID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(&customer).Error
}
