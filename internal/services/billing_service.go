package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	ErrBillingNotConfigured = errors.New("billing not configured")
	ErrPriceRequired        = errors.New("price ID is required")
	ErrSessionRequired      = errors.New("session ID is required")
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrUnknownCustomer      = errors.New("subscription customer is not linked to a user")
)

// Stripe webhook event types handled by HandleWebhook.
const (
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventCheckoutSessionComplete = "checkout.session.completed"
)

// StripeAPI is the subset of the Stripe API used for billing.
type StripeAPI interface {
	CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// BillingStore persists the Stripe mirror tables.
type BillingStore interface {
	CustomerID(ctx context.Context, userID uuid.UUID) (string, error)
	SaveCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
	UserIDForCustomer(ctx context.Context, customerID string) (uuid.UUID, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

type stripeClient struct {
	api *client.API
}

// NewStripeAPI returns a StripeAPI backed by the official client.
func NewStripeAPI(secretKey string) StripeAPI {
	return &stripeClient{api: client.New(secretKey, nil)}
}

func (c *stripeClient) CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID.String())
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return c.api.CheckoutSessions.New(params)
}

func (c *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	return c.api.CheckoutSessions.Get(id, params)
}

func (c *stripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return c.api.Subscriptions.Get(id, params)
}

type BillingService struct {
	stripe        StripeAPI
	store         BillingStore
	siteURL       string
	webhookSecret string
	now           func() time.Time
}

// NewBillingService wires billing. api may be nil when Stripe is not configured.
func NewBillingService(cfg *config.Config, api StripeAPI, store BillingStore) *BillingService {
	return &BillingService{
		stripe:        api,
		store:         store,
		siteURL:       cfg.SiteURL,
		webhookSecret: cfg.StripeWebhookSecret,
		now:           time.Now,
	}
}

// CreateCheckout starts a subscription checkout for priceID, creating the
// Stripe customer on first use.
func (s *BillingService) CreateCheckout(ctx context.Context, userID uuid.UUID, email, priceID string) (*dto.CheckoutSessionResponse, error) {
	if priceID == "" {
		return nil, ErrPriceRequired
	}
	if s.stripe == nil {
		return nil, ErrBillingNotConfigured
	}

	customerID, err := s.ensureCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(s.siteURL + "/account?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(s.siteURL + "/pricing"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": userID.String()},
		},
	}
	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &dto.CheckoutSessionResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	customerID, err := s.store.CustomerID(ctx, userID)
	if err == nil {
		return customerID, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return "", err
	}

	customerID, err = s.stripe.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.store.SaveCustomer(ctx, userID, customerID); err != nil {
		return "", fmt.Errorf("save stripe customer: %w", err)
	}
	return customerID, nil
}

// VerifyCheckout looks up a finished checkout and syncs its subscription so
// access is granted without waiting for the webhook.
func (s *BillingService) VerifyCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*dto.CheckoutVerifyResponse, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if s.stripe == nil {
		return nil, ErrBillingNotConfigured
	}

	sess, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	if sess.ClientReferenceID != userID.String() {
		return nil, ErrSessionNotFound
	}

	out := &dto.CheckoutVerifyResponse{
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return out, nil
	}

	sub := sess.Subscription
	if sub.Status == "" {
		if sub, err = s.stripe.GetSubscription(ctx, sub.ID); err != nil {
			return nil, fmt.Errorf("get subscription: %w", err)
		}
	}
	model, err := s.syncSubscription(ctx, sub, userID)
	if err != nil {
		return nil, err
	}
	out.HasAccess = EvaluateAccess(model, s.now()).HasAccess
	return out, nil
}

// PortalURL returns a Stripe billing portal link for the user.
func (s *BillingService) PortalURL(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.stripe == nil {
		return "", ErrBillingNotConfigured
	}
	customerID, err := s.store.CustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := s.stripe.CreatePortalSession(ctx, customerID, s.siteURL+"/account")
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

// HandleWebhook verifies and applies a Stripe event. Unhandled event types
// are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhookSecret == "" {
		return ErrBillingNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	eventType := string(event.Type)
	slog.Info("stripe webhook received", "event_id", event.ID, "type", eventType)

	switch eventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
			return fmt.Errorf("decode subscription: %w", err)
		}
		var current *stripe.Subscription
		if current, err = s.latestSubscription(ctx, &sub); err == nil {
			_, err = s.syncSubscription(ctx, current, uuid.Nil)
		}
	case EventCheckoutSessionComplete:
		err = s.handleCheckoutCompleted(ctx, event.Data.Raw)
	default:
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}

	if errors.Is(err, ErrUnknownCustomer) {
		slog.Warn("stripe webhook for unlinked customer", "event_id", event.ID, "type", eventType)
		metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeError).Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues(eventType, metrics.OutcomeOK).Inc()
	return nil
}

// latestSubscription re-reads a subscription from Stripe so an event delivered
// out of order cannot overwrite newer state. The event's copy is used when the
// subscription can no longer be retrieved.
func (s *BillingService) latestSubscription(ctx context.Context, fromEvent *stripe.Subscription) (*stripe.Subscription, error) {
	if s.stripe == nil || fromEvent.ID == "" {
		return fromEvent, nil
	}
	sub, err := s.stripe.GetSubscription(ctx, fromEvent.ID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return fromEvent, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	userID, _ := uuid.Parse(sess.ClientReferenceID)
	if userID != uuid.Nil && sess.Customer != nil && sess.Customer.ID != "" {
		if err := s.store.SaveCustomer(ctx, userID, sess.Customer.ID); err != nil {
			return fmt.Errorf("save stripe customer: %w", err)
		}
	}

	if sess.Subscription == nil || sess.Subscription.ID == "" || s.stripe == nil {
		return nil
	}
	sub, err := s.stripe.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return fmt.Errorf("get subscription: %w", err)
	}
	_, err = s.syncSubscription(ctx, sub, userID)
	return err
}

// syncSubscription mirrors a Stripe subscription into the subscriptions table.
// The owner is resolved from the customers table, then metadata.user_id, then fallback.
func (s *BillingService) syncSubscription(ctx context.Context, sub *stripe.Subscription, fallback uuid.UUID) (*models.Subscription, error) {
	var customerID string
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID := uuid.Nil
	if customerID != "" {
		id, err := s.store.UserIDForCustomer(ctx, customerID)
		switch {
		case err == nil:
			userID = id
		case !errors.Is(err, ErrCustomerNotFound):
			return nil, err
		}
	}
	if userID == uuid.Nil {
		if id, err := uuid.Parse(sub.Metadata["user_id"]); err == nil {
			userID = id
		}
	}
	if userID == uuid.Nil {
		userID = fallback
	}
	if userID == uuid.Nil {
		return nil, ErrUnknownCustomer
	}

	model := SubscriptionFromStripe(sub, userID)
	if err := s.store.Upsert(ctx, model); err != nil {
		return nil, err
	}
	slog.Info("subscription synced", "user_id", userID.String(), "subscription_id", model.ID, "status", model.Status)
	return model, nil
}

// SubscriptionFromStripe maps a Stripe subscription onto the local mirror row.
func SubscriptionFromStripe(sub *stripe.Subscription, userID uuid.UUID) *models.Subscription {
	model := &models.Subscription{
		ID:                 sub.ID,
		UserID:             userID,
		Status:             string(sub.Status),
		Quantity:           1,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CanceledAt:         unixTime(sub.CanceledAt),
		EndedAt:            unixTime(sub.EndedAt),
		Metadata:           map[string]interface{}{},
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			model.PriceID = item.Price.ID
		}
		if item.Quantity > 0 {
			model.Quantity = item.Quantity
		}
	}
	for k, v := range sub.Metadata {
		model.Metadata[k] = v
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		model.Metadata["stripe_customer_id"] = sub.Customer.ID
	}
	return model
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
