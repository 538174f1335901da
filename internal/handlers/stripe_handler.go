package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Billing is the Stripe-backed billing flow.
type Billing interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, email, priceID string) (*dto.CheckoutSessionResponse, error)
	VerifyCheckout(ctx context.Context, userID uuid.UUID, sessionID string) (*dto.CheckoutVerifyResponse, error)
	PortalURL(ctx context.Context, userID uuid.UUID) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type StripeHandler struct {
	billing Billing
}

func NewStripeHandler(billing Billing) *StripeHandler {
	return &StripeHandler{billing: billing}
}

func (h *StripeHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	priceID := c.Query("priceId")
	if priceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Price ID is required"})
	}

	resp, err := h.billing.CreateCheckout(c.UserContext(), userID, session.GetEmail(c), priceID)
	if err != nil {
		if errors.Is(err, services.ErrBillingNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Billing is not available"})
		}
		slog.Error("checkout session failed", "user_id", userID.String(), "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to create checkout session"})
	}
	return c.JSON(resp)
}

func (h *StripeHandler) VerifyCheckoutSession(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Session ID is required"})
	}

	resp, err := h.billing.VerifyCheckout(c.UserContext(), userID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Checkout session not found"})
		case errors.Is(err, services.ErrBillingNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Billing is not available"})
		}
		slog.Error("checkout verification failed", "user_id", userID.String(), "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to verify checkout session"})
	}
	return c.JSON(resp)
}

func (h *StripeHandler) CreatePortalSession(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
	}

	url, err := h.billing.PortalURL(c.UserContext(), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCustomerNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "No billing account found"})
		case errors.Is(err, services.ErrBillingNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Billing is not available"})
		}
		slog.Error("portal session failed", "user_id", userID.String(), "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to create portal session"})
	}
	return c.JSON(dto.PortalSessionResponse{URL: url})
}
