package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	billing Billing
}

func NewWebhookHandler(billing Billing) *WebhookHandler {
	return &WebhookHandler{billing: billing}
}

// HandleStripe verifies the Stripe-Signature header against the raw body and
// applies the event.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Missing Stripe-Signature header"})
	}

	// Body() is reused by fasthttp after the handler returns.
	payload := append([]byte(nil), c.Body()...)

	if err := h.billing.HandleWebhook(c.UserContext(), payload, signature); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			slog.Warn("stripe webhook rejected", "request_id", requestID(c), "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid signature"})
		case errors.Is(err, services.ErrBillingNotConfigured):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: "Webhooks not configured"})
		}
		slog.Error("stripe webhook processing failed", "request_id", requestID(c), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "Failed to process webhook event"})
	}

	return c.JSON(fiber.Map{"received": true})
}
