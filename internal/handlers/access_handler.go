package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AccessChecker interface {
	Check(ctx context.Context, userID uuid.UUID) services.AccessDecision
}

type AccessHandler struct {
	checker AccessChecker
}

func NewAccessHandler(checker AccessChecker) *AccessHandler {
	return &AccessHandler{checker: checker}
}

// GetAccess returns the Access Gate decision so the client can redirect.
func (h *AccessHandler) GetAccess(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	userID, err := session.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.AccessResponse{
			Redirect: services.RedirectSignIn,
		})
	}

	d := h.checker.Check(c.UserContext(), userID)
	return c.JSON(dto.AccessResponse{
		HasAccess:      d.HasAccess,
		IsUnsubscribed: d.IsUnsubscribed,
		AccessUntil:    d.AccessUntil,
		Status:         d.Status,
		Redirect:       d.Redirect,
	})
}
