package middleware

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AccessChecker evaluates the Access Gate for a user.
type AccessChecker interface {
	Check(ctx context.Context, userID uuid.UUID) services.AccessDecision
}

// SubscriptionRequired rejects requests from users without an active
// subscription. It must run after SessionRequired.
func SubscriptionRequired(checker AccessChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := session.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized",
			})
		}

		if d := checker.Check(c.UserContext(), userID); !d.HasAccess {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Active subscription required",
			})
		}
		return c.Next()
	}
}
