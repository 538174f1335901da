package middleware

import (
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// SessionRequired verifies the Supabase access token (HS256) and stores it in
// c.Locals("user").
func SessionRequired(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwtware.HS256,
			Key:    []byte(cfg.SupabaseJWTSecret),
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: "Unauthorized",
			})
		},
	})
}
