package middleware

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

type stubChecker struct {
	decision services.AccessDecision
	seen     uuid.UUID
}

func (s *stubChecker) Check(_ context.Context, userID uuid.UUID) services.AccessDecision {
	s.seen = userID
	return s.decision
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func newProtectedApp(checker AccessChecker) *fiber.App {
	app := fiber.New()
	cfg := &config.Config{SupabaseJWTSecret: testSecret}
	app.Get("/data", SessionRequired(cfg), SubscriptionRequired(checker), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestSessionRequired(t *testing.T) {
	userID := uuid.New()
	valid := signToken(t, testSecret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, testSecret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(-time.Hour).Unix()})
	wrongKey := signToken(t, "another-secret", jwt.MapClaims{"sub": userID.String()})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + valid, want: fiber.StatusOK},
		{name: "missing header", header: "", want: fiber.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: fiber.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, want: fiber.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newProtectedApp(&stubChecker{decision: services.AccessDecision{HasAccess: true}})
			req := httptest.NewRequest("GET", "/data", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)

			if tt.want == fiber.StatusUnauthorized {
				var body dto.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "Unauthorized", body.Error)
			}
		})
	}
}

func TestSubscriptionRequired(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})

	t.Run("denied", func(t *testing.T) {
		checker := &stubChecker{decision: services.AccessDecision{Redirect: services.RedirectPricing}}
		app := newProtectedApp(checker)
		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		var body dto.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "Active subscription required", body.Error)
		assert.Equal(t, userID, checker.seen)
	})

	t.Run("granted", func(t *testing.T) {
		app := newProtectedApp(&stubChecker{decision: services.AccessDecision{HasAccess: true}})
		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("token without uuid subject", func(t *testing.T) {
		bad := signToken(t, testSecret, jwt.MapClaims{"sub": "service-role"})
		app := newProtectedApp(&stubChecker{decision: services.AccessDecision{HasAccess: true}})
		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Authorization", "Bearer "+bad)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
