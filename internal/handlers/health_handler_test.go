package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	tests := []struct {
		name       string
		db, cache  Pinger
		wantStatus string
		wantCache  string
	}{
		{name: "all healthy", db: ok, cache: ok, wantStatus: "ok", wantCache: "ok"},
		{name: "cache disabled", db: ok, cache: nil, wantStatus: "ok", wantCache: "disabled"},
		{name: "cache down", db: ok, cache: down, wantStatus: "degraded", wantCache: "unhealthy: refused"},
		{name: "db down", db: down, cache: nil, wantStatus: "degraded", wantCache: "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/api/health", NewHealthHandler(tt.db, tt.cache).Check)

			resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			var body dto.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantCache, body.Cache)
		})
	}
}

func TestLegalHandler_OPRAAgreement(t *testing.T) {
	app := fiber.New()
	app.Get("/api/legal/opra-agreement", NewLegalHandler("FairValue").OPRAAgreement)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/legal/opra-agreement", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "OPRA Subscriber Agreement")
	assert.Contains(t, string(body), "FairValue")
}
