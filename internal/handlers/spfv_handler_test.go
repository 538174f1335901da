package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePricing struct {
	err   error
	calls []string
	args  []string
}

func (f *fakePricing) record(name string, args ...string) {
	f.calls = append(f.calls, name)
	f.args = args
}

func (f *fakePricing) Tiers(_ context.Context, symbol, expiration string) (json.RawMessage, error) {
	f.record("tiers", symbol, expiration)
	return json.RawMessage(`[{"ratio":1}]`), f.err
}

func (f *fakePricing) SymbolValues(_ context.Context, symbol, expiration, optionType string) (json.RawMessage, error) {
	f.record("values", symbol, expiration, optionType)
	return json.RawMessage(`{"values":[]}`), f.err
}

func (f *fakePricing) SymbolMultiValue(_ context.Context, symbol, endDateTime string) (json.RawMessage, error) {
	f.record("multi-value", symbol, endDateTime)
	return json.RawMessage(`{"series":[]}`), f.err
}

func (f *fakePricing) Top(_ context.Context, optionType string) (json.RawMessage, error) {
	f.record("top", optionType)
	return json.RawMessage(`[]`), f.err
}

func (f *fakePricing) LastPriceInfo(_ context.Context, symbol string) (*dto.LastPriceInfo, error) {
	f.record("last-price-info", symbol)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.LastPriceInfo{Symbol: symbol, LastPrice: 512.3}, nil
}

func (f *fakePricing) Symbols(_ context.Context) (json.RawMessage, error) {
	f.record("symbols")
	return json.RawMessage(`["SPY"]`), f.err
}

type fakeATR struct{ err error }

func (f *fakeATR) ATR(_ context.Context, symbol string) (*dto.ATRResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ATRResponse{Symbol: symbol, Date: "2025-03-21", ATR: 6.85, Period: 14}, nil
}

func newSPFVApp(pricing *fakePricing, atr *fakeATR) *fiber.App {
	h := NewSPFVHandler(pricing, atr)
	app := fiber.New()
	app.Get("/api/spfv/get-tiers", h.GetTiers)
	app.Get("/api/spfv/symbol-values", h.GetSymbolValues)
	app.Get("/api/spfv/symbol-multi-value", h.GetSymbolMultiValue)
	app.Get("/api/spfv/last-price-info", h.GetLastPriceInfo)
	app.Get("/api/spfv/spfv-top", h.GetTop)
	app.Get("/api/spfv/atr", h.GetATR)
	app.Get("/api/spfv/symbols", h.GetSymbols)
	return app
}

func readError(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}

func TestSPFVHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantErr string
	}{
		{name: "tiers missing symbol", target: "/api/spfv/get-tiers?expirationDate=2025-03-21", wantErr: "Symbol and expiration are required"},
		{name: "tiers missing expiration", target: "/api/spfv/get-tiers?symbol=SPY", wantErr: "Symbol and expiration are required"},
		{name: "tiers bad date", target: "/api/spfv/get-tiers?symbol=SPY&expirationDate=soon", wantErr: "Invalid date format"},
		{name: "values missing type", target: "/api/spfv/symbol-values?symbol=SPY&expirationDate=2025-03-21", wantErr: "Symbol, expiration and type are required"},
		{name: "values bad type", target: "/api/spfv/symbol-values?symbol=SPY&expirationDate=2025-03-21&type=straddle", wantErr: "Type must be call or put"},
		{name: "multi missing end", target: "/api/spfv/symbol-multi-value?symbol=SPY", wantErr: "Symbol and end date are required"},
		{name: "last price missing symbol", target: "/api/spfv/last-price-info", wantErr: "Symbol is required"},
		{name: "top bad type", target: "/api/spfv/spfv-top?type=both", wantErr: "Type must be call or put"},
		{name: "atr missing symbol", target: "/api/spfv/atr", wantErr: "Symbol is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing := &fakePricing{}
			app := newSPFVApp(pricing, &fakeATR{})

			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantErr, readError(t, resp.Body))
			assert.Empty(t, pricing.calls)
		})
	}
}

func TestSPFVHandler_GetTiers(t *testing.T) {
	pricing := &fakePricing{}
	app := newSPFVApp(pricing, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/get-tiers?symbol=SPY&expirationDate=2025-03-21", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Equal(t, []string{"SPY", "20250321"}, pricing.args)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"ratio":1}]`, string(body))
}

func TestSPFVHandler_UpstreamFailure(t *testing.T) {
	pricing := &fakePricing{err: errors.Join(services.ErrUpstreamFailed, errors.New("tiers returned status 503"))}
	app := newSPFVApp(pricing, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/get-tiers?symbol=SPY&expirationDate=20250321", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch tiers", readError(t, resp.Body))
}

func TestSPFVHandler_SymbolValuesAndMultiValue(t *testing.T) {
	pricing := &fakePricing{}
	app := newSPFVApp(pricing, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/symbol-values?symbol=SPY&expirationDate=2025-03-21T00:00:00Z&type=PUT", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"SPY", "20250321", "put"}, pricing.args)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/spfv/symbol-multi-value?symbol=SPY&endDateTime=2025-03-21T16:00:00", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"SPY", "2025-03-21T16:00:00"}, pricing.args)
}

func TestSPFVHandler_TopDefaultsToCall(t *testing.T) {
	pricing := &fakePricing{}
	app := newSPFVApp(pricing, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/spfv-top", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"call"}, pricing.args)
}

func TestSPFVHandler_LastPriceInfoAndATR(t *testing.T) {
	app := newSPFVApp(&fakePricing{}, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/last-price-info?symbol=SPY", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var info dto.LastPriceInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, 512.3, info.LastPrice)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/spfv/atr?symbol=SPY", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var atr dto.ATRResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&atr))
	assert.Equal(t, 14, atr.Period)

	failing := newSPFVApp(&fakePricing{}, &fakeATR{err: services.ErrAlphaVantageNotConfigured})
	resp, err = failing.Test(httptest.NewRequest("GET", "/api/spfv/atr?symbol=SPY", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to fetch ATR", readError(t, resp.Body))
}

func TestSPFVHandler_SymbolsCacheHeader(t *testing.T) {
	app := newSPFVApp(&fakePricing{}, &fakeATR{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/spfv/symbols", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=18000, s-maxage=18000, stale-while-revalidate=18000", resp.Header.Get("Cache-Control"))

	failing := newSPFVApp(&fakePricing{err: services.ErrUpstreamFailed}, &fakeATR{})
	resp, err = failing.Test(httptest.NewRequest("GET", "/api/spfv/symbols", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}
