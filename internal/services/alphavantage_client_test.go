package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaVantageClient_ATR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ATR", q.Get("function"))
		assert.Equal(t, "SPY", q.Get("symbol"))
		assert.Equal(t, "daily", q.Get("interval"))
		assert.Equal(t, "14", q.Get("time_period"))
		assert.Equal(t, "demo-key", q.Get("apikey"))
		_, _ = w.Write([]byte(`{
			"Meta Data": {"1: Symbol": "SPY"},
			"Technical Analysis: ATR": {
				"2025-03-19": {"ATR": "7.1020"},
				"2025-03-21": {"ATR": "6.8512"},
				"2025-03-20": {"ATR": "6.9901"}
			}
		}`))
	}))
	defer srv.Close()

	client := NewAlphaVantageClient(&config.Config{
		AlphaVantageAPIKey: "demo-key",
		AlphaVantageAPIURL: srv.URL,
		UpstreamTimeout:    5 * time.Second,
	})

	got, err := client.ATR(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", got.Symbol)
	assert.Equal(t, "2025-03-21", got.Date)
	assert.InDelta(t, 6.8512, got.ATR, 1e-9)
	assert.Equal(t, 14, got.Period)
}

func TestAlphaVantageClient_NotConfigured(t *testing.T) {
	client := NewAlphaVantageClient(&config.Config{UpstreamTimeout: time.Second})
	_, err := client.ATR(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrAlphaVantageNotConfigured)
}

func TestLatestATR_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload alphaVantageATR
	}{
		{name: "error message", payload: alphaVantageATR{ErrorMessage: "Invalid API call"}},
		{name: "rate limit note", payload: alphaVantageATR{Note: "Thank you for using Alpha Vantage"}},
		{name: "information only", payload: alphaVantageATR{Information: "premium endpoint"}},
		{name: "empty series", payload: alphaVantageATR{}},
		{name: "bad value", payload: alphaVantageATR{Series: map[string]map[string]string{"2025-03-21": {"ATR": "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := latestATR("SPY", &tt.payload)
			assert.ErrorIs(t, err, ErrUpstreamFailed)
		})
	}
}

func TestAlphaVantageClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewAlphaVantageClient(&config.Config{
		AlphaVantageAPIKey: "k",
		AlphaVantageAPIURL: srv.URL,
		UpstreamTimeout:    5 * time.Second,
	})
	_, err := client.ATR(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrUpstreamFailed)
}
