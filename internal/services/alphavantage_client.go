package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/metrics"
)

var ErrAlphaVantageNotConfigured = errors.New("alpha vantage API key not configured")

const atrPeriod = 14

type alphaVantageATR struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Technical Analysis: ATR"`
}

// AlphaVantageClient fetches technical indicators from Alpha Vantage.
type AlphaVantageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAlphaVantageClient(cfg *config.Config) *AlphaVantageClient {
	return &AlphaVantageClient{
		baseURL:    cfg.AlphaVantageAPIURL,
		apiKey:     cfg.AlphaVantageAPIKey,
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
	}
}

// ATR returns the most recent daily 14-period Average True Range for symbol.
func (c *AlphaVantageClient) ATR(ctx context.Context, symbol string) (*dto.ATRResponse, error) {
	if c.apiKey == "" {
		return nil, ErrAlphaVantageNotConfigured
	}

	q := url.Values{
		"function":    {"ATR"},
		"symbol":      {symbol},
		"interval":    {"daily"},
		"time_period": {strconv.Itoa(atrPeriod)},
		"apikey":      {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build atr request: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues("atr").Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("atr", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: atr: %v", ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("atr", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: atr returned status %d", ErrUpstreamFailed, resp.StatusCode)
	}

	var payload alphaVantageATR
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.UpstreamRequests.WithLabelValues("atr", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: decode atr: %v", ErrUpstreamFailed, err)
	}

	out, err := latestATR(symbol, &payload)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("atr", metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues("atr", metrics.OutcomeOK).Inc()
	return out, nil
}

func latestATR(symbol string, payload *alphaVantageATR) (*dto.ATRResponse, error) {
	// Alpha Vantage reports rate limiting and bad symbols with a 200 status.
	switch {
	case payload.ErrorMessage != "":
		return nil, fmt.Errorf("%w: atr: %s", ErrUpstreamFailed, payload.ErrorMessage)
	case payload.Note != "":
		return nil, fmt.Errorf("%w: atr: %s", ErrUpstreamFailed, payload.Note)
	case payload.Information != "" && len(payload.Series) == 0:
		return nil, fmt.Errorf("%w: atr: %s", ErrUpstreamFailed, payload.Information)
	case len(payload.Series) == 0:
		return nil, fmt.Errorf("%w: atr: empty series", ErrUpstreamFailed)
	}

	dates := make([]string, 0, len(payload.Series))
	for d := range payload.Series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	latest := dates[len(dates)-1]

	value, err := strconv.ParseFloat(payload.Series[latest]["ATR"], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: atr: bad value for %s", ErrUpstreamFailed, latest)
	}

	return &dto.ATRResponse{
		Symbol: symbol,
		Date:   latest,
		ATR:    value,
		Period: atrPeriod,
	}, nil
}
