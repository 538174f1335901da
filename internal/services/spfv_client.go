package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUpstreamNotConfigured = errors.New("pricing service not configured")
	ErrUpstreamFailed        = errors.New("pricing service request failed")
)

const (
	symbolListCacheKey  = "spfv:symbols"
	symbolListCacheName = "symbols"
	maxUpstreamBody     = 10 << 20
)

// SPFVClient talks to the external fair-value pricing service.
type SPFVClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
	symbolTTL  time.Duration
}

// NewSPFVClient builds a client for cfg.SPFVAPIURL. cache may be nil.
func NewSPFVClient(cfg *config.Config, cache *redis.Client) *SPFVClient {
	return &SPFVClient{
		baseURL:    cfg.SPFVAPIURL,
		httpClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		cache:      cache,
		symbolTTL:  cfg.SymbolListCacheTTL,
	}
}

// Tiers returns the raw tiers payload for a symbol and YYYYMMDD expiration.
func (c *SPFVClient) Tiers(ctx context.Context, symbol, expiration string) (json.RawMessage, error) {
	return c.get(ctx, "tiers", "/tiers", url.Values{
		"symbol":     {symbol},
		"expiration": {expiration},
	})
}

// SymbolValues returns fair values for one symbol, expiration and option type.
func (c *SPFVClient) SymbolValues(ctx context.Context, symbol, expiration, optionType string) (json.RawMessage, error) {
	return c.get(ctx, "symbol-values", "/values", url.Values{
		"symbol":     {symbol},
		"expiration": {expiration},
		"type":       {optionType},
	})
}

// SymbolMultiValue returns the value series for a symbol up to endDateTime.
func (c *SPFVClient) SymbolMultiValue(ctx context.Context, symbol, endDateTime string) (json.RawMessage, error) {
	return c.get(ctx, "symbol-multi-value", "/multi-value", url.Values{
		"symbol":      {symbol},
		"endDateTime": {endDateTime},
	})
}

// Top returns the top-ranked fair value entries for an option type.
func (c *SPFVClient) Top(ctx context.Context, optionType string) (json.RawMessage, error) {
	return c.get(ctx, "spfv-top", "/top", url.Values{"type": {optionType}})
}

// LastPriceInfo fetches and reshapes the latest quote for a symbol.
func (c *SPFVClient) LastPriceInfo(ctx context.Context, symbol string) (*dto.LastPriceInfo, error) {
	raw, err := c.get(ctx, "last-price-info", "/last-price-info", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode last-price-info: %v", ErrUpstreamFailed, err)
	}

	return ShapeLastPriceInfo(symbol, payload), nil
}

// ShapeLastPriceInfo extracts the quote fields from the nested upstream payload.
// Missing numeric fields default to 0.
func ShapeLastPriceInfo(symbol string, payload map[string]interface{}) *dto.LastPriceInfo {
	info := &dto.LastPriceInfo{
		Symbol:        stringAt(payload, "symbol"),
		LastPrice:     numberAt(payload, "data", "last"),
		Bid:           numberAt(payload, "data", "bid"),
		Ask:           numberAt(payload, "data", "ask"),
		Change:        numberAt(payload, "data", "change"),
		ChangePercent: numberAt(payload, "data", "changePercent"),
		Volume:        numberAt(payload, "data", "volume"),
		PreviousClose: numberAt(payload, "data", "previousClose"),
		UpdatedAt:     stringAt(payload, "data", "timestamp"),
	}
	if info.Symbol == "" {
		info.Symbol = symbol
	}
	return info
}

// Symbols returns the symbol list, served from Redis when cached.
func (c *SPFVClient) Symbols(ctx context.Context) (json.RawMessage, error) {
	if c.cache != nil {
		if val, err := c.cache.Get(ctx, symbolListCacheKey).Bytes(); err == nil {
			metrics.CacheLookups.WithLabelValues(symbolListCacheName, metrics.CacheHit).Inc()
			return json.RawMessage(val), nil
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("symbol list cache read failed", "error", err)
		}
		metrics.CacheLookups.WithLabelValues(symbolListCacheName, metrics.CacheMiss).Inc()
	}

	raw, err := c.get(ctx, "symbols", "/symbols", nil)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, symbolListCacheKey, []byte(raw), c.symbolTTL).Err(); err != nil {
			slog.Warn("symbol list cache write failed", "error", err)
		}
	}
	return raw, nil
}

func (c *SPFVClient) get(ctx context.Context, endpoint, path string, query url.Values) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, ErrUpstreamNotConfigured
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamFailed, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrUpstreamFailed, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstreamFailed, endpoint, resp.StatusCode)
	}
	if !json.Valid(body) {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("%w: %s returned invalid JSON", ErrUpstreamFailed, endpoint)
	}

	metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
	return json.RawMessage(body), nil
}
