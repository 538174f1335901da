package poller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/tiers"
)

// APIError is a non-2xx answer from the proxy.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("proxy returned status %d", e.Status)
	}
	return fmt.Sprintf("proxy returned status %d: %s", e.Status, e.Message)
}

// Client calls the /api/spfv proxy endpoints with a Supabase access token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// identity distinguishes clients that talk to the same proxy with different
// sessions without putting the token itself in a key.
func (c *Client) identity() string {
	sum := sha256.Sum256([]byte(c.token))
	return c.baseURL + "#" + hex.EncodeToString(sum[:8])
}

// Tiers fetches tiers and drops incomplete entries, sorted by ratio.
func (c *Client) Tiers(ctx context.Context, symbol, expirationDate string) ([]dto.Tier, error) {
	var list dto.TierList
	err := c.getJSON(ctx, "/api/spfv/get-tiers", url.Values{
		"symbol":         {symbol},
		"expirationDate": {expirationDate},
	}, &list)
	if err != nil {
		return nil, err
	}
	return tiers.Prepare(list), nil
}

func (c *Client) SymbolValues(ctx context.Context, symbol, expirationDate, optionType string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.getJSON(ctx, "/api/spfv/symbol-values", url.Values{
		"symbol":         {symbol},
		"expirationDate": {expirationDate},
		"type":           {optionType},
	}, &raw)
	return raw, err
}

func (c *Client) SymbolMultiValue(ctx context.Context, symbol, endDateTime string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.getJSON(ctx, "/api/spfv/symbol-multi-value", url.Values{
		"symbol":      {symbol},
		"endDateTime": {endDateTime},
	}, &raw)
	return raw, err
}

func (c *Client) LastPriceInfo(ctx context.Context, symbol string) (*dto.LastPriceInfo, error) {
	var info dto.LastPriceInfo
	if err := c.getJSON(ctx, "/api/spfv/last-price-info", url.Values{"symbol": {symbol}}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Top(ctx context.Context, optionType string) (json.RawMessage, error) {
	q := url.Values{}
	if optionType != "" {
		q.Set("type", optionType)
	}
	var raw json.RawMessage
	err := c.getJSON(ctx, "/api/spfv/spfv-top", q, &raw)
	return raw, err
}

func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := c.getJSON(ctx, "/api/spfv/symbols", nil, &symbols)
	return symbols, err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e dto.ErrorResponse
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
