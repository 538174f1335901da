package poller

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
)

func key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Tiers polls complete tiers for a symbol and expiration, sorted by ratio.
func Tiers(c *Client, symbol, expirationDate string, interval time.Duration) *Poller[[]dto.Tier] {
	return New(key(c.identity(), "tiers", symbol, expirationDate), symbol != "" && expirationDate != "", interval,
		func(ctx context.Context) ([]dto.Tier, error) {
			return c.Tiers(ctx, symbol, expirationDate)
		})
}

func SymbolValues(c *Client, symbol, expirationDate, optionType string, interval time.Duration) *Poller[json.RawMessage] {
	return New(key(c.identity(), "symbol-values", symbol, expirationDate, optionType), symbol != "" && expirationDate != "" && optionType != "", interval,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.SymbolValues(ctx, symbol, expirationDate, optionType)
		})
}

func SymbolMultiValue(c *Client, symbol, endDateTime string, interval time.Duration) *Poller[json.RawMessage] {
	return New(key(c.identity(), "symbol-multi-value", symbol, endDateTime), symbol != "" && endDateTime != "", interval,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.SymbolMultiValue(ctx, symbol, endDateTime)
		})
}

func LastPriceInfo(c *Client, symbol string, interval time.Duration) *Poller[*dto.LastPriceInfo] {
	return New(key(c.identity(), "last-price-info", symbol), symbol != "", interval,
		func(ctx context.Context) (*dto.LastPriceInfo, error) {
			return c.LastPriceInfo(ctx, symbol)
		})
}

// Top is always ready; an empty type falls back to the server default.
func Top(c *Client, optionType string, interval time.Duration) *Poller[json.RawMessage] {
	return New(key(c.identity(), "spfv-top", optionType), true, interval,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.Top(ctx, optionType)
		})
}

func Symbols(c *Client, interval time.Duration) *Poller[[]string] {
	return New(key(c.identity(), "symbols"), true, interval, c.Symbols)
}
