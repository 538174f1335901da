package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	cacheNoStore    = "no-store"
	cacheSymbolList = "public, max-age=18000, s-maxage=18000, stale-while-revalidate=18000"
)

// PricingAPI is the fair-value pricing upstream.
type PricingAPI interface {
	Tiers(ctx context.Context, symbol, expiration string) (json.RawMessage, error)
	SymbolValues(ctx context.Context, symbol, expiration, optionType string) (json.RawMessage, error)
	SymbolMultiValue(ctx context.Context, symbol, endDateTime string) (json.RawMessage, error)
	Top(ctx context.Context, optionType string) (json.RawMessage, error)
	LastPriceInfo(ctx context.Context, symbol string) (*dto.LastPriceInfo, error)
	Symbols(ctx context.Context) (json.RawMessage, error)
}

// ATRSource provides Average True Range values.
type ATRSource interface {
	ATR(ctx context.Context, symbol string) (*dto.ATRResponse, error)
}

type SPFVHandler struct {
	pricing PricingAPI
	atr     ATRSource
}

func NewSPFVHandler(pricing PricingAPI, atr ATRSource) *SPFVHandler {
	return &SPFVHandler{pricing: pricing, atr: atr}
}

func (h *SPFVHandler) GetTiers(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	symbol := strings.TrimSpace(c.Query("symbol"))
	expirationDate := strings.TrimSpace(c.Query("expirationDate"))
	if symbol == "" || expirationDate == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Symbol and expiration are required",
		})
	}
	expiration, err := services.FormatDate(expirationDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Invalid date format",
		})
	}

	raw, err := h.pricing.Tiers(c.UserContext(), symbol, expiration)
	if err != nil {
		return upstreamFailure(c, "get-tiers", symbol, "Failed to fetch tiers", err)
	}
	return c.Type("json").Send(raw)
}

func (h *SPFVHandler) GetSymbolValues(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	symbol := strings.TrimSpace(c.Query("symbol"))
	expirationDate := strings.TrimSpace(c.Query("expirationDate"))
	optionType := strings.ToLower(strings.TrimSpace(c.Query("type")))
	if symbol == "" || expirationDate == "" || optionType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Symbol, expiration and type are required",
		})
	}
	if !validOptionType(optionType) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Type must be call or put",
		})
	}
	expiration, err := services.FormatDate(expirationDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Invalid date format",
		})
	}

	raw, err := h.pricing.SymbolValues(c.UserContext(), symbol, expiration, optionType)
	if err != nil {
		return upstreamFailure(c, "symbol-values", symbol, "Failed to fetch symbol values", err)
	}
	return c.Type("json").Send(raw)
}

func (h *SPFVHandler) GetSymbolMultiValue(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	symbol := strings.TrimSpace(c.Query("symbol"))
	endDateTime := strings.TrimSpace(c.Query("endDateTime"))
	if symbol == "" || endDateTime == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Symbol and end date are required",
		})
	}

	raw, err := h.pricing.SymbolMultiValue(c.UserContext(), symbol, endDateTime)
	if err != nil {
		return upstreamFailure(c, "symbol-multi-value", symbol, "Failed to fetch symbol values", err)
	}
	return c.Type("json").Send(raw)
}

func (h *SPFVHandler) GetLastPriceInfo(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Symbol is required",
		})
	}

	info, err := h.pricing.LastPriceInfo(c.UserContext(), symbol)
	if err != nil {
		return upstreamFailure(c, "last-price-info", symbol, "Failed to fetch last price info", err)
	}
	return c.JSON(info)
}

func (h *SPFVHandler) GetTop(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	optionType := strings.ToLower(strings.TrimSpace(c.Query("type", "call")))
	if !validOptionType(optionType) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Type must be call or put",
		})
	}

	raw, err := h.pricing.Top(c.UserContext(), optionType)
	if err != nil {
		return upstreamFailure(c, "spfv-top", "", "Failed to fetch top values", err)
	}
	return c.Type("json").Send(raw)
}

func (h *SPFVHandler) GetATR(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, cacheNoStore)

	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Symbol is required",
		})
	}

	atr, err := h.atr.ATR(c.UserContext(), symbol)
	if err != nil {
		return upstreamFailure(c, "atr", symbol, "Failed to fetch ATR", err)
	}
	return c.JSON(atr)
}

// GetSymbols is public and cached by shared caches for 5 hours.
func (h *SPFVHandler) GetSymbols(c *fiber.Ctx) error {
	raw, err := h.pricing.Symbols(c.UserContext())
	if err != nil {
		c.Set(fiber.HeaderCacheControl, cacheNoStore)
		return upstreamFailure(c, "symbols", "", "Failed to fetch symbols", err)
	}
	c.Set(fiber.HeaderCacheControl, cacheSymbolList)
	return c.Type("json").Send(raw)
}

func validOptionType(t string) bool {
	return t == "call" || t == "put"
}

// upstreamFailure logs the upstream error and answers with a generic 500.
func upstreamFailure(c *fiber.Ctx, endpoint, symbol, message string, err error) error {
	level := slog.LevelError
	if errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	slog.Log(c.UserContext(), level, "upstream request failed",
		"endpoint", endpoint,
		"symbol", symbol,
		"request_id", requestID(c),
		"error", err,
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: message,
	})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
