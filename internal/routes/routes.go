package routes

import (
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	gate middleware.AccessChecker,
	healthHandler *handlers.HealthHandler,
	legalHandler *handlers.LegalHandler,
	spfvHandler *handlers.SPFVHandler,
	accessHandler *handlers.AccessHandler,
	onboardingHandler *handlers.OnboardingHandler,
	stripeHandler *handlers.StripeHandler,
	webhookHandler *handlers.WebhookHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP. Stripe webhooks are exempt.
	api.Use(limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/webhooks/")
		},
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Error: "Too many requests"})
		},
	}))

	requireSession := middleware.SessionRequired(cfg)
	requireSubscription := middleware.SubscriptionRequired(gate)

	// Public
	api.Get("/health", healthHandler.Check)
	api.Get("/legal/opra-agreement", legalHandler.OPRAAgreement)
	api.Get("/spfv/symbols", spfvHandler.GetSymbols)

	// Pricing proxy: session and subscription are checked before any parameter validation
	api.Get("/spfv/get-tiers", requireSession, requireSubscription, spfvHandler.GetTiers)
	api.Get("/spfv/symbol-values", requireSession, requireSubscription, spfvHandler.GetSymbolValues)
	api.Get("/spfv/symbol-multi-value", requireSession, requireSubscription, spfvHandler.GetSymbolMultiValue)
	api.Get("/spfv/last-price-info", requireSession, requireSubscription, spfvHandler.GetLastPriceInfo)
	api.Get("/spfv/spfv-top", requireSession, requireSubscription, spfvHandler.GetTop)
	api.Get("/spfv/atr", requireSession, requireSubscription, spfvHandler.GetATR)

	// Access Gate decision for page redirects
	api.Get("/account/access", requireSession, accessHandler.GetAccess)

	// Registration flow
	onboarding := api.Group("/onboarding", requireSession)
	onboarding.Get("/status", onboardingHandler.GetStatus)
	onboarding.Post("/additional-data", onboardingHandler.SaveAdditionalData)
	onboarding.Post("/questionnaire", onboardingHandler.SubmitQuestionnaire)
	onboarding.Post("/agreements", onboardingHandler.SignAgreements)

	// Billing: stricter limit, 10 req/min per IP
	billing := api.Group("/stripe", requireSession, limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	billing.Get("/checkout-session", stripeHandler.CreateCheckoutSession)
	billing.Get("/checkout-session/verify", stripeHandler.VerifyCheckoutSession)
	billing.Get("/portal", stripeHandler.CreatePortalSession)

	// Webhooks: Stripe-Signature verified, no session
	api.Post("/webhooks/stripe", webhookHandler.HandleStripe)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "Not found"})
	})
}
