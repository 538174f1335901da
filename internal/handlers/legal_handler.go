package handlers

import (
	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type LegalHandler struct {
	productName string
}

func NewLegalHandler(productName string) *LegalHandler {
	return &LegalHandler{productName: productName}
}

// OPRAAgreement serves the subscriber agreement text signed during onboarding.
func (h *LegalHandler) OPRAAgreement(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>OPRA Subscriber Agreement - ` + h.productName + `</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>
</head><body>
<h1>OPRA Subscriber Agreement</h1>
<p>Version ` + services.AgreementVersion + `</p>
<h2>Market Data</h2>
<p>` + h.productName + ` displays options last-sale and quotation information disseminated by the Options Price Reporting Authority (OPRA). You may use this information only for your own use and may not redistribute it in any form.</p>
<h2>Accuracy</h2>
<p>Neither OPRA, the participating exchanges, nor ` + h.productName + ` guarantees the timeliness, sequence, accuracy or completeness of the information. Fair values are model estimates and are not trading advice.</p>
<h2>Nonprofessional Subscribers</h2>
<p>If you declare that you are a nonprofessional subscriber, you confirm that you use the information solely for your personal, non-business investment activity and that you are not registered or qualified as a professional securities trader or investment adviser.</p>
<h2>Termination</h2>
<p>Your right to receive the information ends when your subscription ends or when you breach this agreement.</p>
</body></html>`)
}
