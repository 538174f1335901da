package dto

type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type CheckoutVerifyResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	HasAccess     bool   `json:"hasAccess"`
}

type PortalSessionResponse struct {
	URL string `json:"url"`
}
