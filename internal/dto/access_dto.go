package dto

import "time"

// AccessResponse is the Access Gate decision for the signed-in user.
type AccessResponse struct {
	HasAccess      bool       `json:"hasAccess"`
	IsUnsubscribed bool       `json:"isUnsubscribed"`
	AccessUntil    *time.Time `json:"accessUntil,omitempty"`
	Status         string     `json:"status,omitempty"`
	Redirect       string     `json:"redirect,omitempty"`
}
