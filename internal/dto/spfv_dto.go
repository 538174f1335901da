package dto

import (
	"encoding/json"
	"errors"
)

// OptionLeg is one side of a tier.
type OptionLeg struct {
	Strike   float64 `json:"strike"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Midpoint float64 `json:"midpoint"`
}

// Tier pairs a call and a put at a strike ratio.
type Tier struct {
	Ratio           float64    `json:"ratio"`
	HigherComponent *string    `json:"higherComponent,omitempty"`
	CallOption      *OptionLeg `json:"callOption"`
	PutOption       *OptionLeg `json:"putOption"`
}

// TierList decodes either a bare array of tiers or an object with a "tiers" field.
type TierList []Tier

func (l *TierList) UnmarshalJSON(data []byte) error {
	var arr []Tier
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var wrapped struct {
		Tiers *[]Tier `json:"tiers"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Tiers == nil {
		return errors.New("tiers payload has no tiers field")
	}
	*l = *wrapped.Tiers
	return nil
}

// LastPriceInfo is the reshaped last-price-info payload.
type LastPriceInfo struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"lastPrice"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	UpdatedAt     string  `json:"updatedAt"`
}

// ATRResponse is the most recent daily Average True Range for a symbol.
type ATRResponse struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	ATR    float64 `json:"atr"`
	Period int     `json:"period"`
}
