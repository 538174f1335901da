// Package tiers holds the client-side post-processing applied to tier payloads.
package tiers

import (
	"sort"

	"github.com/ahmetcoskunkizilkaya/fairvalue-backend/internal/dto"
)

// Unavailable marks a tier whose higher component could not be priced.
const Unavailable = "Error/Unavailable"

// Complete reports whether a tier has both legs priced.
func Complete(t dto.Tier) bool {
	if t.CallOption == nil || t.PutOption == nil {
		return false
	}
	if t.HigherComponent != nil && *t.HigherComponent == Unavailable {
		return false
	}
	return true
}

// Prepare drops incomplete tiers and orders the rest by ratio, ascending.
// Tiers with equal ratios keep their input order. The input is not modified.
func Prepare(in []dto.Tier) []dto.Tier {
	out := make([]dto.Tier, 0, len(in))
	for _, t := range in {
		if Complete(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ratio < out[j].Ratio
	})
	return out
}
