package models

import "math"

// ConfidenceInterval is a symmetric band around the point ETA estimate,
// in whole minutes. It is always derived from the authoritative prediction
// on read and never stored, so it cannot drift from the displayed ETA.
type ConfidenceInterval struct {
	Lower int // Lower bound in minutes, clamped at zero.
	Upper int // Upper bound in minutes.
}

// intervalMargin is the share of the point estimate used for the band width.
const intervalMargin = 0.10

// DeriveInterval computes the ±10% confidence band for an ETA in minutes.
// Bounds are rounded half-away-from-zero (math.Round), so an ETA of 25
// yields [23, 28]. The lower bound never goes below zero.
func DeriveInterval(etaMinutes float64) ConfidenceInterval {
	margin := etaMinutes * intervalMargin

	return ConfidenceInterval{
		Lower: int(math.Max(0, math.Round(etaMinutes-margin))),
		Upper: int(math.Round(etaMinutes + margin)),
	}
}
