package models

import (
	"errors"
	"fmt"
	"time"
)

// DepartureLayout is the wall-clock layout accepted for departure times:
// local time with minute precision and no timezone offset.
const DepartureLayout = "2006-01-02T15:04"

// Role identifies which end of the commute a selected point belongs to.
type Role string

const (
	// RoleHome marks the trip origin.
	RoleHome Role = "home"
	// RoleOffice marks the trip destination.
	RoleOffice Role = "office"
)

// ErrUnknownRole is returned when a selection carries a role other than home or office.
var ErrUnknownRole = errors.New("unknown location role")

// Valid reports whether the role is one of the two supported values.
func (r Role) Valid() bool {
	return r == RoleHome || r == RoleOffice
}

// GeoPoint represents a geographical point selected on the map.
type GeoPoint struct {
	Latitude  float64 // Latitude of the geographical point.
	Longitude float64 // Longitude of the geographical point.
}

// Validate checks that the point lies inside the valid geographic range.
// Map-tap events are map-bounded already, so a failure here means degenerate input.
func (g GeoPoint) Validate() error {
	const (
		maxLatitude  = 90
		maxLongitude = 180
	)

	if g.Latitude < -maxLatitude || g.Latitude > maxLatitude {
		return fmt.Errorf("latitude %v out of range [-90, 90]", g.Latitude)
	}
	if g.Longitude < -maxLongitude || g.Longitude > maxLongitude {
		return fmt.Errorf("longitude %v out of range [-180, 180]", g.Longitude)
	}

	return nil
}

// TripRequest carries everything the estimation service needs for one prediction:
// both trip endpoints and the local departure time in DepartureLayout form.
type TripRequest struct {
	Home          GeoPoint // Home is the trip origin.
	Office        GeoPoint // Office is the trip destination.
	DepartureTime string   // DepartureTime is local wall-clock time, "2006-01-02T15:04".
}

// Validate checks both endpoints and the departure time layout.
func (tr TripRequest) Validate() error {
	if err := tr.Home.Validate(); err != nil {
		return fmt.Errorf("home location: %w", err)
	}
	if err := tr.Office.Validate(); err != nil {
		return fmt.Errorf("office location: %w", err)
	}
	if _, err := time.Parse(DepartureLayout, tr.DepartureTime); err != nil {
		return fmt.Errorf("departure time %q: %w", tr.DepartureTime, err)
	}

	return nil
}

// TripPrediction is the estimation service's answer for a single trip request.
// It lives only inside a succeeded workflow state and is replaced wholesale by
// the next successful response.
type TripPrediction struct {
	PredictedETAMinutes float64 `json:"predicted_eta_minutes"` // Point ETA estimate, minutes.
	DistanceKm          float64 `json:"distance_km"`           // Estimated route distance, km.
	DepartureTime       string  `json:"departure_time"`        // Echoed departure timestamp.
	DayOfWeek           string  `json:"day_of_week"`           // Day the prediction applies to.
}
