package workflow

import (
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/prediction"
)

// Selector tracks at most one GeoPoint per role, sourced from map-tap events.
// The last tap for a role always wins. Selector is not safe for concurrent
// use on its own; Workflow serializes access to it.
type Selector struct {
	home   *models.GeoPoint
	office *models.GeoPoint
}

// NewSelector creates an empty location selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Select overwrites the stored point for the given role. Out-of-range
// coordinates are rejected with a ValidationError; a well-behaved map source
// never produces them, so this is a guard against degenerate input only.
func (s *Selector) Select(role models.Role, point models.GeoPoint) error {
	if !role.Valid() {
		return models.ErrUnknownRole
	}
	if err := point.Validate(); err != nil {
		return prediction.NewValidationError(err.Error())
	}

	switch role {
	case models.RoleHome:
		s.home = &point
	case models.RoleOffice:
		s.office = &point
	}

	return nil
}

// IsReady reports whether both roles are populated, which gates submission.
func (s *Selector) IsReady() bool {
	return s.home != nil && s.office != nil
}

// Point returns a copy of the stored point for the role, if any.
func (s *Selector) Point(role models.Role) (models.GeoPoint, bool) {
	switch role {
	case models.RoleHome:
		if s.home != nil {
			return *s.home, true
		}
	case models.RoleOffice:
		if s.office != nil {
			return *s.office, true
		}
	}

	return models.GeoPoint{}, false
}
