package geocode

import (
	"context"
	"net/http"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// Resolver is an interface that defines a method for reverse geocoding a
// selected point. The Resolve method takes a context and a GeoPoint, and
// returns a human-readable label for it, or an error if any occurs.
//
// Labels are cosmetic: a failed lookup never affects the prediction workflow.
type Resolver interface {
	Resolve(ctx context.Context, point models.GeoPoint) (string, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
