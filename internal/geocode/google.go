package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/hermes/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleResolver is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to turn selected map points
// into display labels via the Google reverse geocoding service.
type GoogleResolver struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrGoogleEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrGoogleEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleResolver initializes a new GoogleResolver with the given API client and logger.
func NewGoogleResolver(client GoogleAPIClient, log *slog.Logger) *GoogleResolver {
	return &GoogleResolver{client: client, log: log}
}

// Resolve takes a context and a selected point, and returns the formatted
// address of the top reverse-geocoding result. If the point cannot be
// resolved or the response is empty, it returns an appropriate error.
func (gr *GoogleResolver) Resolve(ctx context.Context, point models.GeoPoint) (string, error) {
	gr.log.DebugContext(ctx, "Resolving label using Google Maps", "lat", point.Latitude, "lon", point.Longitude)

	req := maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: point.Latitude, Lng: point.Longitude},
	}
	results, err := gr.client.ReverseGeocode(ctx, &req)
	if err != nil {
		return "", fmt.Errorf("failed to reverse geocode point: %w", err)
	}

	if len(results) == 0 {
		return "", ErrGoogleEmptyResponse
	}

	return results[0].FormattedAddress, nil
}
