package geocode

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ResolverType represents the type of reverse geocoding resolver.
type ResolverType string

const (
	// ResolverTypeGoogle represents the Google Maps reverse geocoder.
	ResolverTypeGoogle ResolverType = "google"
	// ResolverTypeNominatim represents the OpenStreetMap Nominatim reverse geocoder.
	ResolverTypeNominatim ResolverType = "nominatim"
)

// ResolverConfig holds configuration for creating a reverse geocoding resolver.
type ResolverConfig struct {
	Type      ResolverType // Type of resolver to create
	APIKey    string       // API key (used by Google resolver)
	RateLimit int          // Rate limit for requests per second (used by Google resolver)
	Logger    *slog.Logger // Logger for the resolver
}

// NewResolver creates a reverse geocoding resolver based on the provided
// configuration. It applies the Factory pattern to decouple resolver
// instantiation from the workflow glue.
//
// Supported resolver types:
// - "google": Google Maps Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
//
// Returns an error if the resolver type is unsupported or if creation fails.
func NewResolver(config ResolverConfig) (Resolver, error) {
	switch config.Type {
	case ResolverTypeGoogle:
		return newGoogleResolver(config)
	case ResolverTypeNominatim:
		return NewNominatimResolver(config.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported resolver type: %s", config.Type)
	}
}

// newGoogleResolver creates a Google Maps reverse geocoding resolver.
func newGoogleResolver(config ResolverConfig) (Resolver, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google resolver")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	// Apply rate limiting if specified
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleResolver(client, config.Logger), nil
}
