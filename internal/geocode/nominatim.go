package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"golang.org/x/time/rate"
)

// NominatimResolver implements the Resolver interface using OpenStreetMap's
// Nominatim reverse geocoding API. This is a free service with usage limits
// (1 request/second for fair use), which is plenty for labelling map taps.
type NominatimResolver struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim reverse API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter per Nominatim fair-use policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// nominatimReverseResponse represents the JSON response from the reverse API.
type nominatimReverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Common errors for Nominatim resolver.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimNoResult      = errors.New("nominatim API could not resolve the point")
)

const nominatimUserAgent = "Hermes-ETA-Client/1.0 (https://github.com/UnknownOlympus/hermes)"

// NewNominatimResolver creates a new Nominatim reverse geocoding resolver.
// Uses the public Nominatim API endpoint by default.
func NewNominatimResolver(log *slog.Logger) *NominatimResolver {
	const timeout = 10
	return &NominatimResolver{
		client: &http.Client{
			Timeout: timeout * time.Second,
		},
		baseURL: "https://nominatim.openstreetmap.org/reverse",
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: nominatimUserAgent,
	}
}

// NewNominatimResolverWithClient creates a Nominatim resolver with a custom
// HTTP client and limiter. Useful for testing with mocked HTTP clients.
func NewNominatimResolverWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *NominatimResolver {
	return &NominatimResolver{
		client:    client,
		baseURL:   "https://nominatim.openstreetmap.org/reverse",
		log:       log,
		limiter:   limiter,
		userAgent: nominatimUserAgent,
	}
}

// Resolve converts a selected point into a display label using the Nominatim
// reverse API. It respects Nominatim's usage policy by including a User-Agent
// header and rate limiting outgoing requests.
func (nr *NominatimResolver) Resolve(ctx context.Context, point models.GeoPoint) (string, error) {
	if nr.limiter != nil {
		if err := nr.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	nr.log.DebugContext(ctx, "Resolving label using Nominatim", "lat", point.Latitude, "lon", point.Longitude)

	reqURL, err := url.Parse(nr.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("lat", strconv.FormatFloat(point.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(point.Longitude, 'f', -1, 64))
	query.Set("format", "json")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers per Nominatim usage policy
	req.Header.Set("User-Agent", nr.userAgent)

	resp, err := nr.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		nr.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var result nominatimReverseResponse
	if err = json.Unmarshal(body, &result); err != nil {
		nr.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return "", fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	// The reverse endpoint reports "Unable to geocode" inside a 200 body.
	if result.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNominatimNoResult, result.Error)
	}
	if result.DisplayName == "" {
		return "", ErrNominatimEmptyResponse
	}

	nr.log.DebugContext(ctx, "Nominatim resolved point", "label", result.DisplayName)

	return result.DisplayName, nil
}
