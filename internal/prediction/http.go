package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// HTTPEstimator implements the Estimator interface against the estimation
// service's REST API (POST {base}/predict).
type HTTPEstimator struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL of the estimation service
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter, may be nil
}

// locationPayload mirrors the service's coordinate object.
type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// predictPayload is the request body for POST /predict.
type predictPayload struct {
	HomeLocation   locationPayload `json:"home_location"`
	OfficeLocation locationPayload `json:"office_location"`
	DepartureTime  string          `json:"departure_time"`
}

// errorEnvelope is the optional error body for non-success statuses.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

// NewHTTPEstimator creates an estimation service client with a default
// net/http client and an optional rate limit (requests per second, 0 disables).
func NewHTTPEstimator(baseURL string, timeout time.Duration, rateLimit int, log *slog.Logger) *HTTPEstimator {
	var limiter *rate.Limiter
	if rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), rateLimit)
	}

	return &HTTPEstimator{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		limiter: limiter,
	}
}

// NewHTTPEstimatorWithClient allows injecting a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewHTTPEstimatorWithClient(client HTTPClient, baseURL string, limiter *rate.Limiter, log *slog.Logger) *HTTPEstimator {
	return &HTTPEstimator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		limiter: limiter,
	}
}

// WireDepartureTime converts the local "2006-01-02T15:04" input form into the
// exact wire form the service expects: the "T" separator becomes a single
// space. The service misparses ISO-8601 with "T", so this substitution is a
// hard contract, not a cosmetic choice.
func WireDepartureTime(local string) string {
	return strings.Replace(local, "T", " ", 1)
}

// Predict submits one trip request to the estimation service and returns the
// decoded prediction. Each call is a fresh request; no retries are attempted.
func (he *HTTPEstimator) Predict(ctx context.Context, tripReq models.TripRequest) (*models.TripPrediction, error) {
	if err := tripReq.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	if he.limiter != nil {
		if err := he.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit exceeded: %w", err)
		}
	}

	requestID := uuid.NewString()
	he.log.DebugContext(ctx, "Requesting trip prediction",
		"request_id", requestID,
		"home", tripReq.Home,
		"office", tripReq.Office,
		"departure", tripReq.DepartureTime)

	payload := predictPayload{
		HomeLocation:   locationPayload{Latitude: tripReq.Home.Latitude, Longitude: tripReq.Home.Longitude},
		OfficeLocation: locationPayload{Latitude: tripReq.Office.Latitude, Longitude: tripReq.Office.Longitude},
		DepartureTime:  WireDepartureTime(tripReq.DepartureTime),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, he.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := he.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute prediction request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, he.serviceError(ctx, requestID, resp.StatusCode, respBody)
	}

	prediction, err := decodePrediction(respBody)
	if err != nil {
		he.log.ErrorContext(ctx, "Failed to decode prediction response",
			"request_id", requestID, "error", err, "body", string(respBody))
		return nil, err
	}

	he.log.InfoContext(ctx, "Prediction received",
		"request_id", requestID,
		"eta_minutes", prediction.PredictedETAMinutes,
		"distance_km", prediction.DistanceKm,
		"day_of_week", prediction.DayOfWeek)

	return prediction, nil
}

// serviceError maps a non-success status to a ServiceError, extracting the
// service's "detail" message when the body contains one.
func (he *HTTPEstimator) serviceError(ctx context.Context, requestID string, status int, body []byte) error {
	he.log.ErrorContext(ctx, "Estimation service error",
		"request_id", requestID, "status", status, "body", string(body))

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ServiceError{StatusCode: status}
	}

	return &ServiceError{StatusCode: status, Detail: envelope.Detail}
}

// decodePrediction parses a success body into a typed prediction and checks
// the documented shape, rather than trusting the service blindly.
func decodePrediction(body []byte) (*models.TripPrediction, error) {
	var prediction models.TripPrediction
	if err := json.Unmarshal(body, &prediction); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if prediction.PredictedETAMinutes <= 0 {
		return nil, fmt.Errorf("%w: predicted_eta_minutes must be positive, got %v",
			ErrMalformedResponse, prediction.PredictedETAMinutes)
	}
	if prediction.DistanceKm < 0 {
		return nil, fmt.Errorf("%w: distance_km must not be negative, got %v",
			ErrMalformedResponse, prediction.DistanceKm)
	}

	return &prediction, nil
}
