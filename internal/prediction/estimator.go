package prediction

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// Estimator is an interface that defines a method for requesting a trip ETA
// prediction. The Predict method takes a context and a fully populated trip
// request, and returns the service's prediction or an error if any occurs.
type Estimator interface {
	Predict(ctx context.Context, req models.TripRequest) (*models.TripPrediction, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FallbackMessage is shown to the user when the service fails without a
// machine-readable detail.
const FallbackMessage = "Failed to get prediction"

// ErrMalformedResponse is returned when the service answers with a success
// status but a body that cannot be decoded into a usable prediction.
var ErrMalformedResponse = errors.New("estimation service returned a malformed prediction body")

// ValidationError is a local precondition failure detected before any network
// traffic: missing or degenerate locations, or an unparsable departure time.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with the given user-visible reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// ServiceError is a non-success answer from the estimation service. Detail
// carries the service's own explanation when one was provided and is surfaced
// to the user verbatim.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return FallbackMessage
}

// UserMessage converts any prediction failure into the message shown to the
// user: service detail verbatim, the generic fallback for malformed bodies,
// and the error text itself for everything else (transport failures).
func UserMessage(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Error()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return FallbackMessage
	}

	return err.Error()
}
