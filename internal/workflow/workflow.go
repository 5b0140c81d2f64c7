package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/prediction"
)

// Phase is the lifecycle state of the current prediction request.
type Phase string

const (
	// PhaseIdle is the initial state, before any submission.
	PhaseIdle Phase = "idle"
	// PhaseLoading means exactly one request is in flight.
	PhaseLoading Phase = "loading"
	// PhaseSucceeded holds the latest prediction.
	PhaseSucceeded Phase = "succeeded"
	// PhaseFailed holds the latest user-visible error message.
	PhaseFailed Phase = "failed"
)

// MissingLocationsMessage is the user-visible reason for a gated submission.
const MissingLocationsMessage = "Please select both home and office locations"

// Common errors for the workflow.
var (
	// ErrRequestInFlight is returned when Submit is called while a request is
	// already loading. The call is a no-op: no state change, no second request.
	ErrRequestInFlight = errors.New("a prediction request is already in flight")
	// ErrWorkflowClosed is returned when the workflow instance has been torn down.
	ErrWorkflowClosed = errors.New("workflow is closed")
)

// State is a snapshot of the request lifecycle. Prediction is set only in
// PhaseSucceeded, Err only in PhaseFailed; both are cleared when a new
// submission enters PhaseLoading.
type State struct {
	Phase      Phase
	Prediction *models.TripPrediction
	Err        string
}

// Interval derives the confidence band from the current prediction. It is
// recomputed on every call and never cached, so it always reflects the
// prediction held by this state. The second return value is false outside
// PhaseSucceeded.
func (s State) Interval() (models.ConfidenceInterval, bool) {
	if s.Phase != PhaseSucceeded || s.Prediction == nil {
		return models.ConfidenceInterval{}, false
	}

	return models.DeriveInterval(s.Prediction.PredictedETAMinutes), true
}

// Selection is one "point selected" event from the map source.
type Selection struct {
	Role  models.Role
	Point models.GeoPoint
}

// Workflow owns the location-selection state, the departure time, and the
// request lifecycle for a single user. At most one request is ever in flight;
// selections and the departure time survive failed attempts so the user can
// retry without re-picking anything.
type Workflow struct {
	log       *slog.Logger         // Logger for logging workflow activities
	estimator prediction.Estimator // Client for the external estimation service
	metrics   *metrics.Metrics     // Metrics for tracking submissions and latency

	mu        sync.Mutex
	selector  *Selector
	departure string
	state     State
	closed    bool
}

// New creates a workflow with an empty selector and the departure time
// defaulted to the current wall-clock minute, matching what a user would see
// before touching the time picker.
func New(log *slog.Logger, estimator prediction.Estimator, appMetrics *metrics.Metrics) *Workflow {
	return &Workflow{
		log:       log,
		estimator: estimator,
		metrics:   appMetrics,
		selector:  NewSelector(),
		departure: time.Now().Format(models.DepartureLayout),
		state:     State{Phase: PhaseIdle},
	}
}

// Select records a map-tap for the given role, replacing any prior point.
func (w *Workflow) Select(role models.Role, point models.GeoPoint) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWorkflowClosed
	}
	if err := w.selector.Select(role, point); err != nil {
		return err
	}

	w.metrics.PointSelections.WithLabelValues(string(role)).Inc()
	w.log.Debug("Location selected", "role", role, "lat", point.Latitude, "lon", point.Longitude)

	return nil
}

// SetDeparture updates the departure time. The value must be in the
// "2006-01-02T15:04" input layout.
func (w *Workflow) SetDeparture(departure string) error {
	if _, err := time.Parse(models.DepartureLayout, departure); err != nil {
		return prediction.NewValidationError("departure time must be in YYYY-MM-DDTHH:mm form")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.departure = departure

	return nil
}

// Departure returns the currently selected departure time.
func (w *Workflow) Departure() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.departure
}

// Point returns a copy of the selected point for a role, if present.
func (w *Workflow) Point(role models.Role) (models.GeoPoint, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.selector.Point(role)
}

// State returns a snapshot of the current lifecycle state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Watch consumes the single-producer map selection stream until the context
// is canceled or the channel closes. Invalid selections are logged and
// dropped; only the latest point per role matters, so nothing is buffered.
func (w *Workflow) Watch(ctx context.Context, events <-chan Selection) {
	for {
		select {
		case <-ctx.Done():
			return
		case sel, ok := <-events:
			if !ok {
				return
			}
			if err := w.Select(sel.Role, sel.Point); err != nil {
				w.log.WarnContext(ctx, "Ignoring invalid map selection", "role", sel.Role, "error", err)
			}
		}
	}
}

// Submit runs one prediction attempt. Preconditions are checked before any
// network traffic: both locations must be selected (ValidationError
// otherwise) and no other request may be loading (ErrRequestInFlight, a
// state-preserving no-op). On success of the preconditions the workflow
// enters PhaseLoading, clearing any previous outcome, and lands in exactly
// one of PhaseSucceeded or PhaseFailed. Request failures never propagate as
// returned errors; they are converted into the Failed state.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return ErrWorkflowClosed
	}
	if w.state.Phase == PhaseLoading {
		w.mu.Unlock()
		return ErrRequestInFlight
	}
	if !w.selector.IsReady() {
		w.mu.Unlock()
		return prediction.NewValidationError(MissingLocationsMessage)
	}

	req := models.TripRequest{
		Home:          *w.selector.home,
		Office:        *w.selector.office,
		DepartureTime: w.departure,
	}
	if err := req.Validate(); err != nil {
		w.mu.Unlock()
		return prediction.NewValidationError(err.Error())
	}

	w.state = State{Phase: PhaseLoading}
	w.mu.Unlock()

	w.metrics.InFlight.Inc()
	startTime := time.Now()
	result, err := w.estimator.Predict(ctx, req)
	w.metrics.RequestSeconds.Observe(time.Since(startTime).Seconds())
	w.metrics.InFlight.Dec()

	w.mu.Lock()
	defer w.mu.Unlock()

	// A response arriving after teardown is discarded without touching state.
	if w.closed {
		w.log.Debug("Discarding prediction response for a closed workflow")
		return nil
	}

	if err != nil {
		w.metrics.Submissions.WithLabelValues("failure").Inc()

		var serviceErr *prediction.ServiceError
		if errors.As(err, &serviceErr) || errors.Is(err, prediction.ErrMalformedResponse) {
			w.metrics.ServiceErrors.Inc()
		}

		w.state = State{Phase: PhaseFailed, Err: prediction.UserMessage(err)}
		w.log.ErrorContext(ctx, "Prediction attempt failed", "error", err)

		return nil
	}

	w.metrics.Submissions.WithLabelValues("success").Inc()
	w.state = State{Phase: PhaseSucceeded, Prediction: result}
	w.log.InfoContext(ctx, "Prediction attempt succeeded", "eta_minutes", result.PredictedETAMinutes)

	return nil
}

// Close marks the workflow as defunct. Any in-flight response is discarded
// silently when it completes.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
