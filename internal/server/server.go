package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/hermes/internal/geocode"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/prediction"
	"github.com/UnknownOlympus/hermes/internal/session"
	"github.com/UnknownOlympus/hermes/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the thin HTTP facade in front of a single prediction workflow
// instance. It also hosts the health and metrics endpoints.
type Server struct {
	log      *slog.Logger       // Logger for logging server events
	workflow *workflow.Workflow // The single workflow instance this facade fronts
	resolver geocode.Resolver   // Reverse geocoder for point labels, may be nil
	sessions session.Provider   // Identity provider; nil disables submission auth
	registry *prometheus.Registry
	port     int

	mu     sync.Mutex
	labels map[models.Role]string
}

// New creates the HTTP facade. A nil resolver skips point labels; a nil
// session provider disables the bearer-token gate on submission.
func New(
	log *slog.Logger,
	wf *workflow.Workflow,
	resolver geocode.Resolver,
	sessions session.Provider,
	registry *prometheus.Registry,
	port int,
) *Server {
	return &Server{
		log:      log,
		workflow: wf,
		resolver: resolver,
		sessions: sessions,
		registry: registry,
		port:     port,
		labels:   make(map[models.Role]string),
	}
}

// Handler builds the route table. Exposed separately so tests can drive the
// facade through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("POST /api/departure", s.handleDeparture)
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	const (
		readTimeout     = 5
		writeTimeout    = 60
		shutdownTimeout = 5
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout * time.Second,
		WriteTimeout: writeTimeout * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Server shutdown failed", "error", err)
		}
	}()

	s.log.InfoContext(ctx, "Starting HTTP facade", "port", s.port)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

type selectRequest struct {
	Role      string  `json:"role"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type departureRequest struct {
	DepartureTime string `json:"departure_time"`
}

type pointView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

type predictionView struct {
	ETAMinutes      float64 `json:"eta_minutes"`
	ETADisplay      string  `json:"eta_display"`
	DistanceKm      float64 `json:"distance_km"`
	IntervalLower   int     `json:"interval_lower"`
	IntervalUpper   int     `json:"interval_upper"`
	IntervalDisplay string  `json:"interval_display"`
	DepartureTime   string  `json:"departure_time"`
	DayOfWeek       string  `json:"day_of_week"`
}

type stateResponse struct {
	Phase         string          `json:"phase"`
	Home          *pointView      `json:"home,omitempty"`
	Office        *pointView      `json:"office,omitempty"`
	DepartureTime string          `json:"departure_time"`
	Prediction    *predictionView `json:"prediction,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func (s *Server) handleSelect(writer http.ResponseWriter, req *http.Request) {
	var body selectRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid request body")
		return
	}

	role := models.Role(body.Role)
	point := models.GeoPoint{Latitude: body.Latitude, Longitude: body.Longitude}

	if err := s.workflow.Select(role, point); err != nil {
		s.writeError(writer, statusFor(err), err.Error())
		return
	}

	label := s.resolveLabel(req.Context(), role, point)

	s.writeJSON(writer, http.StatusOK, pointView{
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Label:     label,
	})
}

func (s *Server) handleDeparture(writer http.ResponseWriter, req *http.Request) {
	var body departureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.workflow.SetDeparture(body.DepartureTime); err != nil {
		s.writeError(writer, statusFor(err), err.Error())
		return
	}

	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(writer http.ResponseWriter, req *http.Request) {
	if !s.authorize(writer, req) {
		return
	}

	if err := s.workflow.Submit(req.Context()); err != nil {
		s.writeError(writer, statusFor(err), err.Error())
		return
	}

	s.writeJSON(writer, http.StatusOK, s.stateView())
}

func (s *Server) handleState(writer http.ResponseWriter, _ *http.Request) {
	s.writeJSON(writer, http.StatusOK, s.stateView())
}

func (s *Server) handleHealth(writer http.ResponseWriter, req *http.Request) {
	s.log.DebugContext(req.Context(), "Performing health checks...")
	writer.WriteHeader(http.StatusOK)
	if _, err := writer.Write([]byte("OK")); err != nil {
		s.log.ErrorContext(req.Context(), "failed to write reply", "error", err)
	}
}

// authorize enforces the bearer-token gate when an identity provider is
// configured. Mirrors the estimation backend's own token check.
func (s *Server) authorize(writer http.ResponseWriter, req *http.Request) bool {
	if s.sessions == nil {
		return true
	}

	header := req.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		s.writeError(writer, http.StatusUnauthorized, "No authorization token")
		return false
	}

	user, err := s.sessions.GetUser(req.Context(), token)
	if err != nil {
		s.log.WarnContext(req.Context(), "Submission rejected", "error", err)
		s.writeError(writer, http.StatusUnauthorized, "Authentication failed")
		return false
	}

	s.log.DebugContext(req.Context(), "Submission authorized", "user", user.ID)

	return true
}

// resolveLabel asks the reverse geocoder for a display label. Failures are
// logged and swallowed; labels are cosmetic.
func (s *Server) resolveLabel(ctx context.Context, role models.Role, point models.GeoPoint) string {
	if s.resolver == nil {
		return ""
	}

	label, err := s.resolver.Resolve(ctx, point)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to resolve point label", "role", role, "error", err)
		label = ""
	}

	s.mu.Lock()
	s.labels[role] = label
	s.mu.Unlock()

	return label
}

func (s *Server) stateView() stateResponse {
	state := s.workflow.State()

	resp := stateResponse{
		Phase:         string(state.Phase),
		DepartureTime: s.workflow.Departure(),
		Error:         state.Err,
	}

	resp.Home = s.pointViewFor(models.RoleHome)
	resp.Office = s.pointViewFor(models.RoleOffice)

	if interval, ok := state.Interval(); ok {
		eta := state.Prediction.PredictedETAMinutes
		resp.Prediction = &predictionView{
			ETAMinutes:      eta,
			ETADisplay:      fmt.Sprintf("%d min", int(math.Round(eta))),
			DistanceKm:      state.Prediction.DistanceKm,
			IntervalLower:   interval.Lower,
			IntervalUpper:   interval.Upper,
			IntervalDisplay: fmt.Sprintf("%d - %d minutes", interval.Lower, interval.Upper),
			DepartureTime:   state.Prediction.DepartureTime,
			DayOfWeek:       state.Prediction.DayOfWeek,
		}
	}

	return resp
}

func (s *Server) pointViewFor(role models.Role) *pointView {
	point, ok := s.workflow.Point(role)
	if !ok {
		return nil
	}

	s.mu.Lock()
	label := s.labels[role]
	s.mu.Unlock()

	return &pointView{Latitude: point.Latitude, Longitude: point.Longitude, Label: label}
}

// statusFor maps workflow errors onto HTTP statuses.
func statusFor(err error) int {
	var validationErr *prediction.ValidationError

	switch {
	case errors.As(err, &validationErr), errors.Is(err, models.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrRequestInFlight):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrWorkflowClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		s.log.Error("failed to write reply", "error", err)
	}
}

func (s *Server) writeError(writer http.ResponseWriter, status int, message string) {
	s.writeJSON(writer, status, map[string]string{"error": message})
}
