// Package httpapi exposes the forecast engine over HTTP. Routing is plain
// chi with JSON responses; domain errors map onto status codes in one place.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epiforecast/outbreak-engine/internal/domain"
	"github.com/epiforecast/outbreak-engine/internal/engine"
)

const defaultForecastHorizon = 7

// Server holds the HTTP handlers over the engine.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer creates the API server.
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	return &Server{engine: eng, logger: logger}
}

// Router builds the service's full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/forecast/{disease}/{location}", s.handleForecast)
		r.Post("/forecast/batch", s.handleBatchForecast)
		r.Get("/alerts/critical", s.handleCriticalAlerts)
		r.Get("/areas/high-risk", s.handleHighRiskAreas)
		r.Get("/risk/{location}", s.handleRiskScore)
		r.Get("/weather/{location}", s.handleWeather)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CheckReadiness(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	horizon := defaultForecastHorizon
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, &domain.ValidationError{Field: "horizon", Reason: "must be an integer"})
			return
		}
		horizon = parsed
	}

	predictions, err := s.engine.Forecast(r.Context(),
		chi.URLParam(r, "disease"), chi.URLParam(r, "location"), horizon)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"disease":     chi.URLParam(r, "disease"),
		"location":    chi.URLParam(r, "location"),
		"horizon":     horizon,
		"predictions": predictions,
	})
}

// batchRequest is the POST body for batch forecasts.
type batchRequest struct {
	Locations []string `json:"locations"`
	Diseases  []string `json:"diseases"`
	Horizons  []int    `json:"horizons"`
}

func (s *Server) handleBatchForecast(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "body", Reason: "malformed JSON"})
		return
	}

	predictions, err := s.engine.BatchForecast(r.Context(), req.Locations, req.Diseases, req.Horizons)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(predictions),
		"predictions": predictions,
	})
}

func (s *Server) handleCriticalAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.engine.CriticalAlerts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleHighRiskAreas(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, &domain.ValidationError{Field: "limit", Reason: "must be an integer"})
			return
		}
		limit = parsed
	}

	areas, err := s.engine.HighRiskAreas(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"areas": areas})
}

func (s *Server) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	score, err := s.engine.RiskScore(r.Context(), location)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"location":   location,
		"risk_score": score,
		"risk_level": domain.RiskLevelFromScore(score),
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	days := 2
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, &domain.ValidationError{Field: "days", Reason: "must be an integer"})
			return
		}
		days = parsed
	}

	location := chi.URLParam(r, "location")
	current, outlook, err := s.engine.WeatherOutlook(r.Context(), location, days)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"location": location,
		"current":  current,
		"outlook":  outlook,
	})
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var cErr *domain.ConfigurationError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &cErr):
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}
