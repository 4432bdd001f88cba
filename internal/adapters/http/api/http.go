// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/studyrank/internal/adapters/repository"
	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/internal/domain/scoring"
	"github.com/okian/studyrank/internal/domain/types"
	"github.com/okian/studyrank/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CatalogDependencies
	RankingDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	catalogHandler *CatalogHandler
	rankingHandler *RankingHandler
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		catalogHandler: NewCatalogHandler(deps),
		rankingHandler: NewRankingHandler(deps, cfg.maxLimit),
		logger:         cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/metrics", "metrics", s.healthHandler.HandleMetrics)
	route("/stats", "stats", s.statsHandler.HandleStats)

	route("/api/countries", "countries", s.catalogHandler.HandleCountries)
	route("/api/universities", "universities", s.catalogHandler.HandleUniversities)
	route("/api/cities", "cities", s.catalogHandler.HandleCities)
	route("/api/metric-groups", "metric_groups", s.catalogHandler.HandleMetricGroups)
	route("/api/metrics", "metrics_catalog", s.catalogHandler.HandleMetrics)
	route("/api/disciplines", "disciplines", s.catalogHandler.HandleDisciplines)
	route("/api/industries", "industries", s.catalogHandler.HandleIndustries)
	route("/api/country-metrics", "country_metrics", s.catalogHandler.entityMetrics(model.KindCountry, "country"))
	route("/api/university-metrics", "university_metrics", s.catalogHandler.entityMetrics(model.KindUniversity, "university"))

	route("/api/country-rankings", "country_rankings", s.rankingHandler.HandleCountryRankings)
	route("/api/university-rankings", "university_rankings", s.rankingHandler.HandleUniversityRankings)

	s.logger.Debug(ctx, "api routes registered")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an upstream error to its HTTP status.
func writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		logger.Get().Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}

func isBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, types.ErrInvalidRequest) ||
		errors.Is(err, scoring.ErrNegativeWeight) ||
		errors.Is(err, repository.ErrUnknownKind)
}

// ensure rows render as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
