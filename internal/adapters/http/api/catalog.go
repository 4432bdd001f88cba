package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/internal/domain/types"
)

// CatalogDependencies lists the read-only dataset views.
type CatalogDependencies interface {
	Countries(ctx context.Context) ([]types.Country, error)
	Universities(ctx context.Context) ([]types.University, error)
	Cities(ctx context.Context) ([]types.City, error)
	MetricGroups(ctx context.Context, appliesTo string) ([]model.MetricGroup, error)
	Metrics(ctx context.Context) ([]model.Metric, error)
	Disciplines(ctx context.Context) ([]types.DisciplineProfile, error)
	Industries(ctx context.Context) ([]types.IndustryProfile, error)
	EntityMetrics(ctx context.Context, kind model.EntityKind, id int64, name string) (model.Entity, []model.MetricValue, error)
}

// CatalogHandler serves entity, metric and preference listings.
type CatalogHandler struct {
	deps CatalogDependencies
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies) *CatalogHandler {
	return &CatalogHandler{deps: deps}
}

// list adapts a parameterless listing to a GET handler.
func list[T any](op string, fetch func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		rows, err := fetch(r.Context())
		if err != nil {
			writeFailure(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(rows))
	}
}

// HandleCountries handles GET /api/countries.
func (h *CatalogHandler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	list("api.get_countries", h.deps.Countries)(w, r)
}

// HandleUniversities handles GET /api/universities.
func (h *CatalogHandler) HandleUniversities(w http.ResponseWriter, r *http.Request) {
	list("api.get_universities", h.deps.Universities)(w, r)
}

// HandleCities handles GET /api/cities.
func (h *CatalogHandler) HandleCities(w http.ResponseWriter, r *http.Request) {
	list("api.get_cities", h.deps.Cities)(w, r)
}

// HandleMetrics handles GET /api/metrics.
func (h *CatalogHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	list("api.get_metrics", h.deps.Metrics)(w, r)
}

// HandleDisciplines handles GET /api/disciplines.
func (h *CatalogHandler) HandleDisciplines(w http.ResponseWriter, r *http.Request) {
	list("api.get_disciplines", h.deps.Disciplines)(w, r)
}

// HandleIndustries handles GET /api/industries.
func (h *CatalogHandler) HandleIndustries(w http.ResponseWriter, r *http.Request) {
	list("api.get_industries", h.deps.Industries)(w, r)
}

// HandleMetricGroups handles GET /api/metric-groups[?applies_to=country|university].
func (h *CatalogHandler) HandleMetricGroups(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_metric_groups"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	appliesTo := strings.TrimSpace(r.URL.Query().Get("applies_to"))
	if appliesTo != "" {
		if _, err := model.ParseEntityKind(appliesTo); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", NewKindf(op, ErrBadRequest, "applies_to %q", appliesTo))
			return
		}
	}
	groups, err := h.deps.MetricGroups(r.Context(), appliesTo)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(groups))
}

// entityMetrics serves GET /api/<param>-metrics?<param>_id=|<param>_name=.
// The id wins when both are given.
func (h *CatalogHandler) entityMetrics(kind model.EntityKind, param string) http.HandlerFunc {
	op := "api.get_" + param + "_metrics"
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		var id int64
		if raw := strings.TrimSpace(q.Get(param + "_id")); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "bad_request", NewKindf(op, ErrBadRequest, "%s_id %q", param, raw))
				return
			}
			id = n
		}
		name := strings.TrimSpace(q.Get(param + "_name"))
		if id == 0 && name == "" {
			writeError(w, http.StatusBadRequest, "bad_request",
				NewKindf(op, ErrBadRequest, "%s_id or %s_name is required", param, param))
			return
		}

		_, vals, err := h.deps.EntityMetrics(r.Context(), kind, id, name)
		if err != nil {
			writeFailure(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(vals))
	}
}
