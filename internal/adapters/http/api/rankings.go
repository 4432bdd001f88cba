package api

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/studyrank/internal/domain/types"
)

const groupParamPrefix = "group_"

// RankingDependencies computes rankings.
type RankingDependencies interface {
	CountryRankings(ctx context.Context, req types.RankingRequest) ([]types.CountryRanking, error)
	UniversityRankings(ctx context.Context, req types.RankingRequest) ([]types.UniversityRanking, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int) *RankingHandler {
	return &RankingHandler{deps: deps, maxLimit: maxLimit}
}

// HandleCountryRankings handles
// GET /api/country-rankings?group_<id>=<w>&discipline=..&industry=..&limit=N.
func (h *RankingHandler) HandleCountryRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_country_rankings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := h.parseRankingQuery(op, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rows, err := h.deps.CountryRankings(r.Context(), req)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

// HandleUniversityRankings handles GET /api/university-rankings?group_<id>=<w>&limit=N.
// Preference parameters are accepted and ignored.
func (h *RankingHandler) HandleUniversityRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_university_rankings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	req, err := h.parseRankingQuery(op, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	req.Disciplines, req.Industries = nil, nil
	rows, err := h.deps.UniversityRankings(r.Context(), req)
	if err != nil {
		writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rows))
}

func (h *RankingHandler) parseRankingQuery(op string, q url.Values) (types.RankingRequest, error) {
	var req types.RankingRequest

	for key, vals := range q {
		if !strings.HasPrefix(key, groupParamPrefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, groupParamPrefix), 10, 64)
		if err != nil || id < 1 {
			return req, NewKindf(op, ErrBadRequest, "malformed weight key %q", key)
		}
		if len(vals) == 0 {
			continue
		}
		wt, err := strconv.ParseFloat(strings.TrimSpace(vals[len(vals)-1]), 64)
		if err != nil || wt < 0 || math.IsNaN(wt) || math.IsInf(wt, 0) {
			return req, NewKindf(op, ErrBadRequest, "%s must be a non-negative number", key)
		}
		if req.Weights == nil {
			req.Weights = make(map[int64]float64)
		}
		req.Weights[id] = wt
	}

	req.Disciplines = types.CleanLabels(q["discipline"])
	req.Industries = types.CleanLabels(q["industry"])

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, NewKindf(op, ErrBadRequest, "limit %q", raw)
		}
		if n > h.maxLimit {
			return req, NewKindf(op, ErrBadRequest, "limit exceeds %d", h.maxLimit)
		}
		req.Limit = n
	}
	return req, nil
}
