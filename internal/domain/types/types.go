// Package types contains the JSON shapes served by the API and CLI.
package types

import (
	"math"
	"strings"

	"github.com/okian/studyrank/internal/domain/scoring"
)

// Round2 rounds to two decimals. Scores are rounded only when rendered.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GroupScore is one group's contribution to a ranked entity.
type GroupScore struct {
	GroupID    int64              `json:"group_id"`
	Weight     float64            `json:"weight"`
	RawScore   float64            `json:"raw_score"`
	GroupScore float64            `json:"group_score"`
	Weighted   float64            `json:"group_score_weighted"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Scores are the score fields shared by country and university rankings.
type Scores struct {
	Rank            int                   `json:"rank"`
	OverallScore    float64               `json:"overall_score"`
	DisciplineScore float64               `json:"discipline_score"`
	IndustryScore   float64               `json:"industry_score"`
	FinalScore      float64               `json:"final_score"`
	Groups          map[string]GroupScore `json:"groups"`
}

// CountryRanking is one row of /api/country-rankings.
type CountryRanking struct {
	CountryID   int64  `json:"country_id"`
	CountryName string `json:"country_name"`
	Scores
}

// UniversityRanking is one row of /api/university-rankings.
type UniversityRanking struct {
	UniversityID   int64  `json:"university_id"`
	UniversityName string `json:"university_name"`
	CountryID      *int64 `json:"country_id,omitempty"`
	Scores
}

func newScores(rank int, r scoring.Result) Scores {
	s := Scores{
		Rank:            rank,
		OverallScore:    Round2(r.OverallScore),
		DisciplineScore: Round2(r.DisciplineScore),
		IndustryScore:   Round2(r.IndustryScore),
		FinalScore:      Round2(r.FinalScore),
		Groups:          make(map[string]GroupScore, len(r.Groups)),
	}
	for _, g := range r.Groups {
		metrics := make(map[string]float64, len(g.Metrics))
		for name, v := range g.Metrics {
			metrics[name] = Round2(v)
		}
		s.Groups[g.Name] = GroupScore{
			GroupID:    g.GroupID,
			Weight:     g.Weight,
			RawScore:   Round2(g.RawScore),
			GroupScore: Round2(g.Score),
			Weighted:   Round2(g.Weighted),
			Metrics:    metrics,
		}
	}
	return s
}

// NewCountryRankings renders sorted results, ranks starting at 1.
func NewCountryRankings(results []scoring.Result) []CountryRanking {
	out := make([]CountryRanking, len(results))
	for i, r := range results {
		out[i] = CountryRanking{CountryID: r.EntityID, CountryName: r.EntityName, Scores: newScores(i+1, r)}
	}
	return out
}

// NewUniversityRankings renders sorted results, ranks starting at 1.
func NewUniversityRankings(results []scoring.Result) []UniversityRanking {
	out := make([]UniversityRanking, len(results))
	for i, r := range results {
		out[i] = UniversityRanking{
			UniversityID:   r.EntityID,
			UniversityName: r.EntityName,
			CountryID:      r.CountryID,
			Scores:         newScores(i+1, r),
		}
	}
	return out
}

// Country is a row of /api/countries.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// University is a row of /api/universities.
type University struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city"`
	CountryID   *int64 `json:"country_id,omitempty"`
	CountryName string `json:"country_name,omitempty"`
}

// City is a row of /api/cities.
type City struct {
	City string `json:"city"`
}

// Stats is the /stats payload.
type Stats struct {
	Countries        int     `json:"countries"`
	Universities     int     `json:"universities"`
	MetricGroups     int     `json:"metric_groups"`
	Metrics          int     `json:"metrics"`
	Values           int     `json:"values"`
	RankingsComputed int64   `json:"rankings_computed"`
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	CacheEntries     int64   `json:"cache_entries"`
	CacheBackend     string  `json:"cache_backend"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// DisciplineProfile is a row of /api/disciplines.
type DisciplineProfile struct {
	Country        string   `json:"country"`
	TopDisciplines []string `json:"top_disciplines"`
}

// IndustryProfile is a row of /api/industries.
type IndustryProfile struct {
	Country            string   `json:"country"`
	DominantIndustries []string `json:"dominant_industries"`
	GrowingIndustries  []string `json:"growing_industries"`
}

// RankingRequest is a caller's ranking query.
type RankingRequest struct {
	// Weights maps group id to weight. Empty means equal split.
	Weights     map[int64]float64
	Disciplines []string
	Industries  []string
	// Limit truncates the result; 0 returns up to the configured maximum.
	Limit int
}

// CleanLabels trims selections and drops blank ones. A request whose
// selections are all blank behaves as if none were made.
func CleanLabels(vals []string) []string {
	var out []string
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
