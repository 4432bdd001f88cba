package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/studyrank/internal/domain/model"
)

// Scale constants shared by every normalization stage.
const (
	minScore     = 0.0
	maxScore     = 100.0
	neutralScore = 50.0
)

// LogRange holds the log-space bounds of one metric's present values.
// With no values the range is [0, 1].
type LogRange struct {
	Min float64
	Max float64
}

// MetricScores is the normalized [0,100] score of every entity that has a
// recorded value for Metric. Entities without a value are absent.
type MetricScores struct {
	Metric model.Metric
	Range  LogRange
	Scores map[int64]float64
}

// ScoreFor returns the entity's normalized score and whether a value was recorded.
func (m MetricScores) ScoreFor(entityID int64) (float64, bool) {
	s, ok := m.Scores[entityID]
	return s, ok
}

// scoreOrNeutral returns the entity's score, or the neutral 50 when no value exists.
func (m MetricScores) scoreOrNeutral(entityID int64) float64 {
	if s, ok := m.Scores[entityID]; ok {
		return s
	}
	return neutralScore
}

// NormalizeMetric maps each raw value v to ln(v+1), stretches the logs over
// [0,100] using the metric's min/max, and inverts for lower-is-better metrics.
// When every log value is equal, all entities score 50.
func NormalizeMetric(metric model.Metric, cells []model.ValueCell) (MetricScores, error) {
	logs := make([]float64, len(cells))
	for i, c := range cells {
		if math.IsNaN(c.RawValue) || math.IsInf(c.RawValue, 0) || c.RawValue <= -1 {
			return MetricScores{}, fmt.Errorf("metric %d entity %d value %v: %w",
				metric.ID, c.EntityID, c.RawValue, ErrInvalidValue)
		}
		logs[i] = math.Log1p(c.RawValue)
	}

	r := LogRange{Min: 0, Max: 1}
	if len(logs) > 0 {
		r.Min = floats.Min(logs)
		r.Max = floats.Max(logs)
	}

	scores := make(map[int64]float64, len(cells))
	for i, c := range cells {
		s := neutralScore
		if r.Max > r.Min {
			s = (logs[i] - r.Min) / (r.Max - r.Min) * maxScore
		}
		if !metric.IsPositive {
			s = maxScore - s
		}
		scores[c.EntityID] = s
	}

	return MetricScores{Metric: metric, Range: r, Scores: scores}, nil
}
