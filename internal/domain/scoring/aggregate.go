package scoring

import (
	"gonum.org/v1/gonum/floats"

	"github.com/okian/studyrank/internal/domain/model"
)

// GroupAggregate holds one group's per-entity scores before and after
// renormalization across the entity population.
type GroupAggregate struct {
	Group   model.MetricGroup
	Members []MetricScores
	// Raw is the equal-weight mean of member metric scores, missing values counted as 50.
	Raw map[int64]float64
	// Normalized is Raw re-stretched to [0,100] across all entities.
	Normalized map[int64]float64
}

// AggregateGroup computes each entity's raw group score as the mean of its
// member metric scores, each metric weighted 1/len(members). A metric without
// a value for an entity contributes 50. It returns false for a group without
// metrics; such groups are skipped and contribute nothing.
func AggregateGroup(group model.MetricGroup, members []MetricScores, entities []model.Entity) (GroupAggregate, bool) {
	if len(members) == 0 {
		return GroupAggregate{}, false
	}
	weight := 1.0 / float64(len(members))

	raw := make(map[int64]float64, len(entities))
	for _, e := range entities {
		var sum float64
		for _, m := range members {
			sum += m.scoreOrNeutral(e.ID) * weight
		}
		raw[e.ID] = sum
	}

	return GroupAggregate{
		Group:      group,
		Members:    members,
		Raw:        raw,
		Normalized: Renormalize(raw),
	}, true
}

// Renormalize re-stretches a group's raw scores to fill [0,100]:
// (raw-min)/(max-min)*100, or 50 for every entity when all raws are equal.
func Renormalize(raw map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	vals := make([]float64, 0, len(raw))
	for _, v := range raw {
		vals = append(vals, v)
	}
	lo, hi := floats.Min(vals), floats.Max(vals)

	for id, v := range raw {
		if hi > lo {
			out[id] = (v - lo) / (hi - lo) * maxScore
		} else {
			out[id] = neutralScore
		}
	}
	return out
}
