package scoring

import (
	"fmt"
	"math"

	"github.com/okian/studyrank/internal/domain/model"
)

// GroupWeights is the caller-supplied group id -> weight mapping.
//
// Fill rule: when no explicit weights are supplied (nil or empty map) every
// group of the pipeline gets 1/len(groups), including groups that end up
// without metrics. When explicit weights are supplied, groups missing from the
// map weigh 0 and ids that match no group are ignored. Weights need not sum to 1.
type GroupWeights struct {
	explicit map[int64]float64
}

// EqualWeights returns the default equal-split weighting.
func EqualWeights() GroupWeights { return GroupWeights{} }

// NewGroupWeights validates and copies w. Negative, NaN and infinite weights are rejected.
func NewGroupWeights(w map[int64]float64) (GroupWeights, error) {
	if len(w) == 0 {
		return EqualWeights(), nil
	}
	cp := make(map[int64]float64, len(w))
	for id, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return GroupWeights{}, fmt.Errorf("group %d weight %v: %w", id, v, ErrNegativeWeight)
		}
		cp[id] = v
	}
	return GroupWeights{explicit: cp}, nil
}

// Explicit reports whether the caller supplied any weights.
func (g GroupWeights) Explicit() bool { return len(g.explicit) > 0 }

// Resolve returns the effective weight of every group in groups.
func (g GroupWeights) Resolve(groups []model.MetricGroup) map[int64]float64 {
	out := make(map[int64]float64, len(groups))
	if len(groups) == 0 {
		return out
	}
	if !g.Explicit() {
		share := 1.0 / float64(len(groups))
		for _, grp := range groups {
			out[grp.ID] = share
		}
		return out
	}
	for _, grp := range groups {
		out[grp.ID] = g.explicit[grp.ID]
	}
	return out
}

// Raw returns a copy of the explicit map (nil when equal split).
func (g GroupWeights) Raw() map[int64]float64 {
	if !g.Explicit() {
		return nil
	}
	cp := make(map[int64]float64, len(g.explicit))
	for k, v := range g.explicit {
		cp[k] = v
	}
	return cp
}
