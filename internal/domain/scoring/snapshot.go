package scoring

import (
	"strings"

	"github.com/okian/studyrank/internal/domain/model"
)

// Snapshot is the read-only input of one scoring run, loaded once from the store.
type Snapshot struct {
	Kind     model.EntityKind
	Entities []model.Entity
	Groups   []model.MetricGroup
	Metrics  []model.Metric
	// Values holds the sparse value cells keyed by metric id.
	Values map[int64][]model.ValueCell
	// Disciplines and Industries are rank-ordered label lists keyed by entity
	// name. Only countries have them. Names match case-insensitively, the same
	// rule the store applies to single-entity lookups; see PreferenceList.
	Disciplines map[string][]string
	Industries  map[string][]string
}

// PreferenceList returns the label list of name in lists. An exact key wins;
// otherwise a key equal under Unicode case folding is used.
func PreferenceList(lists map[string][]string, name string) []string {
	if l, ok := lists[name]; ok {
		return l
	}
	for k, l := range lists {
		if strings.EqualFold(k, name) {
			return l
		}
	}
	return nil
}

// Metric looks up a metric of the snapshot by id.
func (s *Snapshot) Metric(id int64) (model.Metric, bool) {
	for _, m := range s.Metrics {
		if m.ID == id {
			return m, true
		}
	}
	return model.Metric{}, false
}

// NormalizeMetric normalizes one metric of the snapshot. It returns a
// *NoDataError when id is not part of the snapshot's metric set.
func (s *Snapshot) NormalizeMetric(id int64) (MetricScores, error) {
	m, ok := s.Metric(id)
	if !ok {
		return MetricScores{}, &NoDataError{MetricID: id}
	}
	return NormalizeMetric(m, s.Values[id])
}

// membersByGroup partitions metrics by group id, keeping input order.
func membersByGroup(metrics []model.Metric) map[int64][]model.Metric {
	out := make(map[int64][]model.Metric)
	for _, m := range metrics {
		out[m.GroupID] = append(out[m.GroupID], m)
	}
	return out
}
