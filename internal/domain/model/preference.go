package model

// PreferenceKind names a rank-ordered categorical list attached to a country.
type PreferenceKind string

// Supported preference lists. Only disciplines and dominant industries feed
// scoring; growing industries are stored for display.
const (
	PrefDisciplines        PreferenceKind = "disciplines"
	PrefDominantIndustries PreferenceKind = "dominant_industries"
	PrefGrowingIndustries  PreferenceKind = "growing_industries"
)

// Valid reports whether k is a known preference kind.
func (k PreferenceKind) Valid() bool {
	switch k {
	case PrefDisciplines, PrefDominantIndustries, PrefGrowingIndustries:
		return true
	}
	return false
}

// PreferenceList is an ordered label sequence; position 0 is the top label.
type PreferenceList struct {
	EntityName string         `json:"country"`
	Kind       PreferenceKind `json:"kind"`
	Labels     []string       `json:"labels"`
}

// Rank returns the 0-based position of label, or -1. Duplicates resolve to
// the first (best) position.
func (p PreferenceList) Rank(label string) int {
	for i, l := range p.Labels {
		if l == label {
			return i
		}
	}
	return -1
}
