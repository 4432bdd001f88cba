package scoring

// Preference scoring: a selected label ranked i-th in an entity's list is
// worth 100 - 20*i. Ranks >= 5 go negative and are deliberately not clamped.
const (
	preferenceTopScore = 100.0
	preferenceRankStep = 20.0
)

// PreferenceScore sums the rank-based contribution of every selected label
// found in list. Selection is a set: repeated labels count once. Labels not in
// the list, or an empty list, contribute 0.
func PreferenceScore(list []string, selected []string) float64 {
	if len(list) == 0 || len(selected) == 0 {
		return 0
	}

	rank := make(map[string]int, len(list))
	for i, l := range list {
		if _, dup := rank[l]; !dup {
			rank[l] = i
		}
	}

	var score float64
	seen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if i, ok := rank[s]; ok {
			score += preferenceTopScore - preferenceRankStep*float64(i)
		}
	}
	return score
}
