package scoring

// Blend is the fixed weighting applied to the group total and the two
// preference bonuses.
type Blend struct {
	Overall    float64
	Discipline float64
	Industry   float64
}

// Fixed blends, selected by which preference signals the caller supplied.
var (
	blendGroupsOnly      = Blend{Overall: 1.0}
	blendWithDiscipline  = Blend{Overall: 0.8, Discipline: 0.2}
	blendWithIndustry    = Blend{Overall: 0.8, Industry: 0.2}
	blendWithPreferences = Blend{Overall: 0.8, Discipline: 0.1, Industry: 0.1}
)

// BlendFor picks the blend for the given selection flags.
func BlendFor(hasDisciplines, hasIndustries bool) Blend {
	switch {
	case hasDisciplines && hasIndustries:
		return blendWithPreferences
	case hasDisciplines:
		return blendWithDiscipline
	case hasIndustries:
		return blendWithIndustry
	default:
		return blendGroupsOnly
	}
}

// Apply returns overall*total + discipline*disc + industry*ind.
func (b Blend) Apply(total, disc, ind float64) float64 {
	return b.Overall*total + b.Discipline*disc + b.Industry*ind
}
