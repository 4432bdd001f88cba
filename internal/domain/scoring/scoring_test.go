package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/studyrank/internal/domain/model"
	scoring "github.com/okian/studyrank/internal/domain/scoring"
	"github.com/okian/studyrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func cells(pairs ...float64) []model.ValueCell {
	out := make([]model.ValueCell, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.ValueCell{EntityID: int64(pairs[i]), RawValue: pairs[i+1]})
	}
	return out
}

// fixture: three countries, two groups of metrics plus one empty group.
func countrySnapshot() *scoring.Snapshot {
	return &scoring.Snapshot{
		Kind: model.KindCountry,
		Entities: []model.Entity{
			{ID: 1, Name: "Alpha"},
			{ID: 2, Name: "Beta"},
			{ID: 3, Name: "Gamma"},
		},
		Groups: []model.MetricGroup{
			{ID: 10, Name: "Financial Feasibility", AppliesTo: model.AppliesToCountries},
			{ID: 20, Name: "Career Prospects", AppliesTo: model.AppliesToCountries},
			{ID: 30, Name: "Empty", AppliesTo: model.AppliesToCountries},
		},
		Metrics: []model.Metric{
			{ID: 100, Name: "Tuition Fees", GroupID: 10, IsPositive: false},
			{ID: 101, Name: "Scholarships", GroupID: 10, IsPositive: true},
			{ID: 200, Name: "Average Income", GroupID: 20, IsPositive: true},
		},
		Values: map[int64][]model.ValueCell{
			100: cells(1, 30000, 2, 1000, 3, 9000),
			101: cells(1, 50, 2, 5),
			200: cells(1, 60000, 2, 20000, 3, 40000),
		},
		Disciplines: map[string][]string{
			"Alpha": {"CS", "Eng", "Bio"},
			"Beta":  {"Eng", "CS"},
		},
		Industries: map[string][]string{
			"Gamma": {"Finance", "Tourism"},
		},
	}
}

func TestNormalizeMetric(t *testing.T) {
	Convey("Given a metric with raw values 0 and e-1", t, func() {
		metric := model.Metric{ID: 1, Name: "M", IsPositive: true}
		values := cells(1, 0, 2, math.E-1)

		Convey("When the metric is higher-is-better", func() {
			ms, err := scoring.NormalizeMetric(metric, values)

			Convey("Then the low entity scores 0 and the high one 100", func() {
				So(err, ShouldBeNil)
				So(ms.Scores[1], ShouldEqual, 0)
				So(ms.Scores[2], ShouldEqual, 100)
				So(ms.Range.Min, ShouldEqual, 0)
			})
		})

		Convey("When the metric is lower-is-better", func() {
			metric.IsPositive = false
			ms, err := scoring.NormalizeMetric(metric, values)

			Convey("Then the scores flip to 100 and 0", func() {
				So(err, ShouldBeNil)
				So(ms.Scores[1], ShouldEqual, 100)
				So(ms.Scores[2], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a long-tailed metric", t, func() {
		metric := model.Metric{ID: 2, IsPositive: true}
		values := cells(1, 10, 2, 100, 3, 1000, 4, 1_000_000, 5, 0)

		Convey("Then every score lies in [0,100]", func() {
			ms, err := scoring.NormalizeMetric(metric, values)
			So(err, ShouldBeNil)
			So(len(ms.Scores), ShouldEqual, 5)
			for _, s := range ms.Scores {
				So(s, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("And flipping polarity yields exactly 100 - score", func() {
			pos, err := scoring.NormalizeMetric(metric, values)
			So(err, ShouldBeNil)
			metric.IsPositive = false
			neg, err := scoring.NormalizeMetric(metric, values)
			So(err, ShouldBeNil)
			for id, s := range pos.Scores {
				So(neg.Scores[id], ShouldAlmostEqual, 100-s, 1e-9)
			}
		})
	})

	Convey("Given a metric whose values are all identical", t, func() {
		values := cells(1, 42, 2, 42, 3, 42)

		Convey("Then every entity scores 50 regardless of polarity", func() {
			for _, positive := range []bool{true, false} {
				ms, err := scoring.NormalizeMetric(model.Metric{IsPositive: positive}, values)
				So(err, ShouldBeNil)
				for _, s := range ms.Scores {
					So(s, ShouldEqual, 50)
				}
			}
		})
	})

	Convey("Given a metric without values", t, func() {
		ms, err := scoring.NormalizeMetric(model.Metric{ID: 3}, nil)

		Convey("Then the range defaults to [0,1] and no scores are produced", func() {
			So(err, ShouldBeNil)
			So(ms.Range, ShouldResemble, scoring.LogRange{Min: 0, Max: 1})
			So(ms.Scores, ShouldBeEmpty)
			_, ok := ms.ScoreFor(1)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a raw value outside the log domain", t, func() {
		for _, bad := range []float64{-1, -5, math.NaN(), math.Inf(1)} {
			_, err := scoring.NormalizeMetric(model.Metric{ID: 4}, cells(1, 3, 2, bad))
			So(errors.Is(err, scoring.ErrInvalidValue), ShouldBeTrue)
		}
	})
}

func TestSnapshot_NormalizeMetric(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		snap := countrySnapshot()

		Convey("When normalizing a metric of the snapshot", func() {
			ms, err := snap.NormalizeMetric(101)

			Convey("Then only entities with values are scored", func() {
				So(err, ShouldBeNil)
				So(len(ms.Scores), ShouldEqual, 2)
				So(ms.Scores[1], ShouldEqual, 100)
				So(ms.Scores[2], ShouldEqual, 0)
			})
		})

		Convey("When normalizing a metric absent from the metric set", func() {
			_, err := snap.NormalizeMetric(999)

			Convey("Then it fails with a NoDataError", func() {
				So(errors.Is(err, scoring.ErrNoData), ShouldBeTrue)
				var nd *scoring.NoDataError
				So(errors.As(err, &nd), ShouldBeTrue)
				So(nd.MetricID, ShouldEqual, 999)
			})
		})
	})
}

func TestAggregateGroup(t *testing.T) {
	Convey("Given a group with two metrics and a missing value", t, func() {
		entities := []model.Entity{{ID: 1}, {ID: 2}, {ID: 3}}
		a := scoring.MetricScores{Metric: model.Metric{ID: 1, Name: "a"}, Scores: map[int64]float64{1: 100, 2: 0, 3: 20}}
		b := scoring.MetricScores{Metric: model.Metric{ID: 2, Name: "b"}, Scores: map[int64]float64{1: 80, 2: 40}}

		agg, ok := scoring.AggregateGroup(model.MetricGroup{ID: 7}, []scoring.MetricScores{a, b}, entities)

		Convey("Then each metric weighs half and a missing value counts as 50", func() {
			So(ok, ShouldBeTrue)
			So(agg.Raw[1], ShouldAlmostEqual, 90, 1e-9)
			So(agg.Raw[2], ShouldAlmostEqual, 20, 1e-9)
			So(agg.Raw[3], ShouldAlmostEqual, 35, 1e-9)
		})

		Convey("And the renormalized scores span exactly [0,100]", func() {
			So(agg.Normalized[1], ShouldEqual, 100)
			So(agg.Normalized[2], ShouldEqual, 0)
			So(agg.Normalized[3], ShouldAlmostEqual, 100*15.0/70.0, 1e-9)
		})
	})

	Convey("Given a group without metrics", t, func() {
		_, ok := scoring.AggregateGroup(model.MetricGroup{ID: 8}, nil, []model.Entity{{ID: 1}})

		Convey("Then it is skipped", func() {
			So(ok, ShouldBeFalse)
		})
	})
}

func TestRenormalize(t *testing.T) {
	Convey("Given raw group scores", t, func() {
		Convey("When they differ", func() {
			out := scoring.Renormalize(map[int64]float64{1: 40, 2: 45, 3: 60})

			Convey("Then min maps to 0 and max to 100", func() {
				So(out[1], ShouldEqual, 0)
				So(out[3], ShouldEqual, 100)
				So(out[2], ShouldAlmostEqual, 25, 1e-9)
			})
		})

		Convey("When they are identical", func() {
			out := scoring.Renormalize(map[int64]float64{1: 37, 2: 37})

			Convey("Then every entity scores 50", func() {
				So(out[1], ShouldEqual, 50)
				So(out[2], ShouldEqual, 50)
			})
		})

		Convey("When there are none", func() {
			So(scoring.Renormalize(nil), ShouldBeEmpty)
		})
	})
}

func TestPreferenceList(t *testing.T) {
	Convey("Given preference lists keyed by entity name", t, func() {
		lists := map[string][]string{"Germany": {"CS"}, "united kingdom": {"Law"}}

		Convey("Then names match exactly or case-insensitively", func() {
			So(scoring.PreferenceList(lists, "Germany"), ShouldResemble, []string{"CS"})
			So(scoring.PreferenceList(lists, "GERMANY"), ShouldResemble, []string{"CS"})
			So(scoring.PreferenceList(lists, "United Kingdom"), ShouldResemble, []string{"Law"})
		})

		Convey("Then unknown names have no list", func() {
			So(scoring.PreferenceList(lists, "Japan"), ShouldBeNil)
			So(scoring.PreferenceList(nil, "Germany"), ShouldBeNil)
		})
	})
}

func TestPreferenceScore(t *testing.T) {
	Convey("Given a selection of CS", t, func() {
		sel := []string{"CS"}

		Convey("Then a country ranking CS first scores 100", func() {
			So(scoring.PreferenceScore([]string{"CS", "Eng", "Bio"}, sel), ShouldEqual, 100)
		})

		Convey("And a country ranking CS second scores 80", func() {
			So(scoring.PreferenceScore([]string{"Eng", "CS"}, sel), ShouldEqual, 80)
		})

		Convey("And a country without the label or without a list scores 0", func() {
			So(scoring.PreferenceScore([]string{"Law"}, sel), ShouldEqual, 0)
			So(scoring.PreferenceScore(nil, sel), ShouldEqual, 0)
		})
	})

	Convey("Given several selected labels", t, func() {
		list := []string{"A", "B", "C", "D", "E", "F", "G"}

		Convey("Then contributions add up", func() {
			So(scoring.PreferenceScore(list, []string{"A", "C"}), ShouldEqual, 160)
		})

		Convey("And low ranks produce legitimately negative scores", func() {
			So(scoring.PreferenceScore(list, []string{"F"}), ShouldEqual, 0)
			So(scoring.PreferenceScore(list, []string{"G"}), ShouldEqual, -20)
			So(scoring.PreferenceScore(list, []string{"F", "G"}), ShouldEqual, -20)
		})

		Convey("And repeated selections count once", func() {
			So(scoring.PreferenceScore(list, []string{"B", "B"}), ShouldEqual, 80)
		})
	})
}

func TestBlendFor(t *testing.T) {
	Convey("Given the fixed weighting policy", t, func() {
		So(scoring.BlendFor(false, false), ShouldResemble, scoring.Blend{Overall: 1})
		So(scoring.BlendFor(true, false), ShouldResemble, scoring.Blend{Overall: 0.8, Discipline: 0.2})
		So(scoring.BlendFor(false, true), ShouldResemble, scoring.Blend{Overall: 0.8, Industry: 0.2})
		So(scoring.BlendFor(true, true), ShouldResemble, scoring.Blend{Overall: 0.8, Discipline: 0.1, Industry: 0.1})

		Convey("Then Apply is the weighted sum", func() {
			So(scoring.BlendFor(true, true).Apply(50, 100, -20), ShouldAlmostEqual, 0.8*50+0.1*100+0.1*-20, 1e-9)
		})
	})
}

func TestGroupWeights(t *testing.T) {
	groups := []model.MetricGroup{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	Convey("Given no explicit weights", t, func() {
		Convey("Then every group gets an equal share", func() {
			w := scoring.EqualWeights().Resolve(groups)
			So(len(w), ShouldEqual, 4)
			for _, v := range w {
				So(v, ShouldEqual, 0.25)
			}
		})

		Convey("And an empty map behaves the same", func() {
			gw, err := scoring.NewGroupWeights(map[int64]float64{})
			So(err, ShouldBeNil)
			So(gw.Explicit(), ShouldBeFalse)
			So(gw.Resolve(groups)[3], ShouldEqual, 0.25)
		})
	})

	Convey("Given explicit weights", t, func() {
		gw, err := scoring.NewGroupWeights(map[int64]float64{1: 2, 3: 0.5, 99: 7})
		So(err, ShouldBeNil)
		w := gw.Resolve(groups)

		Convey("Then absent groups weigh 0 and unknown ids are ignored", func() {
			So(w[1], ShouldEqual, 2)
			So(w[2], ShouldEqual, 0)
			So(w[3], ShouldEqual, 0.5)
			_, ok := w[99]
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a negative weight", t, func() {
		_, err := scoring.NewGroupWeights(map[int64]float64{1: -0.1})

		Convey("Then it is rejected", func() {
			So(errors.Is(err, scoring.ErrNegativeWeight), ShouldBeTrue)
		})
	})
}

func TestEngine_Score(t *testing.T) {
	ctx := context.Background()

	Convey("Given a scoring engine and a country snapshot", t, func() {
		engine := scoring.NewEngine(scoring.WithParallelism(2))
		snap := countrySnapshot()

		Convey("When scoring without preferences", func() {
			results, err := engine.Score(ctx, snap, scoring.Request{})

			Convey("Then the final score equals the weighted group total", func() {
				So(err, ShouldBeNil)
				So(len(results), ShouldEqual, 3)
				for _, r := range results {
					So(r.FinalScore, ShouldEqual, r.OverallScore)
					So(r.DisciplineScore, ShouldEqual, 0)
					So(r.IndustryScore, ShouldEqual, 0)
				}
			})

			Convey("And the empty group is skipped", func() {
				for _, r := range results {
					So(len(r.Groups), ShouldEqual, 2)
				}
			})

			Convey("And each group spans [0,100] across entities", func() {
				for gi := range results[0].Groups {
					lo, hi := math.Inf(1), math.Inf(-1)
					for _, r := range results {
						lo = math.Min(lo, r.Groups[gi].Score)
						hi = math.Max(hi, r.Groups[gi].Score)
					}
					So(lo, ShouldEqual, 0)
					So(hi, ShouldEqual, 100)
				}
			})

			Convey("And equal split uses all three groups of the pipeline", func() {
				So(results[0].Groups[0].Weight, ShouldAlmostEqual, 1.0/3, 1e-12)
			})

			Convey("And results are sorted by descending final score", func() {
				for i := 1; i < len(results); i++ {
					So(results[i-1].FinalScore, ShouldBeGreaterThanOrEqualTo, results[i].FinalScore)
				}
			})

			Convey("And per-metric scores only list recorded values", func() {
				for _, r := range results {
					if r.EntityName == "Gamma" {
						_, ok := r.Groups[0].Metrics["Scholarships"]
						So(ok, ShouldBeFalse)
						_, ok = r.Groups[0].Metrics["Tuition Fees"]
						So(ok, ShouldBeTrue)
					}
				}
			})
		})

		Convey("When scoring with disciplines and industries", func() {
			results, err := engine.Score(ctx, snap, scoring.Request{
				Disciplines: []string{"CS"},
				Industries:  []string{"Finance"},
			})

			Convey("Then final = 0.8*total + 0.1*discipline + 0.1*industry", func() {
				So(err, ShouldBeNil)
				for _, r := range results {
					want := 0.8*r.OverallScore + 0.1*r.DisciplineScore + 0.1*r.IndustryScore
					So(r.FinalScore, ShouldAlmostEqual, want, 1e-9)
				}
			})

			Convey("And the preference bonuses follow list ranks", func() {
				byName := map[string]scoring.Result{}
				for _, r := range results {
					byName[r.EntityName] = r
				}
				So(byName["Alpha"].DisciplineScore, ShouldEqual, 100)
				So(byName["Beta"].DisciplineScore, ShouldEqual, 80)
				So(byName["Gamma"].DisciplineScore, ShouldEqual, 0)
				So(byName["Gamma"].IndustryScore, ShouldEqual, 100)
			})
		})

		Convey("When scoring with explicit weights", func() {
			gw, err := scoring.NewGroupWeights(map[int64]float64{20: 1})
			So(err, ShouldBeNil)
			results, err := engine.Score(ctx, snap, scoring.Request{Weights: gw})

			Convey("Then only the weighted group counts", func() {
				So(err, ShouldBeNil)
				So(results[0].EntityName, ShouldEqual, "Alpha")
				So(results[0].FinalScore, ShouldEqual, 100)
				So(results[len(results)-1].EntityName, ShouldEqual, "Beta")
				So(results[len(results)-1].FinalScore, ShouldEqual, 0)
			})
		})

		Convey("When a snapshot metric has an invalid value", func() {
			snap.Values[200] = cells(1, -3)
			_, err := engine.Score(ctx, snap, scoring.Request{})

			Convey("Then scoring fails", func() {
				So(errors.Is(err, scoring.ErrInvalidValue), ShouldBeTrue)
			})
		})
	})

	Convey("Given entities with identical data", t, func() {
		engine := scoring.NewEngine()
		snap := &scoring.Snapshot{
			Kind:     model.KindCountry,
			Entities: []model.Entity{{ID: 5, Name: "E"}, {ID: 3, Name: "C"}, {ID: 9, Name: "I"}},
			Groups:   []model.MetricGroup{{ID: 1, Name: "G"}},
			Metrics:  []model.Metric{{ID: 1, Name: "m", GroupID: 1, IsPositive: true}},
			Values:   map[int64][]model.ValueCell{1: cells(5, 10, 3, 10, 9, 10)},
		}

		Convey("Then ties keep the input entity order", func() {
			results, err := engine.Score(ctx, snap, scoring.Request{})
			So(err, ShouldBeNil)
			So(results[0].EntityID, ShouldEqual, 5)
			So(results[1].EntityID, ShouldEqual, 3)
			So(results[2].EntityID, ShouldEqual, 9)
			So(results[0].FinalScore, ShouldEqual, 50)
		})
	})

	Convey("Given a university snapshot with preference selections", t, func() {
		engine := scoring.NewEngine()
		cid := int64(1)
		snap := &scoring.Snapshot{
			Kind:     model.KindUniversity,
			Entities: []model.Entity{{ID: 1, Name: "U1", CountryID: &cid}, {ID: 2, Name: "U2", CountryID: &cid}},
			Groups:   []model.MetricGroup{{ID: 1, Name: "Academic", AppliesTo: model.AppliesToUniversities}},
			Metrics:  []model.Metric{{ID: 1, Name: "Citations", GroupID: 1, IsPositive: true}},
			Values:   map[int64][]model.ValueCell{1: cells(1, 10, 2, 100)},
			Disciplines: map[string][]string{"U1": {"CS"}},
		}

		Convey("Then preferences are ignored and the group total is final", func() {
			results, err := engine.Score(ctx, snap, scoring.Request{Disciplines: []string{"CS"}})
			So(err, ShouldBeNil)
			So(results[0].EntityName, ShouldEqual, "U2")
			for _, r := range results {
				So(r.DisciplineScore, ShouldEqual, 0)
				So(r.FinalScore, ShouldEqual, r.OverallScore)
				So(*r.CountryID, ShouldEqual, 1)
			}
		})
	})

	Convey("Given a snapshot with an unknown kind", t, func() {
		_, err := scoring.NewEngine().Score(ctx, &scoring.Snapshot{Kind: "city"}, scoring.Request{})

		Convey("Then it is rejected", func() {
			So(errors.Is(err, scoring.ErrUnknownKind), ShouldBeTrue)
		})
	})
}

func TestEngine_ScorePreferenceNameCase(t *testing.T) {
	Convey("Given preference lists whose keys differ in case from entity names", t, func() {
		snap := &scoring.Snapshot{
			Kind:     model.KindCountry,
			Entities: []model.Entity{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}},
			Groups:   []model.MetricGroup{{ID: 10, Name: "Career Prospects", AppliesTo: model.AppliesToCountries}},
			Metrics:  []model.Metric{{ID: 100, Name: "Average Income", GroupID: 10, IsPositive: true}},
			Values:   map[int64][]model.ValueCell{100: cells(1, 100, 2, 100)},
			Disciplines: map[string][]string{
				"ALPHA": {"CS"},
				"beta":  {"Eng", "CS"},
			},
		}

		Convey("Then the lists still apply to their entities", func() {
			results, err := scoring.NewEngine().Score(context.Background(), snap, scoring.Request{Disciplines: []string{"CS"}})
			So(err, ShouldBeNil)
			So(results[0].EntityName, ShouldEqual, "Alpha")
			So(results[0].DisciplineScore, ShouldEqual, 100)
			So(results[1].DisciplineScore, ShouldEqual, 80)
		})
	})
}
