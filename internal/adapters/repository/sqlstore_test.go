package repository_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/studyrank/internal/adapters/repository"
	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newSeededStore(t *testing.T) *repository.SQLStore {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewSQLStore(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ds, err := repository.LoadDataset("testdata/dataset.yaml")
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if _, err := store.Seed(ctx, ds); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func metricID(t *testing.T, store repository.Store, name string) int64 {
	t.Helper()
	all, err := store.ListAllMetrics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range all {
		if m.Name == name {
			return m.ID
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}

func TestNewSQLStore(t *testing.T) {
	Convey("Given an unsupported driver", t, func() {
		_, err := repository.NewSQLStore(context.Background(), "mysql", "dsn")

		Convey("Then the store refuses to open", func() {
			So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
		})
	})
}

func TestSQLStore_Seed(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store seeded from the test dataset", t, func() {
		store := newSeededStore(t)
		defer func() { _ = store.Close() }()

		Convey("Then every table is populated", func() {
			c, err := store.Counts(ctx)
			So(err, ShouldBeNil)
			So(c, ShouldResemble, repository.Counts{
				Countries: 3, Universities: 3, Groups: 3, Metrics: 4, Values: 10, Preferences: 11,
			})
		})

		Convey("When the same dataset is seeded again", func() {
			ds, err := repository.LoadDataset("testdata/dataset.yaml")
			So(err, ShouldBeNil)
			stats, err := store.Seed(ctx, ds)
			So(err, ShouldBeNil)

			Convey("Then rows are updated in place", func() {
				So(stats.Values, ShouldEqual, 10)
				c, err := store.Counts(ctx)
				So(err, ShouldBeNil)
				So(c.Values, ShouldEqual, 10)
				So(c.Preferences, ShouldEqual, 11)
				So(c.Countries, ShouldEqual, 3)
			})
		})

		Convey("When a dataset references an undefined group", func() {
			ds := &repository.Dataset{
				Countries: []repository.CountrySpec{{Name: "Chile"}},
				Metrics:   []repository.MetricSpec{{Name: "Orphan", Group: "Nowhere"}},
			}
			_, err := store.Seed(ctx, ds)

			Convey("Then seeding fails and nothing is written", func() {
				So(errors.Is(err, repository.ErrInvalidDataset), ShouldBeTrue)
				c, err := store.Counts(ctx)
				So(err, ShouldBeNil)
				So(c.Countries, ShouldEqual, 3)
				So(c.Metrics, ShouldEqual, 4)
			})
		})

		Convey("When a value references an unknown entity", func() {
			ds := &repository.Dataset{}
			ds.Values.Countries = map[string]map[string]float64{"Atlantis": {"Tuition Fees": 1}}
			_, err := store.Seed(ctx, ds)

			Convey("Then seeding fails", func() {
				So(errors.Is(err, repository.ErrInvalidDataset), ShouldBeTrue)
			})
		})
	})

	Convey("Given a nil dataset", t, func() {
		store := newSeededStore(t)
		defer func() { _ = store.Close() }()
		_, err := store.Seed(ctx, nil)
		So(errors.Is(err, repository.ErrInvalidDataset), ShouldBeTrue)
	})
}

func TestSQLStore_Entities(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		store := newSeededStore(t)
		defer func() { _ = store.Close() }()

		Convey("When listing countries", func() {
			countries, err := store.ListEntities(ctx, model.KindCountry)

			Convey("Then they come back in id order with their kind", func() {
				So(err, ShouldBeNil)
				So(len(countries), ShouldEqual, 3)
				So(countries[0].Name, ShouldEqual, "Germany")
				So(countries[2].Name, ShouldEqual, "Japan")
				So(countries[0].Kind, ShouldEqual, model.KindCountry)
			})
		})

		Convey("When listing universities", func() {
			unis, err := store.ListEntities(ctx, model.KindUniversity)

			Convey("Then city and country are attached when known", func() {
				So(err, ShouldBeNil)
				So(len(unis), ShouldEqual, 3)
				So(unis[0].City, ShouldEqual, "Munich")
				So(unis[0].CountryID, ShouldNotBeNil)
				So(unis[2].Name, ShouldEqual, "Open University")
				So(unis[2].CountryID, ShouldBeNil)
			})
		})

		Convey("When listing an unknown kind", func() {
			_, err := store.ListEntities(ctx, model.EntityKind("city"))
			So(errors.Is(err, repository.ErrUnknownKind), ShouldBeTrue)
		})

		Convey("When finding entities", func() {
			byName, err := store.FindEntity(ctx, model.KindCountry, 0, "  canada ")
			So(err, ShouldBeNil)
			So(byName.Name, ShouldEqual, "Canada")

			byID, err := store.FindEntity(ctx, model.KindCountry, byName.ID, "ignored")
			So(err, ShouldBeNil)
			So(byID, ShouldResemble, byName)

			_, err = store.FindEntity(ctx, model.KindCountry, 0, "Atlantis")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.FindEntity(ctx, model.KindUniversity, 999, "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = store.FindEntity(ctx, model.KindUniversity, 0, "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When listing cities", func() {
			cities, err := store.ListCities(ctx)
			So(err, ShouldBeNil)
			So(cities, ShouldResemble, []string{"Munich", "Toronto"})
		})
	})
}

func TestSQLStore_Metrics(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		store := newSeededStore(t)
		defer func() { _ = store.Close() }()

		Convey("When listing groups per kind", func() {
			countryGroups, err := store.ListMetricGroups(ctx, model.KindCountry)
			So(err, ShouldBeNil)
			uniGroups, err := store.ListMetricGroups(ctx, model.KindUniversity)
			So(err, ShouldBeNil)

			Convey("Then applicability filters them", func() {
				So(len(countryGroups), ShouldEqual, 2)
				So(countryGroups[0].Name, ShouldEqual, "Financial Feasibility")
				So(countryGroups[1].AppliesTo, ShouldEqual, model.AppliesToBoth)
				So(len(uniGroups), ShouldEqual, 2)
				So(uniGroups[1].Name, ShouldEqual, "Academic Strength")
			})

			Convey("And metrics are listed per group", func() {
				ids := []int64{countryGroups[0].ID, countryGroups[1].ID}
				ms, err := store.ListMetrics(ctx, ids)
				So(err, ShouldBeNil)
				So(len(ms), ShouldEqual, 3)
				So(ms[0].Name, ShouldEqual, "Tuition Fees")
				So(ms[0].IsPositive, ShouldBeFalse)
				So(ms[0].Unit, ShouldEqual, "USD")
				So(ms[2].IsPositive, ShouldBeTrue)

				none, err := store.ListMetrics(ctx, nil)
				So(err, ShouldBeNil)
				So(none, ShouldBeEmpty)
			})
		})

		Convey("When reading values", func() {
			tuition, err := store.GetValues(ctx, model.KindCountry, metricID(t, store, "Tuition Fees"))
			So(err, ShouldBeNil)
			employment, err := store.GetValues(ctx, model.KindUniversity, metricID(t, store, "Graduate Employment"))
			So(err, ShouldBeNil)

			Convey("Then only recorded cells of that kind are returned", func() {
				So(len(tuition), ShouldEqual, 3)
				So(tuition[0].RawValue, ShouldEqual, 300)
				So(len(employment), ShouldEqual, 1)
				So(employment[0].RawValue, ShouldEqual, 91)
			})
		})

		Convey("When reading an entity's metric detail", func() {
			germany, err := store.FindEntity(ctx, model.KindCountry, 0, "Germany")
			So(err, ShouldBeNil)
			vals, err := store.EntityMetricValues(ctx, model.KindCountry, germany.ID)

			Convey("Then values carry group and metric names", func() {
				So(err, ShouldBeNil)
				So(len(vals), ShouldEqual, 3)
				So(vals[0].GroupName, ShouldEqual, "Financial Feasibility")
				So(vals[0].MetricName, ShouldEqual, "Tuition Fees")
				So(vals[0].MetricDescription, ShouldStartWith, "Average annual")
				So(vals[2].GroupName, ShouldEqual, "Career Prospects")
			})
		})
	})
}

func TestSQLStore_Preferences(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		store := newSeededStore(t)
		defer func() { _ = store.Close() }()

		Convey("When listing discipline lists", func() {
			lists, err := store.ListPreferenceLists(ctx, model.PrefDisciplines)

			Convey("Then they are grouped per country and rank-ordered", func() {
				So(err, ShouldBeNil)
				So(len(lists), ShouldEqual, 2)
				So(lists[0].EntityName, ShouldEqual, "Canada")
				So(lists[1].Labels, ShouldResemble, []string{"Engineering", "Computer Science", "Physics"})
				So(lists[1].Rank("Computer Science"), ShouldEqual, 1)
			})
		})

		Convey("When fetching one list", func() {
			pl, err := store.GetPreferenceList(ctx, "japan", model.PrefDominantIndustries)
			So(err, ShouldBeNil)
			So(pl.EntityName, ShouldEqual, "Japan")
			So(pl.Labels, ShouldResemble, []string{"Electronics", "Automotive"})

			_, err = store.GetPreferenceList(ctx, "Japan", model.PrefGrowingIndustries)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestParseDataset(t *testing.T) {
	Convey("Given malformed datasets", t, func() {
		cases := map[string]string{
			"unknown key":        "countries:\n  - name: X\n    flag: true\n",
			"empty metric group": "metrics:\n  - name: M\n",
			"bad applicability":  "metric_groups:\n  - name: G\n    applies_to: planet\n",
			"bad preference":     "preferences:\n  hobbies:\n    X: [a]\n",
			"value below -1":     "values:\n  countries:\n    X:\n      M: -2\n",
		}
		for name, doc := range cases {
			Convey("When parsing a dataset with "+name, func() {
				_, err := repository.ParseDataset(strings.NewReader(doc))
				So(errors.Is(err, repository.ErrInvalidDataset), ShouldBeTrue)
			})
		}
	})

	Convey("Given an empty document", t, func() {
		ds, err := repository.ParseDataset(strings.NewReader(""))
		So(err, ShouldBeNil)
		So(ds.Countries, ShouldBeEmpty)
	})

	Convey("Given a metric without polarity", t, func() {
		ds, err := repository.ParseDataset(strings.NewReader("metrics:\n  - name: M\n    group: G\n"))
		So(err, ShouldBeNil)
		So(ds.Metrics[0].Positive(), ShouldBeTrue)
	})
}
