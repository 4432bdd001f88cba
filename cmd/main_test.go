package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/studyrank/internal/domain/types"
)

const datasetPath = "../internal/adapters/repository/testdata/dataset.yaml"

// writeConfig points the CLI at a fresh SQLite file under dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "studyrank.yaml")
	doc := fmt.Sprintf("log_level: error\ndatabase_driver: sqlite\ndatabase_dsn: \"file:%s\"\ncache_backend: none\n",
		filepath.Join(dir, "studyrank.db"))
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(args ...string) (string, error) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseWeights(t *testing.T) {
	convey.Convey("Given weight flags", t, func() {
		convey.Convey("When they are well formed", func() {
			w, err := parseWeights([]string{"1=0.5", " 2 = 1 "})
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldResemble, map[int64]float64{1: 0.5, 2: 1})
		})

		convey.Convey("When none are given", func() {
			w, err := parseWeights(nil)
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldBeNil)
		})

		convey.Convey("When they are malformed", func() {
			for _, bad := range []string{"1", "x=1", "0=1", "1=abc", "1=-2"} {
				_, err := parseWeights([]string{bad})
				convey.So(err, convey.ShouldNotBeNil)
			}
		})
	})
}

func TestRankFlags(t *testing.T) {
	convey.Convey("Given the rank command", t, func() {
		limit := rankCmd().Flags().Lookup("limit")

		convey.Convey("Then the limit help describes the configured cap", func() {
			convey.So(limit, convey.ShouldNotBeNil)
			convey.So(limit.DefValue, convey.ShouldEqual, "0")
			convey.So(limit.Usage, convey.ShouldContainSubstring, "up to the configured maximum")
			convey.So(limit.Usage, convey.ShouldNotContainSubstring, "0 = all")
		})
	})
}

func TestCLI(t *testing.T) {
	convey.Convey("Given a CLI configured with an empty database", t, func() {
		cfg := writeConfig(t, t.TempDir())

		convey.Convey("When the dataset is seeded", func() {
			out, err := run("--config", cfg, "seed", "--file", datasetPath)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "3 countries")

			convey.Convey("Then countries can be ranked as JSON", func() {
				out, err := run("--config", cfg, "rank", "countries", "--json", "--discipline", "Computer Science")
				convey.So(err, convey.ShouldBeNil)

				var rows []types.CountryRanking
				convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)
				convey.So(len(rows), convey.ShouldEqual, 3)
				convey.So(rows[0].CountryName, convey.ShouldEqual, "Germany")
				convey.So(rows[0].FinalScore, convey.ShouldEqual, 96)
			})

			convey.Convey("And blank selections rank like no selection", func() {
				out, err := run("--config", cfg, "rank", "countries", "--json", "--discipline", "", "--industry", " ")
				convey.So(err, convey.ShouldBeNil)

				var rows []types.CountryRanking
				convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)
				convey.So(rows[0].CountryName, convey.ShouldEqual, "Germany")
				convey.So(rows[0].FinalScore, convey.ShouldEqual, 100)
				convey.So(rows[0].DisciplineScore, convey.ShouldEqual, 0)
			})

			convey.Convey("And universities can be ranked as a table", func() {
				out, err := run("--config", cfg, "rank", "universities", "--limit", "2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "RANK")
				convey.So(out, convey.ShouldContainSubstring, "University of Toronto")
				convey.So(out, convey.ShouldNotContainSubstring, "TU Munich")
			})
		})

		convey.Convey("When ranking an unknown kind", func() {
			_, err := run("--config", cfg, "rank", "cities")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When a weight is negative", func() {
			_, err := run("--config", cfg, "rank", "countries", "--weight", "1=-1")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When seeding without a file", func() {
			_, err := run("--config", cfg, "seed")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
