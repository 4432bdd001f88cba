package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/pkg/logger"
	"github.com/okian/studyrank/pkg/metrics"
)

// SeedStats counts rows written by one Seed call.
type SeedStats struct {
	Groups       int `json:"metric_groups"`
	Metrics      int `json:"metrics"`
	Countries    int `json:"countries"`
	Universities int `json:"universities"`
	Values       int `json:"values"`
	Preferences  int `json:"preference_labels"`
}

// seeder carries one Seed transaction and its name -> id lookups.
type seeder struct {
	tx *sqlx.Tx
	ds *Dataset
}

// Seed upserts ds in a single transaction. Preference lists named in ds
// replace the stored lists of the same entity and kind.
func (s *SQLStore) Seed(ctx context.Context, ds *Dataset) (stats SeedStats, err error) {
	defer s.observe("seed", time.Now(), &err)

	if ds == nil {
		return SeedStats{}, fmt.Errorf("nil dataset: %w", ErrInvalidDataset)
	}
	if err = ds.Validate(); err != nil {
		return SeedStats{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return SeedStats{}, fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sd := &seeder{tx: tx, ds: ds}
	steps := []struct {
		table string
		run   func(context.Context) (int, error)
		dst   *int
	}{
		{"metric_groups", sd.groups, &stats.Groups},
		{"metrics", sd.metrics, &stats.Metrics},
		{"countries", sd.countries, &stats.Countries},
		{"universities", sd.universities, &stats.Universities},
		{"entity_metrics", sd.values, &stats.Values},
		{"preference_lists", sd.preferences, &stats.Preferences},
	}
	for _, step := range steps {
		n, stepErr := step.run(ctx)
		if stepErr != nil {
			err = fmt.Errorf("seed %s: %w", step.table, stepErr)
			return SeedStats{}, err
		}
		*step.dst = n
	}

	if err = tx.Commit(); err != nil {
		return SeedStats{}, fmt.Errorf("commit seed: %w", err)
	}

	for _, step := range steps {
		metrics.RecordDatasetRows(step.table, *step.dst)
	}
	s.logger.Info(ctx, "dataset seeded",
		logger.Int("groups", stats.Groups),
		logger.Int("metrics", stats.Metrics),
		logger.Int("countries", stats.Countries),
		logger.Int("universities", stats.Universities),
		logger.Int("values", stats.Values),
	)
	return stats, nil
}

// upsertID inserts or updates a row keyed by name and returns its id.
func (sd *seeder) upsertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := sd.tx.GetContext(ctx, &id, sd.tx.Rebind(query), args...); err != nil {
		return 0, err
	}
	return id, nil
}

// idByName resolves a name in table, returning ErrInvalidDataset when absent.
func (sd *seeder) idByName(ctx context.Context, table, name string) (int64, error) {
	var id int64
	err := sd.tx.GetContext(ctx, &id, sd.tx.Rebind(
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table)), name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s %q is not defined: %w", table, name, ErrInvalidDataset)
	}
	return id, err
}

func (sd *seeder) groups(ctx context.Context) (int, error) {
	for _, g := range sd.ds.MetricGroups {
		applies := g.AppliesTo
		if applies == "" {
			applies = model.AppliesToCountries
		}
		if _, err := sd.upsertID(ctx, `
			INSERT INTO metric_groups (name, description, applies_to) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET description = excluded.description, applies_to = excluded.applies_to
			RETURNING id`, g.Name, g.Description, string(applies)); err != nil {
			return 0, fmt.Errorf("group %q: %w", g.Name, err)
		}
	}
	return len(sd.ds.MetricGroups), nil
}

func (sd *seeder) metrics(ctx context.Context) (int, error) {
	for _, m := range sd.ds.Metrics {
		groupID, err := sd.idByName(ctx, "metric_groups", m.Group)
		if err != nil {
			return 0, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		if _, err := sd.upsertID(ctx, `
			INSERT INTO metrics (name, description, group_id, is_positive, unit) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET description = excluded.description, group_id = excluded.group_id,
				is_positive = excluded.is_positive, unit = excluded.unit
			RETURNING id`, m.Name, m.Description, groupID, m.Positive(), m.Unit); err != nil {
			return 0, fmt.Errorf("metric %q: %w", m.Name, err)
		}
	}
	return len(sd.ds.Metrics), nil
}

func (sd *seeder) countries(ctx context.Context) (int, error) {
	for _, c := range sd.ds.Countries {
		if _, err := sd.upsertID(ctx, `
			INSERT INTO countries (name) VALUES (?)
			ON CONFLICT (name) DO UPDATE SET name = excluded.name
			RETURNING id`, c.Name); err != nil {
			return 0, fmt.Errorf("country %q: %w", c.Name, err)
		}
	}
	return len(sd.ds.Countries), nil
}

func (sd *seeder) universities(ctx context.Context) (int, error) {
	for _, u := range sd.ds.Universities {
		var countryID *int64
		if u.Country != "" {
			id, err := sd.idByName(ctx, "countries", u.Country)
			if err != nil {
				return 0, fmt.Errorf("university %q: %w", u.Name, err)
			}
			countryID = &id
		}
		if _, err := sd.upsertID(ctx, `
			INSERT INTO universities (name, city, country_id) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET city = excluded.city, country_id = excluded.country_id
			RETURNING id`, u.Name, u.City, countryID); err != nil {
			return 0, fmt.Errorf("university %q: %w", u.Name, err)
		}
	}
	return len(sd.ds.Universities), nil
}

func (sd *seeder) values(ctx context.Context) (int, error) {
	var n int
	for _, part := range []struct {
		kind  model.EntityKind
		table string
		vals  map[string]map[string]float64
	}{
		{model.KindCountry, "countries", sd.ds.Values.Countries},
		{model.KindUniversity, "universities", sd.ds.Values.Universities},
	} {
		for _, entity := range sortedKeys(part.vals) {
			entityID, err := sd.idByName(ctx, part.table, entity)
			if err != nil {
				return 0, err
			}
			byMetric := part.vals[entity]
			for _, metric := range sortedKeys(byMetric) {
				metricID, err := sd.idByName(ctx, "metrics", metric)
				if err != nil {
					return 0, fmt.Errorf("%s %q: %w", part.kind, entity, err)
				}
				_, err = sd.tx.ExecContext(ctx, sd.tx.Rebind(`
					INSERT INTO entity_metrics (entity_kind, entity_id, metric_id, raw_value) VALUES (?, ?, ?, ?)
					ON CONFLICT (entity_kind, entity_id, metric_id) DO UPDATE SET raw_value = excluded.raw_value`),
					string(part.kind), entityID, metricID, byMetric[metric])
				if err != nil {
					return 0, fmt.Errorf("value %s/%s: %w", entity, metric, err)
				}
				n++
			}
		}
	}
	return n, nil
}

func (sd *seeder) preferences(ctx context.Context) (int, error) {
	var n int
	for _, kind := range sortedKeys(sd.ds.Preferences) {
		lists := sd.ds.Preferences[kind]
		for _, entity := range sortedKeys(lists) {
			if _, err := sd.tx.ExecContext(ctx, sd.tx.Rebind(
				"DELETE FROM preference_lists WHERE entity_name = ? AND kind = ?"), entity, string(kind)); err != nil {
				return 0, fmt.Errorf("%s of %s: %w", kind, entity, err)
			}
			for rank, label := range lists[entity] {
				if _, err := sd.tx.ExecContext(ctx, sd.tx.Rebind(
					"INSERT INTO preference_lists (entity_name, kind, label_rank, label) VALUES (?, ?, ?, ?)"),
					entity, string(kind), rank, label); err != nil {
					return 0, fmt.Errorf("%s of %s: %w", kind, entity, err)
				}
				n++
			}
		}
	}
	return n, nil
}

// sortedKeys makes seeding order deterministic.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
