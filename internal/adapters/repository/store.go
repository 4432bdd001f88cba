// Package repository persists entities, metric definitions, raw values and
// preference lists, and serves them to the ranking pipelines.
package repository

import (
	"context"

	"github.com/okian/studyrank/internal/domain/model"
)

// Counts summarizes the number of rows per table.
type Counts struct {
	Countries    int `db:"countries" json:"countries"`
	Universities int `db:"universities" json:"universities"`
	Groups       int `db:"metric_groups" json:"metric_groups"`
	Metrics      int `db:"metrics" json:"metrics"`
	Values       int `db:"entity_metrics" json:"values"`
	Preferences  int `db:"preference_lists" json:"preference_labels"`
}

// Store provides read/write access to the ranking dataset.
type Store interface {
	// ListEntities returns every entity of kind ordered by id.
	ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error)
	// ListMetricGroups returns the groups whose applicability includes kind.
	ListMetricGroups(ctx context.Context, kind model.EntityKind) ([]model.MetricGroup, error)
	ListAllMetricGroups(ctx context.Context) ([]model.MetricGroup, error)
	// ListMetrics returns the metrics belonging to any of groupIDs.
	ListMetrics(ctx context.Context, groupIDs []int64) ([]model.Metric, error)
	ListAllMetrics(ctx context.Context) ([]model.Metric, error)
	// GetValues returns the recorded values of one metric for entities of kind.
	// Entities without a value are absent.
	GetValues(ctx context.Context, kind model.EntityKind, metricID int64) ([]model.ValueCell, error)

	// GetPreferenceList returns ErrNotFound when the entity has no list of that kind.
	GetPreferenceList(ctx context.Context, entityName string, kind model.PreferenceKind) (model.PreferenceList, error)
	ListPreferenceLists(ctx context.Context, kind model.PreferenceKind) ([]model.PreferenceList, error)

	// FindEntity looks an entity up by id when id > 0, otherwise by
	// case-insensitive name. Returns ErrNotFound when absent.
	FindEntity(ctx context.Context, kind model.EntityKind, id int64, name string) (model.Entity, error)
	// EntityMetricValues returns an entity's raw values with metric and group names.
	EntityMetricValues(ctx context.Context, kind model.EntityKind, entityID int64) ([]model.MetricValue, error)
	// ListCities returns the distinct non-empty university cities.
	ListCities(ctx context.Context) ([]string, error)

	// Seed upserts a dataset in one transaction.
	Seed(ctx context.Context, ds *Dataset) (SeedStats, error)
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
