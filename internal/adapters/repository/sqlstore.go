package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/pkg/logger"
	"github.com/okian/studyrank/pkg/metrics"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() { //nolint:gochecknoinits // register bindvar style for the modernc driver name
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLStore implements Store on top of sqlx.
type SQLStore struct {
	db           *sqlx.DB
	driver       string
	maxOpenConns int
	logger       logger.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens the database, verifies connectivity and applies the schema.
func NewSQLStore(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%q: %w", driver, ErrUnsupportedDriver)
	}

	s := &SQLStore{driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// Every connection to an in-memory SQLite database sees its own empty database.
	if driver == DriverSQLite && isMemoryDSN(dsn) {
		s.maxOpenConns = 1
	}
	if s.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s.db = db

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "store ready", logger.String("driver", driver))
	return s, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schemaFor(s.driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// observe records latency and errors of one store operation.
func (s *SQLStore) observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	metrics.RecordStoreQuery(op, float64(time.Since(start).Microseconds())/1000, err)
}

func entityTable(kind model.EntityKind) (string, error) {
	switch kind {
	case model.KindCountry:
		return "countries", nil
	case model.KindUniversity:
		return "universities", nil
	}
	return "", fmt.Errorf("%q: %w", kind, ErrUnknownKind)
}

func entityColumns(kind model.EntityKind) string {
	if kind == model.KindUniversity {
		return "id, name, city, country_id"
	}
	return "id, name"
}

func (s *SQLStore) ListEntities(ctx context.Context, kind model.EntityKind) (out []model.Entity, err error) {
	defer s.observe("list_entities", time.Now(), &err)

	table, err := entityTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", entityColumns(kind), table)
	if err = s.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	for i := range out {
		out[i].Kind = kind
	}
	return out, nil
}

func (s *SQLStore) ListAllMetricGroups(ctx context.Context) (out []model.MetricGroup, err error) {
	defer s.observe("list_metric_groups", time.Now(), &err)

	err = s.db.SelectContext(ctx, &out,
		"SELECT id, name, description, applies_to FROM metric_groups ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list metric groups: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ListMetricGroups(ctx context.Context, kind model.EntityKind) ([]model.MetricGroup, error) {
	if _, err := entityTable(kind); err != nil {
		return nil, err
	}
	all, err := s.ListAllMetricGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.MetricGroup, 0, len(all))
	for _, g := range all {
		if g.AppliesTo.Includes(kind) {
			out = append(out, g)
		}
	}
	return out, nil
}

const metricColumns = "id, name, description, group_id, is_positive, unit"

func (s *SQLStore) ListMetrics(ctx context.Context, groupIDs []int64) (out []model.Metric, err error) {
	defer s.observe("list_metrics", time.Now(), &err)

	if len(groupIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT "+metricColumns+" FROM metrics WHERE group_id IN (?) ORDER BY id", groupIDs)
	if err != nil {
		return nil, fmt.Errorf("build metrics query: %w", err)
	}
	if err = s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ListAllMetrics(ctx context.Context) (out []model.Metric, err error) {
	defer s.observe("list_metrics", time.Now(), &err)

	if err = s.db.SelectContext(ctx, &out, "SELECT "+metricColumns+" FROM metrics ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return out, nil
}

func (s *SQLStore) GetValues(ctx context.Context, kind model.EntityKind, metricID int64) (out []model.ValueCell, err error) {
	defer s.observe("get_values", time.Now(), &err)

	err = s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT entity_id, metric_id, raw_value FROM entity_metrics
		WHERE entity_kind = ? AND metric_id = ?
		ORDER BY entity_id`), string(kind), metricID)
	if err != nil {
		return nil, fmt.Errorf("get values of metric %d: %w", metricID, err)
	}
	return out, nil
}

type preferenceRow struct {
	EntityName string `db:"entity_name"`
	Label      string `db:"label"`
}

func (s *SQLStore) GetPreferenceList(ctx context.Context, entityName string, kind model.PreferenceKind) (pl model.PreferenceList, err error) {
	defer s.observe("get_preference_list", time.Now(), &err)

	var rows []preferenceRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT entity_name, label FROM preference_lists
		WHERE LOWER(entity_name) = LOWER(?) AND kind = ?
		ORDER BY label_rank`), entityName, string(kind))
	if err != nil {
		return model.PreferenceList{}, fmt.Errorf("get %s of %s: %w", kind, entityName, err)
	}
	if len(rows) == 0 {
		return model.PreferenceList{}, fmt.Errorf("%s of %s: %w", kind, entityName, ErrNotFound)
	}
	pl = model.PreferenceList{EntityName: rows[0].EntityName, Kind: kind, Labels: make([]string, len(rows))}
	for i, r := range rows {
		pl.Labels[i] = r.Label
	}
	return pl, nil
}

func (s *SQLStore) ListPreferenceLists(ctx context.Context, kind model.PreferenceKind) (out []model.PreferenceList, err error) {
	defer s.observe("list_preference_lists", time.Now(), &err)

	var rows []preferenceRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT entity_name, label FROM preference_lists
		WHERE kind = ?
		ORDER BY entity_name, label_rank`), string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	for _, r := range rows {
		if n := len(out); n == 0 || out[n-1].EntityName != r.EntityName {
			out = append(out, model.PreferenceList{EntityName: r.EntityName, Kind: kind})
		}
		last := &out[len(out)-1]
		last.Labels = append(last.Labels, r.Label)
	}
	return out, nil
}

func (s *SQLStore) FindEntity(ctx context.Context, kind model.EntityKind, id int64, name string) (e model.Entity, err error) {
	defer s.observe("find_entity", time.Now(), &err)

	table, err := entityTable(kind)
	if err != nil {
		return model.Entity{}, err
	}
	cols := entityColumns(kind)

	switch {
	case id > 0:
		err = s.db.GetContext(ctx, &e, s.db.Rebind(
			fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", cols, table)), id)
	case strings.TrimSpace(name) != "":
		err = s.db.GetContext(ctx, &e, s.db.Rebind(
			fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(name) = LOWER(?) ORDER BY id LIMIT 1", cols, table)),
			strings.TrimSpace(name))
	default:
		return model.Entity{}, fmt.Errorf("%s without id or name: %w", kind, ErrNotFound)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entity{}, fmt.Errorf("%s id=%d name=%q: %w", kind, id, name, ErrNotFound)
	}
	if err != nil {
		return model.Entity{}, fmt.Errorf("find %s: %w", kind, err)
	}
	e.Kind = kind
	return e, nil
}

func (s *SQLStore) EntityMetricValues(ctx context.Context, kind model.EntityKind, entityID int64) (out []model.MetricValue, err error) {
	defer s.observe("entity_metric_values", time.Now(), &err)

	err = s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT g.name AS group_name, m.name AS metric_name, m.description AS metric_description,
			m.unit AS unit, em.raw_value AS raw_value
		FROM entity_metrics em
		JOIN metrics m ON m.id = em.metric_id
		JOIN metric_groups g ON g.id = m.group_id
		WHERE em.entity_kind = ? AND em.entity_id = ?
		ORDER BY g.id, m.id`), string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("metric values of %s %d: %w", kind, entityID, err)
	}
	return out, nil
}

func (s *SQLStore) ListCities(ctx context.Context) (out []string, err error) {
	defer s.observe("list_cities", time.Now(), &err)

	err = s.db.SelectContext(ctx, &out,
		"SELECT DISTINCT city FROM universities WHERE city <> '' ORDER BY city")
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Counts(ctx context.Context) (c Counts, err error) {
	defer s.observe("counts", time.Now(), &err)

	err = s.db.GetContext(ctx, &c, `SELECT
		(SELECT COUNT(*) FROM countries) AS countries,
		(SELECT COUNT(*) FROM universities) AS universities,
		(SELECT COUNT(*) FROM metric_groups) AS metric_groups,
		(SELECT COUNT(*) FROM metrics) AS metrics,
		(SELECT COUNT(*) FROM entity_metrics) AS entity_metrics,
		(SELECT COUNT(*) FROM preference_lists) AS preference_lists`)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
