package repository

import "fmt"

// schemaFor returns the DDL for driver. Only the surrogate key type differs
// between SQLite and PostgreSQL.
func schemaFor(driver string) []string {
	pk := "INTEGER PRIMARY KEY"
	if driver == DriverPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS countries (
			id %s,
			name TEXT NOT NULL UNIQUE
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS universities (
			id %s,
			name TEXT NOT NULL UNIQUE,
			city TEXT NOT NULL DEFAULT '',
			country_id BIGINT REFERENCES countries(id)
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS metric_groups (
			id %s,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			applies_to TEXT NOT NULL DEFAULT 'country'
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS metrics (
			id %s,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			group_id BIGINT NOT NULL REFERENCES metric_groups(id),
			is_positive BOOLEAN NOT NULL DEFAULT TRUE,
			unit TEXT NOT NULL DEFAULT ''
		)`, pk),
		`CREATE TABLE IF NOT EXISTS entity_metrics (
			entity_kind TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			metric_id BIGINT NOT NULL REFERENCES metrics(id),
			raw_value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (entity_kind, entity_id, metric_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entity_metrics_metric ON entity_metrics (entity_kind, metric_id)`,
		`CREATE TABLE IF NOT EXISTS preference_lists (
			entity_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			label_rank INTEGER NOT NULL,
			label TEXT NOT NULL,
			PRIMARY KEY (entity_name, kind, label_rank)
		)`,
	}
}
