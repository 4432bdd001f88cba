// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// EntityKind selects which pipeline an entity belongs to.
type EntityKind string

// Supported entity kinds.
const (
	KindCountry    EntityKind = "country"
	KindUniversity EntityKind = "university"
)

// ParseEntityKind accepts singular and plural spellings (case-insensitive).
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "country", "countries":
		return KindCountry, nil
	case "university", "universities", "uni", "unis":
		return KindUniversity, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// Applicability tags a metric group with the pipelines it feeds.
type Applicability string

// Supported applicability tags.
const (
	AppliesToCountries    Applicability = "country"
	AppliesToUniversities Applicability = "university"
	AppliesToBoth         Applicability = "both"
)

// Includes reports whether a group with this tag participates in kind's pipeline.
// An empty tag is treated as country-only, which is how groups were created
// before universities existed.
func (a Applicability) Includes(kind EntityKind) bool {
	switch a {
	case AppliesToBoth:
		return true
	case AppliesToUniversities:
		return kind == KindUniversity
	case AppliesToCountries, "":
		return kind == KindCountry
	}
	return false
}

// Valid reports whether a is one of the known tags.
func (a Applicability) Valid() bool {
	switch a {
	case AppliesToCountries, AppliesToUniversities, AppliesToBoth:
		return true
	}
	return false
}

// Entity is a country or a university. Universities carry CountryID and City.
type Entity struct {
	ID        int64      `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Kind      EntityKind `db:"-" json:"kind"`
	CountryID *int64     `db:"country_id" json:"country_id,omitempty"`
	City      string     `db:"city" json:"city,omitempty"`
}

// MetricGroup is a named bucket of metrics aggregated into one sub-score.
type MetricGroup struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	AppliesTo   Applicability `db:"applies_to" json:"applies_to"`
}

// Metric is a single measurable attribute. IsPositive means higher is better.
// Unit and Description are display-only.
type Metric struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	GroupID     int64  `db:"group_id" json:"group_id"`
	IsPositive  bool   `db:"is_positive" json:"is_positive"`
	Unit        string `db:"unit" json:"unit,omitempty"`
}

// ValueCell is one recorded raw value. A missing cell means "no data", never zero.
type ValueCell struct {
	EntityID int64   `db:"entity_id"`
	MetricID int64   `db:"metric_id"`
	RawValue float64 `db:"raw_value"`
}

// MetricValue is a raw value joined with its metric and group, for detail views.
type MetricValue struct {
	GroupName         string  `db:"group_name" json:"metric_group"`
	MetricName        string  `db:"metric_name" json:"metric_name"`
	MetricDescription string  `db:"metric_description" json:"metric_description"`
	Unit              string  `db:"unit" json:"unit"`
	RawValue          float64 `db:"raw_value" json:"raw_value"`
}
