package repository

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/studyrank/internal/domain/model"
)

// Dataset is the YAML seed format. Everything is referenced by name, so a
// dataset can be applied repeatedly or on top of existing rows.
type Dataset struct {
	MetricGroups []GroupSpec      `yaml:"metric_groups"`
	Metrics      []MetricSpec     `yaml:"metrics"`
	Countries    []CountrySpec    `yaml:"countries"`
	Universities []UniversitySpec `yaml:"universities"`
	// Values maps entity name -> metric name -> raw value.
	Values struct {
		Countries    map[string]map[string]float64 `yaml:"countries"`
		Universities map[string]map[string]float64 `yaml:"universities"`
	} `yaml:"values"`
	// Preferences maps preference kind -> country name -> ordered labels.
	Preferences map[model.PreferenceKind]map[string][]string `yaml:"preferences"`
}

// GroupSpec declares a metric group.
type GroupSpec struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	AppliesTo   model.Applicability `yaml:"applies_to"`
}

// MetricSpec declares a metric. IsPositive defaults to true.
type MetricSpec struct {
	Name        string `yaml:"name"`
	Group       string `yaml:"group"`
	Description string `yaml:"description"`
	IsPositive  *bool  `yaml:"is_positive"`
	Unit        string `yaml:"unit"`
}

// Positive reports the metric polarity, defaulting to higher-is-better.
func (m MetricSpec) Positive() bool {
	return m.IsPositive == nil || *m.IsPositive
}

// CountrySpec declares a country.
type CountrySpec struct {
	Name string `yaml:"name"`
}

// UniversitySpec declares a university; Country is optional.
type UniversitySpec struct {
	Name    string `yaml:"name"`
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

// LoadDataset reads and validates a YAML dataset file.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseDataset(f)
}

// ParseDataset decodes a YAML dataset, rejecting unknown keys.
func ParseDataset(r io.Reader) (*Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode dataset: %w: %w", ErrInvalidDataset, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks names and enumerations. References to groups, metrics and
// countries are resolved during Seed, since they may already exist in the store.
func (ds *Dataset) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidDataset)
	}

	for i, g := range ds.MetricGroups {
		if strings.TrimSpace(g.Name) == "" {
			return invalid("metric_groups[%d]: empty name", i)
		}
		if g.AppliesTo != "" && !g.AppliesTo.Valid() {
			return invalid("metric group %q: applies_to %q", g.Name, g.AppliesTo)
		}
	}
	for i, m := range ds.Metrics {
		if strings.TrimSpace(m.Name) == "" {
			return invalid("metrics[%d]: empty name", i)
		}
		if strings.TrimSpace(m.Group) == "" {
			return invalid("metric %q: empty group", m.Name)
		}
	}
	for i, c := range ds.Countries {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("countries[%d]: empty name", i)
		}
	}
	for i, u := range ds.Universities {
		if strings.TrimSpace(u.Name) == "" {
			return invalid("universities[%d]: empty name", i)
		}
	}
	for _, vals := range []map[string]map[string]float64{ds.Values.Countries, ds.Values.Universities} {
		for entity, byMetric := range vals {
			for metric, v := range byMetric {
				if math.IsNaN(v) || math.IsInf(v, 0) || v <= -1 {
					return invalid("value %s/%s: %v outside the log domain", entity, metric, v)
				}
			}
		}
	}
	for kind := range ds.Preferences {
		if !kind.Valid() {
			return invalid("preference kind %q", kind)
		}
	}
	return nil
}
