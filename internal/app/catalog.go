package service

import (
	"context"
	"fmt"

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/internal/domain/types"
)

// Countries lists every country.
func (s *Service) Countries(ctx context.Context) ([]types.Country, error) {
	entities, err := s.store.ListEntities(ctx, model.KindCountry)
	if err != nil {
		return nil, err
	}
	out := make([]types.Country, len(entities))
	for i, e := range entities {
		out[i] = types.Country{ID: e.ID, Name: e.Name}
	}
	return out, nil
}

// Universities lists every university with its country name when known.
func (s *Service) Universities(ctx context.Context) ([]types.University, error) {
	countries, err := s.store.ListEntities(ctx, model.KindCountry)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(countries))
	for _, c := range countries {
		names[c.ID] = c.Name
	}

	unis, err := s.store.ListEntities(ctx, model.KindUniversity)
	if err != nil {
		return nil, err
	}
	out := make([]types.University, len(unis))
	for i, u := range unis {
		out[i] = types.University{ID: u.ID, Name: u.Name, City: u.City, CountryID: u.CountryID}
		if u.CountryID != nil {
			out[i].CountryName = names[*u.CountryID]
		}
	}
	return out, nil
}

// Cities lists the distinct university cities.
func (s *Service) Cities(ctx context.Context) ([]types.City, error) {
	cities, err := s.store.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.City, len(cities))
	for i, c := range cities {
		out[i] = types.City{City: c}
	}
	return out, nil
}

// MetricGroups lists metric groups, filtered to one pipeline when appliesTo
// names an entity kind.
func (s *Service) MetricGroups(ctx context.Context, appliesTo string) ([]model.MetricGroup, error) {
	if appliesTo == "" {
		return s.store.ListAllMetricGroups(ctx)
	}
	kind, err := model.ParseEntityKind(appliesTo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.store.ListMetricGroups(ctx, kind)
}

// Metrics lists every metric definition.
func (s *Service) Metrics(ctx context.Context) ([]model.Metric, error) {
	return s.store.ListAllMetrics(ctx)
}

// Disciplines lists each country's ranked top disciplines.
func (s *Service) Disciplines(ctx context.Context) ([]types.DisciplineProfile, error) {
	lists, err := s.store.ListPreferenceLists(ctx, model.PrefDisciplines)
	if err != nil {
		return nil, err
	}
	out := make([]types.DisciplineProfile, len(lists))
	for i, l := range lists {
		out[i] = types.DisciplineProfile{Country: l.EntityName, TopDisciplines: l.Labels}
	}
	return out, nil
}

// Industries lists dominant and growing industries per country. Countries
// with either list appear once, ordered by name.
func (s *Service) Industries(ctx context.Context) ([]types.IndustryProfile, error) {
	dominant, err := s.store.ListPreferenceLists(ctx, model.PrefDominantIndustries)
	if err != nil {
		return nil, err
	}
	growing, err := s.store.ListPreferenceLists(ctx, model.PrefGrowingIndustries)
	if err != nil {
		return nil, err
	}

	// Both inputs are sorted by entity name; merge them.
	out := make([]types.IndustryProfile, 0, len(dominant))
	i, j := 0, 0
	for i < len(dominant) || j < len(growing) {
		switch {
		case j == len(growing) || (i < len(dominant) && dominant[i].EntityName < growing[j].EntityName):
			out = append(out, types.IndustryProfile{Country: dominant[i].EntityName, DominantIndustries: dominant[i].Labels})
			i++
		case i == len(dominant) || growing[j].EntityName < dominant[i].EntityName:
			out = append(out, types.IndustryProfile{Country: growing[j].EntityName, GrowingIndustries: growing[j].Labels})
			j++
		default:
			out = append(out, types.IndustryProfile{
				Country:            dominant[i].EntityName,
				DominantIndustries: dominant[i].Labels,
				GrowingIndustries:  growing[j].Labels,
			})
			i++
			j++
		}
	}
	for k := range out {
		if out[k].DominantIndustries == nil {
			out[k].DominantIndustries = []string{}
		}
		if out[k].GrowingIndustries == nil {
			out[k].GrowingIndustries = []string{}
		}
	}
	return out, nil
}

// EntityMetrics returns the raw metric values of one entity, looked up by id
// when id > 0 and by name otherwise. Unknown entities yield
// repository.ErrNotFound.
func (s *Service) EntityMetrics(ctx context.Context, kind model.EntityKind, id int64, name string) (model.Entity, []model.MetricValue, error) {
	e, err := s.store.FindEntity(ctx, kind, id, name)
	if err != nil {
		return model.Entity{}, nil, err
	}
	vals, err := s.store.EntityMetricValues(ctx, kind, e.ID)
	if err != nil {
		return model.Entity{}, nil, err
	}
	if vals == nil {
		vals = []model.MetricValue{}
	}
	return e, vals, nil
}
