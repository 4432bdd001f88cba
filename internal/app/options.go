package service

import (
	"github.com/okian/studyrank/internal/adapters/cache"
	"github.com/okian/studyrank/internal/domain/scoring"
	"github.com/okian/studyrank/pkg/logger"
)

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and its default scorer.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithScorer replaces the default scoring engine.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) { s.scorer = sc }
}

// WithCache sets the ranking cache and the backend name reported in stats.
func WithCache(c cache.Cache, backend string) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
			s.cacheBackend = backend
		}
	}
}

// WithParallelism bounds concurrent value loads and metric normalization.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithMaxLimit caps the number of rows a ranking returns.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
