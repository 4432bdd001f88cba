package api

import "github.com/okian/studyrank/pkg/logger"

const defaultMaxLimit = 500

type settings struct {
	maxLimit int
	logger   logger.Logger
}

func defaults() settings {
	return settings{maxLimit: defaultMaxLimit}
}

// Option configures the Server.
type Option func(*settings)

// WithMaxLimit caps the limit query parameter of ranking endpoints.
func WithMaxLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}
