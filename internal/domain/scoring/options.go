package scoring

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/studyrank/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParallelism bounds the number of metrics normalized concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
