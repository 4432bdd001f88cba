package cache

import "time"

// Option applies a configuration option to a cache.
type Option func(*settings)

type settings struct {
	maxSize int
	ttl     time.Duration
	prefix  string
	now     func() time.Time
}

func defaults() settings {
	return settings{maxSize: 1024, prefix: "studyrank:rank:", now: time.Now}
}

// WithMaxSize bounds the in-memory cache; the oldest entry is evicted first.
// A size <= 0 means unbounded.
func WithMaxSize(n int) Option {
	return func(s *settings) { s.maxSize = n }
}

// WithTTL expires entries after d. Zero keeps entries until purged or evicted.
func WithTTL(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// WithKeyPrefix namespaces Redis keys so Purge only touches this cache.
func WithKeyPrefix(p string) Option {
	return func(s *settings) {
		if p != "" {
			s.prefix = p
		}
	}
}

// withClock is used by tests to control expiry.
func withClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}
