// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/studyrank/internal/adapters/cache"
	"github.com/okian/studyrank/internal/adapters/repository"
	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/internal/domain/scoring"
	"github.com/okian/studyrank/internal/domain/types"
	"github.com/okian/studyrank/pkg/logger"
	"github.com/okian/studyrank/pkg/metrics"
)

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	scorer       scoring.Scorer
	cache        cache.Cache
	cacheBackend string

	parallelism int
	maxLimit    int

	started   bool
	startedAt time.Time

	rankingsComputed atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64

	logger logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		cache:        cache.Nop{},
		cacheBackend: "none",
		parallelism:  runtime.NumCPU(),
		maxLimit:     500,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.scorer == nil {
		s.scorer = scoring.NewEngine(
			scoring.WithParallelism(s.parallelism),
			scoring.WithLogger(s.logger.Named("scoring")),
		)
	}
	return s
}

// Start verifies the store is reachable and marks the service started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.Int("countries", counts.Countries),
		logger.Int("universities", counts.Universities),
		logger.Int("metrics", counts.Metrics),
		logger.String("cache", s.cacheBackend),
		logger.Int("parallelism", s.parallelism),
	)
	return nil
}

// Stop releases the store and cache.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "close cache", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "close store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// CountryRankings ranks countries by weighted groups and preference bonuses.
// Blank selections are dropped before scoring.
func (s *Service) CountryRankings(ctx context.Context, req types.RankingRequest) ([]types.CountryRanking, error) {
	req.Disciplines = types.CleanLabels(req.Disciplines)
	req.Industries = types.CleanLabels(req.Industries)
	return rankCached(ctx, s, model.KindCountry, req, types.NewCountryRankings)
}

// UniversityRankings ranks universities by weighted groups. Preference
// selections are ignored.
func (s *Service) UniversityRankings(ctx context.Context, req types.RankingRequest) ([]types.UniversityRanking, error) {
	req.Disciplines, req.Industries = nil, nil
	return rankCached(ctx, s, model.KindUniversity, req, types.NewUniversityRankings)
}

// rankCached serves a rendered ranking from the cache or computes and stores
// it. The limit is applied after caching so one entry serves every limit.
func rankCached[T any](ctx context.Context, s *Service, kind model.EntityKind, req types.RankingRequest, render func([]scoring.Result) []T) ([]T, error) {
	limit, err := s.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	key := cache.Key(string(kind), req.Weights, req.Disciplines, req.Industries)

	if b, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
	} else if ok {
		var out []T
		if err := json.Unmarshal(b, &out); err == nil {
			s.cacheHits.Add(1)
			metrics.RecordCacheHit(string(kind))
			return truncate(out, limit), nil
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry", logger.String("key", key))
	}
	s.cacheMisses.Add(1)
	metrics.RecordCacheMiss(string(kind))

	results, err := s.score(ctx, kind, req)
	if err != nil {
		metrics.RecordRankingError(string(kind))
		return nil, err
	}
	out := render(results)

	if b, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, key, b); err != nil {
			s.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return truncate(out, limit), nil
}

func (s *Service) score(ctx context.Context, kind model.EntityKind, req types.RankingRequest) ([]scoring.Result, error) {
	start := time.Now()

	weights, err := scoring.NewGroupWeights(req.Weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	snap, err := s.LoadSnapshot(ctx, kind)
	if err != nil {
		return nil, err
	}
	results, err := s.scorer.Score(ctx, snap, scoring.Request{
		Weights:     weights,
		Disciplines: req.Disciplines,
		Industries:  req.Industries,
	})
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", kind, err)
	}

	s.rankingsComputed.Add(1)
	metrics.RecordRanking(string(kind), len(req.Disciplines) > 0, len(req.Industries) > 0,
		len(results), len(snap.Groups), float64(time.Since(start).Microseconds())/1000)
	s.logger.Debug(ctx, "ranking computed",
		logger.String("kind", string(kind)),
		logger.Int("entities", len(results)),
		logger.Duration("took", time.Since(start)),
	)
	return results, nil
}

// LoadSnapshot reads everything one scoring run of kind needs. Metric values
// are fetched concurrently, bounded by the configured parallelism.
func (s *Service) LoadSnapshot(ctx context.Context, kind model.EntityKind) (*scoring.Snapshot, error) {
	start := time.Now()

	entities, err := s.store.ListEntities(ctx, kind)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.ListMetricGroups(ctx, kind)
	if err != nil {
		return nil, err
	}
	groupIDs := make([]int64, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}
	ms, err := s.store.ListMetrics(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	cells := make([][]model.ValueCell, len(ms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range ms {
		g.Go(func() error {
			vals, err := s.store.GetValues(gctx, kind, ms[i].ID)
			if err != nil {
				return err
			}
			cells[i] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	snap := &scoring.Snapshot{
		Kind:     kind,
		Entities: entities,
		Groups:   groups,
		Metrics:  ms,
		Values:   make(map[int64][]model.ValueCell, len(ms)),
	}
	for i, m := range ms {
		snap.Values[m.ID] = cells[i]
	}

	if kind == model.KindCountry {
		if snap.Disciplines, err = s.preferenceMap(ctx, model.PrefDisciplines); err != nil {
			return nil, err
		}
		if snap.Industries, err = s.preferenceMap(ctx, model.PrefDominantIndustries); err != nil {
			return nil, err
		}
	}

	metrics.RecordSnapshotLoad(string(kind), float64(time.Since(start).Microseconds())/1000)
	return snap, nil
}

func (s *Service) preferenceMap(ctx context.Context, kind model.PreferenceKind) (map[string][]string, error) {
	lists, err := s.store.ListPreferenceLists(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(lists))
	for _, l := range lists {
		out[l.EntityName] = l.Labels
	}
	return out, nil
}

func (s *Service) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("limit %d: %w", limit, ErrInvalidRequest)
	case limit == 0, limit > s.maxLimit:
		return s.maxLimit, nil
	default:
		return limit, nil
	}
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// Invalidate purges cached rankings, e.g. after the dataset changed.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Purge(ctx); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	metrics.RecordCacheInvalidation()
	s.logger.Info(ctx, "ranking cache purged")
	return nil
}

// Seed loads a dataset into the store and invalidates cached rankings.
func (s *Service) Seed(ctx context.Context, ds *repository.Dataset) (repository.SeedStats, error) {
	stats, err := s.store.Seed(ctx, ds)
	if err != nil {
		return repository.SeedStats{}, err
	}
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Warn(ctx, "seeded but cache purge failed", logger.Error(err))
	}
	return stats, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	started, startedAt := s.started, s.startedAt
	s.mu.RUnlock()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	entries, err := s.cache.Size(ctx)
	if err != nil {
		s.logger.Warn(ctx, "cache size unavailable", logger.Error(err))
	}

	st := types.Stats{
		Countries:        counts.Countries,
		Universities:     counts.Universities,
		MetricGroups:     counts.Groups,
		Metrics:          counts.Metrics,
		Values:           counts.Values,
		RankingsComputed: s.rankingsComputed.Load(),
		CacheHits:        s.cacheHits.Load(),
		CacheMisses:      s.cacheMisses.Load(),
		CacheEntries:     entries,
		CacheBackend:     s.cacheBackend,
	}
	if started {
		st.UptimeSeconds = time.Since(startedAt).Seconds()
	}
	return st, nil
}
