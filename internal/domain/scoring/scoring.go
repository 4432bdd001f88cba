// Package scoring ranks entities by combining log-normalized metrics into
// group scores, re-stretching each group over the population, weighting the
// groups and blending in discipline/industry preference bonuses.
package scoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/studyrank/internal/domain/model"
	"github.com/okian/studyrank/pkg/logger"
)

const tracerName = "studyrank/scoring"

// Request carries the caller's preferences for one ranking.
type Request struct {
	Weights GroupWeights
	// Disciplines and Industries are the selected labels. They are ignored for
	// universities, which have no preference lists.
	Disciplines []string
	Industries  []string
}

// GroupBreakdown explains one group's contribution to an entity's score.
type GroupBreakdown struct {
	GroupID  int64
	Name     string
	RawScore float64
	Score    float64
	Weight   float64
	Weighted float64
	// Metrics holds normalized scores of metrics with a recorded value.
	Metrics map[string]float64
}

// Result is one entity's ranked score. Values are unrounded.
type Result struct {
	EntityID        int64
	EntityName      string
	CountryID       *int64
	OverallScore    float64
	DisciplineScore float64
	IndustryScore   float64
	FinalScore      float64
	Groups          []GroupBreakdown
}

// Scorer ranks the entities of a snapshot.
type Scorer interface {
	// Score returns one result per entity sorted by descending final score.
	// Equal scores keep the snapshot's entity order.
	Score(ctx context.Context, snap *Snapshot, req Request) ([]Result, error)
}

// Engine implements Scorer. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	parallelism int
	tracer      trace.Tracer
	logger      logger.Logger
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		parallelism: runtime.NumCPU(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("scoring")
	}
	return e
}

// Score runs normalize -> aggregate -> renormalize -> weight -> blend -> sort.
func (e *Engine) Score(ctx context.Context, snap *Snapshot, req Request) ([]Result, error) {
	if snap == nil {
		return nil, nil
	}
	if snap.Kind != model.KindCountry && snap.Kind != model.KindUniversity {
		return nil, fmt.Errorf("%q: %w", snap.Kind, ErrUnknownKind)
	}

	ctx, span := e.tracer.Start(ctx, "scoring.Score", trace.WithAttributes(
		attribute.String("entity.kind", string(snap.Kind)),
		attribute.Int("entity.count", len(snap.Entities)),
		attribute.Int("metric.count", len(snap.Metrics)),
	))
	defer span.End()

	normalized, err := e.normalizeAll(ctx, snap)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	groups := e.aggregateAll(ctx, snap, normalized)
	weights := req.Weights.Resolve(snap.Groups)

	disciplines, industries := req.Disciplines, req.Industries
	if snap.Kind == model.KindUniversity {
		disciplines, industries = nil, nil
	}
	blend := BlendFor(len(disciplines) > 0, len(industries) > 0)

	results := make([]Result, len(snap.Entities))
	for i, ent := range snap.Entities {
		r := Result{
			EntityID:   ent.ID,
			EntityName: ent.Name,
			CountryID:  ent.CountryID,
			Groups:     make([]GroupBreakdown, 0, len(groups)),
		}
		for _, g := range groups {
			w := weights[g.Group.ID]
			score := g.Normalized[ent.ID]
			b := GroupBreakdown{
				GroupID:  g.Group.ID,
				Name:     g.Group.Name,
				RawScore: g.Raw[ent.ID],
				Score:    score,
				Weight:   w,
				Weighted: score * w,
				Metrics:  make(map[string]float64, len(g.Members)),
			}
			for _, m := range g.Members {
				if s, ok := m.ScoreFor(ent.ID); ok {
					b.Metrics[m.Metric.Name] = s
				}
			}
			r.OverallScore += b.Weighted
			r.Groups = append(r.Groups, b)
		}
		if len(disciplines) > 0 {
			r.DisciplineScore = PreferenceScore(PreferenceList(snap.Disciplines, ent.Name), disciplines)
		}
		if len(industries) > 0 {
			r.IndustryScore = PreferenceScore(PreferenceList(snap.Industries, ent.Name), industries)
		}
		r.FinalScore = blend.Apply(r.OverallScore, r.DisciplineScore, r.IndustryScore)
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	e.logger.Debug(ctx, "scored entities",
		logger.String("kind", string(snap.Kind)),
		logger.Int("entities", len(results)),
		logger.Int("groups", len(groups)),
		logger.Bool("weights_explicit", req.Weights.Explicit()),
	)
	return results, nil
}

// normalizeAll normalizes every metric of the snapshot. Metrics are independent,
// so they fan out over at most e.parallelism goroutines; each writes its own slot.
func (e *Engine) normalizeAll(ctx context.Context, snap *Snapshot) (map[int64]MetricScores, error) {
	_, span := e.tracer.Start(ctx, "scoring.normalize")
	defer span.End()

	out := make([]MetricScores, len(snap.Metrics))
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i := range snap.Metrics {
		g.Go(func() error {
			ms, err := snap.NormalizeMetric(snap.Metrics[i].ID)
			if err != nil {
				return err
			}
			out[i] = ms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("normalize metrics: %w", err)
	}

	byID := make(map[int64]MetricScores, len(out))
	for _, ms := range out {
		byID[ms.Metric.ID] = ms
	}
	return byID, nil
}

// aggregateAll builds the renormalized group scores, in snapshot group order.
// Groups without metrics are skipped.
func (e *Engine) aggregateAll(ctx context.Context, snap *Snapshot, normalized map[int64]MetricScores) []GroupAggregate {
	ctx, span := e.tracer.Start(ctx, "scoring.aggregate")
	defer span.End()

	members := membersByGroup(snap.Metrics)
	out := make([]GroupAggregate, 0, len(snap.Groups))
	for _, grp := range snap.Groups {
		ms := make([]MetricScores, 0, len(members[grp.ID]))
		for _, m := range members[grp.ID] {
			ms = append(ms, normalized[m.ID])
		}
		agg, ok := AggregateGroup(grp, ms, snap.Entities)
		if !ok {
			e.logger.Debug(ctx, "skipping group without metrics",
				logger.Int64("group_id", grp.ID),
				logger.String("group", grp.Name),
			)
			continue
		}
		out = append(out, agg)
	}
	return out
}
