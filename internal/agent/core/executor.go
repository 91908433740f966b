package core

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

var executorTracer trace.Tracer = otel.Tracer("axiom/internal/agent/executor")

// Executor runs plan steps: query generation, parallel retrieval and context formatting.
type Executor struct {
	queries         *QueryGenerator
	search          Searcher
	emitter         *Emitter
	focus           models.FocusMode
	maxQueries      int
	resultsPerQuery int
	logger          *zap.Logger
}

func NewExecutor(queries *QueryGenerator, search Searcher, emitter *Emitter, focus models.FocusMode, maxQueries, resultsPerQuery int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxQueries <= 0 {
		maxQueries = 4
	}
	if resultsPerQuery <= 0 {
		resultsPerQuery = 4
	}
	return &Executor{
		queries:         queries,
		search:          search,
		emitter:         emitter,
		focus:           focus,
		maxQueries:      maxQueries,
		resultsPerQuery: resultsPerQuery,
		logger:          logger.Named("executor"),
	}
}

// Execute runs one step. It emits step-queries then step-results; an error means the
// stream is gone or the context ended.
func (x *Executor) Execute(ctx context.Context, userQuery string, step PlanStep, depContext string) (StepResult, error) {
	ctx, span := executorTracer.Start(ctx, "research.step",
		trace.WithAttributes(
			attribute.Int("step.id", step.ID),
			attribute.Int("step.dependencies", len(step.Dependencies)),
		))
	defer span.End()

	queries := x.queries.QueriesFor(ctx, userQuery, depContext, step.Description)
	if len(queries) > x.maxQueries {
		queries = queries[:x.maxQueries]
	}
	if err := x.emitter.Emit(EventStepQueries, StepQueriesData{StepNumber: step.ID, Queries: queries}); err != nil {
		return StepResult{}, err
	}

	responses := x.retrieve(ctx, queries)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepResult{}, err
	}

	res := StepResult{StepID: step.ID, GeneratedQueries: queries, Sources: []SearchResult{}, Images: []string{}}
	for _, r := range responses {
		res.Sources = append(res.Sources, r.Results...)
		res.Images = append(res.Images, r.Images...)
	}
	res.ContextText = FormatContext(res.Sources)
	span.SetAttributes(attribute.Int("step.sources", len(res.Sources)))

	if err := x.emitter.Emit(EventStepResults, StepResultsData{StepNumber: step.ID, Results: res.Sources}); err != nil {
		return StepResult{}, err
	}
	x.logger.Debug("step executed", zap.Int("step", step.ID), zap.Int("queries", len(queries)), zap.Int("sources", len(res.Sources)))
	return res, nil
}

// retrieve searches every query concurrently. Slot i holds the response of queries[i], so
// merging keeps call order.
func (x *Executor) retrieve(ctx context.Context, queries []string) []models.Response {
	out := make([]models.Response, len(queries))
	if x.focus == models.FocusWriting {
		return out
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.maxQueries)
	for i, q := range queries {
		g.Go(func() error {
			out[i] = x.search.Search(gctx, q, x.resultsPerQuery, x.focus)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Run executes steps in dependency order. Steps whose dependencies are all done form a
// wave and run concurrently; a wave with nothing ready means the plan is broken.
func (x *Executor) Run(ctx context.Context, userQuery string, steps []PlanStep) (map[int]StepResult, error) {
	byID := make(map[int]PlanStep, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}
	var mu sync.Mutex
	results := make(map[int]StepResult, len(steps))
	executed := make(map[int]bool, len(steps))

	for len(executed) < len(steps) {
		var ready []PlanStep
		for _, s := range steps {
			if executed[s.ID] {
				continue
			}
			ok := true
			for _, dep := range s.Dependencies {
				if _, known := byID[dep]; known && !executed[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, s)
			}
		}
		if len(ready) == 0 {
			return results, fmt.Errorf("circular dependency detected or missing steps")
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range ready {
			mu.Lock()
			depCtx := dependencyContext(s.Dependencies, byID, results, "\n")
			mu.Unlock()
			g.Go(func() error {
				res, err := x.Execute(gctx, userQuery, s, depCtx)
				if err != nil {
					return fmt.Errorf("step %d: %w", s.ID, err)
				}
				mu.Lock()
				results[s.ID] = res
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
		for _, s := range ready {
			executed[s.ID] = true
		}
	}
	return results, nil
}
