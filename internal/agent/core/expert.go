package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/provider"
)

// runExpert builds a plan, executes every step but the last in dependency order, and
// streams a report for the last step from the combined context of its dependencies.
func (s *session) runExpert(ctx context.Context) error {
	query := s.state.EffectiveQuery()
	plan := s.planner.Build(ctx, query)
	if len(plan) == 0 {
		return ErrEmptyPlan
	}
	if err := s.emitter.Emit(EventPlan, PlanData{Steps: planLines(plan)}); err != nil {
		return err
	}

	final := plan[len(plan)-1]
	research := plan[:len(plan)-1]
	executor := NewExecutor(s.queries, s.search, s.emitter, s.req.Mode.FocusMode,
		s.config.Research.QueriesPerStep, s.config.Research.ResultsPerQuery, s.logger)
	results, err := executor.Run(ctx, query, research)
	if err != nil {
		return err
	}

	byID := make(map[int]PlanStep, len(plan))
	for _, st := range plan {
		byID[st.ID] = st
	}
	deps := final.Dependencies
	if len(deps) == 0 {
		// a synthesis step that names nothing synthesizes everything
		for _, st := range research {
			deps = append(deps, st.ID)
		}
	}
	for _, id := range sortedCopy(deps) {
		s.state.Evidence.AddSources(results[id].Sources...)
		s.state.Evidence.AddImages(results[id].Images...)
	}
	if err := s.emitter.SearchResults(s.state.Evidence.Sources(), s.state.Evidence.Images()); err != nil {
		return err
	}

	combined := dependencyContext(deps, byID, results, "\n\n")
	s.logger.Debug("synthesis context combined", zap.Int("steps", len(deps)), zap.Int("bytes", len(combined)))
	if err := s.streamAnswer(ctx, provider.Powerful, reportPrompt(query, combined, final.Description)); err != nil {
		return err
	}
	return s.finish(ctx)
}
