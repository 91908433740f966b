package core

import (
	"context"

	"go.uber.org/zap"
)

// runAgentic lets the autonomous loop research freely. A plan is built first and given
// to the loop as a hint; failing to build one is not an error here.
func (s *session) runAgentic(ctx context.Context) error {
	query := s.state.EffectiveQuery()
	plan := s.planner.Build(ctx, query)
	if len(plan) > 0 {
		if err := s.emitter.Emit(EventPlan, PlanData{Steps: planLines(plan)}); err != nil {
			return err
		}
	}

	loop := NewAgentLoop(s.gen, s.search, s.fetch, s.emitter, s.config.Agent, s.req.Mode.FocusMode, s.telemetry, s.logger)
	res, err := loop.Run(ctx, query, plan)
	if err != nil {
		return err
	}
	s.logger.Debug("agent loop finished", zap.Int("steps", res.Steps), zap.Bool("answered", res.Completed))

	s.state.Evidence.AddSources(res.Sources...)
	if err := s.emitter.SearchResults(s.state.Evidence.Sources(), s.state.Evidence.Images()); err != nil {
		return err
	}
	for _, chunk := range typingChunks(res.Answer) {
		s.state.ResponseText.WriteString(chunk)
		if err := s.emitter.TextChunk(chunk); err != nil {
			return err
		}
	}
	return s.finish(ctx)
}
