package core

import (
	"context"

	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

// runBasic answers from one search: search-results, text-chunk*, final-response,
// related-queries.
func (s *session) runBasic(ctx context.Context) error {
	query := s.state.EffectiveQuery()
	var res models.Response
	// writing mode answers from the model alone and never touches retrieval
	if s.req.Mode.FocusMode != models.FocusWriting {
		res = s.search.Search(ctx, query, s.config.Research.BasicResults, s.req.Mode.FocusMode)
	}
	s.state.Evidence.AddSources(res.Results...)
	s.state.Evidence.AddImages(res.Images...)
	sources := s.state.Evidence.Sources()
	if err := s.emitter.SearchResults(sources, s.state.Evidence.Images()); err != nil {
		return err
	}

	tier := s.req.Model
	if tier == "" {
		tier = provider.Fast
	}
	if err := s.streamAnswer(ctx, tier, chatPrompt(query, FormatContext(sources))); err != nil {
		return err
	}
	return s.finish(ctx)
}
