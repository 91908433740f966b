package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_ingest"
	ingestmodels "github.com/mohammad-safakhou/axiom/tools/web_ingest/models"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

const deepReportTask = "Write a comprehensive report that answers the query using the passages above."

// runDeep reads the top pages instead of relying on snippets: search, fetch, chunk and
// index the pages, then report from the best matching passages.
func (s *session) runDeep(ctx context.Context) error {
	query := s.state.EffectiveQuery()
	var res models.Response
	if s.req.Mode.FocusMode != models.FocusWriting {
		res = s.search.Search(ctx, query, s.config.Research.BasicResults, s.req.Mode.FocusMode)
	}
	s.state.Evidence.AddSources(res.Results...)
	s.state.Evidence.AddImages(res.Images...)
	sources := s.state.Evidence.Sources()
	if err := s.emitter.SearchResults(sources, s.state.Evidence.Images()); err != nil {
		return err
	}

	passages, err := s.readPages(ctx, query, sources)
	if err != nil {
		return err
	}
	evidenceText := FormatContext(sources)
	if passages != "" {
		evidenceText = passages
	}
	if err := s.streamAnswer(ctx, provider.Powerful, reportPrompt(query, evidenceText, deepReportTask)); err != nil {
		return err
	}
	return s.finish(ctx)
}

// readPages fetches up to DeepPages sources concurrently and returns the best passages,
// numbered by their source position so citations line up with search-results. It
// returns "" when nothing could be read.
func (s *session) readPages(ctx context.Context, query string, sources []SearchResult) (string, error) {
	n := min(s.config.Research.DeepPages, len(sources))
	if n == 0 {
		return "", nil
	}
	docs := make([]ingestmodels.DocInput, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			src := sources[i]
			docs[i] = ingestmodels.DocInput{URL: src.URL, Title: src.Title, Text: s.fetch.FetchText(gctx, src.URL)}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	index, err := web_ingest.NewIndex()
	if err != nil {
		s.logger.Warn("create passage index failed", zap.Error(err))
		return "", nil
	}
	defer index.Close()
	if _, err := index.Ingest(docs); err != nil || index.Len() == 0 {
		s.logger.Debug("no readable pages", zap.Error(err))
		return "", nil
	}
	chunks, err := index.Search(query, s.config.Research.DeepChunks)
	if err != nil {
		s.logger.Warn("passage search failed", zap.Error(err))
		return "", nil
	}

	position := make(map[string]int, len(sources))
	for i, src := range sources {
		position[src.URL] = i + 1
	}
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("\n[%d]\nTitle: %s\nURL: %s\nPassage: %s\n", position[c.URL], c.Title, c.URL, c.Text))
	}
	s.logger.Debug("passages selected", zap.Int("pages", n), zap.Int("chunks", index.Len()), zap.Int("selected", len(blocks)))
	return strings.Join(blocks, "\n---\n"), nil
}
