package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
)

// QueryGenerator turns a step into search queries and an answer into follow-up questions.
type QueryGenerator struct {
	gen        provider.Generator
	maxQueries int
	maxRelated int
	telemetry  *telemetry.Telemetry
	logger     *zap.Logger
}

func NewQueryGenerator(gen provider.Generator, maxQueries, maxRelated int, tel *telemetry.Telemetry, logger *zap.Logger) *QueryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxQueries <= 0 {
		maxQueries = 4
	}
	if maxRelated <= 0 {
		maxRelated = 3
	}
	return &QueryGenerator{gen: gen, maxQueries: maxQueries, maxRelated: maxRelated, telemetry: tel, logger: logger.Named("queries")}
}

// QueriesFor never returns an empty list: on any failure the user query is searched as is.
func (g *QueryGenerator) QueriesFor(ctx context.Context, userQuery, priorContext, step string) []string {
	fallback := []string{userQuery}
	resp, err := g.gen.Complete(ctx, provider.Request{
		Tier:     provider.Fast,
		Messages: provider.SystemAndUser("", searchQueriesPrompt(userQuery, priorContext, step, g.maxQueries)),
	})
	if err != nil {
		g.logger.Warn("query generation failed", zap.Error(err))
		return fallback
	}
	parsed := ParseList(resp)
	if !parsed.OK || len(parsed.Value) == 0 {
		g.telemetry.RecordParseFailure("queries")
		return fallback
	}
	return dedupeStrings(parsed.Value, g.maxQueries)
}

// RelatedQuestions returns at most maxRelated follow-ups, or an empty list.
func (g *QueryGenerator) RelatedQuestions(ctx context.Context, query, answer string) []string {
	resp, err := g.gen.Complete(ctx, provider.Request{
		Tier:     provider.Fast,
		Messages: provider.SystemAndUser("", relatedQuestionsPrompt(query, answer, g.maxRelated)),
	})
	if err != nil {
		g.logger.Warn("related questions failed", zap.Error(err))
		return []string{}
	}
	parsed := ParseList(resp)
	if !parsed.OK {
		g.telemetry.RecordParseFailure("related")
		return []string{}
	}
	return dedupeStrings(parsed.Value, g.maxRelated)
}

// Rephrase condenses a follow-up into a standalone query; "" means keep the original.
func (g *QueryGenerator) Rephrase(ctx context.Context, history []HistoryMessage, query string) string {
	resp, err := g.gen.Complete(ctx, provider.Request{
		Tier:     provider.Fast,
		Messages: provider.SystemAndUser("", rephrasePrompt(history, query)),
	})
	if err != nil {
		g.logger.Warn("query rewrite failed", zap.Error(err))
		return ""
	}
	out := strings.Trim(strings.TrimSpace(resp), `"`)
	return strings.TrimSpace(out)
}

func dedupeStrings(in []string, max int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
