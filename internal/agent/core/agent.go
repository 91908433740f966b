package core

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

var agentTracer trace.Tracer = otel.Tracer("axiom/internal/agent/loop")

const (
	agentSearchResults = 4
	// FallbackAnswer is the answer when the step budget runs out.
	FallbackAnswer = "I could not complete the research in time."
)

// LoopResult is what the autonomous loop hands back to its strategy.
type LoopResult struct {
	Answer    string
	Sources   []SearchResult
	Steps     int
	Completed bool
}

// AgentLoop drives think/act iterations until an answer or the step budget.
type AgentLoop struct {
	gen       provider.Generator
	search    Searcher
	fetch     PageFetcher
	emitter   *Emitter
	cfg       config.AgentConfig
	focus     models.FocusMode
	limiter   *rate.Limiter
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

func NewAgentLoop(gen provider.Generator, search Searcher, fetch PageFetcher, emitter *Emitter, cfg config.AgentConfig, focus models.FocusMode, tel *telemetry.Telemetry, logger *zap.Logger) *AgentLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.Normalize()
	// Writing mode has no meaning for an agent that must search.
	if focus == models.FocusWriting || focus == "" {
		focus = models.FocusWeb
	}
	limit := rate.Inf
	if cfg.StepInterval > 0 {
		limit = rate.Every(cfg.StepInterval)
	}
	lim := rate.NewLimiter(limit, 1)
	// drain the initial token so the first think also waits a full interval
	lim.Allow()
	return &AgentLoop{
		gen:       gen,
		search:    search,
		fetch:     fetch,
		emitter:   emitter,
		cfg:       cfg,
		focus:     focus,
		limiter:   lim,
		telemetry: tel,
		logger:    logger.Named("agent"),
	}
}

// Run executes at most cfg.MaxSteps iterations. The suggested plan is shown to the model
// on the first iteration only. An error means the context ended or the stream is gone.
func (l *AgentLoop) Run(ctx context.Context, query string, plan []PlanStep) (LoopResult, error) {
	evidence := NewEvidence()
	var history []string
	executed := make(map[string]bool)
	hint := ""
	if len(plan) > 0 {
		hint = planHint(plan)
	}

	for step := 1; step <= l.cfg.MaxSteps; step++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return LoopResult{}, err
		}

		entries := history
		if step == 1 && hint != "" {
			entries = append([]string{hint}, history...)
		}
		action, ok, err := l.think(ctx, query, strings.Join(entries, "\n"), step)
		if err != nil {
			return LoopResult{}, err
		}
		if !ok {
			l.telemetry.RecordParseFailure("action")
			history = append(history, fmt.Sprintf("Step %d: Invalid action generated.", step))
			continue
		}

		if err := l.emitter.Emit(EventAgentAction, AgentActionData{Step: step, Action: action}); err != nil {
			return LoopResult{}, err
		}
		l.telemetry.RecordAgentAction(string(action.Kind))

		if l.cfg.BlockRepeatedActions && action.Kind != ActionAnswer {
			if executed[action.key()] {
				history = append(history, fmt.Sprintf("Step %d: Skipped repeated %s. It was already done; change your approach.", step, action.Kind))
				continue
			}
			executed[action.key()] = true
		}

		switch action.Kind {
		case ActionSearch:
			history = append(history, l.actSearch(ctx, step, action.Query, evidence))
		case ActionVisit:
			history = append(history, l.actVisit(ctx, step, action.URL))
		case ActionAnswer:
			return LoopResult{Answer: action.Text, Sources: evidence.Sources(), Steps: step, Completed: true}, nil
		}
		if err := ctx.Err(); err != nil {
			return LoopResult{}, err
		}
	}

	l.logger.Info("step budget exhausted", zap.Int("max_steps", l.cfg.MaxSteps))
	return LoopResult{Answer: FallbackAnswer, Sources: evidence.Sources(), Steps: l.cfg.MaxSteps}, nil
}

// think asks for the next action, retrying unparseable replies with a corrective note.
func (l *AgentLoop) think(ctx context.Context, query, history string, step int) (AgentAction, bool, error) {
	ctx, span := agentTracer.Start(ctx, "agent.think", trace.WithAttributes(attribute.Int("agent.step", step)))
	defer span.End()

	prompt := agentPrompt(query, history, l.cfg.MaxSteps)
	for attempt := 0; attempt <= l.cfg.ThinkRetries; attempt++ {
		p := prompt
		if attempt > 0 {
			p += thinkRetryNote
		}
		resp, err := l.gen.Complete(ctx, provider.Request{
			Tier:     provider.Powerful,
			Messages: provider.SystemAndUser("", p),
			JSON:     true,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return AgentAction{}, false, ctxErr
			}
			l.logger.Warn("think failed", zap.Int("step", step), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if parsed := ParseAction(resp); parsed.OK {
			span.SetAttributes(attribute.String("agent.action", string(parsed.Value.Kind)), attribute.Int("agent.attempts", attempt+1))
			return parsed.Value, true, nil
		}
		l.logger.Debug("unparseable action", zap.Int("step", step), zap.Int("attempt", attempt))
	}
	return AgentAction{}, false, nil
}

func (l *AgentLoop) actSearch(ctx context.Context, step int, q string, evidence *Evidence) string {
	res := l.search.Search(ctx, q, agentSearchResults, l.focus)
	results := res.Results
	if len(results) > agentSearchResults {
		results = results[:agentSearchResults]
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("[%s](%s): %s", r.Title, r.URL, r.Content))
	}
	evidence.AddSources(results...)
	return fmt.Sprintf("Step %d: Searched for %q. Found:\n%s", step, q, strings.Join(lines, "\n"))
}

func (l *AgentLoop) actVisit(ctx context.Context, step int, url string) string {
	text := truncateRunes(l.fetch.FetchText(ctx, url), l.cfg.VisitMaxChars)
	return fmt.Sprintf("Step %d: Visited %s. Content:\n%s...", step, url, text)
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// typingChunks splits text before every comma, period and whitespace so the concatenation
// of the chunks is exactly text.
func typingChunks(text string) []string {
	var chunks []string
	start := 0
	for i, r := range text {
		if i > start && (r == ',' || r == '.' || r == ' ' || r == '\n' || r == '\t' || r == '\r') {
			chunks = append(chunks, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}
