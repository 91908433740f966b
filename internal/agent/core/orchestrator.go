package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
)

var orchestratorTracer trace.Tracer = otel.Tracer("axiom/internal/agent/orchestrator")

var (
	ErrEmptyQuery       = errors.New("query is empty")
	ErrConflictingModes = errors.New("at most one of expert, agentic and deep may be set")
)

// Orchestrator turns a request into one event stream. It holds no per-session state; every
// Run builds its own session.
type Orchestrator struct {
	config    *config.Config
	gen       provider.Generator
	search    Searcher
	fetch     PageFetcher
	store     Persister
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// NewOrchestrator wires the collaborators. store may be nil, which disables persistence.
func NewOrchestrator(cfg *config.Config, gen provider.Generator, search Searcher, fetch PageFetcher, store Persister, tel *telemetry.Telemetry, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if gen == nil || search == nil || fetch == nil {
		return nil, errors.New("generator, searcher and page fetcher are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		config:    cfg,
		gen:       gen,
		search:    search,
		fetch:     fetch,
		store:     store,
		telemetry: tel,
		logger:    logger,
	}, nil
}

// session is everything one Run owns.
type session struct {
	id        string
	req       Request
	strategy  Strategy
	state     *SessionState
	gen       provider.Generator
	emitter   *Emitter
	planner   *Planner
	queries   *QueryGenerator
	search    Searcher
	fetch     PageFetcher
	config    *config.Config
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// Run executes req and delivers events to sink. Exactly one terminal event is sent unless
// the sink itself fails. The returned error is for logging; the client already saw it.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) error {
	start := time.Now()
	emitter := NewEmitter(sink, o.telemetry)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	req.Query = strings.TrimSpace(req.Query)
	logger := o.logger.Named("orch").With(zap.String("session_id", req.SessionID))

	strategy, ok := req.Mode.Strategy()
	switch {
	case req.Query == "":
		_ = emitter.Error(ErrEmptyQuery.Error())
		return ErrEmptyQuery
	case !ok:
		_ = emitter.Error(ErrConflictingModes.Error())
		return ErrConflictingModes
	}

	ctx, span := orchestratorTracer.Start(ctx, "research.session",
		trace.WithAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.String("session.strategy", strategy.String()),
		))
	defer span.End()

	gen := newGate(o.gen, o.config.LLM.Timeout, o.config.LLM.StreamTimeout, o.telemetry)
	s := &session{
		id:       req.SessionID,
		req:      req,
		strategy: strategy,
		state: &SessionState{
			Query:    req.Query,
			History:  req.History,
			Evidence: NewEvidence(),
		},
		gen:       gen,
		emitter:   emitter,
		planner:   NewPlanner(gen, o.config.Research.PlanMaxSteps, o.telemetry, logger),
		queries:   NewQueryGenerator(gen, o.config.Research.QueriesPerStep, o.config.Research.RelatedQuestions, o.telemetry, logger),
		search:    o.search,
		fetch:     o.fetch,
		config:    o.config,
		telemetry: o.telemetry,
		logger:    logger,
	}

	err := s.runRecovered(ctx)
	outcome := "end"
	switch {
	case err == nil:
		threadID := o.persist(ctx, s)
		err = emitter.Emit(EventEnd, EndData{ThreadID: threadID, SessionID: s.id})
		if err != nil {
			outcome = "canceled"
		}
	case emitter.Err() != nil || errors.Is(err, context.Canceled):
		// the client is gone; there is nobody to tell
		outcome = "canceled"
	default:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if emitErr := emitter.Error(err.Error()); emitErr != nil {
			logger.Debug("error event not delivered", zap.Error(emitErr))
		}
	}

	o.telemetry.RecordSession(ctx, telemetry.SessionEvent{Strategy: strategy.String(), Outcome: outcome, Duration: time.Since(start)})
	logger.Info("session finished",
		zap.String("strategy", strategy.String()),
		zap.String("outcome", outcome),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return err
}

// runRecovered turns a panic in a strategy into an error so the stream still terminates.
func (s *session) runRecovered(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return s.run(ctx)
}

func (s *session) run(ctx context.Context) error {
	if err := s.emitter.Emit(EventBegin, BeginData{Query: s.state.Query, SessionID: s.id, Strategy: s.strategy.String()}); err != nil {
		return err
	}
	if len(s.state.History) > 0 {
		if rewritten := s.queries.Rephrase(ctx, s.state.History, s.state.Query); rewritten != "" {
			s.state.RewrittenQuery = rewritten
			s.logger.Debug("query rewritten", zap.String("query", rewritten))
		}
	}

	switch s.strategy {
	case StrategyBasic:
		return s.runBasic(ctx)
	case StrategyExpert:
		return s.runExpert(ctx)
	case StrategyAgentic:
		return s.runAgentic(ctx)
	case StrategyDeep:
		return s.runDeep(ctx)
	}
	return fmt.Errorf("unknown strategy %d", s.strategy)
}

// persist saves the exchange at most once. A failure is logged and reported as
// NotPersisted; it never turns a finished session into an error.
func (o *Orchestrator) persist(ctx context.Context, s *session) int64 {
	if o.store == nil || !s.req.ShouldPersist() {
		return NotPersisted
	}
	id, err := o.store.SaveChat(ctx, ChatRecord{
		UserID:   s.req.UserID,
		ThreadID: s.req.ThreadID,
		Query:    s.state.Query,
		Answer:   s.state.ResponseText.String(),
		Sources:  s.state.Evidence.Sources(),
		Images:   s.state.Evidence.Images(),
	})
	if err != nil {
		s.logger.Warn("persist chat failed", zap.Error(err))
		return NotPersisted
	}
	return id
}

// streamAnswer streams a generation into text-chunk events and the response text.
func (s *session) streamAnswer(ctx context.Context, tier provider.Tier, prompt string) error {
	ctx, span := orchestratorTracer.Start(ctx, "research.synthesize", trace.WithAttributes(attribute.String("llm.tier", string(tier))))
	defer span.End()
	answer, err := s.gen.Stream(ctx, provider.Request{
		Tier:     tier,
		Messages: provider.SystemAndUser("", prompt),
	}, func(delta string) error {
		s.state.ResponseText.WriteString(delta)
		return s.emitter.TextChunk(delta)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.emitter.Err() != nil {
			return s.emitter.Err()
		}
		return fmt.Errorf("answer generation failed: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return errors.New("answer generation returned no text")
	}
	return nil
}

// finish emits the complete answer and the follow-up questions.
func (s *session) finish(ctx context.Context) error {
	answer := s.state.ResponseText.String()
	if err := s.emitter.Emit(EventFinalResponse, FinalResponseData{Response: answer}); err != nil {
		return err
	}
	related := s.queries.RelatedQuestions(ctx, s.state.EffectiveQuery(), answer)
	return s.emitter.Emit(EventRelatedQueries, RelatedQueriesData{RelatedQueries: related})
}
