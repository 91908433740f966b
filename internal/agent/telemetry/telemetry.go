package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry records research session metrics. A nil *Telemetry is valid and records nothing,
// so components can be built without metrics in tests.
type Telemetry struct {
	sessions        *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	llmCalls        *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	searchCalls     *prometheus.CounterVec
	searchLatency   *prometheus.HistogramVec
	agentActions    *prometheus.CounterVec
	parseFailures   *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// SessionEvent describes one finished research session.
type SessionEvent struct {
	Strategy string
	Outcome  string // end, error, canceled
	Duration time.Duration
}

// LLMEvent describes one generation call.
type LLMEvent struct {
	Tier     string
	Mode     string // complete, stream
	Duration time.Duration
	Err      error
}

// NewTelemetry registers the collectors on reg. Passing nil uses the default registerer.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	t := &Telemetry{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "sessions_total", Help: "Research sessions by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "axiom", Name: "session_duration_seconds", Help: "Wall time of research sessions.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80, 160, 320},
		}, []string{"strategy"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "llm_calls_total", Help: "Generation calls by tier, mode and outcome.",
		}, []string{"tier", "mode", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "axiom", Name: "llm_call_duration_seconds", Help: "Generation call latency.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"tier", "mode"}),
		searchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "search_calls_total", Help: "Retrieval provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "axiom", Name: "search_call_duration_seconds", Help: "Retrieval provider latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		agentActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "agent_actions_total", Help: "Autonomous loop actions by kind.",
		}, []string{"kind"}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "parse_failures_total", Help: "Unparseable generation outputs by target.",
		}, []string{"target"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "axiom", Name: "events_total", Help: "Emitted stream events by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(t.sessions, t.sessionDuration, t.llmCalls, t.llmLatency, t.searchCalls,
		t.searchLatency, t.agentActions, t.parseFailures, t.events)
	return t
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (t *Telemetry) RecordSession(_ context.Context, ev SessionEvent) {
	if t == nil {
		return
	}
	t.sessions.WithLabelValues(ev.Strategy, ev.Outcome).Inc()
	t.sessionDuration.WithLabelValues(ev.Strategy).Observe(ev.Duration.Seconds())
}

func (t *Telemetry) RecordLLM(_ context.Context, ev LLMEvent) {
	if t == nil {
		return
	}
	t.llmCalls.WithLabelValues(ev.Tier, ev.Mode, outcome(ev.Err)).Inc()
	t.llmLatency.WithLabelValues(ev.Tier, ev.Mode).Observe(ev.Duration.Seconds())
}

// RecordSearch matches the retrieval service's observer signature.
func (t *Telemetry) RecordSearch(provider string, took time.Duration, err error) {
	if t == nil {
		return
	}
	t.searchCalls.WithLabelValues(provider, outcome(err)).Inc()
	t.searchLatency.WithLabelValues(provider).Observe(took.Seconds())
}

func (t *Telemetry) RecordAgentAction(kind string) {
	if t == nil {
		return
	}
	t.agentActions.WithLabelValues(kind).Inc()
}

func (t *Telemetry) RecordParseFailure(target string) {
	if t == nil {
		return
	}
	t.parseFailures.WithLabelValues(target).Inc()
}

func (t *Telemetry) RecordEvent(kind string) {
	if t == nil {
		return
	}
	t.events.WithLabelValues(kind).Inc()
}
