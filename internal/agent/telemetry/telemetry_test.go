package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammad-safakhou/axiom/config"
)

func TestRecordersUpdateCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := NewTelemetry(reg)

	tel.RecordSession(context.Background(), SessionEvent{Strategy: "basic", Outcome: "end", Duration: time.Second})
	tel.RecordLLM(context.Background(), LLMEvent{Tier: "fast", Mode: "stream", Err: errors.New("x")})
	tel.RecordSearch("serper", 10*time.Millisecond, nil)
	tel.RecordAgentAction("search")
	tel.RecordAgentAction("search")
	tel.RecordParseFailure("plan")
	tel.RecordEvent("text-chunk")

	if got := testutil.ToFloat64(tel.sessions.WithLabelValues("basic", "end")); got != 1 {
		t.Fatalf("expected 1 session, got %v", got)
	}
	if got := testutil.ToFloat64(tel.llmCalls.WithLabelValues("fast", "stream", "error")); got != 1 {
		t.Fatalf("expected 1 failed llm call, got %v", got)
	}
	if got := testutil.ToFloat64(tel.searchCalls.WithLabelValues("serper", "ok")); got != 1 {
		t.Fatalf("expected 1 search call, got %v", got)
	}
	if got := testutil.ToFloat64(tel.agentActions.WithLabelValues("search")); got != 2 {
		t.Fatalf("expected 2 agent actions, got %v", got)
	}
}

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *Telemetry
	tel.RecordSession(context.Background(), SessionEvent{})
	tel.RecordLLM(context.Background(), LLMEvent{})
	tel.RecordSearch("x", 0, nil)
	tel.RecordAgentAction("answer")
	tel.RecordParseFailure("action")
	tel.RecordEvent("end")
}

func TestSetupTracingDisabled(t *testing.T) {
	tr, err := SetupTracing(context.Background(), config.TelemetryConfig{}, "test")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
