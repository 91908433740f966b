package core

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
	"github.com/mohammad-safakhou/axiom/provider"
)

// gate serializes the generation calls of one session and bounds each of them.
type gate struct {
	mu            sync.Mutex
	gen           provider.Generator
	timeout       time.Duration
	streamTimeout time.Duration
	telemetry     *telemetry.Telemetry
}

func newGate(gen provider.Generator, timeout, streamTimeout time.Duration, tel *telemetry.Telemetry) *gate {
	return &gate{gen: gen, timeout: timeout, streamTimeout: streamTimeout, telemetry: tel}
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (g *gate) Complete(ctx context.Context, req provider.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	callCtx, cancel := bounded(ctx, g.timeout)
	defer cancel()
	start := time.Now()
	out, err := g.gen.Complete(callCtx, req)
	g.telemetry.RecordLLM(ctx, telemetry.LLMEvent{Tier: string(req.Tier), Mode: "complete", Duration: time.Since(start), Err: err})
	return out, err
}

func (g *gate) Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	callCtx, cancel := bounded(ctx, g.streamTimeout)
	defer cancel()
	start := time.Now()
	out, err := g.gen.Stream(callCtx, req, onDelta)
	g.telemetry.RecordLLM(ctx, telemetry.LLMEvent{Tier: string(req.Tier), Mode: "stream", Duration: time.Since(start), Err: err})
	return out, err
}
