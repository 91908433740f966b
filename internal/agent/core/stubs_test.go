package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

// replyError makes stubGen fail a call instead of answering.
const replyError = "!error"

var promptMarkers = []struct {
	kind   string
	marker string
}{
	{"plan", "search task lists"},
	{"queries", "Generate a concise list of search queries"},
	{"related", "generate follow-up questions"},
	{"rewrite", "rephrase the follow up"},
	{"action", "autonomous research agent"},
}

// stubGen answers each prompt family from a queue; the last reply of a queue repeats.
type stubGen struct {
	mu          sync.Mutex
	replies     map[string][]string
	answer      string
	streamErr   error
	streamPanic string // panics after the first delta when set
	prompts     map[string][]string
	streams     []provider.Request
}

func newStubGen(replies map[string][]string, answer string) *stubGen {
	return &stubGen{replies: replies, answer: answer, prompts: make(map[string][]string)}
}

func (g *stubGen) Complete(ctx context.Context, req provider.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prompt := req.Messages[len(req.Messages)-1].Content
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range promptMarkers {
		if !strings.Contains(prompt, m.marker) {
			continue
		}
		g.prompts[m.kind] = append(g.prompts[m.kind], prompt)
		queue := g.replies[m.kind]
		if len(queue) == 0 {
			return "", errors.New("no reply for " + m.kind)
		}
		reply := queue[0]
		if len(queue) > 1 {
			g.replies[m.kind] = queue[1:]
		}
		if reply == replyError {
			return "", errors.New("upstream failure")
		}
		return reply, nil
	}
	return "", errors.New("unexpected prompt")
}

func (g *stubGen) Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (string, error) {
	g.mu.Lock()
	g.streams = append(g.streams, req)
	g.mu.Unlock()
	if g.streamErr != nil {
		return "", g.streamErr
	}
	var full strings.Builder
	for _, part := range strings.SplitAfter(g.answer, " ") {
		if part == "" {
			continue
		}
		full.WriteString(part)
		if err := onDelta(part); err != nil {
			return full.String(), err
		}
		if g.streamPanic != "" {
			panic(g.streamPanic)
		}
	}
	return full.String(), nil
}

func (g *stubGen) calls(kind string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts[kind]...)
}

// stubSearch serves canned results per query and records every call.
type stubSearch struct {
	mu      sync.Mutex
	results map[string][]SearchResult
	images  map[string][]string
	delay   time.Duration
	queries []string
	modes   []models.FocusMode
}

func (s *stubSearch) Search(ctx context.Context, q string, max int, mode models.FocusMode) models.Response {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.modes = append(s.modes, mode)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.Response{Results: []SearchResult{}, Images: []string{}}
		}
	}
	res := append([]SearchResult{}, s.results[q]...)
	if len(res) > max {
		res = res[:max]
	}
	return models.Response{Results: res, Images: append([]string{}, s.images[q]...)}
}

func (s *stubSearch) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type stubFetch struct {
	text string
	mu   sync.Mutex
	urls []string
}

func (f *stubFetch) FetchText(_ context.Context, url string) string {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.text
}

type stubStore struct {
	mu   sync.Mutex
	id   int64
	err  error
	recs []ChatRecord
}

func (s *stubStore) SaveChat(_ context.Context, rec ChatRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.id, s.err
}

// recorder is a Sink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
	failAt int // fail the nth Send (1-based); 0 never fails
}

func (r *recorder) Send(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt > 0 && len(r.events)+1 >= r.failAt {
		return errors.New("client disconnected")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) ofKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) count(kind EventKind) int { return len(r.ofKind(kind)) }

func testConfig() *config.Config {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: "ollama"}}
	cfg.Normalize()
	cfg.Agent.StepInterval = 0
	cfg.Agent.ThinkRetries = 2
	return cfg
}

func result(url string) SearchResult {
	return SearchResult{Title: "Title " + url, URL: url, Content: "About " + url}
}
