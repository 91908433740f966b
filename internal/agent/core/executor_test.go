package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

func TestExecuteMergesInCallOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gen := newStubGen(map[string][]string{"queries": {`["q1", "q2", "q3"]`}}, "")
	search := &stubSearch{
		results: map[string][]SearchResult{
			"q1": {result("https://a"), result("https://b")},
			"q2": {result("https://b")},
			"q3": {result("https://c")},
		},
		images: map[string][]string{"q1": {"img1"}, "q3": {"img1"}},
		// later queries answer first; the merge must not care
		delay: 5 * time.Millisecond,
	}
	rec := &recorder{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(rec, nil), models.FocusWeb, 4, 4, nil)

	res, err := x.Execute(context.Background(), "user query", PlanStep{ID: 0, Description: "step"}, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	urls := make([]string, 0, len(res.Sources))
	for _, s := range res.Sources {
		urls = append(urls, s.URL)
	}
	if diff := cmp.Diff([]string{"https://a", "https://b", "https://b", "https://c"}, urls); diff != "" {
		t.Fatalf("sources must keep call order without dedup (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"img1", "img1"}, res.Images); diff != "" {
		t.Fatalf("unexpected images (-want +got):\n%s", diff)
	}
	if res.ContextText != FormatContext(res.Sources) {
		t.Fatalf("context text must be the formatted sources")
	}
	if diff := cmp.Diff([]EventKind{EventStepQueries, EventStepResults}, rec.kinds()); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestExecuteFallsBackToUserQuery(t *testing.T) {
	gen := newStubGen(map[string][]string{"queries": {"no list at all"}}, "")
	search := &stubSearch{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(&recorder{}, nil), models.FocusWeb, 4, 4, nil)
	res, err := x.Execute(context.Background(), "user query", PlanStep{ID: 0, Description: "step"}, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff([]string{"user query"}, res.GeneratedQueries); diff != "" {
		t.Fatalf("expected fallback query (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"user query"}, search.calls()); diff != "" {
		t.Fatalf("unexpected searches (-want +got):\n%s", diff)
	}
}

func TestExecuteCapsQueries(t *testing.T) {
	gen := newStubGen(map[string][]string{"queries": {`["a", "b", "c", "d", "e", "f"]`}}, "")
	search := &stubSearch{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(&recorder{}, nil), models.FocusWeb, 4, 4, nil)
	if _, err := x.Execute(context.Background(), "q", PlanStep{ID: 0, Description: "s"}, ""); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n := len(search.calls()); n != 4 {
		t.Fatalf("expected 4 searches, got %d", n)
	}
}

func TestRunRespectsDependencies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gen := newStubGen(map[string][]string{"queries": {`["q"]`}}, "")
	search := &stubSearch{results: map[string][]SearchResult{"q": {result("https://a")}}}
	rec := &recorder{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(rec, nil), models.FocusWeb, 4, 4, nil)
	steps := []PlanStep{
		{ID: 0, Description: "first", Dependencies: []int{}},
		{ID: 1, Description: "second", Dependencies: []int{}},
		{ID: 2, Description: "third", Dependencies: []int{0, 1}},
	}
	results, err := x.Run(context.Background(), "q", steps)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// step 2 generated its queries with the context of both dependencies, in id order
	prompts := gen.calls("queries")
	var third string
	for _, p := range prompts {
		if strings.Contains(p, "Current step to execute: third") {
			third = p
		}
	}
	i0 := strings.Index(third, "Step: first")
	i1 := strings.Index(third, "Step: second")
	if i0 < 0 || i1 < 0 || i0 > i1 {
		t.Fatalf("expected dependency context for first then second, got:\n%s", third)
	}

	// step 2 results only after both dependencies finished
	seen := map[int]bool{}
	for _, ev := range rec.ofKind(EventStepResults) {
		n := ev.Data.(StepResultsData).StepNumber
		if n == 2 && (!seen[0] || !seen[1]) {
			t.Fatalf("step 2 finished before its dependencies")
		}
		seen[n] = true
	}
}

func TestWritingModeSkipsRetrieval(t *testing.T) {
	gen := newStubGen(map[string][]string{"queries": {`["q"]`}}, "")
	search := &stubSearch{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(&recorder{}, nil), models.FocusWriting, 4, 4, nil)
	res, err := x.Execute(context.Background(), "q", PlanStep{ID: 0, Description: "s"}, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(search.calls()) != 0 || len(res.Sources) != 0 {
		t.Fatalf("expected no retrieval in writing mode")
	}
}

func TestExecuteStopsWhenSinkFails(t *testing.T) {
	gen := newStubGen(map[string][]string{"queries": {`["q"]`}}, "")
	search := &stubSearch{}
	x := NewExecutor(NewQueryGenerator(gen, 4, 3, nil, nil), search, NewEmitter(&recorder{failAt: 1}, nil), models.FocusWeb, 4, 4, nil)
	if _, err := x.Execute(context.Background(), "q", PlanStep{ID: 0, Description: "s"}, ""); err == nil {
		t.Fatalf("expected error from failed sink")
	}
	if len(search.calls()) != 0 {
		t.Fatalf("expected no retrieval after the client went away")
	}
}
