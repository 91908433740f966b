package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/provider"
)

func TestStreamReadsNDJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama","message":{"role":"assistant","content":"Hi"},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"llama","message":{"role":"assistant","content":" there"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	gen, err := New(config.LLMConfig{BaseURL: srv.URL, Models: config.LLMModels{Fast: "llama", Powerful: "big"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var deltas []string
	full, err := gen.Stream(context.Background(), provider.Request{
		Tier:     provider.Powerful,
		Messages: provider.SystemAndUser("sys", "hello"),
		JSON:     true,
	}, func(s string) error {
		deltas = append(deltas, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if full != "Hi there" || len(deltas) != 2 {
		t.Fatalf("unexpected stream result %q %v", full, deltas)
	}
	if got["model"] != "big" {
		t.Fatalf("expected powerful model, got %v", got["model"])
	}
	if got["format"] != "json" {
		t.Fatalf("expected json format, got %v", got["format"])
	}
}
