package web_ingest

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/axiom/tools/web_ingest/models"
)

func TestIngestChunksLongDocuments(t *testing.T) {
	idx, err := NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	docs := []models.DocInput{{
		URL:   "https://example.com",
		Title: "Test Title",
		Text:  strings.Repeat("lorem ipsum ", 200), // 2400 runes
	}}
	resp, err := idx.Ingest(docs)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if resp.Chunks != 3 || resp.IndexedBM != 3 {
		t.Fatalf("expected 3 chunks, got %d", resp.Chunks)
	}
	if again, _ := idx.Ingest(docs); again.Chunks != 0 {
		t.Fatalf("expected identical text to be skipped, got %d chunks", again.Chunks)
	}
}

func TestIngestEmptyDocs(t *testing.T) {
	idx, _ := NewIndex()
	defer idx.Close()
	if _, err := idx.Ingest(nil); err == nil {
		t.Error("Expected error for empty docs")
	}
	resp, err := idx.Ingest([]models.DocInput{{URL: "u", Text: "   "}})
	if err != nil || resp.Chunks != 0 {
		t.Fatalf("blank text should be skipped: %+v %v", resp, err)
	}
}

func TestSearchRanksRelevantChunks(t *testing.T) {
	idx, _ := NewIndex()
	defer idx.Close()
	_, err := idx.Ingest([]models.DocInput{
		{URL: "https://a", Title: "Gophers", Text: "The gopher is the mascot of the Go language."},
		{URL: "https://b", Title: "Rust", Text: "Ferris the crab represents Rust."},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	hits, err := idx.Search("gopher mascot", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].URL != "https://a" {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 indexed chunks, got %d", idx.Len())
	}
}

func TestMakeChunksOverlap(t *testing.T) {
	chunks := makeChunks(strings.Repeat("a", 25), 10, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks[:2] {
		if len([]rune(c)) != 10 {
			t.Fatalf("expected 10-rune chunk, got %d", len(c))
		}
	}
}
