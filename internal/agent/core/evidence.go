package core

import (
	"fmt"
	"sort"
	"strings"
)

// FormatContext renders sources as the numbered context block given to generation calls.
// The output depends only on the input order and contents.
func FormatContext(results []SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("\n[%d]\nTitle: %s\nURL: %s\nSummary: %s\n", i+1, r.Title, r.URL, r.Content))
	}
	return strings.Join(blocks, "\n---\n")
}

// dependencyContext joins the context of each dependency in ascending id order, skipping
// dependencies that produced nothing.
func dependencyContext(deps []int, steps map[int]PlanStep, results map[int]StepResult, sep string) string {
	parts := make([]string, 0, len(deps))
	for _, id := range sortedCopy(deps) {
		res, ok := results[id]
		if !ok || res.ContextText == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Step: %s\nContext: %s", steps[id].Description, res.ContextText))
	}
	return strings.Join(parts, sep)
}

func sortedCopy(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}

// Evidence accumulates the sources and images of a session, deduplicated in first-seen
// order. Sources are keyed by URL; sources without one are dropped.
type Evidence struct {
	sources    []SearchResult
	images     []string
	seenURL    map[string]bool
	seenImages map[string]bool
}

func NewEvidence() *Evidence {
	return &Evidence{
		sources:    []SearchResult{},
		images:     []string{},
		seenURL:    make(map[string]bool),
		seenImages: make(map[string]bool),
	}
}

func (e *Evidence) AddSources(results ...SearchResult) {
	for _, r := range results {
		key := strings.TrimSpace(r.URL)
		if key == "" || e.seenURL[key] {
			continue
		}
		e.seenURL[key] = true
		e.sources = append(e.sources, r)
	}
}

func (e *Evidence) AddImages(images ...string) {
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" || e.seenImages[img] {
			continue
		}
		e.seenImages[img] = true
		e.images = append(e.images, img)
	}
}

// Sources returns a copy of the accumulated sources.
func (e *Evidence) Sources() []SearchResult {
	return append([]SearchResult{}, e.sources...)
}

// Images returns a copy of the accumulated images.
func (e *Evidence) Images() []string {
	return append([]string{}, e.images...)
}
