package core

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/axiom/provider"
	"github.com/mohammad-safakhou/axiom/tools/web_search/models"
)

// SearchResult is a retrieved document; URL is the deduplication key.
type SearchResult = models.Result

// PlanStep is one node of a research plan. Dependencies reference only smaller ids.
type PlanStep struct {
	ID           int    `json:"id"`
	Description  string `json:"step"`
	Dependencies []int  `json:"dependencies"`
}

// StepResult is written once, when its step finishes.
type StepResult struct {
	StepID           int            `json:"step_id"`
	GeneratedQueries []string       `json:"generated_queries"`
	Sources          []SearchResult `json:"sources"`
	Images           []string       `json:"images"`
	ContextText      string         `json:"context_text"`
}

// Strategy is the closed set of execution strategies.
type Strategy int

const (
	StrategyBasic Strategy = iota
	StrategyExpert
	StrategyAgentic
	StrategyDeep
)

func (s Strategy) String() string {
	switch s {
	case StrategyBasic:
		return "basic"
	case StrategyExpert:
		return "expert"
	case StrategyAgentic:
		return "agentic"
	case StrategyDeep:
		return "deep"
	}
	return "unknown"
}

// ModeFlags select the strategy. At most one of Expert, Agentic and Deep may be set.
type ModeFlags struct {
	Expert    bool             `json:"expert"`
	Agentic   bool             `json:"agentic"`
	Deep      bool             `json:"deep"`
	FocusMode models.FocusMode `json:"focus_mode"`
}

// Strategy resolves the flags. ok is false when more than one strategy flag is set.
func (m ModeFlags) Strategy() (Strategy, bool) {
	n := 0
	s := StrategyBasic
	if m.Expert {
		n++
		s = StrategyExpert
	}
	if m.Agentic {
		n++
		s = StrategyAgentic
	}
	if m.Deep {
		n++
		s = StrategyDeep
	}
	return s, n <= 1
}

// HistoryMessage is one prior turn of the conversation.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is what the orchestrator runs. UserID is injected by the transport, never read
// from shared state.
type Request struct {
	Query     string           `json:"query"`
	History   []HistoryMessage `json:"history"`
	Mode      ModeFlags        `json:"mode_flags"`
	Model     provider.Tier    `json:"model"`
	ThreadID  *int64           `json:"thread_id,omitempty"`
	Persist   *bool            `json:"persist,omitempty"`
	UserID    string           `json:"-"`
	SessionID string           `json:"-"`
}

// ShouldPersist defaults to true when the caller did not say.
func (r Request) ShouldPersist() bool {
	return r.Persist == nil || *r.Persist
}

// ActionKind is the closed set of autonomous loop actions.
type ActionKind string

const (
	ActionSearch ActionKind = "search"
	ActionVisit  ActionKind = "visit"
	ActionAnswer ActionKind = "answer"
)

// AgentAction is one parsed decision of the loop. Only the field matching Kind is set.
type AgentAction struct {
	Kind  ActionKind `json:"action"`
	Query string     `json:"query,omitempty"`
	URL   string     `json:"url,omitempty"`
	Text  string     `json:"text,omitempty"`
}

// Valid reports whether the action is a known kind with its argument present.
func (a AgentAction) Valid() bool {
	switch a.Kind {
	case ActionSearch:
		return strings.TrimSpace(a.Query) != ""
	case ActionVisit:
		return strings.TrimSpace(a.URL) != ""
	case ActionAnswer:
		return strings.TrimSpace(a.Text) != ""
	}
	return false
}

// key identifies an action for the repeated-action guard.
func (a AgentAction) key() string {
	switch a.Kind {
	case ActionSearch:
		return "search:" + strings.ToLower(strings.TrimSpace(a.Query))
	case ActionVisit:
		return "visit:" + strings.TrimSpace(a.URL)
	}
	return string(a.Kind)
}

// SessionState belongs to one streamed response and has a single writer.
type SessionState struct {
	Query          string
	RewrittenQuery string
	History        []HistoryMessage
	Evidence       *Evidence
	ResponseText   strings.Builder
}

// EffectiveQuery is the rewritten query when one exists.
func (s *SessionState) EffectiveQuery() string {
	if s.RewrittenQuery != "" {
		return s.RewrittenQuery
	}
	return s.Query
}

// Searcher is the retrieval collaborator. It never fails.
type Searcher interface {
	Search(ctx context.Context, q string, max int, mode models.FocusMode) models.Response
}

// PageFetcher is the page fetch collaborator. It returns "" on any failure.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) string
}

// ChatRecord is what gets persisted once per session.
type ChatRecord struct {
	UserID   string
	ThreadID *int64
	Query    string
	Answer   string
	Sources  []SearchResult
	Images   []string
}

// Persister stores a finished exchange and returns its thread id.
type Persister interface {
	SaveChat(ctx context.Context, rec ChatRecord) (int64, error)
}

// NotPersisted is the thread id reported when nothing was saved.
const NotPersisted int64 = -1
