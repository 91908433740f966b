package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mohammad-safakhou/axiom/internal/agent/telemetry"
)

// EventKind is the closed set of stream event kinds. Clients ignore kinds they do not know.
type EventKind string

const (
	EventBegin          EventKind = "begin"
	EventSearchResults  EventKind = "search-results"
	EventTextChunk      EventKind = "text-chunk"
	EventFinalResponse  EventKind = "final-response"
	EventRelatedQueries EventKind = "related-queries"
	EventPlan           EventKind = "plan"
	EventStepQueries    EventKind = "step-queries"
	EventStepResults    EventKind = "step-results"
	EventAgentAction    EventKind = "agent-action"
	EventError          EventKind = "error"
	EventEnd            EventKind = "end"
)

// Terminal reports whether the kind closes a session.
func (k EventKind) Terminal() bool { return k == EventError || k == EventEnd }

// Event is one record of the stream.
type Event struct {
	Kind EventKind `json:"event"`
	Data any       `json:"data"`
}

type BeginData struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Strategy  string `json:"strategy"`
}

type SearchResultsData struct {
	Results []SearchResult `json:"results"`
	Images  []string       `json:"images"`
}

type TextChunkData struct {
	Text string `json:"text"`
}

type FinalResponseData struct {
	Response string `json:"response"`
}

type RelatedQueriesData struct {
	RelatedQueries []string `json:"related_queries"`
}

type PlanData struct {
	Steps []string `json:"steps"`
}

type StepQueriesData struct {
	StepNumber int      `json:"step_number"`
	Queries    []string `json:"queries"`
}

type StepResultsData struct {
	StepNumber int            `json:"step_number"`
	Results    []SearchResult `json:"results"`
}

type AgentActionData struct {
	Step   int         `json:"step"`
	Action AgentAction `json:"action"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type EndData struct {
	ThreadID  int64  `json:"thread_id"`
	SessionID string `json:"session_id"`
}

// Sink receives events in order. A Sink error means the consumer is gone.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Send(ev Event) error { return f(ev) }

// ErrTerminated is returned for any emit after the terminal event.
var ErrTerminated = errors.New("session already terminated")

// Emitter is the single path events take out of a session. It guarantees that exactly one
// terminal event is delivered and nothing follows it.
type Emitter struct {
	mu         sync.Mutex
	sink       Sink
	terminated bool
	sinkErr    error
	telemetry  *telemetry.Telemetry
}

func NewEmitter(sink Sink, tel *telemetry.Telemetry) *Emitter {
	return &Emitter{sink: sink, telemetry: tel}
}

// Emit delivers ev. Once the sink has failed every later call returns that error, which
// is how a disconnected client stops further upstream work.
func (e *Emitter) Emit(kind EventKind, data any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return ErrTerminated
	}
	if kind.Terminal() {
		e.terminated = true
	}
	if e.sinkErr != nil {
		return e.sinkErr
	}
	if err := e.sink.Send(Event{Kind: kind, Data: data}); err != nil {
		e.sinkErr = fmt.Errorf("emit %s: %w", kind, err)
		return e.sinkErr
	}
	e.telemetry.RecordEvent(string(kind))
	return nil
}

// Terminated reports whether a terminal event was emitted.
func (e *Emitter) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

// Err returns the first sink failure, if any.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sinkErr
}

func (e *Emitter) TextChunk(text string) error {
	return e.Emit(EventTextChunk, TextChunkData{Text: text})
}

func (e *Emitter) SearchResults(results []SearchResult, images []string) error {
	if results == nil {
		results = []SearchResult{}
	}
	if images == nil {
		images = []string{}
	}
	return e.Emit(EventSearchResults, SearchResultsData{Results: results, Images: images})
}

func (e *Emitter) Error(msg string) error {
	return e.Emit(EventError, ErrorData{Message: msg})
}

// WriteEvent frames ev for the wire: "event: <kind>\ndata: <json>\n\n".
func WriteEvent(w io.Writer, ev Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
		return err
	}
	return nil
}
