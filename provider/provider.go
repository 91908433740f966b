package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/axiom/config"
)

// Tier selects a model class. Concrete model names come from config.LLMModels.
type Tier string

const (
	Fast     Tier = "fast"
	Powerful Tier = "powerful"
	Hyper    Tier = "hyper"
)

// ParseTier maps a request value onto a tier; unknown values fall back to fast.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case Powerful:
		return Powerful
	case Hyper:
		return Hyper
	default:
		return Fast
	}
}

// Model resolves a tier to the configured model name.
func Model(models config.LLMModels, tier Tier) string {
	switch tier {
	case Powerful:
		return models.Powerful
	case Hyper:
		if models.Hyper != "" {
			return models.Hyper
		}
	}
	return models.Fast
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a message in a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a single generation call.
type Request struct {
	Tier     Tier
	Messages []Message
	// JSON asks the backend to constrain output to a JSON object when it supports it.
	JSON bool
}

var (
	ErrMissingAPIKey       = errors.New("llm api key is not configured")
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrEmptyResponse       = errors.New("llm returned an empty response")
)

// Generator is the interface that all LLM backends must satisfy
type Generator interface {
	// Complete returns the whole response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream invokes onDelta for each text fragment in order and returns the concatenation.
	// An error from onDelta aborts the stream.
	Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error)
}

// SystemAndUser is the common two-message prompt shape.
func SystemAndUser(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}

// SplitSystem separates system messages from the conversation for backends that take the
// instruction out of band.
func SplitSystem(msgs []Message) (string, []Message) {
	var sys []string
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}
