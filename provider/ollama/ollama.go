package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/provider"
)

const defaultBaseURL = "http://localhost:11434"

type client struct {
	client      *api.Client
	models      config.LLMModels
	temperature float64
	maxTokens   int
}

// New creates a generator backed by a local or remote Ollama server.
func New(cfg config.LLMConfig) (provider.Generator, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" || strings.Contains(raw, "api.openai.com") {
		raw = defaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	return &client{
		client:      api.NewClient(base, &http.Client{Timeout: cfg.StreamTimeout}),
		models:      cfg.Models,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *client) chat(ctx context.Context, req provider.Request, stream bool, onDelta func(string) error) (string, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}
	chatReq := &api.ChatRequest{
		Model:    provider.Model(c.models, req.Tier),
		Messages: messages,
		Stream:   &stream,
		Options:  map[string]interface{}{"temperature": c.temperature},
	}
	if c.maxTokens > 0 {
		chatReq.Options["num_predict"] = c.maxTokens
	}
	if req.JSON {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	var full strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		full.WriteString(resp.Message.Content)
		if onDelta != nil {
			return onDelta(resp.Message.Content)
		}
		return nil
	})
	if err != nil {
		return full.String(), fmt.Errorf("ollama chat: %w", err)
	}
	return full.String(), nil
}

// Complete implements provider.Generator
func (c *client) Complete(ctx context.Context, req provider.Request) (string, error) {
	out, err := c.chat(ctx, req, false, nil)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", provider.ErrEmptyResponse
	}
	return out, nil
}

// Stream implements provider.Generator
func (c *client) Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (string, error) {
	return c.chat(ctx, req, true, onDelta)
}
