package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/provider"
)

type client struct {
	client      *genai.Client
	models      config.LLMModels
	temperature float32
	maxTokens   int32
}

// New creates a Gemini API generator.
func New(ctx context.Context, cfg config.LLMConfig) (provider.Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, provider.ErrMissingAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &client{
		client:      c,
		models:      cfg.Models,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (c *client) prepare(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := provider.SplitSystem(req.Messages)
	contents := toContents(rest)

	temp := c.temperature
	gc := &genai.GenerateContentConfig{Temperature: &temp}
	if c.maxTokens > 0 {
		gc.MaxOutputTokens = c.maxTokens
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}
	return contents, gc
}

func toContents(msgs []provider.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == provider.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText(" ", genai.RoleUser))
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Complete implements provider.Generator
func (c *client) Complete(ctx context.Context, req provider.Request) (string, error) {
	contents, gc := c.prepare(req)
	resp, err := c.client.Models.GenerateContent(ctx, provider.Model(c.models, req.Tier), contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", provider.ErrEmptyResponse
	}
	return text, nil
}

// Stream implements provider.Generator
func (c *client) Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (string, error) {
	contents, gc := c.prepare(req)
	var full strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, provider.Model(c.models, req.Tier), contents, gc) {
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream: %w", err)
		}
		delta := responseText(resp)
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), err
			}
		}
	}
	return full.String(), nil
}
