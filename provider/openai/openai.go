package openai_provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/axiom/config"
	"github.com/mohammad-safakhou/axiom/internal/httpclient"
	"github.com/mohammad-safakhou/axiom/provider"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	maxErrorBodyBytes = 8 * 1024
)

// client implements provider.Generator against any OpenAI compatible chat completions API
type client struct {
	apiKey      string
	baseURL     string
	models      config.LLMModels
	temperature float64
	maxTokens   int
	http        *httpclient.Client
	stream      *http.Client
}

// request represents a request to the chat completions endpoint
type request struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	Temperature    float64            `json:"temperature"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Stream         bool               `json:"stream,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// response represents a non-streaming response
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates a chat completions client. Non-streaming calls retry on transport and 5xx
// failures; streams are attempted once since partial output may already be delivered.
func New(cfg config.LLMConfig) (provider.Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, provider.ErrMissingAPIKey
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &client{
		apiKey:      cfg.APIKey,
		baseURL:     base,
		models:      cfg.Models,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        httpclient.New(cfg.Timeout, cfg.MaxRetries, cfg.RetryBackoff),
		stream:      &http.Client{Timeout: cfg.StreamTimeout},
	}, nil
}

func (c *client) build(req provider.Request, stream bool) request {
	r := request{
		Model:       provider.Model(c.models, req.Tier),
		Messages:    req.Messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      stream,
	}
	if req.JSON {
		r.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return r
}

func (c *client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Complete implements provider.Generator
func (c *client) Complete(ctx context.Context, req provider.Request) (string, error) {
	var out response
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/chat/completions", c.headers(), c.build(req, false), &out); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", provider.ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

// Stream implements provider.Generator
func (c *client) Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (string, error) {
	payload, err := json.Marshal(c.build(req, true))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("stream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return full.String(), nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil && strings.TrimSpace(chunk.Error.Message) != "" {
			return full.String(), errors.New(strings.TrimSpace(chunk.Error.Message))
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			full.WriteString(choice.Delta.Content)
			if onDelta != nil {
				if err := onDelta(choice.Delta.Content); err != nil {
					return full.String(), err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}
	return full.String(), nil
}
