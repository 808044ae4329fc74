// Package llm provides the text-generation provider used by analysis stages.
// The client speaks to any OpenAI-compatible chat endpoint; the default
// deployment targets the MiniMax hosted API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aidogstack/incident-copilot/internal/utils"
)

// ErrNoCredential signals that no API key is configured. Callers treat the
// provider as unavailable and fall back rather than failing the run.
var ErrNoCredential = errors.New("llm api key not configured")

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Provider generates a JSON object from a prompt. Implementations must
// return a Fault of kind external_unavailable when no credential is
// configured and generation_error when the output is not parseable JSON.
type Provider interface {
	GenerateJSON(ctx context.Context, messages []Message, systemPrompt string, temperature float32, maxTokens int) (json.RawMessage, error)
}

// Config holds provider connection settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client is the production Provider backed by an OpenAI-compatible API.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewClient constructs a Client. With an empty API key the client is still
// returned but every call reports external_unavailable.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "MiniMax-M2.5-highspeed"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}

	var api *openai.Client
	if cfg.APIKey != "" {
		apiCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
		api = openai.NewClientWithConfig(apiCfg)
	}

	return &Client{
		api:         api,
		model:       cfg.Model,
		temperature: ClampTemperature(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// GenerateJSON sends the messages with a strict JSON-only directive and
// returns the first JSON object found in the response.
func (c *Client) GenerateJSON(ctx context.Context, messages []Message, systemPrompt string, temperature float32, maxTokens int) (json.RawMessage, error) {
	if c.api == nil {
		return nil, utils.NewFault("llm.generate", utils.KindExternalUnavailable, ErrNoCredential)
	}

	if temperature == 0 {
		temperature = c.temperature
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	apiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	apiMessages = append(apiMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt + "\n\nRespond with valid JSON only. No markdown, no prose outside JSON.",
	})
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		apiMessages = append(apiMessages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    apiMessages,
		Temperature: ClampTemperature(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, utils.NewFault("llm.generate", utils.KindExternalUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, utils.NewFault("llm.generate", utils.KindGeneration, errors.New("provider returned no choices"))
	}

	raw, err := ExtractJSON(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("llm response not parseable as JSON", slog.String("model", c.model), slog.Any("error", err))
		return nil, utils.NewFault("llm.generate", utils.KindGeneration, err)
	}
	return raw, nil
}

// ClampTemperature bounds the sampling temperature to [0.01, 0.99].
func ClampTemperature(t float32) float32 {
	if t < 0.01 {
		return 0.01
	}
	if t > 0.99 {
		return 0.99
	}
	return t
}

// ExtractJSON returns the first JSON object in text. Markdown fences are
// stripped first; if the whole text is not a valid object, the first
// balanced {...} span is tried.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = stripFences(strings.TrimSpace(text))

	if json.Valid([]byte(text)) && strings.HasPrefix(text, "{") {
		return json.RawMessage(text), nil
	}

	if span, ok := firstObjectSpan(text); ok && json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	preview := text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return nil, fmt.Errorf("no valid JSON object in response: %q", preview)
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

// firstObjectSpan scans for the first balanced top-level {...} span,
// honoring string literals and escapes.
func firstObjectSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
