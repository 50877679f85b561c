package tzlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// LLMBackend resolves location descriptions with a lightweight LLM. It is a
// single deterministic completion per lookup; retries and result caching are
// the caller's concern (the Resolver does neither).
type LLMBackend struct {
	client *openai.Client
	model  string
}

// LLMConfig holds configuration for the LLM lookup backend.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewLLMBackend creates an LLM-backed timezone lookup.
func NewLLMBackend(cfg LLMConfig) *LLMBackend {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.siliconflow.cn/v1"
	}

	model := cfg.Model
	if model == "" {
		// A small instruct model is plenty for a one-field extraction.
		model = "Qwen/Qwen2.5-7B-Instruct"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &LLMBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Lookup asks the model for the IANA zone matching the input. The caller
// validates the returned identifier before using it.
func (b *LLMBackend) Lookup(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       b.model,
		MaxTokens:   30,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: timezoneSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Location: %s", input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from LLM")
	}

	zone, err := parseZoneResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}

	slog.Debug("LLM timezone lookup completed",
		"input", input,
		"zone", zone,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return zone, nil
}

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// parseZoneResponse extracts the timezone field from the model's JSON reply,
// tolerating markdown code fences.
func parseZoneResponse(content string) (string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if matches := codeFencePattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	var raw struct {
		Timezone string `json:"timezone"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return "", fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	if raw.Timezone == "" {
		return "", fmt.Errorf("response missing timezone field")
	}
	return raw.Timezone, nil
}

const timezoneSystemPrompt = `You map a location or timezone description to one IANA timezone identifier.
Reply with JSON only: {"timezone": "<Area/City>"}
If the location is ambiguous, pick the most commonly intended zone.
If you cannot determine a zone, reply {"timezone": "UTC"}.`
