// Package taskgraph turns free-text scheduling requests into task chains.
//
// The primary path is a single deterministic LLM extraction; when the model
// is unavailable or answers with something unusable, a regex fallback still
// produces a minimal single-task chain so the caller always gets a plannable
// result.
package taskgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/slotwise/schedule"
)

// ZoneResolver maps free-form location text to a usable zone. Satisfied by
// tzlookup.Resolver.
type ZoneResolver interface {
	Location(ctx context.Context, input string) *time.Location
}

// Config holds configuration for the LLM extraction path. An empty APIKey
// disables the model entirely; parsing then always uses the fallback.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Parser extracts a task chain from a natural-language request.
type Parser struct {
	client *openai.Client
	model  string
	zones  ZoneResolver
}

// NewParser creates a request parser. zones may be nil, in which case every
// task is planned in UTC.
func NewParser(cfg Config, zones ZoneResolver) *Parser {
	p := &Parser{zones: zones}

	if cfg.APIKey != "" {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.siliconflow.cn/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "Qwen/Qwen2.5-7B-Instruct"
		}
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = baseURL
		p.client = openai.NewClientWithConfig(clientConfig)
		p.model = model
	}
	return p
}

// rawChain mirrors the JSON shape the extraction prompt requests.
type rawChain struct {
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Timezone        string    `json:"timezone"`
	TimePreference  string    `json:"time_preference"`
	MinLeadDays     int       `json:"min_lead_days"`
	PrepTasks       []rawTask `json:"prep_tasks"`
}

type rawTask struct {
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Relation        string `json:"relation"`
}

// Parse extracts a task chain from request text. It degrades rather than
// fails: LLM trouble falls back to regex extraction, and only an empty
// request is an error.
func (p *Parser) Parse(ctx context.Context, request string) (schedule.TaskChain, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return schedule.TaskChain{}, fmt.Errorf("empty scheduling request")
	}

	if p.client == nil {
		return p.fallbackParse(ctx, request), nil
	}

	raw, err := p.extract(ctx, request)
	if err != nil {
		slog.Warn("LLM request extraction failed, using fallback parser",
			"error", err,
			"request", truncateForLog(request, 50))
		return p.fallbackParse(ctx, request), nil
	}
	return p.buildChain(ctx, raw, request), nil
}

func (p *Parser) extract(ctx context.Context, request string) (*rawChain, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   300,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Request: %s", request),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}

	raw, err := parseChainResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	slog.Debug("LLM request extraction completed",
		"request", truncateForLog(request, 30),
		"prep_tasks", len(raw.PrepTasks),
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens)

	return raw, nil
}

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

func parseChainResponse(content string) (*rawChain, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if matches := codeFencePattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	var raw rawChain
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	if raw.Description == "" {
		return nil, fmt.Errorf("response missing description field")
	}
	return &raw, nil
}

// buildChain converts the extracted shape into schedule types, resolving
// zones and normalizing relations and durations.
func (p *Parser) buildChain(ctx context.Context, raw *rawChain, request string) schedule.TaskChain {
	zone := p.resolveZone(ctx, raw.Timezone)

	primary := schedule.NewTask(raw.Description,
		time.Duration(raw.DurationMinutes)*time.Minute,
		schedule.TaskConstraints{
			Zone:           zone,
			TimePreference: raw.TimePreference,
			MinLeadDays:    raw.MinLeadDays,
		})

	chain := schedule.TaskChain{Primary: primary}
	for _, t := range raw.PrepTasks {
		if strings.TrimSpace(t.Description) == "" {
			continue
		}
		relation := schedule.RelationBefore
		if strings.EqualFold(strings.TrimSpace(t.Relation), "after") {
			relation = schedule.RelationAfter
		}
		chain.Dependents = append(chain.Dependents, schedule.DependentTask{
			Task: schedule.NewTask(t.Description,
				time.Duration(t.DurationMinutes)*time.Minute,
				schedule.TaskConstraints{Zone: zone}),
			Relation: relation,
		})
	}

	slog.Debug("parsed scheduling request",
		"request", truncateForLog(request, 30),
		"duration", chain.Primary.Duration,
		"dependents", len(chain.Dependents))

	return chain
}

func (p *Parser) resolveZone(ctx context.Context, input string) *time.Location {
	if p.zones == nil || strings.TrimSpace(input) == "" {
		return time.UTC
	}
	return p.zones.Location(ctx, input)
}

var durationPattern = regexp.MustCompile(`(\d+)\s*(min|minute|minutes|hour|hours|hr|hrs)`)

// fallbackParse extracts what a regex can: a duration in minutes or hours.
// Everything else keeps defaults, and the request text itself becomes the
// task description.
func (p *Parser) fallbackParse(ctx context.Context, request string) schedule.TaskChain {
	duration := schedule.DefaultDuration

	if m := durationPattern.FindStringSubmatch(strings.ToLower(request)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			if strings.HasPrefix(m[2], "h") {
				duration = time.Duration(n) * time.Hour
			} else {
				duration = time.Duration(n) * time.Minute
			}
		}
	}

	return schedule.TaskChain{
		Primary: schedule.NewTask(request, duration, schedule.TaskConstraints{Zone: time.UTC}),
	}
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

const extractionSystemPrompt = `You extract structured scheduling information from a request.
Reply with JSON only, in this shape:
{
  "description": "<what to schedule>",
  "duration_minutes": <number, 30 if unspecified>,
  "timezone": "<location or zone text, empty if unspecified>",
  "time_preference": "<morning|afternoon|evening|night|after N|empty>",
  "min_lead_days": <number, 0 if unspecified>,
  "prep_tasks": [
    {"description": "<task>", "duration_minutes": <number>, "relation": "<before|after>"}
  ]
}
List preparation work as prep_tasks with relation "before" and follow-up work
with relation "after". Leave prep_tasks empty when none is implied.`
