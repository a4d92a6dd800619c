package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// maxTextChars caps how much article body is sent to the model; headlines
// plus the lede carry nearly all of the location/reason signal.
const maxTextChars = 500

// ChatCompleter is the slice of the OpenAI-compatible client the extractor
// needs. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Guidance holds LLM-generated operational fields for a validated incident.
// Zero-value-with-defaults when the model is unavailable or misbehaves.
type Guidance struct {
	Priority            domain.Priority
	ActionsNeeded       []string
	RequiredSkills      []string
	ResolutionSteps     []string
	EstimatedVolunteers int
	Stage               Stage
}

// DefaultGuidance is what records get when the guidance call fails or the
// LLM stage is disabled.
func DefaultGuidance() Guidance {
	return Guidance{
		Priority:            domain.PriorityMedium,
		EstimatedVolunteers: 1,
		Stage:               StageNone,
	}
}

func (e *Extractor) extractWithLLM(ctx context.Context, text, title string) (location, reason string, err error) {
	prompt := fmt.Sprintf(`Extract the specific location and incident reason from this %s traffic news.
Be very precise with location - extract actual street/area names from %s.
Return JSON: {"location": "street/area in %s or null", "reason": "crash|collision|fire|flood|closure|breakdown|accident|construction|landslide|spill|debris|weather|unknown"}

Title: %s
Text: %s

Return ONLY valid JSON, no other text.`, e.region, e.region, e.region, title, truncate(text, maxTextChars))

	content, err := e.complete(ctx, prompt, 0.1, 256)
	if err != nil {
		return "", "", err
	}

	var parsed struct {
		Location string `json:"location"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", "", fmt.Errorf("parse extraction response: %w", err)
	}
	if parsed.Location == "null" {
		parsed.Location = ""
	}
	return parsed.Location, parsed.Reason, nil
}

// GenerateGuidance asks the model for volunteer guidance on a single
// incident. Any failure yields DefaultGuidance; this call never aborts
// record processing.
func (e *Extractor) GenerateGuidance(ctx context.Context, title string, reason domain.Reason, location string) Guidance {
	if e.llm == nil {
		return DefaultGuidance()
	}

	reasonStr := string(reason)
	if reasonStr == "" {
		reasonStr = "unknown"
	}
	if location == "" {
		location = "unknown"
	}

	prompt := fmt.Sprintf(`Analyze this %s road incident and provide volunteer guidance.

Incident: %s
Type: %s
Location in %s: %s

Return JSON with EXACTLY this structure (no other text):
{
  "priority": "low|medium|high|critical",
  "actions_needed": ["action1", "action2"],
  "required_skills": ["skill1", "skill2"],
  "resolution_steps": ["step1", "step2"],
  "estimated_volunteers": number
}

Use these guidelines:
- critical: Immediate risk to life (accidents with injuries, hazmat spills, multiple vehicles)
- high: Major disruption (road closure, severe congestion, emergency)
- medium: Moderate disruption (minor accidents, debris, traffic control needed)
- low: Minor issues (small debris, minor congestion)

Return only valid JSON.`, e.region, title, reasonStr, e.region, location)

	content, err := e.complete(ctx, prompt, 0.2, 512)
	if err != nil {
		e.logger.Warn("llm guidance failed, using defaults", "title", title, "error", err)
		return DefaultGuidance()
	}

	var parsed struct {
		Priority            string   `json:"priority"`
		ActionsNeeded       []string `json:"actions_needed"`
		RequiredSkills      []string `json:"required_skills"`
		ResolutionSteps     []string `json:"resolution_steps"`
		EstimatedVolunteers int      `json:"estimated_volunteers"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		e.logger.Warn("llm guidance returned malformed json, using defaults",
			"title", title, "error", err)
		return DefaultGuidance()
	}

	g := Guidance{
		Priority:            domain.ParsePriority(parsed.Priority),
		ActionsNeeded:       parsed.ActionsNeeded,
		RequiredSkills:      parsed.RequiredSkills,
		ResolutionSteps:     parsed.ResolutionSteps,
		EstimatedVolunteers: parsed.EstimatedVolunteers,
		Stage:               StageLLM,
	}
	if g.EstimatedVolunteers < 1 {
		g.EstimatedVolunteers = 1
	}
	return g
}

func (e *Extractor) complete(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	resp, err := e.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
