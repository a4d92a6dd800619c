package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

var (
	// locationRe matches "in/near/at/around <Capitalized phrase>", stopping at
	// sentence punctuation, e.g. "pileup near Katraj Chowk, six hurt" -> "Katraj Chowk".
	locationRe = regexp.MustCompile(`\b(?:in|near|at|around)\s+([A-Z][^.,\n]{2,40})`)

	// reasonRe matches the fixed incident vocabulary anywhere in the text.
	reasonRe = regexp.MustCompile(`(?i)\b(crash|collision|closure|blocked|fire|flood|accident|breakdown|landslide|spill|construction|debris|weather)\b`)
)

// Stage identifies which extraction stage produced a value, keeping the
// pattern-to-LLM fallback auditable instead of implicit.
type Stage string

const (
	StageNone    Stage = "none"
	StagePattern Stage = "pattern"
	StageLLM     Stage = "llm"
)

// Result is the outcome of location/reason extraction. Either field may be
// empty when neither stage found a value.
type Result struct {
	Location      string
	LocationStage Stage
	Reason        domain.Reason
	ReasonStage   Stage
}

// Extractor derives a location phrase and reason code from raw incident
// text. The pattern stage always runs; the LLM stage runs only when a chat
// client is configured, and its values override pattern values on success.
type Extractor struct {
	llm    ChatCompleter
	model  string
	region string
	logger *slog.Logger
}

// New creates an Extractor. Pass a nil client to disable the LLM stage.
func New(llm ChatCompleter, model, region string, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, model: model, region: region, logger: logger}
}

// Extract runs the pattern stage and, when configured, the LLM stage.
// LLM failures of any kind fall back silently to the pattern result.
func (e *Extractor) Extract(ctx context.Context, text, title string) Result {
	result := extractWithPatterns(text)

	if e.llm == nil {
		return result
	}

	loc, reason, err := e.extractWithLLM(ctx, text, title)
	if err != nil {
		e.logger.Warn("llm extraction failed, keeping pattern result",
			"title", title, "error", err)
		return result
	}
	if loc != "" {
		result.Location = loc
		result.LocationStage = StageLLM
	}
	if reason != "" {
		result.Reason = domain.ParseReason(reason)
		result.ReasonStage = StageLLM
	}
	return result
}

func extractWithPatterns(text string) Result {
	result := Result{LocationStage: StageNone, ReasonStage: StageNone}

	if m := locationRe.FindStringSubmatch(text); m != nil {
		loc := strings.TrimSpace(m[1])
		loc = strings.TrimRight(loc, ".,")
		if loc != "" {
			result.Location = loc
			result.LocationStage = StagePattern
		}
	}

	if m := reasonRe.FindStringSubmatch(text); m != nil {
		result.Reason = domain.ParseReason(m[1])
		result.ReasonStage = StagePattern
	}

	return result
}
