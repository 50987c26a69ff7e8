package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engagic/pipeline/internal/config"
)

// sizeThresholdChars and sizeThresholdPages gate the small/large model
// split: a document under both limits uses the small model.
const (
	sizeThresholdChars = 200_000
	sizeThresholdPages = 50

	speedPathMaxPages = 10
	speedPathMaxChars = 30_000
	moderateMaxPages  = 50
	moderateMaxChars  = 150_000
)

// Summarizer picks a model tier and prompt variant by document size, calls
// the ModelClient, and parses the result back into the shapes the processor
// needs. It holds no per-call state and is safe for concurrent use.
type Summarizer struct {
	Client    ModelClient
	Templates *Templates
	cfg       config.LLM
	logger    *slog.Logger
}

func New(client ModelClient, templates *Templates, cfg config.LLM, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{Client: client, Templates: templates, cfg: cfg, logger: logger}
}

// EstimatePages mirrors the reference implementation's rough page estimate:
// ~2000 chars per page, never less than 1.
func EstimatePages(text string) int {
	pages := len(text) / 2000
	if pages < 1 {
		return 1
	}
	return pages
}

// SelectTier picks "small" or "large" by document size.
func SelectTier(text string) ModelTier {
	pages := EstimatePages(text)
	if len(text) < sizeThresholdChars && pages <= sizeThresholdPages {
		return TierSmall
	}
	return TierLarge
}

func (s *Summarizer) modelFor(tier ModelTier) string {
	if tier == TierSmall {
		return s.cfg.SmallModel
	}
	return s.cfg.LargeModel
}

// thinkingBudgetFor applies spec.md §4.4's three-tier thinking policy. The
// moderate tier needs an explicit budget only on the small model — the
// large model is assumed to think adaptively by default, so nil is
// returned to mean "let the provider decide".
func thinkingBudgetFor(text string, tier ModelTier) *ThinkingBudget {
	pages := EstimatePages(text)
	chars := len(text)

	switch {
	case pages <= speedPathMaxPages && chars <= speedPathMaxChars:
		b := ThinkingDisabled
		return &b
	case pages <= moderateMaxPages && chars <= moderateMaxChars:
		if tier == TierSmall {
			b := ThinkingModerate
			return &b
		}
		return nil
	default:
		b := ThinkingDynamic
		return &b
	}
}

// SummarizeMeeting produces a single free-text markdown summary of a whole
// meeting packet. Prompt variant is chosen by page count: short agendas get
// a terser template than long ones.
func (s *Summarizer) SummarizeMeeting(ctx context.Context, text string) (string, error) {
	tier := SelectTier(text)
	model := s.modelFor(tier)

	variant := "comprehensive"
	if EstimatePages(text) <= 30 {
		variant = "short_agenda"
	}

	prompt, err := s.Templates.Render("meeting", variant, map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("summarizer: rendering meeting prompt: %w", err)
	}

	resp, err := s.Client.Generate(ctx, GenerateRequest{
		Model:           model,
		Prompt:          prompt,
		Temperature:     0.3,
		MaxOutputTokens: 8192,
		ThinkingBudget:  thinkingBudgetFor(text, tier),
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: summarizing meeting: %w", err)
	}
	return resp.Text, nil
}

// itemResponseV2 is the structured JSON shape v2 prompts ask the model for.
type itemResponseV2 struct {
	Thinking               string   `json:"thinking"`
	SummaryMarkdown        string   `json:"summary_markdown"`
	CitizenImpactMarkdown  string   `json:"citizen_impact_markdown"`
	Confidence             string   `json:"confidence"`
	Topics                 []string `json:"topics"`
}

// SummarizeItem summarizes one agenda item and extracts its raw (not yet
// normalized) topic candidates.
func (s *Summarizer) SummarizeItem(ctx context.Context, title, text string) (string, []string, error) {
	tier := SelectTier(text)
	model := s.modelFor(tier)

	prompt, err := s.Templates.Render("item", "standard", map[string]string{"title": title, "text": text})
	if err != nil {
		return "", nil, fmt.Errorf("summarizer: rendering item prompt: %w", err)
	}

	req := GenerateRequest{
		Model:           model,
		Prompt:          prompt,
		Temperature:     0.3,
		MaxOutputTokens: 2048,
	}
	if s.Templates.Version == PromptV2 {
		req.ResponseJSONSchema = s.Templates.ResponseSchema("item", "standard")
	}

	resp, err := s.Client.Generate(ctx, req)
	if err != nil {
		return "", nil, fmt.Errorf("summarizer: summarizing item %q: %w", title, err)
	}

	summary, topics := parseItemResponse(resp.Text, s.Templates.Version)
	return summary, topics, nil
}

// parseItemResponse handles both the v2 JSON-schema response and the
// legacy v1 sentinel-line format, falling back to a truncated excerpt if
// neither parses — spec.md §4.4 requires SummarizeItem to always return
// something rather than propagate a parse failure.
func parseItemResponse(raw string, version PromptVersion) (string, []string) {
	raw = strings.TrimSpace(raw)

	if version == PromptV2 {
		var data itemResponseV2
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			var parts []string
			if data.Thinking != "" {
				parts = append(parts, "## Thinking\n\n"+data.Thinking+"\n")
			}
			if data.SummaryMarkdown != "" {
				parts = append(parts, "## Summary\n\n"+data.SummaryMarkdown+"\n")
			}
			if data.CitizenImpactMarkdown != "" {
				parts = append(parts, "## Citizen Impact\n\n"+data.CitizenImpactMarkdown+"\n")
			}
			if data.Confidence != "" {
				parts = append(parts, "## Confidence\n\n"+data.Confidence)
			}
			return strings.Join(parts, "\n"), data.Topics
		}
		// Falls through to v1 parsing on invalid JSON.
	}

	var summary string
	var topics []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "TOPICS:"):
			for _, t := range strings.Split(strings.TrimPrefix(line, "TOPICS:"), ",") {
				if t = strings.TrimSpace(t); t != "" {
					topics = append(topics, t)
				}
			}
		}
	}
	if summary == "" {
		if len(raw) > 500 {
			summary = raw[:500]
		} else {
			summary = raw
		}
	}
	return summary, topics
}

// SummarizeBatch submits all requests as one batch job, polls until a
// terminal state, and maps responses back to requests by CustomID
// (the request's ItemID), returning results in request order. A submission
// failure (the HTTP call to create the batch itself) returns a failed
// result for every request; individual response errors are per-request.
func (s *Summarizer) SummarizeBatch(ctx context.Context, requests []ItemRequest) ([]ItemResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	items := make([]BatchItemRequest, len(requests))
	for i, r := range requests {
		prompt, err := s.Templates.Render("item", "standard", map[string]string{"title": r.Title, "text": r.Text})
		if err != nil {
			return failAll(requests, fmt.Errorf("rendering prompt for %s: %w", r.ItemID, err)), nil
		}
		item := BatchItemRequest{
			CustomID:        r.ItemID,
			Prompt:          prompt,
			Temperature:     0.3,
			MaxOutputTokens: 2048,
		}
		if s.Templates.Version == PromptV2 {
			item.ResponseJSONSchema = s.Templates.ResponseSchema("item", "standard")
		}
		items[i] = item
	}

	// Unix-second timestamp alone collides if two processes (or §5's
	// optionally-parallel vendor groups) submit a batch in the same second;
	// a short uuid suffix keeps display_name unique without a shared counter.
	displayName := fmt.Sprintf("item-batch-%d-%s", time.Now().Unix(), uuid.New().String()[:8])
	model := s.modelFor(TierLarge)
	job, err := s.Client.SubmitBatch(ctx, model, displayName, items)
	if err != nil {
		return failAll(requests, err), nil
	}

	pollInterval := s.cfg.BatchPollInterval.Duration
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	timeout := s.cfg.BatchTimeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	deadline := time.Now().Add(timeout)
	var responses []BatchInlineResponse
	for {
		job, responses, err = s.Client.PollBatch(ctx, job.Name)
		if err != nil {
			return failAll(requests, err), nil
		}
		if job.State.Terminal() {
			break
		}
		if time.Now().After(deadline) {
			s.logger.Error("summarizer: batch timed out", "batch", job.Name, "timeout", timeout)
			return failAll(requests, fmt.Errorf("batch timeout after %s", timeout)), nil
		}
		select {
		case <-ctx.Done():
			return failAll(requests, ctx.Err()), nil
		case <-time.After(pollInterval):
		}
	}

	if job.State != BatchStateSucceeded {
		return failAll(requests, fmt.Errorf("batch %s: %s", job.Name, job.State)), nil
	}

	byID := make(map[string]BatchInlineResponse, len(responses))
	for _, r := range responses {
		byID[r.CustomID] = r
	}

	results := make([]ItemResult, len(requests))
	for i, req := range requests {
		resp, ok := byID[req.ItemID]
		if !ok {
			results[i] = ItemResult{ItemID: req.ItemID, Success: false, Error: "no response mapped for this request"}
			continue
		}
		if resp.Err != nil {
			results[i] = ItemResult{ItemID: req.ItemID, Success: false, Error: resp.Err.Error()}
			continue
		}
		if resp.Text == "" {
			results[i] = ItemResult{ItemID: req.ItemID, Success: false, Error: "empty response"}
			continue
		}
		summary, topics := parseItemResponse(resp.Text, s.Templates.Version)
		results[i] = ItemResult{ItemID: req.ItemID, Success: true, Summary: summary, Topics: topics}
	}
	return results, nil
}

func failAll(requests []ItemRequest, err error) []ItemResult {
	results := make([]ItemResult, len(requests))
	for i, r := range requests {
		results[i] = ItemResult{ItemID: r.ItemID, Success: false, Error: err.Error()}
	}
	return results
}
