// Package summarizer routes agenda text to a size-appropriate model tier,
// builds prompts from a versioned JSON template, and parses the structured
// or sentinel-line response back into a summary and topic list.
package summarizer

import "context"

// ModelTier names the two logical model classes spec.md §4.4 routes between.
// The concrete model names behind each tier are configuration, not code.
type ModelTier string

const (
	TierSmall ModelTier = "small"
	TierLarge ModelTier = "large"
)

// ThinkingBudget is a reasoning-model thinking-token budget. A negative
// value means "dynamic/unbounded", matching the provider's own convention
// for "let the model decide".
type ThinkingBudget int

const (
	ThinkingDisabled ThinkingBudget = 0
	ThinkingModerate ThinkingBudget = 2048
	ThinkingDynamic  ThinkingBudget = -1
)

// GenerateRequest is one single-shot model call.
type GenerateRequest struct {
	Model              string
	Prompt             string
	ResponseJSONSchema map[string]any // nil for plain-text responses
	Temperature        float64
	MaxOutputTokens    int
	ThinkingBudget     *ThinkingBudget // nil lets the provider choose
}

// GenerateResponse is a single-shot model response.
type GenerateResponse struct {
	Text string
}

// BatchItemRequest is one request within a submitted batch job.
type BatchItemRequest struct {
	CustomID           string
	Prompt             string
	ResponseJSONSchema map[string]any
	Temperature        float64
	MaxOutputTokens    int
}

// BatchState is the lifecycle state of a submitted batch job. The four
// terminal values mirror the provider's own batch job states exactly —
// SummarizeBatch polls until it sees one of them.
type BatchState string

const (
	BatchStatePending   BatchState = "PENDING"
	BatchStateRunning   BatchState = "RUNNING"
	BatchStateSucceeded BatchState = "SUCCEEDED"
	BatchStateFailed    BatchState = "FAILED"
	BatchStateCancelled BatchState = "CANCELLED"
	BatchStateExpired   BatchState = "EXPIRED"
)

func (s BatchState) Terminal() bool {
	switch s {
	case BatchStateSucceeded, BatchStateFailed, BatchStateCancelled, BatchStateExpired:
		return true
	default:
		return false
	}
}

// BatchJob identifies a submitted batch and its current state.
type BatchJob struct {
	Name  string
	State BatchState
}

// BatchInlineResponse is one response slot in a polled batch job, matched
// back to its submitted request by CustomID.
type BatchInlineResponse struct {
	CustomID string
	Text     string
	Err      error
}

// ModelClient is the seam between this package and whatever LLM provider a
// deployment wires in; spec.md explicitly keeps the provider itself out of
// scope. A real provider SDK implements this; this repository ships an
// HTTP-based reference client (client.go) to exercise the contract.
type ModelClient interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	SubmitBatch(ctx context.Context, model, displayName string, items []BatchItemRequest) (BatchJob, error)
	PollBatch(ctx context.Context, name string) (BatchJob, []BatchInlineResponse, error)
}

// ItemRequest is one agenda item's worth of pre-extracted, concatenated
// attachment text, ready for SummarizeBatch.
type ItemRequest struct {
	ItemID   string
	Title    string
	Text     string
	Sequence int
}

// ItemResult is one SummarizeBatch outcome, positionally mapped back to its
// ItemRequest. A failure here is per-request, not a submission failure.
type ItemResult struct {
	ItemID  string
	Success bool
	Summary string
	Topics  []string
	Error   string
}
