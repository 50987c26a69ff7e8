package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/engagic/pipeline/internal/pipelineerr"
)

// HTTPClient is the reference ModelClient implementation: a hand-rolled
// net/http transport against a generic JSON generation endpoint. No Go SDK
// for a concrete LLM provider appears anywhere in the retrieval pack, so
// this is the one place in the domain stack that falls back to the
// standard library instead of a pack-grounded dependency (see DESIGN.md).
type HTTPClient struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
	Logger   *slog.Logger
}

// NewHTTPClient builds a reference client against a generic endpoint. The
// caller owns retry/timeout policy via httpClient.
func NewHTTPClient(endpoint, apiKey string, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPClient{Endpoint: endpoint, APIKey: apiKey, HTTP: httpClient, Logger: logger}
}

type generateContentBody struct {
	Model  string                `json:"model"`
	Prompt string                `json:"prompt"`
	Config generateContentConfig `json:"config"`
}

type generateContentConfig struct {
	Temperature        float64        `json:"temperature"`
	MaxOutputTokens    int            `json:"max_output_tokens"`
	ResponseMIMEType   string         `json:"response_mime_type,omitempty"`
	ResponseJSONSchema map[string]any `json:"response_schema,omitempty"`
	ThinkingBudget     *int           `json:"thinking_budget,omitempty"`
}

type generateContentResult struct {
	Text string `json:"text"`
}

func (c *HTTPClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	body := generateContentBody{
		Model:  req.Model,
		Prompt: req.Prompt,
		Config: generateContentConfig{
			Temperature:        req.Temperature,
			MaxOutputTokens:    req.MaxOutputTokens,
			ResponseJSONSchema: req.ResponseJSONSchema,
		},
	}
	if req.ResponseJSONSchema != nil {
		body.Config.ResponseMIMEType = "application/json"
	}
	if req.ThinkingBudget != nil {
		budget := int(*req.ThinkingBudget)
		body.Config.ThinkingBudget = &budget
	}

	var result generateContentResult
	if err := c.postJSON(ctx, c.Endpoint+"/v1/generate", body, &result); err != nil {
		return GenerateResponse{}, fmt.Errorf("summarizer: generate request: %w", err)
	}
	if result.Text == "" {
		return GenerateResponse{}, fmt.Errorf("summarizer: model returned no text")
	}
	return GenerateResponse{Text: result.Text}, nil
}

type batchCreateBody struct {
	Model       string            `json:"model"`
	DisplayName string            `json:"display_name"`
	Requests    []batchRequestDoc `json:"requests"`
}

type batchRequestDoc struct {
	CustomID string                `json:"custom_id"`
	Prompt   string                `json:"prompt"`
	Config   generateContentConfig `json:"config"`
}

type batchCreateResult struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func (c *HTTPClient) SubmitBatch(ctx context.Context, model, displayName string, items []BatchItemRequest) (BatchJob, error) {
	docs := make([]batchRequestDoc, len(items))
	for i, item := range items {
		cfg := generateContentConfig{
			Temperature:        item.Temperature,
			MaxOutputTokens:    item.MaxOutputTokens,
			ResponseJSONSchema: item.ResponseJSONSchema,
		}
		if item.ResponseJSONSchema != nil {
			cfg.ResponseMIMEType = "application/json"
		}
		docs[i] = batchRequestDoc{CustomID: item.CustomID, Prompt: item.Prompt, Config: cfg}
	}

	var result batchCreateResult
	body := batchCreateBody{Model: model, DisplayName: displayName, Requests: docs}
	if err := c.postJSON(ctx, c.Endpoint+"/v1/batches", body, &result); err != nil {
		return BatchJob{}, fmt.Errorf("summarizer: submitting batch: %w", err)
	}
	if result.Name == "" {
		return BatchJob{}, fmt.Errorf("summarizer: batch created but no name returned")
	}
	return BatchJob{Name: result.Name, State: BatchState(result.State)}, nil
}

type batchGetResult struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Responses []struct {
		CustomID string `json:"custom_id"`
		Response *struct {
			Text string `json:"text"`
		} `json:"response"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"inlined_responses"`
}

func (c *HTTPClient) PollBatch(ctx context.Context, name string) (BatchJob, []BatchInlineResponse, error) {
	var result batchGetResult
	if err := c.getJSON(ctx, c.Endpoint+"/v1/batches/"+name, &result); err != nil {
		return BatchJob{}, nil, fmt.Errorf("summarizer: polling batch %s: %w", name, err)
	}

	job := BatchJob{Name: result.Name, State: BatchState(result.State)}
	if !job.State.Terminal() {
		return job, nil, nil
	}

	responses := make([]BatchInlineResponse, len(result.Responses))
	for i, r := range result.Responses {
		out := BatchInlineResponse{CustomID: r.CustomID}
		switch {
		case r.Response != nil:
			out.Text = r.Response.Text
		case r.Error != nil:
			out.Err = fmt.Errorf("%s", r.Error.Message)
		default:
			out.Err = fmt.Errorf("summarizer: batch response %d has neither response nor error", i)
		}
		responses[i] = out
	}
	return job, responses, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("status %d: %s: %w", resp.StatusCode, string(data), pipelineerr.ErrRateLimited)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
