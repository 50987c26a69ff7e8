package summarizer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/engagic/pipeline/internal/pipelineerr"
)

// TestHTTPClientGenerateWrapsRateLimitSignal guards spec.md §7's "429 /
// provider overloaded responses ... record and continue": a 429 from the
// model endpoint must be detectable via pipelineerr.IsRateLimited so the
// caller never routes it through a retry path.
func TestHTTPClientGenerateWrapsRateLimitSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "test-key", server.Client(), nil)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "small", Prompt: "hello"})
	if err == nil {
		t.Fatal("expected an error from a 429 response")
	}
	if !pipelineerr.IsRateLimited(err) {
		t.Errorf("expected rate-limit error, got %v", err)
	}
}

// TestHTTPClientGenerateOtherErrorsAreNotRateLimited makes sure the 429
// detection above doesn't swallow unrelated failures.
func TestHTTPClientGenerateOtherErrorsAreNotRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "test-key", server.Client(), nil)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "small", Prompt: "hello"})
	if err == nil {
		t.Fatal("expected an error from a 500 response")
	}
	if pipelineerr.IsRateLimited(err) {
		t.Errorf("expected a 500 to not be classified as rate-limited, got %v", err)
	}
}
