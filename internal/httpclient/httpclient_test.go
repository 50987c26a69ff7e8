package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/engagic/pipeline/internal/config"
)

func testConfig() config.HTTPClient {
	return config.HTTPClient{
		RequestTimeout:   config.Duration{},
		HeadTimeout:      config.Duration{},
		MaxRetries:       3,
		UserAgent:        "test-browser/1.0",
		PDFUserAgent:     "Engagic-PDF-Validator/1.0",
		MaxPDFAPIBytes:   1024,
		MaxPDFLocalBytes: 1024 * 1024,
		MaxURLLength:     2000,
	}
}

func TestValidateDownloadURLRejectsPrivateIP(t *testing.T) {
	cases := []string{
		"http://127.0.0.1/doc.pdf",
		"http://169.254.169.254/latest/meta-data",
		"http://10.0.0.5/doc.pdf",
		"ftp://example.com/doc.pdf",
	}
	for _, raw := range cases {
		if err := ValidateDownloadURL(raw, 2000); err == nil {
			t.Errorf("expected ValidateDownloadURL(%q) to fail", raw)
		}
	}
}

func TestValidateDownloadURLRejectsOverlongURL(t *testing.T) {
	raw := "https://example.com/" + strings.Repeat("a", 3000)
	if err := ValidateDownloadURL(raw, 2000); err == nil {
		t.Error("expected overlong url to be rejected")
	}
}

func TestDoRetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(testConfig(), nil)
	resp, err := c.DoGet(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after retry, got %d", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoRejectsDisallowedMethod(t *testing.T) {
	c := New(testConfig(), nil)
	req, _ := http.NewRequest(http.MethodDelete, "https://example.com", nil)
	if _, err := c.Do(req); err == nil {
		t.Error("expected DELETE to be rejected")
	}
}

func TestReadCappedRejectsOversizedBody(t *testing.T) {
	big := strings.NewReader(strings.Repeat("a", 2048))
	if _, err := readCapped(big, 1024); err == nil {
		t.Error("expected oversized body to be rejected")
	}
}

func TestReadCappedAllowsBodyAtLimit(t *testing.T) {
	exact := strings.NewReader(strings.Repeat("a", 1024))
	data, err := readCapped(exact, 1024)
	if err != nil {
		t.Fatalf("expected body at the limit to be allowed, got %v", err)
	}
	if len(data) != 1024 {
		t.Errorf("expected 1024 bytes, got %d", len(data))
	}
}

func TestDownloadPDFRejectsLoopbackURL(t *testing.T) {
	c := New(testConfig(), nil)
	if _, err := c.DownloadPDF(context.Background(), "http://127.0.0.1:9/doc.pdf"); err == nil {
		t.Error("expected loopback download URL to be rejected by the SSRF guard")
	}
}
