// Package httpclient provides the one outbound HTTP client every vendor
// adapter and the summarizer share: bounded timeouts, exponential retry on
// 5xx, an SSRF guard for arbitrary-URL downloads, and per-vendor User-Agent
// discipline.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/engagic/pipeline/internal/config"
)

// Client wraps *http.Client with retry, SSRF validation, and UA discipline.
type Client struct {
	cfg            config.HTTPClient
	httpClient     *http.Client
	granicusClient *http.Client
	logger         *slog.Logger
}

// New builds a Client from the given HTTP configuration.
func New(cfg config.HTTPClient, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout.Duration,
		},
		// Granicus serves behind an S3 bucket with a documented certificate
		// mismatch; this exception is scoped to granicus hosts only.
		granicusClient: &http.Client{
			Timeout: cfg.RequestTimeout.Duration,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		logger: logger,
	}
}

var allowedMethods = map[string]bool{http.MethodGet: true, http.MethodPost: true, http.MethodHead: true}

// Do issues req with up to MaxRetries attempts, retrying 5xx responses and
// transport errors, and only for GET/POST/HEAD. A request body, if present,
// must be re-readable across attempts; DoGet sends no body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !allowedMethods[req.Method] {
		return nil, fmt.Errorf("httpclient: method %s not permitted", req.Method)
	}
	if req.UserAgent() == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	client := c.httpClient
	if isGranicusHost(req.URL.Hostname()) {
		client = c.granicusClient
	}

	var lastErr error
	var resp *http.Response
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		var err error
		resp, err = client.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("http request failed", "url", req.URL.String(), "attempt", attempt, "err", err)
			time.Sleep(backoff(attempt))
			continue
		}
		if resp.StatusCode < 500 {
			return resp, nil
		}
		lastErr = fmt.Errorf("httpclient: server error %d", resp.StatusCode)
		resp.Body.Close()
		c.logger.Warn("http 5xx, retrying", "url", req.URL.String(), "status", resp.StatusCode, "attempt", attempt)
		time.Sleep(backoff(attempt))
	}
	return nil, fmt.Errorf("httpclient: %s after %d attempts: %w", req.URL, c.cfg.MaxRetries, lastErr)
}

// DoGet issues a retried GET against rawURL with the given context.
func (c *Client) DoGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building request for %s: %w", rawURL, err)
	}
	return c.Do(req)
}

// HeadCheck issues a short-timeout HEAD request, used to validate a download
// URL (content-length, reachability) before committing to a full GET.
func (c *Client) HeadCheck(ctx context.Context, rawURL string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HeadTimeout.Duration)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building HEAD request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.PDFUserAgent)
	return c.Do(req)
}

// DownloadPDF validates rawURL with ValidateDownloadURL, GETs it, and
// enforces the API PDF size cap while streaming.
func (c *Client) DownloadPDF(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ValidateDownloadURL(rawURL, c.cfg.MaxURLLength); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building download request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.PDFUserAgent)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return readCapped(resp.Body, c.cfg.MaxPDFAPIBytes)
}

// readCapped reads r fully, rejecting anything beyond maxBytes without
// buffering unbounded amounts of attacker-controlled data in memory.
func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("httpclient: reading response body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("httpclient: response exceeds max size of %d bytes", maxBytes)
	}
	return data, nil
}

func isGranicusHost(host string) bool {
	return strings.Contains(strings.ToLower(host), "granicus")
}

// backoff mirrors the teacher's exponential-with-jitter shape: base 500ms,
// doubling per attempt, capped at 5s, plus up to 10% jitter.
func backoff(attempt int) time.Duration {
	const base = 500 * time.Millisecond
	const maxDelay = 5 * time.Second

	multiplier := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(base) * multiplier)
	if delay > maxDelay {
		delay = maxDelay
	}
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// ValidateDownloadURL enforces the SSRF guard: http/https only, a
// resolvable hostname whose IPs are all public, and a bounded URL length.
func ValidateDownloadURL(rawURL string, maxLen int) error {
	if maxLen > 0 && len(rawURL) > maxLen {
		return fmt.Errorf("httpclient: url exceeds max length %d", maxLen)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("httpclient: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("httpclient: scheme %q not permitted", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("httpclient: url has no hostname")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("httpclient: hostname %q does not resolve: %w", host, err)
	}
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return fmt.Errorf("httpclient: hostname %q resolves to a disallowed address %s", host, ip)
		}
	}
	return nil
}

func isDisallowedIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback():
		return true
	case ip.IsLinkLocalUnicast():
		return true
	case ip.IsLinkLocalMulticast():
		return true
	case ip.IsPrivate():
		return true
	case ip.IsUnspecified():
		return true
	}
	return false
}
