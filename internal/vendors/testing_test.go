package vendors

import (
	"log/slog"
	"testing"

	"github.com/engagic/pipeline/internal/config"
	"github.com/engagic/pipeline/internal/httpclient"
)

// newTestDeps builds Deps wired to a discard logger and a permissive
// httpclient.Client, suitable for pointing at an httptest.Server.
func newTestDeps(t *testing.T) Deps {
	t.Helper()
	cfg := config.HTTPClient{
		RequestTimeout:   config.Duration{Duration: 5e9},
		HeadTimeout:      config.Duration{Duration: 2e9},
		MaxRetries:       1,
		UserAgent:        "engagic-test/1.0",
		PDFUserAgent:     "engagic-test/1.0",
		MaxPDFAPIBytes:   10 << 20,
		MaxPDFLocalBytes: 10 << 20,
		MaxURLLength:     2000,
	}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return Deps{HTTP: httpclient.New(cfg, logger), Logger: logger}
}

// testWriter adapts *testing.T into an io.Writer so the test logger's
// output attaches to the failing test instead of polluting stdout.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", p)
	return len(p), nil
}
