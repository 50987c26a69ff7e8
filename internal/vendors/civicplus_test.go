package vendors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCivicPlusScrapeListPageDirectPDFLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/AgendaCenter", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table>
			<tr><td><a href="/AgendaCenter/ViewFile/Agenda/_07152026-123">July 15, 2026 City Council Meeting</a></td></tr>
		</table>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := &CivicPlus{Deps: newTestDeps(t)}
	out, err := c.scrapeListPage(context.Background(), srv.URL+"/AgendaCenter", srv.URL)
	if err != nil {
		t.Fatalf("scrapeListPage: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d meetings, want 1", len(out))
	}
	m := out[0]
	if m.PacketURL == "" {
		t.Errorf("expected PacketURL set for direct ViewFile link")
	}
	if m.VendorMeetingID != "123" {
		t.Errorf("VendorMeetingID = %q, want %q", m.VendorMeetingID, "123")
	}
	if m.AgendaURL != "" {
		t.Errorf("expected no AgendaURL for a direct PDF link, got %q", m.AgendaURL)
	}
}

func TestCivicPlusScrapeListPageDetailPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/AgendaCenter", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table>
			<tr><td><a href="/AgendaCenter/City-Council-07152026-456">July 15, 2026 City Council Meeting</a></td></tr>
		</table>`))
	})
	mux.HandleFunc("/AgendaCenter/City-Council-07152026-456", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<ol>
				<li><a href="/AgendaCenter/ViewFile/Item/1">1. Call to order</a></li>
			</ol>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := &CivicPlus{Deps: newTestDeps(t)}
	out, err := c.scrapeListPage(context.Background(), srv.URL+"/AgendaCenter", srv.URL)
	if err != nil {
		t.Fatalf("scrapeListPage: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d meetings, want 1", len(out))
	}
	if out[0].VendorMeetingID == "" {
		t.Errorf("expected a VendorMeetingID (the detail URL) to be set")
	}
}

func TestCivicPlusVendorName(t *testing.T) {
	c := NewCivicPlus(Deps{})
	if c.Vendor() != "civicplus" {
		t.Errorf("Vendor() = %q, want civicplus", c.Vendor())
	}
}

func TestCivicPlusViewFilePatternMatchesAgendaAndItem(t *testing.T) {
	cases := []string{
		"https://example.civicplus.com/AgendaCenter/ViewFile/Agenda/_07152026-123",
		"https://example.civicplus.com/AgendaCenter/ViewFile/Item/456",
	}
	for _, url := range cases {
		if !civicplusViewFilePattern.MatchString(url) {
			t.Errorf("expected %q to match civicplusViewFilePattern", url)
		}
	}
	if civicplusViewFilePattern.MatchString("https://example.civicplus.com/AgendaCenter/Search") {
		t.Errorf("did not expect a non-ViewFile URL to match")
	}
}

func TestCivicPlusWarnIfExternalSystemDoesNotPanicOnPlainHomepage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/AgendaCenter">Agendas</a></body></html>`))
	}))
	defer srv.Close()

	c := &CivicPlus{Deps: newTestDeps(t)}
	c.warnIfExternalSystem(context.Background(), srv.URL)
}

func TestCivicPlusScrapeListPageSkipsRowsWithoutLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table><tr><td>No link here</td></tr></table>`))
	}))
	defer srv.Close()

	c := &CivicPlus{Deps: newTestDeps(t)}
	out, err := c.scrapeListPage(context.Background(), srv.URL, srv.URL)
	if err != nil {
		t.Fatalf("scrapeListPage: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d meetings, want 0", len(out))
	}
}

func TestCivicPlusFetchMeetingsTriesAgendaPathsInOrder(t *testing.T) {
	if civicplusAgendaPaths[0] != "/AgendaCenter" {
		t.Fatalf("expected /AgendaCenter to be tried first, got %v", civicplusAgendaPaths)
	}
	if !strings.Contains(strings.Join(civicplusAgendaPaths, ","), "/Calendar.aspx") {
		t.Fatalf("expected /Calendar.aspx to be a fallback path")
	}
}
