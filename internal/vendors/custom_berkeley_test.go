package vendors

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func TestBerkeleyParseDateISO(t *testing.T) {
	got, ok := berkeleyParseDate("2026-07-15T18:00:00Z")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got.Year() != 2026 || got.Month() != time.July || got.Day() != 15 {
		t.Errorf("got %v", got)
	}
}

func TestBerkeleyParseDateUS(t *testing.T) {
	got, ok := berkeleyParseDate("07/15/2026")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got.Year() != 2026 || got.Month() != time.July || got.Day() != 15 {
		t.Errorf("got %v", got)
	}
}

func TestBerkeleyParseDateUnparseable(t *testing.T) {
	if _, ok := berkeleyParseDate("not a date"); ok {
		t.Error("expected ok=false for unparseable date")
	}
}

func TestBerkeleyDateTextPrefersTimeTag(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<table><tr><td><time datetime="2026-07-15T18:00:00Z">Jul 15</time></td></tr></table>`))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	got := berkeleyDateText(doc.Find("td"))
	if got != "2026-07-15T18:00:00Z" {
		t.Errorf("berkeleyDateText() = %q", got)
	}
}

func TestBerkeleyDateTextFallsBackToCellText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<table><tr><td> 07/15/2026 </td></tr></table>`))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	got := berkeleyDateText(doc.Find("td"))
	if got != "07/15/2026" {
		t.Errorf("berkeleyDateText() = %q", got)
	}
}

func TestExtractBerkeleyItemsSkipsSectionMarkers(t *testing.T) {
	html := `<html><body>
		<p><strong>H1.</strong> Consent Calendar</p>
		<p><strong>1.</strong> <a href="/agenda/item1.pdf">Adopt the budget</a></p>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	items := extractBerkeleyItems(doc)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (section marker H1. should be skipped)", len(items))
	}
	if items[0].Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", items[0].Sequence)
	}
	if items[0].Title != "Adopt the budget" {
		t.Errorf("Title = %q", items[0].Title)
	}
	if len(items[0].Attachments) != 1 || items[0].Attachments[0].Type != "pdf" {
		t.Errorf("Attachments = %v, want one pdf attachment", items[0].Attachments)
	}
}

func TestBerkeleyVendorName(t *testing.T) {
	b := NewCustomBerkeley(Deps{})
	if b.Vendor() != "custom_berkeley" {
		t.Errorf("Vendor() = %q, want custom_berkeley", b.Vendor())
	}
}

func TestBerkeleyZoomURLAndPhonePatterns(t *testing.T) {
	text := "Join Zoom at https://cityofberkeley-info.zoomgov.com/j/1234567890 or call 1-669-900-6833 (hybrid meeting)"
	zoom := berkeleyZoomURL.FindStringSubmatch(text)
	if zoom == nil || zoom[1] != "1234567890" {
		t.Errorf("berkeleyZoomURL match = %v", zoom)
	}
	phone := berkeleyPhonePattern.FindStringSubmatch(text)
	if phone == nil || phone[1] != "669" || phone[2] != "900" || phone[3] != "6833" {
		t.Errorf("berkeleyPhonePattern match = %v", phone)
	}
}
