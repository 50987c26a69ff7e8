package store

import (
	"database/sql"
	"testing"
	"time"
)

func seedCity(t *testing.T, s *Store, banana string) {
	t.Helper()
	if err := s.UpsertCity(City{Banana: banana, Name: banana, State: "CA", Vendor: "primegov", Slug: banana}); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateMeetingIDIsStable(t *testing.T) {
	first := GenerateMeetingID("cupertino", "2026-03-01", "City Council", "regular")
	second := GenerateMeetingID("cupertino", "2026-03-01", "City Council", "regular")
	if first != second {
		t.Errorf("meeting id not stable: %q vs %q", first, second)
	}
	if len(first) != 8 {
		t.Errorf("expected 8-char id, got %q (%d chars)", first, len(first))
	}
}

func TestGenerateMeetingIDDiffersOnTitle(t *testing.T) {
	a := GenerateMeetingID("cupertino", "2026-03-01", "City Council", "regular")
	b := GenerateMeetingID("cupertino", "2026-03-01", "Planning Commission", "regular")
	if a == b {
		t.Error("expected different ids for different titles")
	}
}

func TestUpsertMeetingIsIdempotent(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")

	m := Meeting{
		ID:     "abc12345",
		Banana: "cupertinoCA",
		Title:  "City Council",
		Status: "scheduled",
	}
	if err := s.UpsertMeeting(m); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertMeeting(m); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMeeting("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected meeting to exist")
	}
	if got.ProcessingStatus != "pending" {
		t.Errorf("expected default processing_status pending, got %q", got.ProcessingStatus)
	}
}

func TestStoreProcessingResultSetsCompleteAtomically(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	if err := s.UpsertMeeting(Meeting{ID: "abc12345", Banana: "cupertinoCA", Title: "City Council"}); err != nil {
		t.Fatal(err)
	}

	if err := s.StoreProcessingResult("abc12345", "summary text", []string{"housing", "budget"}, "single_pdf", 4.2, "6-1"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMeeting("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "summary text" {
		t.Errorf("expected summary to be set, got %q", got.Summary)
	}
	if got.ProcessingStatus != "complete" {
		t.Errorf("expected processing_status complete, got %q", got.ProcessingStatus)
	}
	if len(got.Topics) != 2 {
		t.Errorf("expected 2 topics, got %v", got.Topics)
	}
}

func TestMarkMeetingProcessingStatusDoesNotTouchSummary(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	if err := s.UpsertMeeting(Meeting{ID: "abc12345", Banana: "cupertinoCA", Title: "City Council"}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreProcessingResult("abc12345", "summary text", nil, "single_pdf", 1.0, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkMeetingProcessingStatus("abc12345", "processing"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetMeeting("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "summary text" {
		t.Error("expected summary to survive a bare status transition")
	}
	if got.ProcessingStatus != "processing" {
		t.Errorf("expected processing_status processing, got %q", got.ProcessingStatus)
	}
}

func TestUpsertMeetingRejectsEmptyID(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	err := s.UpsertMeeting(Meeting{Banana: "cupertinoCA", Title: "City Council"})
	if err == nil {
		t.Error("expected error for empty meeting id")
	}
}

func TestUpsertMeetingWithDate(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	date := sql.NullTime{Time: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), Valid: true}
	if err := s.UpsertMeeting(Meeting{ID: "abc12345", Banana: "cupertinoCA", Title: "City Council", Date: date}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMeeting("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Date.Valid {
		t.Error("expected meeting date to be set")
	}
}

func TestMeetingProcessingStatusCounts(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	if err := s.UpsertMeeting(Meeting{ID: "abc12345", Banana: "cupertinoCA", Title: "City Council"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertMeeting(Meeting{ID: "def67890", Banana: "cupertinoCA", Title: "Planning Commission"}); err != nil {
		t.Fatal(err)
	}
	if err := s.StoreProcessingResult("abc12345", "summary text", []string{"housing"}, "tier1_pymupdf_gemini", 1.5, ""); err != nil {
		t.Fatal(err)
	}

	counts, err := s.MeetingProcessingStatusCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["complete"] != 1 || counts["pending"] != 1 {
		t.Errorf("expected 1 complete and 1 pending, got %+v", counts)
	}
}
