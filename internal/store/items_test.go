package store

import "testing"

func seedMeeting(t *testing.T, s *Store, id, banana string) {
	t.Helper()
	seedCity(t, s, banana)
	if err := s.UpsertMeeting(Meeting{ID: id, Banana: banana, Title: "City Council"}); err != nil {
		t.Fatal(err)
	}
}

func TestUpsertAgendaItemReplacesAttachments(t *testing.T) {
	s := tempStore(t)
	seedMeeting(t, s, "abc12345", "cupertinoCA")

	item := AgendaItem{
		ID:        "item-1",
		MeetingID: "abc12345",
		Title:     "Approve budget",
		Sequence:  1,
		Attachments: []Attachment{
			{Name: "Exhibit A", URL: "https://example.com/a.pdf", Type: AttachmentPDF},
		},
	}
	if err := s.UpsertAgendaItem(item); err != nil {
		t.Fatal(err)
	}

	item.Attachments = []Attachment{
		{Name: "Exhibit B", URL: "https://example.com/b.pdf", Type: AttachmentPDF},
	}
	if err := s.UpsertAgendaItem(item); err != nil {
		t.Fatal(err)
	}

	items, err := s.ListAgendaItems("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if len(items[0].Attachments) != 1 {
		t.Fatalf("expected 1 attachment after re-upsert, got %d", len(items[0].Attachments))
	}
	if items[0].Attachments[0].Name != "Exhibit B" {
		t.Errorf("expected Exhibit B to replace Exhibit A, got %q", items[0].Attachments[0].Name)
	}
}

func TestListAgendaItemsOrderedBySequence(t *testing.T) {
	s := tempStore(t)
	seedMeeting(t, s, "abc12345", "cupertinoCA")

	if err := s.UpsertAgendaItem(AgendaItem{ID: "item-2", MeetingID: "abc12345", Title: "Second", Sequence: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertAgendaItem(AgendaItem{ID: "item-1", MeetingID: "abc12345", Title: "First", Sequence: 1}); err != nil {
		t.Fatal(err)
	}

	items, err := s.ListAgendaItems("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Title != "First" || items[1].Title != "Second" {
		t.Errorf("expected items ordered by sequence, got %+v", items)
	}
}

func TestUpdateItemSummaryMarksSummarized(t *testing.T) {
	s := tempStore(t)
	seedMeeting(t, s, "abc12345", "cupertinoCA")
	if err := s.UpsertAgendaItem(AgendaItem{ID: "item-1", MeetingID: "abc12345", Title: "Approve budget", Sequence: 1}); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateItemSummary("item-1", "short summary", []string{"budget"}); err != nil {
		t.Fatal(err)
	}

	items, err := s.ListAgendaItems("abc12345")
	if err != nil {
		t.Fatal(err)
	}
	if !items[0].Summarized {
		t.Error("expected item to be marked summarized")
	}
	if items[0].Summary != "short summary" {
		t.Errorf("expected summary to be set, got %q", items[0].Summary)
	}
}

// TestUpdateItemSummaryErrorsOnUnknownItem guards against a batch result
// silently no-oping when it names an item that was never inserted — e.g. a
// detected chunk the caller forgot to persist before summarizing it.
func TestUpdateItemSummaryErrorsOnUnknownItem(t *testing.T) {
	s := tempStore(t)
	if err := s.UpdateItemSummary("never-inserted", "summary", []string{"budget"}); err == nil {
		t.Error("expected an error updating a never-inserted item")
	}
}
