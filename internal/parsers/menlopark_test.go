package parsers

import "testing"

func TestParseMenloParkAgendaExtractsItemsAndAttachments(t *testing.T) {
	pdfText := "--- PAGE" + " 3 ---\n" +
		"H.\nPRESENTATIONS\n" +
		"H1.\nTour de Menlo recognition (Attachment)\n" +
		"I.\nAPPOINTMENTS\n" +
		"I1.\nPlanning Commission vacancy\n"

	links := []PDFLink{
		{Page: 3, URL: "https://menlopark.gov/files/sharedassets/h1-20251021-cc-tour-de-menlo.pdf"},
		{Page: 3, URL: "https://menlopark.gov/files/sharedassets/i1-20251021-cc-vacancy.pdf"},
		{Page: 3, URL: "https://zoom.us/j/12345"},
	}

	items := ParseMenloParkAgenda(pdfText, links)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}

	if items[0].VendorItemID != "H1" || items[0].Sequence != 1 {
		t.Errorf("item 0 = %+v", items[0])
	}
	if len(items[0].Attachments) != 1 {
		t.Fatalf("expected 1 attachment for H1, got %+v", items[0].Attachments)
	}
	if items[0].Attachments[0].Name != "H1 - Attachment" {
		t.Errorf("attachment name = %q", items[0].Attachments[0].Name)
	}

	if items[1].VendorItemID != "I1" || items[1].Sequence != 1 {
		t.Errorf("item 1 = %+v", items[1])
	}
	if len(items[1].Attachments) != 1 {
		t.Fatalf("expected 1 attachment for I1, got %+v", items[1].Attachments)
	}
}

func TestParseMenloParkAgendaStaffReportMarker(t *testing.T) {
	pdfText := "--- PAGE" + " 5 ---\n" +
		"J.\nCONSENT CALENDAR\n" +
		"J1.\nApprove minutes (Staff Report #25-155-CC)\n"

	links := []PDFLink{
		{Page: 5, URL: "https://menlopark.gov/files/sharedassets/j1-20251021-cc-minutes.pdf"},
	}

	items := ParseMenloParkAgenda(pdfText, links)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if len(items[0].Attachments) != 1 || items[0].Attachments[0].Name != "Staff Report #25-155-CC" {
		t.Errorf("attachments = %+v", items[0].Attachments)
	}
}
