package parsers

import "testing"

func TestParseHTMLAgendaPaloAltoPattern(t *testing.T) {
	html := `<html><body>
		<div class="agenda-item" id="AgendaItem_501">Approve contract for street paving</div>
		<div id="agenda_item_area_501">
			<a href="/HistoryAttachment.ashx?historyId=ab12cd34">Staff Report</a>
		</div>
	</body></html>`

	agenda, err := ParseHTMLAgenda(html, "https://city.example.gov/Meeting/1")
	if err != nil {
		t.Fatal(err)
	}
	if len(agenda.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(agenda.Items))
	}
	item := agenda.Items[0]
	if item.VendorItemID != "501" {
		t.Errorf("VendorItemID = %q", item.VendorItemID)
	}
	if len(item.Attachments) != 1 || item.Attachments[0].Name != "Staff Report" {
		t.Errorf("attachments = %+v", item.Attachments)
	}
}

func TestParseHTMLAgendaBoulderPattern(t *testing.T) {
	html := `<html><body>
		<table data-itemid="77">
			<tr>
				<td>A.</td>
				<td>Adopt the updated stormwater ordinance</td>
			</tr>
		</table>
	</body></html>`

	agenda, err := ParseHTMLAgenda(html, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(agenda.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(agenda.Items))
	}
	if agenda.Items[0].AgendaNumber != "A" {
		t.Errorf("AgendaNumber = %q", agenda.Items[0].AgendaNumber)
	}
	if agenda.Items[0].Title != "Adopt the updated stormwater ordinance" {
		t.Errorf("Title = %q", agenda.Items[0].Title)
	}
}

func TestParseCoverSheetAgendaExtractsItemIDs(t *testing.T) {
	html := `<html><body>
		<table>
			<tr><td><a href="CoverSheet.aspx?ItemID=1001&MeetingID=5">Rezoning request</a></td></tr>
			<tr><td><a href="CoverSheet.aspx?ItemID=1002&MeetingID=5">Budget amendment</a></td></tr>
		</table>
	</body></html>`

	agenda, err := ParseCoverSheetAgenda(html)
	if err != nil {
		t.Fatal(err)
	}
	if len(agenda.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(agenda.Items))
	}
	if agenda.Items[0].VendorItemID != "1001" || agenda.Items[1].Sequence != 2 {
		t.Errorf("unexpected items: %+v", agenda.Items)
	}
}

func TestResolveURLJoinsRelativeHref(t *testing.T) {
	got := resolveURL("https://city.example.gov/Meeting/1", "/files/agenda.pdf")
	want := "https://city.example.gov/files/agenda.pdf"
	if got != want {
		t.Errorf("resolveURL() = %q, want %q", got, want)
	}
}
