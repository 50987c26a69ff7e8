package vendors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// CustomMenloPark scrapes Menlo Park, CA's Agendas-and-minutes table and
// extracts items directly from the PDF packet, since the city publishes
// no item-level HTML agenda at all.
type CustomMenloPark struct {
	Deps
}

func NewCustomMenloPark(deps Deps) *CustomMenloPark { return &CustomMenloPark{Deps: deps} }

func (m *CustomMenloPark) Vendor() string { return "custom_menlopark" }

const menloParkBaseURL = "https://menlopark.gov"

var menloParkDateLayouts = []string{"Jan. 2, 2006", "January 2, 2006", "Jan 2, 2006"}

func (m *CustomMenloPark) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	m.wait(m.Vendor())
	listURL := menloParkBaseURL + "/Agendas-and-minutes"

	resp, err := m.HTTP.DoGet(ctx, listURL)
	if err != nil {
		return nil, errFetch(m.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(m.Vendor(), citySlug, err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	twoWeeksOut := today.AddDate(0, 0, 14)

	var out []RawMeeting
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if dateText == "" {
			return
		}
		meetingDate, ok := parseMenloParkDate(dateText)
		if !ok {
			return
		}
		if meetingDate.Before(today) || meetingDate.After(twoWeeksOut) {
			return
		}

		link := cells.Eq(1).Find("a.document[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		pdfURL := parsers.ResolveURL(menloParkBaseURL, href)

		raw := RawMeeting{
			VendorMeetingID: fmt.Sprintf("menlopark_%s", meetingDate.Format("20060102")),
			Title:           "City Council Meeting",
			Start:           meetingDate.Format(time.RFC3339),
			AgendaURL:       pdfURL,
		}

		items, err := m.extractItemsFromPacket(ctx, pdfURL)
		if err != nil {
			m.logger().Warn("custom_menlopark: pdf extraction failed", "url", pdfURL, "error", err)
		} else if len(items) > 0 {
			raw.Items = items
		} else {
			// No items parsed out of the packet text: fall back to
			// processing it monolithically rather than losing the meeting.
			raw.AgendaURL = ""
			raw.PacketURL = pdfURL
		}
		out = append(out, raw)
	})
	return out, nil
}

func (m *CustomMenloPark) extractItemsFromPacket(ctx context.Context, pdfURL string) ([]parsers.Item, error) {
	data, err := m.HTTP.DownloadPDF(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	text, err := parsers.ExtractTextFromBytes(data)
	if err != nil {
		return nil, err
	}
	// ledongthuc/pdf has no link-annotation API, so hyperlinked attachments
	// (Staff Report, Presentation) never get mapped to their items here —
	// the proximity matching the reference implementation does with
	// PyMuPDF has no Go equivalent in this stack.
	return parsers.ParseMenloParkAgenda(text, nil), nil
}

func parseMenloParkDate(raw string) (time.Time, bool) {
	for _, layout := range menloParkDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
