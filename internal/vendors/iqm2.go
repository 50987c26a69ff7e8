package vendors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/filters"
	"github.com/engagic/pipeline/internal/parsers"
)

// IQM2 scrapes iCompass's IQM2 platform, a Granicus subsidiary with its
// own page structure (Santa Monica, CA and others). The calendar path
// varies by deployment, so a handful of candidates are tried in order.
type IQM2 struct {
	Deps
}

func NewIQM2(deps Deps) *IQM2 { return &IQM2{Deps: deps} }

func (i *IQM2) Vendor() string { return "iqm2" }

func iqm2CalendarCandidates(base string) []string {
	return []string{
		base + "/Citizens",
		base + "/Citizens/Calendar.aspx",
		base + "/Citizens/Default.aspx",
	}
}

var (
	iqm2DetailLink = regexp.MustCompile(`(?i)Detail_Meeting\.aspx\?ID=(\d+)`)
	iqm2LegiFile    = regexp.MustCompile(`(?i)Detail_LegiFile\.aspx\?ID=(\d+)`)
)

func (i *IQM2) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	i.wait(i.Vendor())
	base := fmt.Sprintf("https://%s.iqm2.com", citySlug)

	var doc *goquery.Document
	for _, candidate := range iqm2CalendarCandidates(base) {
		resp, err := i.HTTP.DoGet(ctx, candidate)
		if err != nil {
			continue
		}
		d, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		if d.Find("div.MeetingRow").Length() > 0 {
			doc = d
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("iqm2: no calendar page with meetings found for %s", citySlug)
	}

	now := time.Now()
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 14)

	var out []RawMeeting
	doc.Find("div.MeetingRow").Each(func(_ int, row *goquery.Selection) {
		if row.Find("span.MeetingCancelled").Length() > 0 {
			return
		}

		link := row.Find(`a[href*="Detail_Meeting.aspx?ID="]`).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		m := iqm2DetailLink.FindStringSubmatch(href)
		if m == nil {
			return
		}
		meetingID := m[1]

		dtText := strings.TrimSpace(link.Text())
		meetingDT, err := time.Parse("Jan 2, 2006 3:04 PM", dtText)
		if err != nil {
			i.logger().Warn("iqm2: unparseable meeting datetime", "city", citySlug, "text", dtText)
			return
		}
		if meetingDT.Before(start) || meetingDT.After(end) {
			return
		}

		title := strings.TrimSpace(row.Find("div.RowDetails").First().Text())
		if title == "" {
			title = "Meeting"
		}

		raw, err := i.fetchMeetingDetails(ctx, base, citySlug, meetingID, meetingDT, title)
		if err != nil {
			i.logger().Warn("iqm2: meeting detail fetch failed", "city", citySlug, "meeting_id", meetingID, "error", err)
			return
		}
		out = append(out, raw)
	})
	return out, nil
}

func (i *IQM2) fetchMeetingDetails(ctx context.Context, base, citySlug, meetingID string, meetingDT time.Time, title string) (RawMeeting, error) {
	detailURL := fmt.Sprintf("%s/Citizens/Detail_Meeting.aspx?ID=%s", base, meetingID)
	resp, err := i.HTTP.DoGet(ctx, detailURL)
	if err != nil {
		return RawMeeting{}, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return RawMeeting{}, err
	}

	items := parseIQM2AgendaItems(doc, citySlug, meetingID)
	filtered := items[:0]
	for _, item := range items {
		if !filters.ShouldSkipItem(item.Title, "") {
			filtered = append(filtered, item)
		}
	}

	raw := RawMeeting{
		VendorMeetingID: fmt.Sprintf("iqm2-%s-%s", citySlug, meetingID),
		Title:           title,
		Start:           meetingDT.Format(time.RFC3339),
		AgendaURL:       detailURL,
		Items:           filtered,
		Status:          ParseStatus(title),
	}

	if packetLink := doc.Find(`a[id*="hlFullAgendaFile"]`).First(); packetLink.Length() > 0 {
		if href, ok := packetLink.Attr("href"); ok {
			raw.PacketURL = parsers.ResolveURL(base, href)
		}
	}
	return raw, nil
}

// parseIQM2AgendaItems walks the #MeetingDetail table, whose rows alternate
// between section headers, numbered items (letter or digit numbering, or
// an empty Num cell carrying a Detail_LegiFile link directly), item
// comments, and lettered attachment rows.
func parseIQM2AgendaItems(doc *goquery.Document, citySlug, meetingID string) []parsers.Item {
	table := doc.Find("table#MeetingDetail").First()
	if table.Length() == 0 {
		return nil
	}

	var items []parsers.Item
	var current *parsers.Item
	sequence := 0

	itemNumPattern := regexp.MustCompile(`^[A-Z0-9]+\.\s*$`)
	attachNumPattern := regexp.MustCompile(`^[a-z]\.\s*$`)

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		// 3+ cell rows: a numbered item, or a Comments row continuing current.
		if cells.Length() >= 3 {
			numCell := cells.Eq(1)
			titleCell := cells.Eq(2)
			numText := strings.TrimSpace(numCell.Text())

			if hasClass(numCell, "Num") {
				legiLink := titleCell.Find(`a[href*="Detail_LegiFile.aspx"]`).First()
				if itemNumPattern.MatchString(numText) || (numText == "" && legiLink.Length() > 0) {
					if current != nil {
						items = append(items, *current)
					}
					sequence++

					itemTitle := strings.TrimSpace(titleCell.Text())
					var matterFile string
					if legiLink.Length() > 0 {
						itemTitle = strings.TrimSpace(legiLink.Text())
						matterFile = extractMatterFile(itemTitle)
					}

					itemID := fmt.Sprintf("iqm2-%s-%s-%d", citySlug, meetingID, sequence)
					if href, ok := legiLink.Attr("href"); ok {
						if m := iqm2LegiFile.FindStringSubmatch(href); m != nil {
							itemID = m[1]
						}
					}

					current = &parsers.Item{
						VendorItemID: itemID,
						Title:        itemTitle,
						Sequence:     sequence,
						AgendaNumber: numText,
						MatterFile:   matterFile,
					}
					return
				}
			}
			if hasClass(titleCell, "Comments") {
				// Item description text; carried in the title's context only,
				// since parsers.Item has no separate description field.
				return
			}
		}

		// 4+ cell rows with the first two empty: an attachment under current.
		if cells.Length() >= 4 && current != nil {
			c0 := strings.TrimSpace(cells.Eq(0).Text())
			c1 := strings.TrimSpace(cells.Eq(1).Text())
			numCell := cells.Eq(2)
			titleCell := cells.Eq(3)
			if c0 == "" && c1 == "" && hasClass(numCell, "Num") {
				numText := strings.TrimSpace(numCell.Text())
				if attachNumPattern.MatchString(numText) || numCell.Find("img").Length() > 0 {
					link := titleCell.Find("a[href]").First()
					if link.Length() > 0 {
						href, _ := link.Attr("href")
						name := strings.TrimSpace(link.Text())
						current.Attachments = append(current.Attachments, parsers.Attachment{
							Name: name,
							URL:  href,
							Type: attachmentTypeFromURL(href),
						})
					}
				}
			}
		}
	})
	if current != nil {
		items = append(items, *current)
	}
	return items
}

func hasClass(s *goquery.Selection, class string) bool {
	val, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(val) {
		if c == class {
			return true
		}
	}
	return false
}

var (
	matterCaseNumber  = regexp.MustCompile(`\b([A-Z]{2,5}\d{2}-\d{4,5})\b`)
	matterCompoundForm = regexp.MustCompile(`^([A-Z]{2,5})\s+(\d{4})\s+#(\d+)`)
)

// extractMatterFile pulls a short case/file number out of an item title,
// preferring an explicit case-number pattern over separator-based guesses.
func extractMatterFile(title string) string {
	if m := matterCaseNumber.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	if m := matterCompoundForm.FindStringSubmatch(title); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if idx := strings.Index(title, " / "); idx >= 0 {
		return strings.TrimSpace(title[:idx])
	}
	if idx := strings.Index(title, ":"); idx >= 0 {
		prefix := strings.TrimSpace(title[:idx])
		prefix = strings.ReplaceAll(prefix, " #", "-")
		return strings.ReplaceAll(prefix, " ", "-")
	}
	return ""
}
