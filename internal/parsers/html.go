package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	coverSheetHref  = regexp.MustCompile(`(?i)CoverSheet\.aspx\?ItemID=(\d+)`)
	historyAttachID = regexp.MustCompile(`(?i)historyId=([a-f0-9-]+)`)
	pdfViewerHref   = regexp.MustCompile(`(?i)(MetaViewer\.php|FileStream\.ashx|historyattachment)`)
)

// ParseHTMLAgenda parses an agenda HTML page against the three known
// item-container shapes (newest-first): meeting-item wrappers with
// matter tracking, direct agenda-item divs, and data-itemid tables.
// Vendors that don't match any of these (NovusAgenda, custom sites)
// fall back to ParseCoverSheetAgenda or a vendor-specific parser.
func ParseHTMLAgenda(html, baseURL string) (ParsedAgenda, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ParsedAgenda{}, err
	}

	agenda := ParsedAgenda{
		Participation: ParseParticipation(doc.Text()),
	}

	if items := extractMeetingItemPattern(doc, baseURL); len(items) > 0 {
		agenda.Items = items
		return agenda, nil
	}
	if items := extractAgendaItemDivPattern(doc, baseURL); len(items) > 0 {
		agenda.Items = items
		return agenda, nil
	}
	if items := extractDataItemIDTablePattern(doc, baseURL); len(items) > 0 {
		agenda.Items = items
		return agenda, nil
	}

	return agenda, nil
}

// ParseCoverSheetAgenda handles the NovusAgenda MeetingView shape: a flat
// list of links to CoverSheet.aspx, with no nested attachment content
// available until each cover sheet page is fetched separately.
func ParseCoverSheetAgenda(html string) (ParsedAgenda, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ParsedAgenda{}, err
	}

	var items []Item
	sequence := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := coverSheetHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		sequence++
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			if td := sel.Closest("td"); td.Length() > 0 {
				title = strings.TrimSpace(td.Text())
			}
		}
		items = append(items, Item{
			VendorItemID: m[1],
			Title:        title,
			Sequence:     sequence,
		})
	})

	return ParsedAgenda{Items: items}, nil
}

func extractMeetingItemPattern(doc *goquery.Document, baseURL string) []Item {
	var items []Item
	sequence := 0
	doc.Find("div.meeting-item").Each(func(_ int, meetingItem *goquery.Selection) {
		itemID, ok := meetingItem.Attr("data-itemid")
		if !ok || itemID == "" {
			return
		}
		agendaItem := meetingItem.Find("div.agenda-item").First()
		if agendaItem.Length() == 0 {
			return
		}
		sequence++

		var matterFile, matterType, title string
		table := agendaItem.Find("table.forcepopulate").First()
		if table.Length() > 0 {
			rows := table.Find("tr")
			if rows.Length() > 0 {
				matterFile = strings.TrimSpace(rows.Eq(0).Find("td[colspan='2']").First().Text())
			}
			if rows.Length() > 1 {
				cells := rows.Eq(1).Find("td")
				if cells.Length() >= 2 {
					matterType = strings.TrimSpace(cells.Eq(0).Text())
					title = joinFields(cells.Eq(1).Text())
				}
			}
		}
		if title == "" {
			title = joinFields(agendaItem.Text())
		}

		var agendaNumber string
		if numberCell := meetingItem.Find("table.item-table td.number-cell").First(); numberCell.Length() > 0 {
			agendaNumber = strings.Trim(strings.TrimSpace(numberCell.Text()), "()")
		}

		attachments := extractAttachments(doc, "agenda_item_area_"+itemID, baseURL)

		items = append(items, Item{
			VendorItemID: itemID,
			Title:        title,
			Sequence:     sequence,
			AgendaNumber: agendaNumber,
			MatterFile:   matterFile,
			MatterType:   matterType,
			Attachments:  attachments,
		})
	})
	return items
}

func extractAgendaItemDivPattern(doc *goquery.Document, baseURL string) []Item {
	var items []Item
	sequence := 0
	doc.Find("div.agenda-item").Each(func(_ int, itemDiv *goquery.Selection) {
		fullID, ok := itemDiv.Attr("id")
		if !ok || fullID == "" {
			return
		}
		itemID := strings.TrimPrefix(fullID, "AgendaItem_")
		sequence++
		items = append(items, Item{
			VendorItemID: itemID,
			Title:        joinFields(itemDiv.Text()),
			Sequence:     sequence,
			Attachments:  extractAttachments(doc, "agenda_item_area_"+itemID, baseURL),
		})
	})
	return items
}

func extractDataItemIDTablePattern(doc *goquery.Document, baseURL string) []Item {
	var items []Item
	sequence := 0
	doc.Find("table[data-itemid]").Each(func(_ int, table *goquery.Selection) {
		itemID, ok := table.Attr("data-itemid")
		if !ok || itemID == "" {
			return
		}

		var title, agendaNumber string
		table.Find("td").Each(func(_ int, cell *goquery.Selection) {
			class, _ := cell.Attr("class")
			text := strings.TrimSpace(cell.Text())
			if text == "" || strings.Contains(class, "attachmentCell") || strings.Contains(class, "optionalButtonsCell") {
				return
			}
			if len(text) <= 3 && (strings.HasSuffix(text, ".") || isDigits(text)) {
				agendaNumber = strings.TrimSuffix(text, ".")
				return
			}
			if title == "" {
				title = text
			}
		})
		if title == "" {
			return
		}
		sequence++
		items = append(items, Item{
			VendorItemID: itemID,
			Title:        title,
			Sequence:     sequence,
			AgendaNumber: agendaNumber,
			Attachments:  extractAttachments(doc, "agenda_item_area_"+itemID, baseURL),
		})
	})
	return items
}

func extractAttachments(doc *goquery.Document, contentsID, baseURL string) []Attachment {
	var attachments []Attachment
	contents := doc.Find("#" + contentsID)
	if contents.Length() == 0 {
		return nil
	}
	contents.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		lower := strings.ToLower(href)
		name := strings.TrimSpace(link.Text())

		switch {
		case strings.Contains(lower, "historyattachment"):
			if historyAttachID.MatchString(href) {
				if name == "" {
					name = "Attachment"
				}
				attachments = append(attachments, Attachment{
					Name: name,
					URL:  resolveURL(baseURL, href),
					Type: attachmentTypeFromURL(href),
				})
			}
		case pdfViewerHref.MatchString(href), strings.HasSuffix(lower, ".pdf"):
			if name == "" {
				name = "Attachment"
			}
			attachments = append(attachments, Attachment{
				Name: name,
				URL:  resolveURL(baseURL, href),
				Type: "pdf",
			})
		}
	})
	return attachments
}

func attachmentTypeFromURL(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".pdf"), pdfViewerHref.MatchString(url):
		return "pdf"
	case strings.HasSuffix(lower, ".doc"), strings.HasSuffix(lower, ".docx"):
		return "doc"
	default:
		return "pdf"
	}
}

func joinFields(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
