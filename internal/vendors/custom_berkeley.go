package vendors

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// CustomBerkeley scrapes Berkeley, CA's Drupal-based city council agenda
// listing directly — Berkeley sits on no shared vendor platform.
type CustomBerkeley struct {
	Deps
}

func NewCustomBerkeley(deps Deps) *CustomBerkeley { return &CustomBerkeley{Deps: deps} }

func (b *CustomBerkeley) Vendor() string { return "custom_berkeley" }

const berkeleyBaseURL = "https://berkeleyca.gov"

var (
	berkeleyItemNumber  = regexp.MustCompile(`^\d+\.$`)
	berkeleyTimeInDate  = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*[ap]m)`)
	berkeleyUSDate      = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	berkeleyZoomURL     = regexp.MustCompile(`https://cityofberkeley-info\.zoomgov\.com/j/(\d+)`)
	berkeleyPhonePattern = regexp.MustCompile(`1-(\d{3})-(\d{3})-(\d{4})`)
)

func (b *CustomBerkeley) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	b.wait(b.Vendor())
	listURL := berkeleyBaseURL + "/your-government/city-council/city-council-agendas"

	resp, err := b.HTTP.DoGet(ctx, listURL)
	if err != nil {
		return nil, errFetch(b.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(b.Vendor(), citySlug, err)
	}

	var out []RawMeeting
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateText := berkeleyDateText(cells.Eq(0))
		if dateText == "" {
			return
		}
		meetingDate, ok := berkeleyParseDate(dateText)
		if !ok {
			return
		}

		var htmlLink, pdfLink string
		cells.Eq(1).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := strings.ToLower(strings.TrimSpace(a.Text()))
			switch {
			case strings.Contains(text, "html"):
				htmlLink = parsers.ResolveURL(berkeleyBaseURL, href)
			case strings.Contains(text, "pdf") || strings.Contains(strings.ToLower(href), ".pdf"):
				pdfLink = parsers.ResolveURL(berkeleyBaseURL, href)
			}
		})
		if htmlLink == "" && pdfLink == "" {
			return
		}

		raw := RawMeeting{
			VendorMeetingID: fmt.Sprintf("berkeley_%s", meetingDate.Format("20060102")),
			Title:           "City Council Meeting",
			Start:           meetingDate.Format(time.RFC3339),
			PacketURL:       pdfLink,
		}

		if htmlLink != "" {
			title, participation, items, err := b.fetchDetail(ctx, htmlLink)
			if err != nil {
				b.logger().Warn("custom_berkeley: detail fetch failed", "url", htmlLink, "error", err)
			} else {
				if title != "" {
					raw.Title = title
				}
				raw.AgendaURL = htmlLink
				raw.Participation = participation
				raw.Items = items
			}
		}
		out = append(out, raw)
	})
	return out, nil
}

func berkeleyDateText(cell *goquery.Selection) string {
	timeTag := cell.Find("time").First()
	if timeTag.Length() > 0 {
		if dt, ok := timeTag.Attr("datetime"); ok && dt != "" {
			return dt
		}
		return strings.TrimSpace(timeTag.Text())
	}
	return strings.TrimSpace(cell.Text())
}

func berkeleyParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "T") {
		if t, err := time.Parse(time.RFC3339, strings.Replace(raw, "Z", "+00:00", 1)); err == nil {
			return t, true
		}
	}
	if m := berkeleyUSDate.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func (b *CustomBerkeley) fetchDetail(ctx context.Context, agendaURL string) (string, parsers.Participation, []parsers.Item, error) {
	resp, err := b.HTTP.DoGet(ctx, agendaURL)
	if err != nil {
		return "", parsers.Participation{}, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", parsers.Participation{}, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", parsers.Participation{}, nil, err
	}

	var title string
	doc.Find("strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToUpper(s.Text()), "BERKELEY CITY COUNCIL") {
			title = strings.TrimSpace(s.Text())
			return false
		}
		return true
	})

	pageText := doc.Text()
	var participation parsers.Participation
	if strings.Contains(strings.ToLower(pageText), "council@berkeleyca.gov") {
		participation.Email = "council@berkeleyca.gov"
	}
	if m := berkeleyZoomURL.FindStringSubmatch(pageText); m != nil {
		participation.VirtualURL = m[0]
		participation.MeetingID = m[1]
	}
	if m := berkeleyPhonePattern.FindStringSubmatch(pageText); m != nil {
		participation.Phone = fmt.Sprintf("+1%s%s%s", m[1], m[2], m[3])
	}
	if participation.VirtualURL != "" && strings.Contains(strings.ToLower(pageText), "hybrid") {
		participation.HybridOrVirtual = true
	}

	return title, participation, extractBerkeleyItems(doc), nil
}

// extractBerkeleyItems finds every <strong>N.</strong> marker (numeric
// only — section markers like "H1." use a letter prefix and are skipped)
// and reads the agenda link, From:, and Recommendation: lines that follow.
func extractBerkeleyItems(doc *goquery.Document) []parsers.Item {
	var items []parsers.Item
	doc.Find("strong").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !berkeleyItemNumber.MatchString(text) {
			return
		}
		seq, _ := strconv.Atoi(strings.TrimSuffix(text, "."))

		link := s.NextAllFiltered("a").First()
		if link.Length() == 0 {
			link = s.Parent().Find("a[href]").First()
		}
		if link.Length() == 0 {
			return
		}
		title := strings.TrimPrefix(strings.TrimSpace(link.Text()), "-")
		title = strings.TrimSpace(title)

		href, _ := link.Attr("href")
		attachURL := parsers.ResolveURL(berkeleyBaseURL, href)

		item := parsers.Item{
			VendorItemID: text,
			Title:        title,
			Sequence:     seq,
		}
		if strings.HasSuffix(strings.ToLower(attachURL), ".pdf") {
			item.Attachments = append(item.Attachments, parsers.Attachment{
				Name: title,
				URL:  attachURL,
				Type: "pdf",
			})
		}
		items = append(items, item)
	})
	return items
}
