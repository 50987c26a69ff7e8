package vendors

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// NovusAgenda scrapes a city's /agendapublic list page. Cities on this
// platform include Hagerstown, MD and Houston, TX.
type NovusAgenda struct {
	Deps
}

func NewNovusAgenda(deps Deps) *NovusAgenda { return &NovusAgenda{Deps: deps} }

func (n *NovusAgenda) Vendor() string { return "novusagenda" }

var (
	novusPDFHref     = regexp.MustCompile(`(?i)DisplayAgendaPDF\.ashx`)
	novusMeetingID   = regexp.MustCompile(`MeetingID=(\d+)`)
	novusOnclickURL  = regexp.MustCompile(`MeetingView\.aspx\?[^'"]+`)
)

func (n *NovusAgenda) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	n.wait(n.Vendor())
	base := fmt.Sprintf("https://%s.novusagenda.com", citySlug)

	resp, err := n.HTTP.DoGet(ctx, base+"/agendapublic")
	if err != nil {
		return nil, errFetch(n.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(n.Vendor(), citySlug, err)
	}

	now := time.Now()
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 14)

	var out []RawMeeting
	doc.Find("tr.rgRow, tr.rgAltRow").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		dateStr := strings.TrimSpace(cells.Eq(0).Text())
		meetingType := strings.TrimSpace(cells.Eq(1).Text())

		meetingDate, err := time.Parse("01/02/06", dateStr)
		if err != nil {
			n.logger().Warn("novusagenda: unparseable date", "city", citySlug, "date", dateStr)
			return
		}
		if meetingDate.Before(start) || meetingDate.After(end) {
			return
		}

		timeField := ""
		if cells.Length() > 3 {
			timeField = strings.TrimSpace(cells.Eq(3).Text())
		}

		raw := RawMeeting{
			Title:  meetingType,
			Start:  meetingDate.Format(time.RFC3339),
			Status: ParseStatus(meetingType + " " + timeField),
		}

		if pdfLink := row.Find(`a[href]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return novusPDFHref.MatchString(href)
		}).First(); pdfLink.Length() > 0 {
			href, _ := pdfLink.Attr("href")
			if m := novusMeetingID.FindStringSubmatch(href); m != nil {
				raw.VendorMeetingID = m[1]
			}
			raw.PacketURL = fmt.Sprintf("%s/agendapublic/%s", base, href)
		}

		agendaURL := bestNovusAgendaLink(row, base)
		if agendaURL != "" {
			items, err := n.fetchAgendaItems(ctx, agendaURL)
			if err != nil {
				n.logger().Warn("novusagenda agenda fetch failed", "city", citySlug, "url", agendaURL, "error", err)
			} else if len(items) > 0 {
				raw.AgendaURL = agendaURL
				raw.Items = items
			}
		}

		if raw.VendorMeetingID == "" {
			raw.VendorMeetingID = fmt.Sprintf("%s-%s", dateStr, meetingType)
		}
		out = append(out, raw)
	})
	return out, nil
}

// bestNovusAgendaLink scores candidate onclick links by parsability: HTML
// and Online agendas outrank a generic "view agenda" link, and "Summary"
// links are never chosen since they carry no structured items.
func bestNovusAgendaLink(row *goquery.Selection, base string) string {
	bestScore := 0
	bestURL := ""
	row.Find(`a[onclick*="MeetingView.aspx"]`).Each(func(_ int, a *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		if img := a.Find("img"); img.Length() > 0 {
			alt, _ := img.Attr("alt")
			text = strings.TrimSpace(text + " " + strings.ToLower(alt))
		}

		score := 0
		switch {
		case strings.Contains(text, "html agenda") || strings.Contains(text, "online agenda"):
			score = 3
		case strings.Contains(text, "summary"):
			score = 0
		case strings.Contains(text, "view agenda") || strings.Contains(text, "agenda"):
			score = 2
		}
		if score <= bestScore {
			return
		}

		onclick, _ := a.Attr("onclick")
		m := novusOnclickURL.FindString(onclick)
		if m == "" {
			return
		}
		bestScore = score
		bestURL = fmt.Sprintf("%s/agendapublic/%s", base, m)
	})
	return bestURL
}

func (n *NovusAgenda) fetchAgendaItems(ctx context.Context, agendaURL string) ([]parsers.Item, error) {
	resp, err := n.HTTP.DoGet(ctx, agendaURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	agenda, err := parsers.ParseCoverSheetAgenda(string(body))
	if err != nil {
		return nil, err
	}
	return agenda.Items, nil
}
