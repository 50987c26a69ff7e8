package vendors

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// Legistar fetches meetings from Granicus's Legistar platform: JSON first,
// falling back to XML when the same endpoint serves application/xml, and
// falling back further to HTML scraping of the public Calendar.aspx page
// when the API itself returns a 4xx (Seattle blocks the API entirely).
// NYC requires an API token; most cities don't.
type Legistar struct {
	Deps
	APIToken string
}

func NewLegistar(deps Deps, apiToken string) *Legistar {
	return &Legistar{Deps: deps, APIToken: apiToken}
}

func (l *Legistar) Vendor() string { return "legistar" }

type legistarEvent struct {
	EventID             json.Number `json:"EventId" xml:"EventId"`
	EventDate           string      `json:"EventDate" xml:"EventDate"`
	EventBodyName       string      `json:"EventBodyName" xml:"EventBodyName"`
	EventAgendaStatus   string      `json:"EventAgendaStatusName" xml:"EventAgendaStatusName"`
	EventAgendaFile     string      `json:"EventAgendaFile" xml:"EventAgendaFile"`
}

type legistarEventsXML struct {
	XMLName xml.Name        `xml:"feed"`
	Entries []legistarEvent `xml:"entry"`
}

type legistarEventItem struct {
	EventItemID             json.Number `json:"EventItemId" xml:"EventItemId"`
	EventItemTitle          string      `json:"EventItemTitle" xml:"EventItemTitle"`
	EventItemAgendaSequence int         `json:"EventItemAgendaSequence" xml:"EventItemAgendaSequence"`
	EventItemMatterID       json.Number `json:"EventItemMatterId" xml:"EventItemMatterId"`
}

type legistarAttachment struct {
	MatterAttachmentName string `json:"MatterAttachmentName"`
	MatterAttachmentHyperlink string `json:"MatterAttachmentHyperlink"`
}

func (l *Legistar) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	l.wait(l.Vendor())

	out, err := l.fetchMeetingsAPI(ctx, citySlug)
	if err == nil {
		return out, nil
	}
	l.logger().Warn("legistar api failed, falling back to html", "city", citySlug, "error", err)
	return l.fetchMeetingsHTML(ctx, citySlug)
}

func (l *Legistar) fetchMeetingsAPI(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	base := fmt.Sprintf("https://webapi.legistar.com/v1/%s", citySlug)
	today := time.Now()
	future := today.AddDate(0, 0, 60)

	q := url.Values{
		"$filter":  {fmt.Sprintf("EventDate ge datetime'%s' and EventDate lt datetime'%s'", today.Format("2006-01-02"), future.Format("2006-01-02"))},
		"$orderby": {"EventDate asc"},
		"$top":     {"1000"},
	}
	if l.APIToken != "" {
		q.Set("token", l.APIToken)
	}

	resp, err := l.HTTP.DoGet(ctx, base+"/events?"+q.Encode())
	if err != nil {
		return nil, errFetch(l.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("legistar: api returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errFetch(l.Vendor(), citySlug, err)
	}

	events, err := decodeLegistarEvents(body)
	if err != nil {
		return nil, err
	}

	out := make([]RawMeeting, 0, len(events))
	for _, ev := range events {
		raw := RawMeeting{
			VendorMeetingID: ev.EventID.String(),
			Title:           ev.EventBodyName,
			Start:           ev.EventDate,
			Status:          ParseStatus(ev.EventBodyName + " " + ev.EventAgendaStatus),
		}

		items, err := l.fetchEventItems(ctx, base, ev.EventID.String())
		if err != nil {
			l.logger().Warn("legistar event items fetch failed", "city", citySlug, "event", ev.EventID, "error", err)
		}
		if len(items) > 0 {
			raw.AgendaURL = ev.EventAgendaFile
			raw.Items = items
		} else if ev.EventAgendaFile != "" {
			raw.PacketURL = ev.EventAgendaFile
		}
		out = append(out, raw)
	}
	return out, nil
}

func decodeLegistarEvents(body []byte) ([]legistarEvent, error) {
	var events []legistarEvent
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}
	var feed legistarEventsXML
	if err := xml.Unmarshal(body, &feed); err == nil {
		return feed.Entries, nil
	}
	return nil, fmt.Errorf("legistar: events response is neither valid json nor xml")
}

func (l *Legistar) fetchEventItems(ctx context.Context, base, eventID string) ([]parsers.Item, error) {
	q := url.Values{}
	if l.APIToken != "" {
		q.Set("token", l.APIToken)
	}
	resp, err := l.HTTP.DoGet(ctx, fmt.Sprintf("%s/events/%s/eventitems?%s", base, eventID, q.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rawItems []legistarEventItem
	if err := json.Unmarshal(body, &rawItems); err != nil {
		return nil, fmt.Errorf("legistar: event items response is not valid json: %w", err)
	}

	items := make([]parsers.Item, 0, len(rawItems))
	for _, it := range rawItems {
		title := strings.TrimSpace(it.EventItemTitle)
		if title == "" {
			continue
		}
		var attachments []parsers.Attachment
		if it.EventItemMatterID.String() != "" && it.EventItemMatterID.String() != "0" {
			attachments, err = l.fetchMatterAttachments(ctx, base, it.EventItemMatterID.String())
			if err != nil {
				l.logger().Warn("legistar matter attachments fetch failed", "matter", it.EventItemMatterID, "error", err)
			}
		}
		items = append(items, parsers.Item{
			VendorItemID: it.EventItemID.String(),
			Title:        title,
			Sequence:     it.EventItemAgendaSequence,
			MatterFile:   it.EventItemMatterID.String(),
			Attachments:  attachments,
		})
	}
	return items, nil
}

func (l *Legistar) fetchMatterAttachments(ctx context.Context, base, matterID string) ([]parsers.Attachment, error) {
	q := url.Values{}
	if l.APIToken != "" {
		q.Set("token", l.APIToken)
	}
	resp, err := l.HTTP.DoGet(ctx, fmt.Sprintf("%s/matters/%s/attachments?%s", base, matterID, q.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw []legistarAttachment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("legistar: matter attachments response is not valid json: %w", err)
	}

	out := make([]parsers.Attachment, 0, len(raw))
	for _, a := range raw {
		out = append(out, parsers.Attachment{
			Name: a.MatterAttachmentName,
			URL:  a.MatterAttachmentHyperlink,
			Type: attachmentTypeFromURL(a.MatterAttachmentHyperlink),
		})
	}
	return filterLegVerAttachments(out), nil
}

// filterLegVerAttachments keeps at most one "Leg Ver" attachment, preferring
// "Leg Ver2" over "Leg Ver1" over whichever version is seen first — the
// source's tie-break for "first seen" isn't itself deterministic (recorded
// as an open question in DESIGN.md), so list order decides: the first match
// wins among equal versions, and the first "Leg Ver" attachment is kept when
// neither version is named.
func filterLegVerAttachments(attachments []parsers.Attachment) []parsers.Attachment {
	var legVers, others []parsers.Attachment
	for _, a := range attachments {
		if strings.Contains(strings.ToLower(a.Name), "leg ver") {
			legVers = append(legVers, a)
		} else {
			others = append(others, a)
		}
	}
	if len(legVers) == 0 {
		return others
	}

	var selected *parsers.Attachment
	for i := range legVers {
		name := strings.ToLower(legVers[i].Name)
		if strings.Contains(name, "leg ver2") || strings.Contains(name, "leg ver 2") {
			selected = &legVers[i]
			break
		}
	}
	if selected == nil {
		for i := range legVers {
			name := strings.ToLower(legVers[i].Name)
			if strings.Contains(name, "leg ver1") || strings.Contains(name, "leg ver 1") {
				selected = &legVers[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &legVers[0]
	}
	return append([]parsers.Attachment{*selected}, others...)
}

var (
	legistarMeetingIDPattern = regexp.MustCompile(`ID=(\d+)`)
	legistarAgendaPDFPattern = regexp.MustCompile(`(?i)View\.ashx.*(M=A|agenda)`)
)

// fetchMeetingsHTML walks the Telerik RadGrid calendar at Calendar.aspx,
// used when the API is unreachable (Seattle returns 403 for its API).
func (l *Legistar) fetchMeetingsHTML(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	calendarURL := fmt.Sprintf("https://%s.legistar.com/Calendar.aspx", citySlug)
	resp, err := l.HTTP.DoGet(ctx, calendarURL)
	if err != nil {
		return nil, errFetch(l.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(l.Vendor(), citySlug, err)
	}

	baseURL := fmt.Sprintf("https://%s.legistar.com", citySlug)
	now := time.Now()
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 60)

	var out []RawMeeting
	doc.Find("tr.rgRow, tr.rgAltRow").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}

		detailLink := row.Find(`a[href*="MeetingDetail.aspx"]`).First()
		if detailLink.Length() == 0 {
			return
		}
		href, _ := detailLink.Attr("href")
		detailURL := parsers.ResolveURL(baseURL, href)
		idMatch := legistarMeetingIDPattern.FindStringSubmatch(detailURL)
		if idMatch == nil {
			return
		}
		meetingID := idMatch[1]

		title := strings.TrimSpace(cells.First().Find("a").First().Text())
		if title == "" {
			title = strings.TrimSpace(detailLink.Text())
		}
		if title == "" || title == "Details" {
			title = "Meeting"
		}

		var meetingTime time.Time
		cells.Each(func(_ int, cell *goquery.Selection) {
			if !meetingTime.IsZero() {
				return
			}
			if t, ok := ParseDate(strings.TrimSpace(cell.Text())); ok {
				meetingTime = t
			}
		})
		if meetingTime.IsZero() || meetingTime.Before(start) || meetingTime.After(end) {
			return
		}

		var packetURL string
		row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			h, _ := a.Attr("href")
			if legistarAgendaPDFPattern.MatchString(h) {
				packetURL = parsers.ResolveURL(baseURL, h)
				return false
			}
			return true
		})

		items, agendaURL, err := l.fetchMeetingDetailHTML(ctx, detailURL, baseURL)
		if err != nil {
			l.logger().Warn("legistar meeting detail fetch failed", "city", citySlug, "meeting", meetingID, "error", err)
		}

		raw := RawMeeting{
			VendorMeetingID: meetingID,
			Title:           title,
			Start:           meetingTime.Format(time.RFC3339),
			Status:          ParseStatus(title),
		}
		if len(items) > 0 {
			raw.Items = items
			raw.AgendaURL = agendaURL
		} else if packetURL != "" {
			raw.PacketURL = packetURL
		}
		out = append(out, raw)
	})
	return out, nil
}

func (l *Legistar) fetchMeetingDetailHTML(ctx context.Context, detailURL, baseURL string) ([]parsers.Item, string, error) {
	resp, err := l.HTTP.DoGet(ctx, detailURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	agenda, err := parsers.ParseHTMLAgenda(string(body), baseURL)
	if err != nil {
		return nil, "", err
	}

	for i := range agenda.Items {
		legURL, ok := l.legislationURLFor(agenda.Items[i])
		if !ok {
			continue
		}
		attachments, err := l.fetchLegislationAttachments(ctx, legURL, baseURL)
		if err != nil {
			l.logger().Warn("legistar legislation attachments fetch failed", "url", legURL, "error", err)
			continue
		}
		agenda.Items[i].Attachments = filterLegVerAttachments(attachments)
	}
	return agenda.Items, detailURL, nil
}

func (l *Legistar) legislationURLFor(item parsers.Item) (string, bool) {
	for _, a := range item.Attachments {
		if strings.Contains(a.URL, "LegislationDetail.aspx") {
			return a.URL, true
		}
	}
	return "", false
}

func (l *Legistar) fetchLegislationAttachments(ctx context.Context, legURL, baseURL string) ([]parsers.Attachment, error) {
	resp, err := l.HTTP.DoGet(ctx, legURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var attachments []parsers.Attachment
	doc.Find(`a[href*="View.ashx"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		name := strings.TrimSpace(a.Text())
		attachments = append(attachments, parsers.Attachment{
			Name: name,
			URL:  parsers.ResolveURL(baseURL, href),
			Type: attachmentTypeFromURL(href),
		})
	})
	return attachments, nil
}

func attachmentTypeFromURL(u string) string {
	lower := strings.ToLower(u)
	switch {
	case strings.HasSuffix(lower, ".pdf"), strings.Contains(lower, "view.ashx"):
		return "pdf"
	case strings.HasSuffix(lower, ".doc"), strings.HasSuffix(lower, ".docx"):
		return "doc"
	default:
		return "unknown"
	}
}
