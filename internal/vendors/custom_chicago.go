package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/engagic/pipeline/internal/parsers"
)

// CustomChicago talks to Chicago's city council REST API directly —
// a JSON OData-filtered endpoint that needs no HTML scraping at all.
type CustomChicago struct {
	Deps
}

func NewCustomChicago(deps Deps) *CustomChicago { return &CustomChicago{Deps: deps} }

func (c *CustomChicago) Vendor() string { return "custom_chicago" }

const chicagoAPIBase = "https://api.chicityclerkelms.chicago.gov"

type chicagoMeeting struct {
	MeetingID any    `json:"meetingId"`
	Body      string `json:"body"`
	Date      string `json:"date"`
	Location  string `json:"location"`
}

type chicagoMeetingList struct {
	Data []chicagoMeeting `json:"data"`
}

type chicagoMeetingDetail struct {
	Agenda struct {
		Groups []chicagoGroup `json:"groups"`
	} `json:"agenda"`
	Files []chicagoFile `json:"files"`
}

type chicagoGroup struct {
	Title string        `json:"title"`
	Items []chicagoItem `json:"items"`
}

type chicagoItem struct {
	MatterID     any    `json:"matterId"`
	CommentID    any    `json:"commentId"`
	MatterTitle  string `json:"matterTitle"`
	Sort         int    `json:"sort"`
	RecordNumber string `json:"recordNumber"`
	MatterType   string `json:"matterType"`
	ActionName   string `json:"actionName"`
}

type chicagoFile struct {
	AttachmentType string `json:"attachmentType"`
	Path           string `json:"path"`
}

type chicagoMatter struct {
	Attachments []chicagoAttachment `json:"attachments"`
}

type chicagoAttachment struct {
	FileName       string `json:"fileName"`
	Path           string `json:"path"`
	AttachmentType string `json:"attachmentType"`
}

func (c *CustomChicago) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	c.wait(c.Vendor())

	now := time.Now().Truncate(24 * time.Hour)
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 14)
	filter := fmt.Sprintf("date ge %s and date lt %s",
		start.Format("2006-01-02T15:04:05Z"), end.Format("2006-01-02T15:04:05Z"))

	listURL := fmt.Sprintf("%s/meeting-agenda?filter=%s&sort=date+desc&top=500", chicagoAPIBase, url.QueryEscape(filter))
	var list chicagoMeetingList
	if err := c.getJSON(ctx, listURL, &list); err != nil {
		return nil, errFetch(c.Vendor(), citySlug, err)
	}

	var out []RawMeeting
	for _, m := range list.Data {
		meetingID := fmt.Sprint(m.MeetingID)
		if meetingID == "" || meetingID == "<nil>" || m.Date == "" {
			continue
		}

		meetingDate, err := parseChicagoISO(m.Date)
		if err != nil {
			c.logger().Warn("custom_chicago: unparseable date", "meeting_id", meetingID, "date", m.Date)
			continue
		}

		var detail chicagoMeetingDetail
		detailURL := fmt.Sprintf("%s/meeting-agenda/%s", chicagoAPIBase, meetingID)
		if err := c.getJSON(ctx, detailURL, &detail); err != nil {
			c.logger().Warn("custom_chicago: meeting detail fetch failed", "meeting_id", meetingID, "error", err)
			continue
		}

		items := c.extractAgendaItems(ctx, &detail)

		var agendaURL string
		for _, f := range detail.Files {
			if f.AttachmentType == "Agenda" {
				agendaURL = f.Path
				break
			}
		}
		if agendaURL == "" && len(detail.Files) > 0 {
			agendaURL = detail.Files[0].Path
		}

		title := m.Body
		if title == "" {
			title = "City Council Meeting"
		}
		raw := RawMeeting{
			VendorMeetingID: meetingID,
			Title:           title,
			Start:           meetingDate.Format(time.RFC3339),
		}

		switch {
		case len(items) > 0:
			raw.AgendaURL = agendaURL
			raw.Items = items
		case agendaURL != "":
			raw.PacketURL = agendaURL
		default:
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *CustomChicago) extractAgendaItems(ctx context.Context, detail *chicagoMeetingDetail) []parsers.Item {
	var items []parsers.Item
	for _, group := range detail.Agenda.Groups {
		for _, it := range group.Items {
			matterID := fmt.Sprint(it.MatterID)
			if matterID == "<nil>" {
				matterID = ""
			}
			itemID := matterID
			if itemID == "" {
				itemID = fmt.Sprint(it.CommentID)
			}
			if itemID == "" || itemID == "<nil>" {
				continue
			}

			var attachments []parsers.Attachment
			if matterID != "" {
				attachments = c.fetchMatterAttachments(ctx, matterID)
			}

			items = append(items, parsers.Item{
				VendorItemID: itemID,
				Title:        strings.TrimSpace(it.MatterTitle),
				Sequence:     it.Sort,
				MatterFile:   it.RecordNumber,
				MatterType:   it.MatterType,
				Attachments:  attachments,
			})
		}
	}
	return items
}

func (c *CustomChicago) fetchMatterAttachments(ctx context.Context, matterID string) []parsers.Attachment {
	var matter chicagoMatter
	url := fmt.Sprintf("%s/matter/%s", chicagoAPIBase, matterID)
	if err := c.getJSON(ctx, url, &matter); err != nil {
		return nil
	}

	var out []parsers.Attachment
	for _, att := range matter.Attachments {
		path := strings.TrimSpace(att.Path)
		if path == "" {
			continue
		}
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = att.AttachmentType
		}
		if name == "" {
			name = "Attachment"
		}
		out = append(out, parsers.Attachment{
			Name: name,
			URL:  path,
			Type: chicagoFileType(path),
		})
	}
	return out
}

func chicagoFileType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "pdf"
	case strings.HasSuffix(lower, ".doc"), strings.HasSuffix(lower, ".docx"):
		return "doc"
	case strings.HasSuffix(lower, ".xls"), strings.HasSuffix(lower, ".xlsx"):
		return "spreadsheet"
	default:
		return "unknown"
	}
}

func parseChicagoISO(raw string) (time.Time, error) {
	raw = strings.TrimSuffix(raw, "Z")
	if i := strings.Index(raw, "T"); i < 0 || !strings.ContainsAny(raw[i:], "+-") {
		raw += "+00:00"
	}
	return time.Parse("2006-01-02T15:04:05-07:00", raw)
}

func (c *CustomChicago) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.HTTP.DoGet(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
