package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/engagic/pipeline/internal/parsers"
)

// PrimeGov fetches meetings from a city's PrimeGov PublicPortal API.
// Cities on this platform include Palo Alto, Mountain View, and
// Sunnyvale, CA.
type PrimeGov struct {
	Deps
}

func NewPrimeGov(deps Deps) *PrimeGov { return &PrimeGov{Deps: deps} }

func (p *PrimeGov) Vendor() string { return "primegov" }

type primeGovDocument struct {
	TemplateName      string `json:"templateName"`
	TemplateID        int    `json:"templateId"`
	CompileOutputType int    `json:"compileOutputType"`
}

type primeGovMeeting struct {
	ID           json.Number        `json:"id"`
	Title        string             `json:"title"`
	DateTime     string             `json:"dateTime"`
	DocumentList []primeGovDocument `json:"documentList"`
}

func (p *PrimeGov) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	p.wait(p.Vendor())
	base := fmt.Sprintf("https://%s.primegov.com", citySlug)

	resp, err := p.HTTP.DoGet(ctx, base+"/api/v2/PublicPortal/ListUpcomingMeetings")
	if err != nil {
		return nil, errFetch(p.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errFetch(p.Vendor(), citySlug, err)
	}

	var meetings []primeGovMeeting
	if err := json.Unmarshal(body, &meetings); err != nil {
		return nil, errFetch(p.Vendor(), citySlug, err)
	}

	out := make([]RawMeeting, 0, len(meetings))
	for _, m := range meetings {
		if strings.Contains(m.Title, " - SAP") {
			// Spanish audio/video broadcast duplicate of an existing meeting.
			continue
		}

		raw := RawMeeting{
			VendorMeetingID: m.ID.String(),
			Title:           m.Title,
			Start:           m.DateTime,
		}

		doc := selectPrimeGovDocument(m.DocumentList)
		if doc == nil {
			p.logger().Warn("primegov meeting has no agenda or packet", "city", citySlug, "title", m.Title)
			out = append(out, raw)
			continue
		}

		if strings.Contains(doc.TemplateName, "HTML Agenda") {
			htmlURL := fmt.Sprintf("%s/Portal/Meeting?%s", base, url.Values{
				"meetingTemplateId": {fmt.Sprint(doc.TemplateID)},
			}.Encode())
			raw.AgendaURL = htmlURL

			if agenda, err := p.fetchHTMLAgenda(ctx, htmlURL); err != nil {
				p.logger().Warn("primegov html agenda fetch failed", "city", citySlug, "title", m.Title, "error", err)
			} else {
				raw.Items = agenda.Items
				raw.Participation = agenda.Participation
			}
		} else {
			raw.PacketURL = fmt.Sprintf("%s/Public/CompiledDocument?%s", base, url.Values{
				"meetingTemplateId":  {fmt.Sprint(doc.TemplateID)},
				"compileOutputType": {fmt.Sprint(doc.CompileOutputType)},
			}.Encode())
		}

		out = append(out, raw)
	}
	return out, nil
}

func selectPrimeGovDocument(docs []primeGovDocument) *primeGovDocument {
	for i := range docs {
		name := strings.ToLower(docs[i].TemplateName)
		if strings.Contains(docs[i].TemplateName, "HTML Agenda") || strings.Contains(name, "packet") || strings.Contains(name, "agenda") {
			return &docs[i]
		}
	}
	return nil
}

func (p *PrimeGov) fetchHTMLAgenda(ctx context.Context, htmlURL string) (parsers.ParsedAgenda, error) {
	resp, err := p.HTTP.DoGet(ctx, htmlURL)
	if err != nil {
		return parsers.ParsedAgenda{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsers.ParsedAgenda{}, err
	}
	return parsers.ParseHTMLAgenda(string(body), htmlURL)
}
