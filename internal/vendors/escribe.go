package vendors

import (
	"context"
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// Escribe scrapes a city's eScribe "Upcoming Meetings" region. Beaumont,
// CA is a representative pub-beaumont.escribemeetings.com deployment.
type Escribe struct {
	Deps
}

func NewEscribe(deps Deps) *Escribe { return &Escribe{Deps: deps} }

func (e *Escribe) Vendor() string { return "escribe" }

var (
	escribeFileStreamLink = regexp.MustCompile(`(?i)FileStream\.ashx\?DocumentId=`)
	escribeIDPattern      = regexp.MustCompile(`(?i)Id=([a-f0-9-]+)`)
)

func (e *Escribe) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	e.wait(e.Vendor())
	base := fmt.Sprintf("https://%s.escribemeetings.com", citySlug)
	listURL := fmt.Sprintf("%s/?Year=%d", base, time.Now().Year())

	resp, err := e.HTTP.DoGet(ctx, listURL)
	if err != nil {
		return nil, errFetch(e.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(e.Vendor(), citySlug, err)
	}

	upcoming := doc.Find(`div[role="region"][aria-label="List of Upcoming Meetings"]`)
	if upcoming.Length() == 0 {
		e.logger().Warn("escribe: no upcoming meetings region found", "city", citySlug)
		return nil, nil
	}

	var out []RawMeeting
	upcoming.Find("div.upcoming-meeting-container").Each(func(_ int, container *goquery.Selection) {
		raw, ok := e.parseMeetingContainer(container, base)
		if ok {
			out = append(out, raw)
		}
	})
	return out, nil
}

func (e *Escribe) parseMeetingContainer(container *goquery.Selection, base string) (RawMeeting, bool) {
	titleLink := container.Find("h3.meeting-title-heading a").First()
	if titleLink.Length() == 0 {
		return RawMeeting{}, false
	}
	title := strings.TrimSpace(titleLink.Text())
	href, _ := titleLink.Attr("href")
	meetingURL := parsers.ResolveURL(base, href)

	dateText := strings.TrimSpace(container.Find("div.meeting-date").First().Text())

	raw := RawMeeting{
		VendorMeetingID: escribeMeetingID(meetingURL, title, dateText),
		Title:           title,
		Status:          ParseStatus(title + " " + dateText),
	}
	if ts, ok := ParseDate(dateText); ok {
		raw.Start = ts.Format(time.RFC3339)
	} else {
		raw.Start = dateText
	}

	var pdfLinks []string
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ahref, _ := a.Attr("href")
		if !escribeFileStreamLink.MatchString(ahref) {
			return
		}
		label := strings.ToLower(a.AttrOr("aria-label", ""))
		if strings.Contains(label, "pdf") && strings.Contains(label, "agenda") {
			pdfLinks = append(pdfLinks, parsers.ResolveURL(base, ahref))
		}
	})
	if len(pdfLinks) > 0 {
		raw.PacketURL = pdfLinks[0]
	}

	return raw, true
}

func escribeMeetingID(meetingURL, title, dateText string) string {
	if m := escribeIDPattern.FindStringSubmatch(meetingURL); m != nil {
		return "escribe_" + m[1]
	}
	sum := md5.Sum([]byte(title + "_" + dateText))
	return fmt.Sprintf("escribe_%x", sum[:4])
}
