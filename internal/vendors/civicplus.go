package vendors

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
)

// civicplusAgendaPaths are guessed in order; the first that returns a
// usable listing page wins. CivicPlus is a CMS, not a dedicated agenda
// vendor, so cities host their meeting lists at varying paths.
var civicplusAgendaPaths = []string{"/AgendaCenter", "/Calendar.aspx"}

// civicplusExternalHosts flags a homepage that actually links out to a
// dedicated agenda vendor. CivicPlus itself never serves these meetings;
// the adapter only warns and leaves them to that vendor's own sync.
var civicplusExternalHosts = map[string]string{
	"municodemeetings.com": "municode",
	"granicus.com":         "granicus",
	"legistar.com":         "legistar",
}

// CivicPlus scrapes a city's AgendaCenter (or Calendar.aspx fallback)
// table. Some rows link directly to ViewFile/Agenda/... PDFs, which
// yields a meeting with no HTML detail page to scrape at all.
type CivicPlus struct {
	Deps
}

func NewCivicPlus(deps Deps) *CivicPlus { return &CivicPlus{Deps: deps} }

func (c *CivicPlus) Vendor() string { return "civicplus" }

var civicplusViewFilePattern = regexp.MustCompile(`(?i)/ViewFile/(Agenda|Item)/(?:_\d+-)?(\d+)`)

func (c *CivicPlus) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	c.wait(c.Vendor())
	base := fmt.Sprintf("https://%s.civicplus.com", citySlug)

	c.warnIfExternalSystem(ctx, base)

	for _, path := range civicplusAgendaPaths {
		out, err := c.scrapeListPage(ctx, base+path, base)
		if err != nil {
			c.logger().Warn("civicplus list page failed", "city", citySlug, "path", path, "error", err)
			continue
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

// warnIfExternalSystem checks the homepage for a link to a dedicated
// agenda vendor and logs it; per spec.md §4.1 it does not re-route —
// vendor discovery is explicitly out of this pipeline's scope.
func (c *CivicPlus) warnIfExternalSystem(ctx context.Context, base string) {
	resp, err := c.HTTP.DoGet(ctx, base)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return
	}
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		for host, vendor := range civicplusExternalHosts {
			if strings.Contains(lower, host) {
				c.logger().Warn("civicplus homepage links to an external agenda system", "base", base, "vendor", vendor, "href", href)
				return false
			}
		}
		return true
	})
}

func (c *CivicPlus) scrapeListPage(ctx context.Context, listURL, base string) ([]RawMeeting, error) {
	resp, err := c.HTTP.DoGet(ctx, listURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var out []RawMeeting
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		fullURL := parsers.ResolveURL(base, href)

		raw := RawMeeting{
			Title:  title,
			Status: ParseStatus(title),
		}

		if m := civicplusViewFilePattern.FindStringSubmatch(fullURL); m != nil {
			// Direct PDF link: no detail page to scrape, so this meeting
			// is processed monolithically.
			raw.VendorMeetingID = m[2]
			raw.PacketURL = fullURL
			out = append(out, raw)
			return
		}

		items, err := c.fetchDetailPage(ctx, fullURL, base)
		if err != nil {
			c.logger().Warn("civicplus detail page fetch failed", "url", fullURL, "error", err)
		}
		raw.VendorMeetingID = fullURL
		if len(items) > 0 {
			raw.AgendaURL = fullURL
			raw.Items = items
		} else {
			raw.PacketURL = fullURL
		}
		out = append(out, raw)
	})
	return out, nil
}

func (c *CivicPlus) fetchDetailPage(ctx context.Context, url, base string) ([]parsers.Item, error) {
	resp, err := c.HTTP.DoGet(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	agenda, err := parsers.ParseHTMLAgenda(string(body), base)
	if err != nil {
		return nil, err
	}
	return agenda.Items, nil
}
