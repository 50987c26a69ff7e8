package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/engagic/pipeline/internal/parsers"
	"github.com/engagic/pipeline/internal/pipelineerr"
)

// Granicus fetches meetings by scraping a city's ViewPublisher.php page.
// Granicus has no public API; a view_id must be configured per city ahead
// of time (data/granicus_view_ids.json), and FetchMeetings fails fast with
// a configuration error for a city that has none — the vendor gives no way
// to discover it at runtime.
type Granicus struct {
	Deps
	ViewIDs map[string]int // base host -> view_id
}

// NewGranicus loads the static view_id mapping. viewIDsPath empty means
// "no cities configured" rather than an error — callers may still construct
// the adapter to satisfy a registry before any Granicus city is onboarded.
func NewGranicus(deps Deps, viewIDsPath string) (*Granicus, error) {
	g := &Granicus{Deps: deps, ViewIDs: make(map[string]int)}
	if viewIDsPath == "" {
		return g, nil
	}
	data, err := os.ReadFile(viewIDsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, fmt.Errorf("granicus: reading view id config %s: %w", viewIDsPath, err)
	}
	if err := json.Unmarshal(data, &g.ViewIDs); err != nil {
		return nil, fmt.Errorf("granicus: parsing view id config %s: %w", viewIDsPath, err)
	}
	return g, nil
}

func (g *Granicus) Vendor() string { return "granicus" }

func (g *Granicus) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	g.wait(g.Vendor())
	base := fmt.Sprintf("https://%s.granicus.com", citySlug)

	viewID, ok := g.ViewIDs[base]
	if !ok {
		return nil, fmt.Errorf("granicus: view_id not configured for %s; add a mapping to the view id file: %w", base, pipelineerr.ErrConfiguration)
	}

	listURL := fmt.Sprintf("%s/ViewPublisher.php?view_id=%d", base, viewID)
	resp, err := g.HTTP.DoGet(ctx, listURL)
	if err != nil {
		return nil, errFetch(g.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errFetch(g.Vendor(), citySlug, err)
	}

	upcoming := findUpcomingSection(doc)
	if upcoming == nil {
		// No "Upcoming" section detectable: never leak historical data
		// from the archive by falling back to scanning the whole page.
		return nil, nil
	}

	var out []RawMeeting
	upcoming.Find(`a[href*="AgendaViewer.php"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		agendaURL := parsers.ResolveURL(base, href)
		title := strings.TrimSpace(a.Text())
		if title == "" {
			title = "Meeting"
		}

		raw := RawMeeting{
			VendorMeetingID: granicusMeetingIDFrom(agendaURL),
			Title:           title,
			Status:          ParseStatus(title),
		}

		items, err := g.fetchAgendaViewerItems(ctx, agendaURL, base)
		if err != nil {
			g.logger().Warn("granicus agenda viewer fetch failed", "city", citySlug, "url", agendaURL, "error", err)
		}
		if len(items) > 0 {
			raw.AgendaURL = agendaURL
			raw.Items = items
		} else {
			raw.PacketURL = agendaURL
		}
		out = append(out, raw)
	})
	return out, nil
}

// findUpcomingSection tries, in order: a div#upcoming, a heading containing
// "upcoming" (using its following table or parent div), then a td.listHeader
// cell containing "upcoming" (using its parent table).
func findUpcomingSection(doc *goquery.Document) *goquery.Selection {
	if div := doc.Find("div#upcoming"); div.Length() > 0 {
		return div
	}

	var found *goquery.Selection
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(heading.Text()), "upcoming") {
			return true
		}
		if table := heading.NextFiltered("table"); table.Length() > 0 {
			found = table
			return false
		}
		if parent := heading.Closest("div"); parent.Length() > 0 {
			found = parent
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	doc.Find("td.listHeader").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(cell.Text()), "upcoming") {
			return true
		}
		if table := cell.Closest("table"); table.Length() > 0 {
			found = table
			return false
		}
		return true
	})
	return found
}

func granicusMeetingIDFrom(agendaURL string) string {
	if idx := strings.Index(agendaURL, "id="); idx >= 0 {
		rest := agendaURL[idx+3:]
		if amp := strings.IndexByte(rest, '&'); amp >= 0 {
			rest = rest[:amp]
		}
		return rest
	}
	return agendaURL
}

// fetchAgendaViewerItems fetches the AgendaViewer page and parses items.
// Some cities' AgendaViewer.php endpoint returns a PDF packet directly
// instead of HTML; when that happens the PDF's text and hyperlinks are
// used to infer items instead.
func (g *Granicus) fetchAgendaViewerItems(ctx context.Context, agendaURL, baseURL string) ([]parsers.Item, error) {
	resp, err := g.HTTP.DoGet(ctx, agendaURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if isPDFResponse(resp, body) {
		text, err := parsers.ExtractTextFromBytes(body)
		if err != nil {
			return nil, err
		}
		// ledongthuc/pdf exposes page text but not link annotations, so
		// items without a same-page hyperlink silently get zero
		// attachments here too — the same limitation spec.md §9 notes
		// for the reference implementation's proximity matching.
		return parsers.ParseMenloParkAgenda(text, nil), nil
	}

	agenda, err := parsers.ParseHTMLAgenda(string(body), baseURL)
	if err != nil {
		return nil, err
	}
	return agenda.Items, nil
}

func isPDFResponse(resp *http.Response, body []byte) bool {
	if strings.Contains(resp.Header.Get("Content-Type"), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF"))
}
