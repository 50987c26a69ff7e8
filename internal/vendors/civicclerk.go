package vendors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"
)

// CivicClerk fetches meetings from a city's CivicClerk OData API.
// Cities on this platform include Montpelier and Burlington, VT.
type CivicClerk struct {
	Deps
	DaysBack    int
	DaysForward int
}

func NewCivicClerk(deps Deps) *CivicClerk {
	return &CivicClerk{Deps: deps, DaysBack: 7, DaysForward: 14}
}

func (c *CivicClerk) Vendor() string { return "civicclerk" }

type civicClerkResponse struct {
	Value []civicClerkEvent `json:"value"`
}

type civicClerkEvent struct {
	EventName     string `json:"eventName"`
	StartDateTime string `json:"startDateTime"`
	PublishedFiles []struct {
		Type   string `json:"type"`
		FileID int    `json:"fileId"`
	} `json:"publishedFiles"`
	ID json.Number `json:"id"`
}

func (c *CivicClerk) FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error) {
	c.wait(c.Vendor())
	base := fmt.Sprintf("https://%s.api.civicclerk.com", citySlug)

	start := time.Now().AddDate(0, 0, -c.DaysBack)
	end := time.Now().AddDate(0, 0, c.DaysForward)
	filter := fmt.Sprintf("startDateTime gt %s and startDateTime lt %s",
		start.UTC().Format("2006-01-02T15:04:05.000Z"),
		end.UTC().Format("2006-01-02T15:04:05.000Z"))

	q := url.Values{
		"$filter":  {filter},
		"$orderby": {"startDateTime asc, eventName asc"},
	}

	resp, err := c.HTTP.DoGet(ctx, base+"/v1/Events?"+q.Encode())
	if err != nil {
		return nil, errFetch(c.Vendor(), citySlug, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errFetch(c.Vendor(), citySlug, err)
	}

	var parsed civicClerkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errFetch(c.Vendor(), citySlug, err)
	}

	out := make([]RawMeeting, 0, len(parsed.Value))
	for _, ev := range parsed.Value {
		raw := RawMeeting{
			VendorMeetingID: ev.ID.String(),
			Title:           ev.EventName,
			Start:           ev.StartDateTime,
		}
		for _, f := range ev.PublishedFiles {
			if f.Type == "Agenda Packet" || f.Type == "Agenda" {
				raw.PacketURL = fmt.Sprintf("%s/v1/Meetings/GetMeetingFileStream(fileId=%d,plainText=false)", base, f.FileID)
				break
			}
		}
		out = append(out, raw)
	}
	return out, nil
}
