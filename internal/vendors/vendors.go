// Package vendors implements one fetch adapter per municipal agenda
// platform: PrimeGov, CivicClerk, Legistar, Granicus, NovusAgenda,
// CivicPlus, eSCRIBE, iCompass iQM2, and a handful of custom
// city-specific scrapers that don't sit on a shared vendor platform.
package vendors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/engagic/pipeline/internal/httpclient"
	"github.com/engagic/pipeline/internal/parsers"
	"github.com/engagic/pipeline/internal/ratelimit"
)

// RawMeeting is what every adapter converges on before the processor
// takes over: enough to upsert a meeting row and enqueue its packet.
type RawMeeting struct {
	VendorMeetingID string
	Title           string
	Start           string // raw vendor timestamp; parsed by ParseDate at the call site
	AgendaURL       string // HTML agenda, item-level (preferred when present)
	PacketURL       string // monolithic PDF packet (fallback)
	Status          string
	Participation   parsers.Participation
	Items           []parsers.Item
}

// Adapter fetches the slate of meetings a city has published on one
// vendor platform. city identifies the vendor-specific subdomain or
// site slug; FetchMeetings performs no persistence itself.
type Adapter interface {
	Vendor() string
	FetchMeetings(ctx context.Context, citySlug string) ([]RawMeeting, error)
}

// Deps are the shared collaborators every adapter is built from —
// analogous to the teacher's BaseAdapter constructor, reworked as
// explicit dependency injection instead of inheritance.
type Deps struct {
	HTTP             *httpclient.Client
	Limiter          *ratelimit.Limiter
	Logger           *slog.Logger
	LegistarAPIToken string
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// wait blocks for this vendor's configured pacing delay before a request,
// the Go equivalent of the teacher's per-provider rate limiting.
func (d Deps) wait(vendor string) {
	if d.Limiter != nil {
		d.Limiter.Wait(vendor)
	}
}

// errFetch wraps a fetch failure with vendor/city context, matching the
// structured-error style the store package already uses.
func errFetch(vendor, citySlug string, err error) error {
	return fmt.Errorf("vendors: %s fetch for %s: %w", vendor, citySlug, err)
}
