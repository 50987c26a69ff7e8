package temporal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/engagic/pipeline/internal/filters"
	"github.com/engagic/pipeline/internal/parsers"
	"github.com/engagic/pipeline/internal/processor"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/summarizer"
	"github.com/engagic/pipeline/internal/vendors"
)

// Activities holds the collaborators every activity method needs. One
// instance is built at worker startup and registered on the task queue.
type Activities struct {
	Store     *store.Store
	Registry  *vendors.Registry
	Processor *processor.Processor
}

// FetchMeetingsActivity asks the named vendor's adapter for a city's
// current slate of meetings.
func (a *Activities) FetchMeetingsActivity(ctx context.Context, req FetchMeetingsRequest) (FetchMeetingsResult, error) {
	adapter, err := a.Registry.Adapter(req.Vendor)
	if err != nil {
		return FetchMeetingsResult{}, fmt.Errorf("temporal: resolving adapter for %s: %w", req.Vendor, err)
	}

	raw, err := adapter.FetchMeetings(ctx, req.CitySlug)
	if err != nil {
		return FetchMeetingsResult{}, fmt.Errorf("temporal: fetching meetings for %s/%s: %w", req.Vendor, req.CitySlug, err)
	}

	meetings := make([]RawMeetingDTO, len(raw))
	for i, m := range raw {
		meetings[i] = RawMeetingDTO{
			VendorMeetingID: m.VendorMeetingID,
			Title:           m.Title,
			Start:           m.Start,
			AgendaURL:       m.AgendaURL,
			PacketURL:       m.PacketURL,
			Status:          m.Status,
			Participation:   m.Participation,
			Items:           m.Items,
		}
	}
	return FetchMeetingsResult{Meetings: meetings}, nil
}

// validateMeeting rejects plainly corrupted records before they're written,
// per spec.md §4.7 step 3: URL sanity and a non-empty title.
func validateMeeting(m RawMeetingDTO) string {
	if strings.TrimSpace(m.Title) == "" {
		return "empty title"
	}
	for _, raw := range []string{m.PacketURL, m.AgendaURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Sprintf("malformed url %q", raw)
		}
	}
	return ""
}

// StoreMeetingActivity upserts one meeting and its agenda items, then
// enqueues it for processing if it carries a packet or agenda URL.
func (a *Activities) StoreMeetingActivity(ctx context.Context, req StoreMeetingRequest) (StoreMeetingResult, error) {
	m := req.Meeting

	if reason := validateMeeting(m); reason != "" {
		activity.GetLogger(ctx).Warn("temporal: rejecting invalid meeting", "title", m.Title, "reason", reason)
		return StoreMeetingResult{Skipped: true, SkipReason: reason}, nil
	}

	meetingDate, _ := vendors.ParseDate(m.Start)
	meetingID := m.VendorMeetingID
	if meetingID == "" {
		meetingID = store.GenerateMeetingID(req.Banana, m.Start, m.Title, "")
	}

	sm := store.Meeting{
		ID:     meetingID,
		Banana: req.Banana,
		Title:  m.Title,
		Status: vendors.ParseStatus(m.Title),
	}
	if !meetingDate.IsZero() {
		sm.Date.Time, sm.Date.Valid = meetingDate, true
	}
	if m.PacketURL != "" {
		sm.PacketURL.String, sm.PacketURL.Valid = m.PacketURL, true
	}
	if m.AgendaURL != "" {
		sm.AgendaURL.String, sm.AgendaURL.Valid = m.AgendaURL, true
	}
	if err := a.Store.UpsertMeeting(sm); err != nil {
		return StoreMeetingResult{}, fmt.Errorf("temporal: storing meeting %s: %w", meetingID, err)
	}

	for i, item := range m.Items {
		if filters.ShouldSkipItem(item.Title, item.MatterType) {
			continue
		}
		ai := store.AgendaItem{
			ID:         fmt.Sprintf("%s-%d", meetingID, i),
			MeetingID:  meetingID,
			Title:      item.Title,
			Sequence:   item.Sequence,
			MatterFile: item.MatterFile,
			MatterType: item.MatterType,
		}
		if item.VendorItemID != "" {
			ai.ID = item.VendorItemID
		}
		for _, att := range item.Attachments {
			ai.Attachments = append(ai.Attachments, store.Attachment{
				Name: att.Name,
				URL:  att.URL,
				Type: store.AttachmentType(att.Type),
			})
		}
		if err := a.Store.UpsertAgendaItem(ai); err != nil {
			return StoreMeetingResult{}, fmt.Errorf("temporal: storing item %s for meeting %s: %w", ai.ID, meetingID, err)
		}
	}

	packetOrAgenda := m.PacketURL
	if packetOrAgenda == "" {
		packetOrAgenda = m.AgendaURL
	}
	enqueued := false
	if packetOrAgenda != "" {
		if err := a.Store.EnqueueIfAbsent(packetOrAgenda, meetingID, req.Banana, store.Priority(meetingDate)); err != nil {
			return StoreMeetingResult{}, fmt.Errorf("temporal: enqueuing %s: %w", meetingID, err)
		}
		enqueued = true
	}

	return StoreMeetingResult{MeetingID: meetingID, Enqueued: enqueued}, nil
}

// MarkCitySyncedActivity stamps a city's last_synced_at, feeding the
// Conductor's activity-based sync gate on the next cycle.
func (a *Activities) MarkCitySyncedActivity(ctx context.Context, banana string) error {
	if err := a.Store.MarkCitySynced(banana); err != nil {
		return fmt.Errorf("temporal: marking %s synced: %w", banana, err)
	}
	return nil
}

// ExtractTextActivity decides, for one queue entry's meeting, whether
// item-level or monolithic processing applies, and does the text
// extraction/quality-check/cache-lookup work that decision requires.
func (a *Activities) ExtractTextActivity(ctx context.Context, req ExtractTextRequest) (ExtractTextResult, error) {
	items, err := a.Store.ListAgendaItems(req.MeetingID)
	if err != nil {
		return ExtractTextResult{}, fmt.Errorf("temporal: loading items for %s: %w", req.MeetingID, err)
	}

	if len(items) > 0 {
		needsProcessing := processor.ItemsNeedingSummary(items)
		requests := a.Processor.BuildItemRequests(ctx, needsProcessing)
		dtos := make([]ItemTextDTO, len(requests))
		for i, r := range requests {
			dtos[i] = ItemTextDTO{ItemID: r.ItemID, Title: r.Title, Text: r.Text, Sequence: r.Sequence}
		}
		return ExtractTextResult{HasItems: true, Items: dtos}, nil
	}

	entry, err := a.Processor.LookupCache(req.PacketURL)
	if err != nil {
		return ExtractTextResult{}, err
	}
	if entry != nil {
		return ExtractTextResult{Cached: true, CachedSummary: entry.Summary}, nil
	}

	text, participation, err := a.Processor.ExtractAndQualityCheck(ctx, req.PacketURL)
	if err != nil {
		return ExtractTextResult{}, err
	}

	if chunks, chunkErr := a.Processor.DetectItems(ctx, req.PacketURL); chunkErr == nil && len(chunks) > 0 {
		dtos, err := persistDetectedChunks(a.Store, req.MeetingID, chunks)
		if err != nil {
			return ExtractTextResult{}, err
		}
		return ExtractTextResult{HasItems: true, Items: dtos}, nil
	}

	return ExtractTextResult{Text: text, Participation: participation}, nil
}

// persistDetectedChunks writes each structurally-detected chunk as a real
// AgendaItem row before handing it off for item-level summarization.
// Ground truth: original_source/jobs/conductor.py's store_agenda_items call
// ahead of item-level processing — without this, SummarizeBatchActivity's
// later UpdateItemSummary call has no row to update and silently no-ops.
func persistDetectedChunks(st *store.Store, meetingID string, chunks []parsers.Chunk) ([]ItemTextDTO, error) {
	dtos := make([]ItemTextDTO, len(chunks))
	for i, c := range chunks {
		itemID := fmt.Sprintf("%s-chunk-%d", meetingID, i)
		if err := st.UpsertAgendaItem(store.AgendaItem{
			ID:        itemID,
			MeetingID: meetingID,
			Title:     c.Title,
			Sequence:  c.Sequence,
		}); err != nil {
			return nil, fmt.Errorf("temporal: persisting detected item %s: %w", itemID, err)
		}
		dtos[i] = ItemTextDTO{ItemID: itemID, Title: c.Title, Text: c.Text, Sequence: c.Sequence}
	}
	return dtos, nil
}

// SummarizeActivity runs the monolithic meeting-level summarizer. The
// packet cache is written by PersistResultActivity once the caller knows
// total elapsed processing time.
func (a *Activities) SummarizeActivity(ctx context.Context, req SummarizeRequest) (SummarizeResult, error) {
	summary, err := a.Processor.SummarizeText(ctx, req.Text)
	if err != nil {
		return SummarizeResult{}, err
	}
	return SummarizeResult{Summary: summary}, nil
}

// SummarizeBatchActivity runs the item-level batch summarizer and persists
// each item's result as soon as the batch returns. A retry of this activity
// resubmits every item in req.Items; UpdateItemSummary overwrites any
// summary an earlier attempt already wrote.
func (a *Activities) SummarizeBatchActivity(ctx context.Context, req SummarizeBatchRequest) (SummarizeBatchResult, error) {
	requests := make([]summarizer.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		requests[i] = summarizer.ItemRequest{ItemID: it.ItemID, Title: it.Title, Text: it.Text, Sequence: it.Sequence}
	}

	results, err := a.Processor.SummarizeItems(ctx, requests)
	if err != nil {
		return SummarizeBatchResult{}, fmt.Errorf("temporal: batch summarizing: %w", err)
	}
	if err := a.Processor.PersistItemResults(results); err != nil {
		return SummarizeBatchResult{}, err
	}

	dtos := make([]ItemResultDTO, len(results))
	for i, r := range results {
		dtos[i] = ItemResultDTO{ItemID: r.ItemID, Success: r.Success, Summary: r.Summary, Topics: r.Topics, Error: r.Error}
	}
	return SummarizeBatchResult{Results: dtos}, nil
}

// AggregateMeetingSummaryActivity reloads a meeting's items (after
// SummarizeBatchActivity has written each one's summary/topics) and rolls
// them up into the meeting-level summary/topics ProcessQueueEntryWorkflow
// persists, per spec.md §4.6 step 5 — the same rollup
// processor.ProcessMeetingWithItems uses outside the Temporal path.
func (a *Activities) AggregateMeetingSummaryActivity(ctx context.Context, meetingID string) (AggregatedSummaryDTO, error) {
	result, err := a.Processor.AggregateMeetingSummary(meetingID)
	if err != nil {
		return AggregatedSummaryDTO{}, err
	}
	return AggregatedSummaryDTO{
		Summary:          result.Summary,
		Topics:           result.Topics,
		ProcessingMethod: result.ProcessingMethod,
	}, nil
}

// PersistResultActivity is the single writer of a queue entry's outcome:
// on success it records the meeting's summary/topics and completes the
// entry; on failure it records the error and applies the retry policy.
func (a *Activities) PersistResultActivity(ctx context.Context, req PersistResultRequest) error {
	if !req.Success {
		if err := a.Store.FailEntry(req.QueueEntryID, req.ErrorMessage, req.MaxRetries); err != nil {
			return fmt.Errorf("temporal: recording failure for entry %d: %w", req.QueueEntryID, err)
		}
		return nil
	}

	switch {
	case req.Monolithic != nil:
		m := req.Monolithic
		if err := a.Store.StoreProcessingResult(req.MeetingID, m.Summary, nil, m.ProcessingMethod, m.ProcessingTime, m.Participation); err != nil {
			return fmt.Errorf("temporal: persisting monolithic result for %s: %w", req.MeetingID, err)
		}
		if !m.FromCache && req.PacketURL != "" {
			if err := a.Processor.PersistCachedSummary(req.PacketURL, m.Summary, m.ProcessingTime); err != nil {
				return err
			}
		}
	case req.ItemLevel != nil:
		il := req.ItemLevel
		if err := a.Store.StoreProcessingResult(req.MeetingID, il.Summary, il.Topics, il.ProcessingMethod, il.ProcessingTime, ""); err != nil {
			return fmt.Errorf("temporal: persisting item-level result for %s: %w", req.MeetingID, err)
		}
	default:
		return fmt.Errorf("temporal: persist request for %s has no outcome attached", req.MeetingID)
	}

	if err := a.Store.CompleteEntry(req.QueueEntryID); err != nil {
		return fmt.Errorf("temporal: completing entry %d: %w", req.QueueEntryID, err)
	}
	return nil
}
