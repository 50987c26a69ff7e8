// Package temporal durably executes the Conductor's two control flows —
// per-city sync and per-queue-entry processing — as Temporal workflows, so
// a crashed worker resumes mid-city or mid-meeting instead of losing the
// cycle. Activities wrap the vendors/parsers/summarizer/store packages;
// the workflows themselves only sequence and branch.
package temporal

import "github.com/engagic/pipeline/internal/parsers"

// SyncCityRequest identifies one city's vendor sync, the unit SyncCityWorkflow
// operates on.
type SyncCityRequest struct {
	Banana   string
	Vendor   string
	CitySlug string
}

// SyncCityResult summarizes one sync run for the scheduler's logging.
type SyncCityResult struct {
	MeetingsFound  int
	MeetingsStored int
	MeetingsFailed int
}

// RawMeetingDTO mirrors vendors.RawMeeting, redeclared here so this package
// doesn't need to import vendors just to move data across the activity
// boundary (Temporal requires activity payloads be independently
// (de)serializable, not tied to a specific in-process type's methods).
type RawMeetingDTO struct {
	VendorMeetingID string
	Title           string
	Start           string
	AgendaURL       string
	PacketURL       string
	Status          string
	Participation   parsers.Participation
	Items           []parsers.Item
}

// FetchMeetingsRequest asks one vendor adapter for a city's current slate.
type FetchMeetingsRequest struct {
	Vendor   string
	CitySlug string
}

// FetchMeetingsResult is FetchMeetingsActivity's output.
type FetchMeetingsResult struct {
	Meetings []RawMeetingDTO
}

// StoreMeetingRequest is one meeting's worth of upsert-and-enqueue work.
type StoreMeetingRequest struct {
	Banana  string
	Meeting RawMeetingDTO
}

// StoreMeetingResult reports what StoreMeetingActivity did with one meeting.
type StoreMeetingResult struct {
	MeetingID string
	Enqueued  bool
	Skipped   bool // rejected by the meeting validator
	SkipReason string
}

// ProcessQueueEntryRequest identifies the queue entry ProcessQueueEntryWorkflow
// should drive to completion or failure.
type ProcessQueueEntryRequest struct {
	QueueEntryID int64
	PacketURL    string
	MeetingID    string
	MaxRetries   int
}

// ExtractTextRequest asks ExtractTextActivity to decide item-level vs.
// monolithic processing for a meeting and, for the monolithic path, to
// produce quality-checked packet text.
type ExtractTextRequest struct {
	MeetingID string
	PacketURL string
}

// ExtractTextResult carries ExtractTextActivity's branch decision. Exactly
// one of (HasItems, Cached) steers the workflow; if neither Text nor
// CachedSummary is present the caller should fail the entry.
type ExtractTextResult struct {
	Cached        bool
	CachedSummary string

	HasItems bool
	Items    []ItemTextDTO

	Text          string
	Participation parsers.Participation
}

// ItemTextDTO is one agenda item's pre-extracted, concatenated attachment
// text, ready for SummarizeBatchActivity.
type ItemTextDTO struct {
	ItemID   string
	Title    string
	Text     string
	Sequence int
}

// SummarizeRequest drives the monolithic summarization path.
type SummarizeRequest struct {
	PacketURL string
	Text      string
}

// SummarizeResult is SummarizeActivity's output.
type SummarizeResult struct {
	Summary string
}

// SummarizeBatchRequest drives the item-level summarization path.
type SummarizeBatchRequest struct {
	Items []ItemTextDTO
}

// ItemResultDTO mirrors summarizer.ItemResult across the activity boundary.
type ItemResultDTO struct {
	ItemID  string
	Success bool
	Summary string
	Topics  []string
	Error   string
}

// SummarizeBatchResult is SummarizeBatchActivity's output.
type SummarizeBatchResult struct {
	Results []ItemResultDTO
}

// AggregatedSummaryDTO mirrors processor.ProcessingResult's rollup fields
// across the activity boundary: AggregateMeetingSummaryActivity reloads a
// meeting's items (after SummarizeBatchActivity has written each one's
// summary/topics) and rolls them into the meeting-level view, per spec.md
// §4.6 step 5.
type AggregatedSummaryDTO struct {
	Summary          string
	Topics           []string
	ProcessingMethod string
}

// PersistResultRequest is PersistResultActivity's single entry point for
// both success and failure: exactly one of Monolithic/ItemLevel is set
// when Success is true.
type PersistResultRequest struct {
	QueueEntryID int64
	MeetingID    string
	PacketURL    string
	MaxRetries   int

	Success      bool
	ErrorMessage string

	Monolithic *MonolithicOutcome
	ItemLevel  *ItemLevelOutcome
}

// MonolithicOutcome is the meeting-level summary/participation/processing
// metadata the Tier-1 pipeline produced for one packet.
type MonolithicOutcome struct {
	Summary          string
	Participation    string
	ProcessingMethod string
	ProcessingTime   float64
	FromCache        bool
}

// ItemLevelOutcome is the aggregated meeting-level view after every item's
// summary has already been written by SummarizeBatchActivity.
type ItemLevelOutcome struct {
	Summary          string
	Topics           []string
	ProcessingMethod string
	ProcessingTime   float64
	Results          []ItemResultDTO
}
