package temporal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engagic/pipeline/internal/parsers"
	"github.com/engagic/pipeline/internal/processor"
	"github.com/engagic/pipeline/internal/store"
)

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCity(t *testing.T, s *store.Store, banana string) {
	t.Helper()
	require.NoError(t, s.UpsertCity(store.City{Banana: banana, Name: banana, State: "CA", Vendor: "primegov", Slug: banana}))
}

// TestStoreMeetingActivityDropsAdapterSkipItems verifies spec.md §8's
// property that any title matching the adapter-skip patterns (roll call,
// pledge of allegiance, adjournment, ...) never reaches the store, no
// matter which vendor adapter produced it.
func TestStoreMeetingActivityDropsAdapterSkipItems(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")

	a := &Activities{Store: s}

	req := StoreMeetingRequest{
		Banana: "cupertinoCA",
		Meeting: RawMeetingDTO{
			VendorMeetingID: "mtg-1",
			Title:           "City Council",
			Start:           "2026-03-01T18:00:00",
			AgendaURL:       "https://example.com/agenda",
			Items: []parsers.Item{
				{VendorItemID: "mtg-1-0", Title: "Roll Call", Sequence: 0},
				{VendorItemID: "mtg-1-1", Title: "Pledge of Allegiance", Sequence: 1},
				{VendorItemID: "mtg-1-2", Title: "Approve budget amendment", Sequence: 2},
				{VendorItemID: "mtg-1-3", Title: "Adjournment", Sequence: 3},
			},
		},
	}

	result, err := a.StoreMeetingActivity(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Skipped)

	items, err := s.ListAgendaItems(result.MeetingID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Approve budget amendment", items[0].Title)
}

// TestPersistDetectedChunksWritesRealAgendaItems guards the auto-detection
// path's persistence bug: a detected chunk must become a real AgendaItem
// row before its text goes into a batch summarize request, or
// SummarizeBatchActivity's later UpdateItemSummary call has nothing to
// update.
func TestPersistDetectedChunksWritesRealAgendaItems(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")
	require.NoError(t, s.UpsertMeeting(store.Meeting{ID: "mtg-1", Banana: "cupertinoCA", Title: "City Council"}))

	chunks := []parsers.Chunk{
		{Title: "Item 1: Budget amendment", Sequence: 0, Text: "full text of item 1"},
		{Title: "Item 2: Zoning variance", Sequence: 1, Text: "full text of item 2"},
	}

	dtos, err := persistDetectedChunks(s, "mtg-1", chunks)
	require.NoError(t, err)
	require.Len(t, dtos, 2)
	require.Equal(t, "mtg-1-chunk-0", dtos[0].ItemID)
	require.Equal(t, "mtg-1-chunk-1", dtos[1].ItemID)

	items, err := s.ListAgendaItems("mtg-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Item 1: Budget amendment", items[0].Title)
	require.Equal(t, "Item 2: Zoning variance", items[1].Title)

	// The row must genuinely exist: UpdateItemSummary against a
	// never-inserted id now errors instead of silently no-oping.
	require.NoError(t, s.UpdateItemSummary(dtos[0].ItemID, "Council approved the amendment.", []string{"budget"}))
}

// TestAggregateMeetingSummaryActivityRollsUpSuccessfulItems exercises the
// activity the item-level path in persistItemLevel depends on: it must
// build the meeting summary from "title\nsummary" blocks (spec.md §4.6 step
// 5) and order topics by descending item-frequency (spec.md §4.5).
func TestAggregateMeetingSummaryActivityRollsUpSuccessfulItems(t *testing.T) {
	s := tempStore(t)
	seedCity(t, s, "cupertinoCA")

	require.NoError(t, s.UpsertMeeting(store.Meeting{ID: "mtg-1", Banana: "cupertinoCA", Title: "City Council"}))

	require.NoError(t, s.UpsertAgendaItem(store.AgendaItem{ID: "item-1", MeetingID: "mtg-1", Title: "Budget amendment", Sequence: 0}))
	require.NoError(t, s.UpsertAgendaItem(store.AgendaItem{ID: "item-2", MeetingID: "mtg-1", Title: "Zoning variance", Sequence: 1}))
	require.NoError(t, s.UpsertAgendaItem(store.AgendaItem{ID: "item-3", MeetingID: "mtg-1", Title: "Failed extraction", Sequence: 2}))

	require.NoError(t, s.UpdateItemSummary("item-1", "Council approved the amendment.", []string{"budget", "finance"}))
	require.NoError(t, s.UpdateItemSummary("item-2", "Variance granted for the corner lot.", []string{"zoning", "budget"}))
	// item-3 never gets a summary: it represents an item whose batch
	// summarization failed; AggregateMeetingSummary must skip it rather
	// than persisting an empty block.

	a := &Activities{Processor: &processor.Processor{Store: s}}

	agg, err := a.AggregateMeetingSummaryActivity(context.Background(), "mtg-1")
	require.NoError(t, err)

	require.Equal(t,
		"Budget amendment\nCouncil approved the amendment.\n\nZoning variance\nVariance granted for the corner lot.",
		agg.Summary,
	)
	// "budget" appears in both items, "zoning" and "finance" each in one —
	// descending frequency puts budget first, ties broken by first appearance.
	require.Equal(t, []string{"budget", "finance", "zoning"}, agg.Topics)
	require.Equal(t, "item_level_3_items", agg.ProcessingMethod)
}
