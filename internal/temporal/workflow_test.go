package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

// TestProcessQueueEntryWorkflowItemLevelPersistsAggregatedSummary verifies
// the fix for the bug where persistItemLevel threw away each item's summary:
// the workflow must call AggregateMeetingSummaryActivity and persist its
// result, not a hand-rolled rollup over the raw batch results.
func TestProcessQueueEntryWorkflowItemLevelPersistsAggregatedSummary(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.ExtractTextActivity, mock.Anything, mock.Anything).Return(ExtractTextResult{
		HasItems: true,
		Items: []ItemTextDTO{
			{ItemID: "item-1", Title: "Budget amendment", Text: "full packet text", Sequence: 0},
			{ItemID: "item-2", Title: "Zoning variance", Text: "more packet text", Sequence: 1},
		},
	}, nil)

	env.OnActivity(a.SummarizeBatchActivity, mock.Anything, mock.Anything).Return(SummarizeBatchResult{
		Results: []ItemResultDTO{
			{ItemID: "item-1", Success: true, Summary: "Council approved the amendment.", Topics: []string{"budget"}},
			{ItemID: "item-2", Success: true, Summary: "Variance granted.", Topics: []string{"zoning"}},
		},
	}, nil)

	env.OnActivity(a.AggregateMeetingSummaryActivity, mock.Anything, "meeting-42").Return(AggregatedSummaryDTO{
		Summary:          "Budget amendment\nCouncil approved the amendment.\n\nZoning variance\nVariance granted.",
		Topics:           []string{"budget", "zoning"},
		ProcessingMethod: "item_level_2_items",
	}, nil)

	var persisted PersistResultRequest
	env.OnActivity(a.PersistResultActivity, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(PersistResultRequest)
	}).Return(nil)

	env.ExecuteWorkflow(ProcessQueueEntryWorkflow, ProcessQueueEntryRequest{
		QueueEntryID: 7,
		MeetingID:    "meeting-42",
		PacketURL:    "https://example.com/packet.pdf",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	require.True(t, persisted.Success)
	require.NotNil(t, persisted.ItemLevel)
	require.Equal(t,
		"Budget amendment\nCouncil approved the amendment.\n\nZoning variance\nVariance granted.",
		persisted.ItemLevel.Summary,
	)
	require.Equal(t, []string{"budget", "zoning"}, persisted.ItemLevel.Topics)
	require.Equal(t, "item_level_2_items", persisted.ItemLevel.ProcessingMethod)
}

// TestProcessQueueEntryWorkflowItemLevelFailsEntryOnAggregationError verifies
// that a failure in AggregateMeetingSummaryActivity is recorded as a queue
// entry failure rather than silently persisting an empty summary.
func TestProcessQueueEntryWorkflowItemLevelFailsEntryOnAggregationError(t *testing.T) {
	s := testsuite.WorkflowTestSuite{}
	env := s.NewTestWorkflowEnvironment()
	var a *Activities

	env.OnActivity(a.ExtractTextActivity, mock.Anything, mock.Anything).Return(ExtractTextResult{
		HasItems: true,
		Items:    []ItemTextDTO{{ItemID: "item-1", Title: "Budget amendment", Text: "text", Sequence: 0}},
	}, nil)

	env.OnActivity(a.SummarizeBatchActivity, mock.Anything, mock.Anything).Return(SummarizeBatchResult{
		Results: []ItemResultDTO{{ItemID: "item-1", Success: true, Summary: "Approved.", Topics: []string{"budget"}}},
	}, nil)

	env.OnActivity(a.AggregateMeetingSummaryActivity, mock.Anything, mock.Anything).Return(
		AggregatedSummaryDTO{}, errors.New("store unavailable"))

	var persisted PersistResultRequest
	env.OnActivity(a.PersistResultActivity, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(PersistResultRequest)
	}).Return(nil)

	env.ExecuteWorkflow(ProcessQueueEntryWorkflow, ProcessQueueEntryRequest{
		QueueEntryID: 8,
		MeetingID:    "meeting-43",
		PacketURL:    "https://example.com/packet.pdf",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.False(t, persisted.Success)
	require.Contains(t, persisted.ErrorMessage, "store unavailable")
}
