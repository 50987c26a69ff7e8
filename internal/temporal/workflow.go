package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// SyncCityWorkflow fetches one city's current meeting slate, upserts every
// meeting (logging and skipping the ones that fail validation or storage
// rather than aborting the whole city), and enqueues anything with a
// packet or agenda URL, per spec.md §4.7's per-city sync contract.
func SyncCityWorkflow(ctx workflow.Context, req SyncCityRequest) (SyncCityResult, error) {
	logger := workflow.GetLogger(ctx)

	var a *Activities

	fetchOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	fetchCtx := workflow.WithActivityOptions(ctx, fetchOpts)

	var fetched FetchMeetingsResult
	if err := workflow.ExecuteActivity(fetchCtx, a.FetchMeetingsActivity, FetchMeetingsRequest{
		Vendor:   req.Vendor,
		CitySlug: req.CitySlug,
	}).Get(ctx, &fetched); err != nil {
		return SyncCityResult{}, fmt.Errorf("sync %s: fetch meetings: %w", req.Banana, err)
	}

	storeOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	}
	storeCtx := workflow.WithActivityOptions(ctx, storeOpts)

	result := SyncCityResult{MeetingsFound: len(fetched.Meetings)}
	for _, m := range fetched.Meetings {
		var stored StoreMeetingResult
		err := workflow.ExecuteActivity(storeCtx, a.StoreMeetingActivity, StoreMeetingRequest{
			Banana:  req.Banana,
			Meeting: m,
		}).Get(ctx, &stored)
		if err != nil {
			logger.Warn("sync: storing meeting failed, continuing with remaining meetings",
				"banana", req.Banana, "title", m.Title, "error", err)
			result.MeetingsFailed++
			continue
		}
		if stored.Skipped {
			logger.Warn("sync: meeting rejected by validator",
				"banana", req.Banana, "title", m.Title, "reason", stored.SkipReason)
			continue
		}
		result.MeetingsStored++
	}

	markOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	}
	markCtx := workflow.WithActivityOptions(ctx, markOpts)
	if err := workflow.ExecuteActivity(markCtx, a.MarkCitySyncedActivity, req.Banana).Get(ctx, nil); err != nil {
		logger.Warn("sync: marking city synced failed", "banana", req.Banana, "error", err)
	}

	return result, nil
}

// ProcessQueueEntryWorkflow drives one processing_queue entry from pending
// to complete or permanently failed, choosing item-level or monolithic
// summarization per spec.md §4.6 step 2.
func ProcessQueueEntryWorkflow(ctx workflow.Context, req ProcessQueueEntryRequest) error {
	logger := workflow.GetLogger(ctx)

	var a *Activities

	extractOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	extractCtx := workflow.WithActivityOptions(ctx, extractOpts)

	var extracted ExtractTextResult
	extractErr := workflow.ExecuteActivity(extractCtx, a.ExtractTextActivity, ExtractTextRequest{
		MeetingID: req.MeetingID,
		PacketURL: req.PacketURL,
	}).Get(ctx, &extracted)

	if extractErr != nil {
		return persistFailure(ctx, a, req, extractErr)
	}

	if extracted.Cached {
		return persistMonolithic(ctx, a, req, &MonolithicOutcome{
			Summary:          extracted.CachedSummary,
			ProcessingMethod: "cached",
			FromCache:        true,
		}, logger)
	}

	summarizeOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	summarizeCtx := workflow.WithActivityOptions(ctx, summarizeOpts)

	startTime := workflow.Now(ctx)

	if extracted.HasItems {
		var batchResult SummarizeBatchResult
		if err := workflow.ExecuteActivity(summarizeCtx, a.SummarizeBatchActivity, SummarizeBatchRequest{
			Items: extracted.Items,
		}).Get(ctx, &batchResult); err != nil {
			return persistFailure(ctx, a, req, err)
		}

		elapsed := workflow.Now(ctx).Sub(startTime).Seconds()
		return persistItemLevel(ctx, a, req, batchResult.Results, elapsed)
	}

	var summarized SummarizeResult
	if err := workflow.ExecuteActivity(summarizeCtx, a.SummarizeActivity, SummarizeRequest{
		PacketURL: req.PacketURL,
		Text:      extracted.Text,
	}).Get(ctx, &summarized); err != nil {
		return persistFailure(ctx, a, req, err)
	}

	elapsed := workflow.Now(ctx).Sub(startTime).Seconds()
	return persistMonolithic(ctx, a, req, &MonolithicOutcome{
		Summary:          summarized.Summary,
		Participation:    participationText(extracted),
		ProcessingMethod: "tier1_pymupdf_gemini",
		ProcessingTime:   elapsed,
	}, logger)
}

func persistOpts() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
}

func persistMonolithic(ctx workflow.Context, a *Activities, req ProcessQueueEntryRequest, outcome *MonolithicOutcome, logger interface{ Warn(string, ...interface{}) }) error {
	persistCtx := workflow.WithActivityOptions(ctx, persistOpts())
	err := workflow.ExecuteActivity(persistCtx, a.PersistResultActivity, PersistResultRequest{
		QueueEntryID: req.QueueEntryID,
		MeetingID:    req.MeetingID,
		PacketURL:    req.PacketURL,
		Success:      true,
		Monolithic:   outcome,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("process: persisting monolithic result failed", "meeting_id", req.MeetingID, "error", err)
	}
	return err
}

// persistItemLevel rolls per-item results up into a meeting-level
// summary/topic list and persists the outcome. The rollup itself is done by
// AggregateMeetingSummaryActivity (reloading items from the store, same as
// the non-Temporal processor path) rather than in workflow code, both
// because workflow code must stay side-effect-free and because only the
// store has the normalized topics SummarizeBatchActivity already wrote —
// results here still carries each item's raw (un-normalized) topics.
func persistItemLevel(ctx workflow.Context, a *Activities, req ProcessQueueEntryRequest, results []ItemResultDTO, elapsed float64) error {
	aggCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var agg AggregatedSummaryDTO
	if err := workflow.ExecuteActivity(aggCtx, a.AggregateMeetingSummaryActivity, req.MeetingID).Get(ctx, &agg); err != nil {
		return persistFailure(ctx, a, req, fmt.Errorf("aggregating meeting summary: %w", err))
	}

	persistCtx := workflow.WithActivityOptions(ctx, persistOpts())
	return workflow.ExecuteActivity(persistCtx, a.PersistResultActivity, PersistResultRequest{
		QueueEntryID: req.QueueEntryID,
		MeetingID:    req.MeetingID,
		Success:      true,
		ItemLevel: &ItemLevelOutcome{
			Summary:          agg.Summary,
			Topics:           agg.Topics,
			ProcessingMethod: agg.ProcessingMethod,
			ProcessingTime:   elapsed,
			Results:          results,
		},
	}).Get(ctx, nil)
}

func persistFailure(ctx workflow.Context, a *Activities, req ProcessQueueEntryRequest, cause error) error {
	persistCtx := workflow.WithActivityOptions(ctx, persistOpts())
	_ = workflow.ExecuteActivity(persistCtx, a.PersistResultActivity, PersistResultRequest{
		QueueEntryID: req.QueueEntryID,
		MeetingID:    req.MeetingID,
		MaxRetries:   req.MaxRetries,
		Success:      false,
		ErrorMessage: cause.Error(),
	}).Get(ctx, nil)
	return fmt.Errorf("process queue entry %d: %w", req.QueueEntryID, cause)
}

func participationText(extracted ExtractTextResult) string {
	p := extracted.Participation
	var parts []string
	if p.Email != "" {
		parts = append(parts, "email: "+p.Email)
	}
	if p.Phone != "" {
		parts = append(parts, "phone: "+p.Phone)
	}
	if p.VirtualURL != "" {
		parts = append(parts, "virtual: "+p.VirtualURL)
	}
	out := ""
	for i, part := range parts {
		if i > 0 {
			out += "; "
		}
		out += part
	}
	return out
}
