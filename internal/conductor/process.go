package conductor

import (
	"context"
	"fmt"

	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/temporal"
)

// RunProcessingLoop continuously drains the processing queue, per spec.md
// §4.7's processing loop: pull highest-priority pending entry, drive it
// through ProcessQueueEntryWorkflow, sleep briefly when the queue is empty
// or after an error, repeat until Stop is called.
func (c *Conductor) RunProcessingLoop(ctx context.Context) {
	for !c.stopped() {
		cfg := c.config()

		entry, err := c.Store.NextPending()
		if err != nil {
			c.logger.Error("conductor: pulling next queue entry failed", "error", err)
			c.sleep(ctx, cfg.General.QueueErrorSleep.Duration)
			continue
		}
		if entry == nil {
			c.sleep(ctx, cfg.General.QueueEmptySleep.Duration)
			continue
		}

		if err := c.processEntry(ctx, entry, cfg.General.MaxQueueRetries); err != nil {
			c.logger.Error("conductor: processing queue entry failed",
				"queue_entry_id", entry.ID, "packet_url", entry.PacketURL, "error", err)
			c.sleep(ctx, cfg.General.QueueErrorSleep.Duration)
		}
	}
}

// processEntry runs one queue entry to completion via ProcessQueueEntryWorkflow.
// The workflow's own PersistResultActivity is the single writer of
// success/failure state (spec.md §4.6/§4.7); an error returned here means
// the workflow execution itself could not be driven to completion, not that
// the queue entry's business outcome failed (that's recorded in the store
// regardless).
func (c *Conductor) processEntry(ctx context.Context, entry *store.QueueEntry, maxRetries int) error {
	req := temporal.ProcessQueueEntryRequest{
		QueueEntryID: entry.ID,
		PacketURL:    entry.PacketURL,
		MeetingID:    entry.MeetingID,
		MaxRetries:   maxRetries,
	}
	return c.Runner.ProcessQueueEntry(ctx, req)
}

// ForceProcess drives one specific packet URL's queue entry to completion
// immediately, for the --process-meeting control-surface operation. The
// entry must already exist (created by a prior sync); this does not create
// one out of thin air.
func (c *Conductor) ForceProcess(ctx context.Context, packetURL string) error {
	entry, err := c.Store.GetQueueEntryByPacketURL(packetURL)
	if err != nil {
		return fmt.Errorf("conductor: looking up queue entry for %s: %w", packetURL, err)
	}
	if entry == nil {
		return fmt.Errorf("conductor: no queue entry for packet %q (run a sync first)", packetURL)
	}
	if entry.Status == "pending" || entry.Status == "failed" {
		if err := c.Store.ClaimEntry(entry.ID); err != nil {
			return fmt.Errorf("conductor: claiming entry for %s: %w", packetURL, err)
		}
	}

	cfg := c.config()
	return c.processEntry(ctx, entry, cfg.General.MaxQueueRetries)
}

// ProcessAllUnprocessed drains the entire pending queue (or up to batchSize
// entries, if positive), for the --process-all-unprocessed control-surface
// operation. It returns the count actually processed.
func (c *Conductor) ProcessAllUnprocessed(ctx context.Context, batchSize int) (int, error) {
	cfg := c.config()
	processed := 0
	for {
		if batchSize > 0 && processed >= batchSize {
			return processed, nil
		}
		if c.stopped() {
			return processed, nil
		}

		entry, err := c.Store.NextPending()
		if err != nil {
			return processed, fmt.Errorf("conductor: pulling next queue entry: %w", err)
		}
		if entry == nil {
			return processed, nil
		}

		if err := c.processEntry(ctx, entry, cfg.General.MaxQueueRetries); err != nil {
			c.logger.Error("conductor: batch processing entry failed",
				"queue_entry_id", entry.ID, "packet_url", entry.PacketURL, "error", err)
		}
		processed++
	}
}

// SyncAndProcess syncs one city immediately and then drains every queue
// entry that sync produced for that city, for the
// --sync-and-process-city control-surface operation.
func (c *Conductor) SyncAndProcess(ctx context.Context, banana string) (temporal.SyncCityResult, int, error) {
	syncResult, err := c.ForceSync(ctx, banana)
	if err != nil {
		return temporal.SyncCityResult{}, 0, err
	}

	cfg := c.config()
	processed := 0
	for {
		if c.stopped() {
			return syncResult, processed, nil
		}
		entry, err := c.Store.ClaimPendingForBanana(banana)
		if err != nil {
			return syncResult, processed, fmt.Errorf("conductor: pulling %s's next queue entry: %w", banana, err)
		}
		if entry == nil {
			return syncResult, processed, nil
		}
		if err := c.processEntry(ctx, entry, cfg.General.MaxQueueRetries); err != nil {
			c.logger.Error("conductor: sync-and-process entry failed",
				"banana", banana, "queue_entry_id", entry.ID, "error", err)
		}
		processed++
	}
}
