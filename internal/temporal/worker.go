package temporal

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/engagic/pipeline/internal/processor"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/vendors"
)

// StartWorker connects to Temporal and runs the engagic task queue worker:
// SyncCityWorkflow and ProcessQueueEntryWorkflow, plus every Activities
// method they call, per spec.md §4.7's "one Worker registers both workflows
// and all activities against one task queue."
func StartWorker(hostPort, taskQueue string, st *store.Store, registry *vendors.Registry, proc *processor.Processor, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return fmt.Errorf("temporal: dialing %s: %w", hostPort, err)
	}
	defer c.Close()

	w := worker.New(c, taskQueue, worker.Options{})

	acts := &Activities{Store: st, Registry: registry, Processor: proc}

	w.RegisterWorkflow(SyncCityWorkflow)
	w.RegisterWorkflow(ProcessQueueEntryWorkflow)
	registerActivities(w, acts)

	logger.Info("temporal worker starting", "task_queue", taskQueue, "host_port", hostPort)
	return w.Run(worker.InterruptCh())
}

// activityRegistrar is the slice of worker.Worker this package depends on,
// narrowed so registerActivities's completeness can be unit-tested without
// a live Temporal cluster.
type activityRegistrar interface {
	RegisterActivity(interface{})
}

// registerActivities registers every Activities method a workflow in this
// package calls via workflow.ExecuteActivity. Keep this list in sync with
// workflow.go — a method called there but missing here has no handler on
// the task queue and every execution of it fails at run time.
func registerActivities(w activityRegistrar, acts *Activities) {
	w.RegisterActivity(acts.FetchMeetingsActivity)
	w.RegisterActivity(acts.StoreMeetingActivity)
	w.RegisterActivity(acts.MarkCitySyncedActivity)
	w.RegisterActivity(acts.ExtractTextActivity)
	w.RegisterActivity(acts.SummarizeActivity)
	w.RegisterActivity(acts.SummarizeBatchActivity)
	w.RegisterActivity(acts.AggregateMeetingSummaryActivity)
	w.RegisterActivity(acts.PersistResultActivity)
}
