package conductor

import (
	"context"
	"fmt"

	"github.com/engagic/pipeline/internal/temporal"
)

// Status is the snapshot the --status control-surface operation prints: a
// rollup of meeting/queue state plus each recently-touched city's last sync
// outcome.
type Status struct {
	MeetingsByProcessingStatus map[string]int
	QueueByStatus              map[string]int
	FailedThisCycle            map[string]string
	Cities                     map[string]CityStatusView
	RunningWorkflows           []temporal.RunningExecution
}

// runningLister is the optional extra a WorkflowRunner may implement to
// report open Temporal executions. internal/temporal.Runner implements it;
// the in-process fakes conductor's own tests use don't, and Status degrades
// to an empty RunningWorkflows rather than requiring every test fake to grow
// a visibility-store stub.
type runningLister interface {
	ListRunning(ctx context.Context) ([]temporal.RunningExecution, error)
}

// CityStatusView is the public projection of the Conductor's internal,
// bounded cityStatus entry.
type CityStatusView struct {
	LastSyncAt    string
	MeetingsFound int
	LastError     string
}

// Status gathers the current store-level counts plus the in-memory sync
// status dict, for the --status control-surface operation.
func (c *Conductor) Status() (Status, error) {
	meetingCounts, err := c.Store.MeetingProcessingStatusCounts()
	if err != nil {
		return Status{}, fmt.Errorf("conductor: status: %w", err)
	}
	queueCounts, err := c.Store.QueueStatusCounts()
	if err != nil {
		return Status{}, fmt.Errorf("conductor: status: %w", err)
	}

	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	cities := make(map[string]CityStatusView, len(c.status))
	for banana, st := range c.status {
		view := CityStatusView{MeetingsFound: st.MeetingsFound, LastError: st.LastError}
		if !st.LastSyncAt.IsZero() {
			view.LastSyncAt = st.LastSyncAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		cities[banana] = view
	}

	failed := make(map[string]string, len(c.failed))
	for banana, errMsg := range c.failed {
		failed[banana] = errMsg
	}

	st := Status{
		MeetingsByProcessingStatus: meetingCounts,
		QueueByStatus:              queueCounts,
		FailedThisCycle:            failed,
		Cities:                     cities,
	}

	if lister, ok := c.Runner.(runningLister); ok {
		running, err := lister.ListRunning(context.Background())
		if err != nil {
			c.logger.Warn("status: listing running Temporal workflows failed", "error", err)
		} else {
			st.RunningWorkflows = running
		}
	}

	return st, nil
}
