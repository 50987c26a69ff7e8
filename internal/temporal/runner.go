package temporal

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
)

// Runner is the Conductor's handle onto a running Temporal cluster: it
// starts SyncCityWorkflow/ProcessQueueEntryWorkflow executions and blocks
// for their result, so the Conductor's own loops can stay simple sequential
// Go code while durability and retry live in the workflow layer.
type Runner struct {
	Client    client.Client
	TaskQueue string
}

// Dial connects to the Temporal frontend at hostPort. The caller must call
// Close when done.
func Dial(hostPort, taskQueue string) (*Runner, error) {
	c, err := client.Dial(client.Options{HostPort: hostPort})
	if err != nil {
		return nil, fmt.Errorf("temporal: dialing %s: %w", hostPort, err)
	}
	return &Runner{Client: c, TaskQueue: taskQueue}, nil
}

// Close releases the underlying Temporal client connection.
func (r *Runner) Close() {
	if r.Client != nil {
		r.Client.Close()
	}
}

// SyncCity runs SyncCityWorkflow to completion for one city and returns its
// result, per spec.md §4.7's per-city sync contract. The workflow ID is
// deterministic per city, with reuse restricted to prior executions that
// didn't succeed — a second sync for the same city while one is still
// Running attaches to that run rather than racing it.
func (r *Runner) SyncCity(ctx context.Context, req SyncCityRequest) (SyncCityResult, error) {
	opts := client.StartWorkflowOptions{
		ID:                    "sync-city-" + req.Banana,
		TaskQueue:             r.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	run, err := r.Client.ExecuteWorkflow(ctx, opts, SyncCityWorkflow, req)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &already) {
			return SyncCityResult{}, fmt.Errorf("temporal: starting sync for %s: %w", req.Banana, err)
		}
		run = r.Client.GetWorkflow(ctx, opts.ID, "")
	}
	var result SyncCityResult
	if err := run.Get(ctx, &result); err != nil {
		return SyncCityResult{}, fmt.Errorf("temporal: sync workflow for %s: %w", req.Banana, err)
	}
	return result, nil
}

// ProcessQueueEntry runs ProcessQueueEntryWorkflow to completion for one
// queue entry. A processing failure is first recorded by the workflow and
// then also returned as the workflow's error, so an error here is either
// such a recorded failure or a run that could not record an outcome at all
// (e.g. the activity worker crashed mid-run). Same reuse policy as
// SyncCity: a retry of an already-failed entry gets a fresh run, a retry of
// one still in flight attaches to it.
func (r *Runner) ProcessQueueEntry(ctx context.Context, req ProcessQueueEntryRequest) error {
	opts := client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("process-queue-entry-%d", req.QueueEntryID),
		TaskQueue:             r.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	run, err := r.Client.ExecuteWorkflow(ctx, opts, ProcessQueueEntryWorkflow, req)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &already) {
			return fmt.Errorf("temporal: starting processing for entry %d: %w", req.QueueEntryID, err)
		}
		run = r.Client.GetWorkflow(ctx, opts.ID, "")
	}
	return run.Get(ctx, nil)
}

// RunningExecution is one open workflow execution as reported by the
// Temporal frontend's visibility store.
type RunningExecution struct {
	WorkflowID   string
	RunID        string
	WorkflowType string
}

// ListRunning returns every open SyncCityWorkflow/ProcessQueueEntryWorkflow
// execution, for the --status control-surface operation to report in-flight
// work the in-memory Conductor status dict can't see across process
// restarts (e.g. a queue entry still being driven by a worker that started
// before this CLI invocation).
func (r *Runner) ListRunning(ctx context.Context) ([]RunningExecution, error) {
	var out []RunningExecution
	var pageToken []byte
	for {
		resp, err := r.Client.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
			Query:         "ExecutionStatus = 'Running'",
			PageSize:      200,
			NextPageToken: pageToken,
		})
		if err != nil {
			return nil, fmt.Errorf("temporal: listing running workflows: %w", err)
		}
		for _, exec := range resp.GetExecutions() {
			info := exec.GetExecution()
			if info == nil {
				continue
			}
			out = append(out, RunningExecution{
				WorkflowID:   info.GetWorkflowId(),
				RunID:        info.GetRunId(),
				WorkflowType: exec.GetType().GetName(),
			})
		}
		pageToken = resp.GetNextPageToken()
		if len(pageToken) == 0 {
			break
		}
	}
	return out, nil
}
