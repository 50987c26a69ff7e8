// Package conductor implements spec.md §4.7's Conductor: the periodic sync
// scheduler and the continuous processing worker that together turn a
// configured list of cities into stored, summarized meetings. Both loops
// are plain Go control flow; the durable unit of work (one city's sync, one
// queue entry's processing) is delegated to a Temporal workflow execution
// reached through the WorkflowRunner seam, so a crash mid-city or
// mid-meeting resumes instead of losing the cycle.
package conductor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/engagic/pipeline/internal/config"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/temporal"
)

// WorkflowRunner is the seam between the Conductor's loops and Temporal.
// internal/temporal.Runner implements it against a live cluster; tests
// implement it with an in-process fake so the loop logic (gating, priority,
// retries, vendor grouping) is exercised without a Temporal server.
type WorkflowRunner interface {
	SyncCity(ctx context.Context, req temporal.SyncCityRequest) (temporal.SyncCityResult, error)
	ProcessQueueEntry(ctx context.Context, req temporal.ProcessQueueEntryRequest) error
}

// Conductor owns the Store and the WorkflowRunner and drives spec.md §4.7's
// two loops plus the control-surface operations (§6) the CLI calls
// directly: ForceSync, SyncAndProcess, ForceProcess, Status.
type Conductor struct {
	Store  *store.Store
	Runner WorkflowRunner
	cfg    config.ConfigManager
	logger *slog.Logger

	stopping atomic.Bool

	statusMu sync.Mutex
	status   map[string]cityStatus
	failed   map[string]string // banana -> last error, reset each sync cycle
}

// cityStatus is the bounded-to-100-entries status dict spec.md §5 requires
// ("Status dict: bounded to 100 entries; reset on overflow").
type cityStatus struct {
	LastSyncAt     time.Time
	LastResult     temporal.SyncCityResult
	LastError      string
	MeetingsFound  int
}

// New builds a Conductor. cfgMgr is held rather than a snapshot so config
// hot-reloads (SIGHUP) are visible to the next loop iteration, matching the
// teacher's ConfigManager-everywhere pattern.
func New(st *store.Store, runner WorkflowRunner, cfgMgr config.ConfigManager, logger *slog.Logger) *Conductor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conductor{
		Store:  st,
		Runner: runner,
		cfg:    cfgMgr,
		logger: logger,
		status: make(map[string]cityStatus),
		failed: make(map[string]string),
	}
}

func (c *Conductor) config() *config.Config {
	return c.cfg.Get()
}

// Stop flips the running flag both loops check at their iteration heads.
// Per spec.md §5, workers exit within their current iteration plus ~30s,
// not mid-activity — there is no forced cancellation of an in-flight
// workflow execution.
func (c *Conductor) Stop() {
	c.stopping.Store(true)
}

func (c *Conductor) stopped() bool {
	return c.stopping.Load()
}

func jitter(base time.Duration, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return base
	}
	return base + time.Duration(randFloat()*float64(maxJitter))
}

// randFloat is its own function so tests can't accidentally rely on it for
// anything beyond "some jitter was added" — no seeding, no determinism
// promised.
func randFloat() float64 {
	return randSource.Float64()
}
