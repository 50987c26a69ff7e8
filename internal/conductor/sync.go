package conductor

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/engagic/pipeline/internal/config"
	"github.com/engagic/pipeline/internal/pipelineerr"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/temporal"
)

// syncGateThreshold implements spec.md §4.7's activity-based sync gate: a
// city's last 30 days of meeting volume decides how stale its sync is
// allowed to get before the next cycle re-fetches it.
func syncGateThreshold(recent30d int) time.Duration {
	switch {
	case recent30d >= 8:
		return 12 * time.Hour
	case recent30d >= 4:
		return 24 * time.Hour
	case recent30d >= 1:
		return 7 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// dueForSync reports whether city should be synced this cycle: never-synced
// cities are always due; everyone else waits out syncGateThreshold.
func dueForSync(city store.City, recent30d int, now time.Time) bool {
	if !city.LastSyncedAt.Valid {
		return true
	}
	return now.Sub(city.LastSyncedAt.Time) > syncGateThreshold(recent30d)
}

// priorityScore orders cities within a vendor group: never-synced cities
// sort first (score 1000, per spec.md §4.7); everyone else is scored by
// recent activity plus staleness, capped so a very stale city doesn't drown
// out an active one.
func priorityScore(city store.City, recent30d int, now time.Time) float64 {
	if !city.LastSyncedAt.Valid {
		return 1000
	}
	hoursSince := now.Sub(city.LastSyncedAt.Time).Hours()
	staleness := hoursSince / 24
	if staleness > 10 {
		staleness = 10
	}
	return float64(10*recent30d) + staleness
}

// syncCandidate pairs a city with the scheduling inputs computed for it once
// per cycle, so the ordering and gating logic don't re-query the store.
type syncCandidate struct {
	City      store.City
	Recent30d int
	Due       bool
	Score     float64
}

func (c *Conductor) buildCandidates(cities []store.City, now time.Time) ([]syncCandidate, error) {
	out := make([]syncCandidate, 0, len(cities))
	for _, city := range cities {
		recent, err := c.Store.RecentMeetingCount30d(city.Banana)
		if err != nil {
			return nil, fmt.Errorf("conductor: recent meeting count for %s: %w", city.Banana, err)
		}
		out = append(out, syncCandidate{
			City:      city,
			Recent30d: recent,
			Due:       dueForSync(city, recent, now),
			Score:     priorityScore(city, recent, now),
		})
	}
	return out, nil
}

// groupByVendor partitions candidates into per-vendor slices, each sorted
// by descending priority score, and returns the vendor names in a stable
// (alphabetical) order so a cycle's log output and test expectations don't
// depend on map iteration order.
func groupByVendor(candidates []syncCandidate) ([]string, map[string][]syncCandidate) {
	groups := make(map[string][]syncCandidate)
	for _, cand := range candidates {
		groups[cand.City.Vendor] = append(groups[cand.City.Vendor], cand)
	}
	vendors := make([]string, 0, len(groups))
	for v, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].Score > group[j].Score })
		groups[v] = group
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return vendors, groups
}

// RunSyncLoop wakes every cfg.General.SyncInterval (2-day cooldown on a
// fatal cycle error) and runs one full cycle across every active city. It
// returns once Stop is called.
func (c *Conductor) RunSyncLoop(ctx context.Context) {
	for !c.stopped() {
		cfg := c.config()
		if _, err := c.runSyncCycle(ctx); err != nil {
			c.logger.Error("conductor: sync cycle failed", "error", err)
			c.sleep(ctx, cfg.General.SyncErrorCooldown.Duration)
			continue
		}
		c.sleep(ctx, cfg.General.SyncInterval.Duration)
	}
}

func (c *Conductor) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// CycleResult summarizes one full sync cycle for logging/--full-sync output.
type CycleResult struct {
	CitiesConsidered int
	CitiesSynced     int
	CitiesSkipped    int
	CitiesFailed     int
	MeetingsFound    int
	MeetingsStored   int
	FailedCities     map[string]string
}

// runSyncCycle is one pass over every active city, grouped by vendor,
// respecting the activity gate and the per-vendor group sleep. The failed
// set is reset at the start of every cycle per spec.md §4.7's observability
// note ("failed-cities set reset each sync cycle").
func (c *Conductor) runSyncCycle(ctx context.Context) (CycleResult, error) {
	c.statusMu.Lock()
	c.failed = make(map[string]string)
	c.statusMu.Unlock()

	cities, err := c.Store.ListActiveCities()
	if err != nil {
		return CycleResult{}, fmt.Errorf("conductor: listing active cities: %w", err)
	}

	candidates, err := c.buildCandidates(cities, time.Now())
	if err != nil {
		return CycleResult{}, err
	}

	vendors, groups := groupByVendor(candidates)
	result := CycleResult{CitiesConsidered: len(candidates), FailedCities: make(map[string]string)}

	for i, vendor := range vendors {
		cfg := c.config()
		for _, cand := range groups[vendor] {
			if c.stopped() {
				return result, nil
			}
			if !cand.Due {
				result.CitiesSkipped++
				continue
			}

			syncResult, err := c.syncCityWithRetry(ctx, cand.City, cfg.General)
			if err != nil {
				result.CitiesFailed++
				result.FailedCities[cand.City.Banana] = err.Error()
				c.recordFailure(cand.City.Banana, err)
				continue
			}
			result.CitiesSynced++
			result.MeetingsFound += syncResult.MeetingsFound
			result.MeetingsStored += syncResult.MeetingsStored
			c.recordSuccess(cand.City.Banana, syncResult)
		}

		logMemoryUsage(c.logger, vendor)

		if i < len(vendors)-1 {
			c.sleep(ctx, jitter(cfg.General.VendorGroupSleep.Duration, 10*time.Second))
		}
	}

	return result, nil
}

// syncRetryDelays mirrors spec.md §4.7's literal "wait 5s then 20s (+0-2s
// jitter)" per-city retry schedule: the first retry waits base, the second
// waits 4x base (5s -> 20s at the documented default), jittered up to 2s.
func syncRetryDelays(base time.Duration) []time.Duration {
	if base <= 0 {
		base = 5 * time.Second
	}
	return []time.Duration{base, 4 * base}
}

func (c *Conductor) syncCityWithRetry(ctx context.Context, city store.City, gen config.General) (temporal.SyncCityResult, error) {
	req := temporal.SyncCityRequest{Banana: city.Banana, Vendor: city.Vendor, CitySlug: city.Slug}

	result, err := c.Runner.SyncCity(ctx, req)
	if err == nil {
		return result, nil
	}

	// Configuration errors (missing view_id, unknown vendor, ...) fail fast
	// and are never retried, per spec.md §7 — retrying would just burn the
	// same per-city retry budget a transient network error uses, for a
	// failure no amount of waiting fixes.
	if pipelineerr.IsConfiguration(err) {
		c.logger.Error("conductor: city sync failed with configuration error, not retrying",
			"banana", city.Banana, "vendor", city.Vendor, "error", err)
		return temporal.SyncCityResult{}, fmt.Errorf("conductor: sync %s: %w", city.Banana, err)
	}

	delays := syncRetryDelays(gen.CitySyncRetryDelay.Duration)
	retries := gen.CitySyncRetries
	if retries > len(delays) {
		retries = len(delays)
	}

	var lastErr = err
	for attempt := 0; attempt < retries; attempt++ {
		c.logger.Warn("conductor: city sync failed, retrying",
			"banana", city.Banana, "vendor", city.Vendor, "attempt", attempt+1, "error", lastErr)
		c.sleep(ctx, jitter(delays[attempt], 2*time.Second))
		if c.stopped() {
			return temporal.SyncCityResult{}, lastErr
		}
		result, lastErr = c.Runner.SyncCity(ctx, req)
		if lastErr == nil {
			return result, nil
		}
	}
	return temporal.SyncCityResult{}, fmt.Errorf("conductor: sync %s failed after retries: %w", city.Banana, lastErr)
}

func (c *Conductor) recordSuccess(banana string, result temporal.SyncCityResult) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.setStatusLocked(banana, cityStatus{LastSyncAt: time.Now(), LastResult: result, MeetingsFound: result.MeetingsFound})
}

func (c *Conductor) recordFailure(banana string, err error) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.failed[banana] = err.Error()
	c.setStatusLocked(banana, cityStatus{LastSyncAt: time.Now(), LastError: err.Error()})
}

// setStatusLocked enforces spec.md §5's bounded status dict: "Status dict:
// bounded to 100 entries; reset on overflow." Must be called with
// statusMu held.
func (c *Conductor) setStatusLocked(banana string, st cityStatus) {
	const maxEntries = 100
	if _, exists := c.status[banana]; !exists && len(c.status) >= maxEntries {
		c.status = make(map[string]cityStatus)
	}
	c.status[banana] = st
}

// ForceSync syncs exactly one city immediately, bypassing the activity
// gate, for the --sync-city control-surface operation.
func (c *Conductor) ForceSync(ctx context.Context, banana string) (temporal.SyncCityResult, error) {
	city, err := c.Store.GetCity(banana)
	if err != nil {
		return temporal.SyncCityResult{}, fmt.Errorf("conductor: loading city %s: %w", banana, err)
	}
	if city == nil {
		return temporal.SyncCityResult{}, fmt.Errorf("conductor: no such city %q", banana)
	}

	result, err := c.syncCityWithRetry(ctx, *city, c.config().General)
	if err != nil {
		c.recordFailure(banana, err)
		return temporal.SyncCityResult{}, err
	}
	c.recordSuccess(banana, result)
	return result, nil
}

// FullSync runs one complete sync cycle over every active city regardless
// of the activity gate, for the --full-sync control-surface operation. It
// temporarily treats every candidate as due.
func (c *Conductor) FullSync(ctx context.Context) (CycleResult, error) {
	cities, err := c.Store.ListActiveCities()
	if err != nil {
		return CycleResult{}, fmt.Errorf("conductor: listing active cities: %w", err)
	}

	candidates, err := c.buildCandidates(cities, time.Now())
	if err != nil {
		return CycleResult{}, err
	}
	for i := range candidates {
		candidates[i].Due = true
	}

	vendors, groups := groupByVendor(candidates)
	result := CycleResult{CitiesConsidered: len(candidates), FailedCities: make(map[string]string)}

	for i, vendor := range vendors {
		cfg := c.config()
		for _, cand := range groups[vendor] {
			if c.stopped() {
				return result, nil
			}
			syncResult, err := c.syncCityWithRetry(ctx, cand.City, cfg.General)
			if err != nil {
				result.CitiesFailed++
				result.FailedCities[cand.City.Banana] = err.Error()
				c.recordFailure(cand.City.Banana, err)
				continue
			}
			result.CitiesSynced++
			result.MeetingsFound += syncResult.MeetingsFound
			result.MeetingsStored += syncResult.MeetingsStored
			c.recordSuccess(cand.City.Banana, syncResult)
		}
		if i < len(vendors)-1 {
			c.sleep(ctx, jitter(cfg.General.VendorGroupSleep.Duration, 10*time.Second))
		}
	}
	return result, nil
}

// logMemoryUsage is spec.md §5's "process-memory logging between vendor
// groups": log RSS-equivalent alloc stats, then let extracted text/batch
// buffers from the just-finished group go out of scope so GC can reclaim
// them before the next group starts.
func logMemoryUsage(logger interface {
	Info(string, ...any)
}, afterVendor string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.Info("conductor: memory after vendor group",
		"vendor", afterVendor, "alloc_mb", m.Alloc/1024/1024, "sys_mb", m.Sys/1024/1024)
}
