// Command engagic runs the municipal meeting-agenda ingestion pipeline: a
// daemon that periodically syncs every configured city's vendor platform,
// enqueues new agenda packets, and drives them through text extraction and
// summarization. It can also run any one of those steps standalone, for
// operational use.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/engagic/pipeline/internal/conductor"
	"github.com/engagic/pipeline/internal/config"
	"github.com/engagic/pipeline/internal/health"
	"github.com/engagic/pipeline/internal/httpclient"
	"github.com/engagic/pipeline/internal/processor"
	"github.com/engagic/pipeline/internal/ratelimit"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/summarizer"
	"github.com/engagic/pipeline/internal/temporal"
	"github.com/engagic/pipeline/internal/topics"
	"github.com/engagic/pipeline/internal/vendors"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	configPath := flag.String("config", "engagic.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	daemon := flag.Bool("daemon", false, "run the sync and processing loops until signaled")
	workerOnly := flag.Bool("worker", false, "run only the Temporal activity/workflow worker")
	fullSync := flag.Bool("full-sync", false, "run one sync cycle over every active city, ignoring the activity gate, then exit")
	syncCity := flag.String("sync-city", "", "sync one city by banana and exit")
	syncAndProcessCity := flag.String("sync-and-process-city", "", "sync one city and drain its queue entries, then exit")
	processMeeting := flag.String("process-meeting", "", "process one packet URL's queue entry and exit")
	processAllUnprocessed := flag.Bool("process-all-unprocessed", false, "drain the entire pending queue and exit")
	batchSize := flag.Int("batch-size", 0, "cap --process-all-unprocessed to N entries (0 = unbounded)")
	status := flag.Bool("status", false, "print a snapshot of queue/meeting/city state and exit")
	flag.Parse()

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfgMgr, err := config.LoadManager(*configPath)
	if err != nil {
		bootLogger.Error("loading config failed", "config", *configPath, "error", err)
		os.Exit(1)
	}
	cfg := cfgMgr.Get()

	logger := configureLogger(cfg.General.LogLevel, *dev)
	slog.SetDefault(logger)
	logger.Info("engagic starting", "config", *configPath)

	lockPath := cfg.General.LockFile
	if lockPath == "" {
		lockPath = "engagic.lock"
	}
	lock, err := health.AcquireFlock(lockPath)
	if err != nil {
		logger.Error("acquiring instance lock failed", "error", err)
		os.Exit(1)
	}
	defer health.ReleaseFlock(lock)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("opening store failed", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := syncConfiguredCities(st, cfg); err != nil {
		logger.Error("seeding cities from config failed", "error", err)
		os.Exit(1)
	}

	httpClient := httpclient.New(cfg.HTTP, logger)
	limiter := ratelimit.New(cfg.RateLimits)
	registry, err := vendors.NewRegistry(vendors.Deps{
		HTTP:             httpClient,
		Limiter:          limiter,
		Logger:           logger,
		LegistarAPIToken: cfg.Vendors.LegistarAPIToken,
	}, cfg.Vendors.GranicusViewIDsFile)
	if err != nil {
		logger.Error("building vendor registry failed", "error", err)
		os.Exit(1)
	}

	normalizer, err := topics.Load(cfg.Taxonomy.File, logger)
	if err != nil {
		logger.Error("loading topic taxonomy failed", "file", cfg.Taxonomy.File, "error", err)
		os.Exit(1)
	}

	templates, err := summarizer.LoadTemplates(cfg.LLM.PromptsFile, cfg.LLM.PromptsFileLegacy)
	if err != nil {
		logger.Error("loading prompt templates failed", "error", err)
		os.Exit(1)
	}
	modelClient := summarizer.NewHTTPClient(cfg.LLM.Endpoint, os.Getenv(cfg.LLM.APIKeyEnv), nil, logger)
	summ := summarizer.New(modelClient, templates, cfg.LLM, logger)

	proc := processor.New(st, summ, normalizer, httpClient, logger)

	if *workerOnly {
		runWorker(cfg, st, registry, proc, logger)
		return
	}

	runner, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.TaskQueue)
	if err != nil {
		logger.Error("dialing temporal failed", "host_port", cfg.Temporal.HostPort, "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	cdr := conductor.New(st, runner, cfgMgr, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *fullSync:
		result, err := cdr.FullSync(ctx)
		if err != nil {
			logger.Error("full sync failed", "error", err)
			os.Exit(1)
		}
		logger.Info("full sync complete",
			"considered", result.CitiesConsidered, "synced", result.CitiesSynced,
			"failed", result.CitiesFailed, "meetings_found", result.MeetingsFound,
			"meetings_stored", result.MeetingsStored)
		return

	case *syncCity != "":
		result, err := cdr.ForceSync(ctx, *syncCity)
		if err != nil {
			logger.Error("sync city failed", "banana", *syncCity, "error", err)
			os.Exit(1)
		}
		logger.Info("sync city complete", "banana", *syncCity,
			"meetings_found", result.MeetingsFound, "meetings_stored", result.MeetingsStored)
		return

	case *syncAndProcessCity != "":
		syncResult, processed, err := cdr.SyncAndProcess(ctx, *syncAndProcessCity)
		if err != nil {
			logger.Error("sync-and-process city failed", "banana", *syncAndProcessCity, "error", err)
			os.Exit(1)
		}
		logger.Info("sync-and-process complete", "banana", *syncAndProcessCity,
			"meetings_found", syncResult.MeetingsFound, "entries_processed", processed)
		return

	case *processMeeting != "":
		if err := cdr.ForceProcess(ctx, *processMeeting); err != nil {
			logger.Error("process meeting failed", "packet_url", *processMeeting, "error", err)
			os.Exit(1)
		}
		logger.Info("process meeting complete", "packet_url", *processMeeting)
		return

	case *processAllUnprocessed:
		n, err := cdr.ProcessAllUnprocessed(ctx, *batchSize)
		if err != nil {
			logger.Error("process-all-unprocessed failed", "error", err)
			os.Exit(1)
		}
		logger.Info("process-all-unprocessed complete", "entries_processed", n)
		return

	case *status:
		printStatus(cdr, logger)
		return

	case *daemon:
		runDaemon(ctx, cancel, cfgMgr, cdr, logger, *configPath)
		return

	default:
		fmt.Fprintln(os.Stderr, "engagic: no action specified; see -h for flags (-daemon, -full-sync, -sync-city, ...)")
		os.Exit(2)
	}
}

// syncConfiguredCities upserts every [cities.*] entry from the TOML config
// into the store, so a config-file edit (new city, vendor change) takes
// effect on the next start without a separate migration step.
func syncConfiguredCities(st *store.Store, cfg *config.Config) error {
	for key, c := range cfg.Cities {
		banana := c.Banana
		if banana == "" {
			banana = store.Banana(c.Name, c.State)
		}
		if err := st.UpsertCity(store.City{
			Banana:   banana,
			Name:     c.Name,
			State:    c.State,
			County:   c.County,
			Vendor:   strings.ToLower(c.Vendor),
			Slug:     c.Slug,
			Status:   c.Status,
			ViewID:   c.ViewID,
			Zipcodes: c.Zipcodes,
		}); err != nil {
			return fmt.Errorf("city %s: %w", key, err)
		}
	}
	return nil
}

// runWorker runs only the Temporal worker loop: useful for scaling activity
// execution (vendor fetch, text extraction, summarization) independently of
// the Conductor's scheduling process.
func runWorker(cfg *config.Config, st *store.Store, registry *vendors.Registry, proc *processor.Processor, logger *slog.Logger) {
	if err := temporal.StartWorker(cfg.Temporal.HostPort, cfg.Temporal.TaskQueue, st, registry, proc, logger); err != nil {
		logger.Error("temporal worker exited with error", "error", err)
		os.Exit(1)
	}
}

// runDaemon runs the sync loop and the processing loop concurrently,
// until SIGINT/SIGTERM. SIGHUP reloads config in
// place; the Conductor reads it fresh at the head of every loop iteration.
func runDaemon(ctx context.Context, cancel context.CancelFunc, cfgMgr config.ConfigManager, cdr *conductor.Conductor, logger *slog.Logger, configPath string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cdr.RunSyncLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		cdr.RunProcessingLoop(ctx)
	}()

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			if err := cfgMgr.Reload(configPath); err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
		default:
			logger.Info("shutting down", "signal", sig.String())
			cdr.Stop()
			cancel()
			wg.Wait()
			return
		}
	}
}

func printStatus(cdr *conductor.Conductor, logger *slog.Logger) {
	st, err := cdr.Status()
	if err != nil {
		logger.Error("status failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("meetings by processing status:")
	for status, n := range st.MeetingsByProcessingStatus {
		fmt.Printf("  %-12s %d\n", status, n)
	}
	fmt.Println("queue by status:")
	for status, n := range st.QueueByStatus {
		fmt.Printf("  %-12s %d\n", status, n)
	}
	if len(st.FailedThisCycle) > 0 {
		fmt.Println("failed this cycle:")
		for banana, msg := range st.FailedThisCycle {
			fmt.Printf("  %-20s %s\n", banana, msg)
		}
	}
	fmt.Println("cities:")
	for banana, view := range st.Cities {
		fmt.Printf("  %-20s last_sync=%s meetings_found=%d error=%q\n",
			banana, view.LastSyncAt, view.MeetingsFound, view.LastError)
	}
	if len(st.RunningWorkflows) > 0 {
		fmt.Println("running workflows:")
		for _, wf := range st.RunningWorkflows {
			fmt.Printf("  %-16s %-32s run=%s\n", wf.WorkflowType, wf.WorkflowID, wf.RunID)
		}
	}
}
