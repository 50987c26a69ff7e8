// Package config loads and validates the engagic pipeline TOML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the top-level engagic configuration.
type Config struct {
	General   General                `toml:"general"`
	Store     Store                  `toml:"store"`
	Cities    map[string]City        `toml:"cities"`
	Vendors   Vendors                `toml:"vendors"`
	RateLimits VendorRateLimits      `toml:"rate_limits"`
	HTTP      HTTPClient             `toml:"http"`
	LLM       LLM                    `toml:"llm"`
	Taxonomy  Taxonomy               `toml:"taxonomy"`
	Temporal  Temporal               `toml:"temporal"`
	Health    Health                 `toml:"health"`
}

// General controls the Conductor's sync and processing loops.
type General struct {
	SyncInterval       Duration `toml:"sync_interval"`        // default 7d
	SyncErrorCooldown  Duration `toml:"sync_error_cooldown"`  // default 2d, applied after a fatal sync error
	VendorGroupSleep   Duration `toml:"vendor_group_sleep"`   // 30-40s between vendor groups (jittered)
	QueueEmptySleep    Duration `toml:"queue_empty_sleep"`    // 5s
	QueueErrorSleep    Duration `toml:"queue_error_sleep"`    // 2s
	CitySyncRetries    int      `toml:"city_sync_retries"`    // default 1
	CitySyncRetryDelay Duration `toml:"city_sync_retry_delay"` // first retry wait, default 5s
	MaxQueueRetries    int      `toml:"max_queue_retries"`    // default 3
	LogLevel           string   `toml:"log_level"`
	LockFile           string   `toml:"lock_file"`
	ParallelVendors    bool     `toml:"parallel_vendors"` // default false, polite single-threaded sync
	FetchWindowDays    FetchWindow `toml:"fetch_window_days"`
}

// FetchWindow bounds how far back/forward adapters look for meetings.
type FetchWindow struct {
	Back    int `toml:"back"`    // default 7
	Forward int `toml:"forward"` // default 14
}

// Store configures the embedded SQLite engine.
type Store struct {
	Path string `toml:"path"` // default "engagic.db"
}

// City is one municipality's vendor wiring.
type City struct {
	Banana    string   `toml:"banana"`
	Name      string   `toml:"name"`
	State     string   `toml:"state"`
	County    string   `toml:"county"`
	Vendor    string   `toml:"vendor"`
	Slug      string   `toml:"slug"`
	Zipcodes  []string `toml:"zipcodes"`
	Status    string   `toml:"status"` // active, inactive
	ViewID    int      `toml:"view_id"` // granicus only
}

// Vendors holds per-vendor static configuration that is not per-city.
type Vendors struct {
	LegistarAPIToken     string `toml:"legistar_api_token"`      // NYC_LEGISTAR_TOKEN
	GranicusViewIDsFile  string `toml:"granicus_view_ids_file"`  // granicus_view_ids.json
}

// VendorRateLimits is the minimum spacing, in seconds, between requests to a vendor.
type VendorRateLimits struct {
	MinDelaySeconds map[string]float64 `toml:"min_delay_seconds"`
	JitterSeconds   float64            `toml:"jitter_seconds"` // default 1.0
}

// DefaultMinDelay returns the configured spacing for vendor, or the "unknown" default.
func (v VendorRateLimits) DefaultMinDelay(vendor string) time.Duration {
	if v.MinDelaySeconds != nil {
		if d, ok := v.MinDelaySeconds[strings.ToLower(vendor)]; ok {
			return time.Duration(d * float64(time.Second))
		}
	}
	return 5 * time.Second
}

// HTTPClient configures the shared outbound HTTP client.
type HTTPClient struct {
	RequestTimeout   Duration `toml:"request_timeout"`    // default 30s
	HeadTimeout      Duration `toml:"head_timeout"`       // default 10s
	MaxRetries       int      `toml:"max_retries"`        // default 3
	UserAgent        string   `toml:"user_agent"`
	PDFUserAgent     string   `toml:"pdf_user_agent"`
	MaxPDFAPIBytes   int64    `toml:"max_pdf_api_bytes"`   // default 32MB
	MaxPDFLocalBytes int64    `toml:"max_pdf_local_bytes"` // default 200MB, OCR tier only
	MaxURLLength     int      `toml:"max_url_length"`      // default 2000
}

// LLM configures the summarizer's model routing and batch behavior.
type LLM struct {
	APIKeyEnv        string   `toml:"api_key_env"` // default "LLM_API_KEY"
	SmallModel       string   `toml:"small_model"`
	LargeModel       string   `toml:"large_model"`
	Endpoint         string   `toml:"endpoint"`
	PromptsFile      string   `toml:"prompts_file"`      // prompts_v2.json preferred
	PromptsFileLegacy string  `toml:"prompts_file_legacy"` // prompts.json
	BatchEnabled     bool     `toml:"batch_enabled"`
	BatchPollInterval Duration `toml:"batch_poll_interval"` // default 10s
	BatchTimeout     Duration `toml:"batch_timeout"`       // default 30m
	BatchSize        int      `toml:"batch_size"`          // auto-submit threshold
	BatchFlushEvery  Duration `toml:"batch_flush_every"`   // default 5m
}

// Taxonomy points at the static topic taxonomy JSON.
type Taxonomy struct {
	File string `toml:"file"`
}

// Temporal configures the workflow client/worker connection.
type Temporal struct {
	HostPort  string `toml:"host_port"` // default "127.0.0.1:7233"
	TaskQueue string `toml:"task_queue"` // default "engagic-task-queue"
}

// Health configures the daemon's own liveness bookkeeping.
type Health struct {
	CheckInterval Duration `toml:"check_interval"` // default 5m
	StatusMaxSize int      `toml:"status_max_size"` // default 100, bounded status dict
}

// Clone returns a deep copy of cfg so callers can safely mutate the result.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	cloned.Cities = cloneCities(cfg.Cities)
	cloned.RateLimits.MinDelaySeconds = cloneFloatMap(cfg.RateLimits.MinDelaySeconds)
	cloned.General.FetchWindowDays = cfg.General.FetchWindowDays
	return &cloned
}

func cloneCities(in map[string]City) map[string]City {
	if in == nil {
		return nil
	}
	out := make(map[string]City, len(in))
	for k, c := range in {
		c.Zipcodes = cloneStringSlice(c.Zipcodes)
		out[k] = c
	}
	return out
}

func cloneFloatMap(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStringSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Load reads and validates an engagic TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadManager reads config from path and returns an RWMutex-backed thread-safe manager.
func LoadManager(path string) (ConfigManager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewManager(cfg), nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.SyncInterval.Duration == 0 {
		cfg.General.SyncInterval.Duration = 7 * 24 * time.Hour
	}
	if cfg.General.SyncErrorCooldown.Duration == 0 {
		cfg.General.SyncErrorCooldown.Duration = 2 * 24 * time.Hour
	}
	if cfg.General.VendorGroupSleep.Duration == 0 {
		cfg.General.VendorGroupSleep.Duration = 30 * time.Second
	}
	if cfg.General.QueueEmptySleep.Duration == 0 {
		cfg.General.QueueEmptySleep.Duration = 5 * time.Second
	}
	if cfg.General.QueueErrorSleep.Duration == 0 {
		cfg.General.QueueErrorSleep.Duration = 2 * time.Second
	}
	if cfg.General.CitySyncRetries == 0 {
		cfg.General.CitySyncRetries = 1
	}
	if cfg.General.CitySyncRetryDelay.Duration == 0 {
		cfg.General.CitySyncRetryDelay.Duration = 5 * time.Second
	}
	if cfg.General.MaxQueueRetries == 0 {
		cfg.General.MaxQueueRetries = 3
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.FetchWindowDays.Back == 0 {
		cfg.General.FetchWindowDays.Back = 7
	}
	if cfg.General.FetchWindowDays.Forward == 0 {
		cfg.General.FetchWindowDays.Forward = 14
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "engagic.db"
	}

	if cfg.RateLimits.MinDelaySeconds == nil {
		cfg.RateLimits.MinDelaySeconds = map[string]float64{
			"primegov":    3,
			"civicclerk":  3,
			"legistar":    3,
			"granicus":    4,
			"civicplus":   4,
			"novusagenda": 4,
		}
	}
	if cfg.RateLimits.JitterSeconds == 0 {
		cfg.RateLimits.JitterSeconds = 1.0
	}

	if cfg.HTTP.RequestTimeout.Duration == 0 {
		cfg.HTTP.RequestTimeout.Duration = 30 * time.Second
	}
	if cfg.HTTP.HeadTimeout.Duration == 0 {
		cfg.HTTP.HeadTimeout.Duration = 10 * time.Second
	}
	if cfg.HTTP.MaxRetries == 0 {
		cfg.HTTP.MaxRetries = 3
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if cfg.HTTP.PDFUserAgent == "" {
		cfg.HTTP.PDFUserAgent = "Engagic-PDF-Validator/1.0"
	}
	if cfg.HTTP.MaxPDFAPIBytes == 0 {
		cfg.HTTP.MaxPDFAPIBytes = 32 * 1024 * 1024
	}
	if cfg.HTTP.MaxPDFLocalBytes == 0 {
		cfg.HTTP.MaxPDFLocalBytes = 200 * 1024 * 1024
	}
	if cfg.HTTP.MaxURLLength == 0 {
		cfg.HTTP.MaxURLLength = 2000
	}

	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "LLM_API_KEY"
	}
	if cfg.LLM.SmallModel == "" {
		cfg.LLM.SmallModel = "gemini-small"
	}
	if cfg.LLM.LargeModel == "" {
		cfg.LLM.LargeModel = "gemini-large"
	}
	if cfg.LLM.PromptsFile == "" {
		cfg.LLM.PromptsFile = "prompts_v2.json"
	}
	if cfg.LLM.PromptsFileLegacy == "" {
		cfg.LLM.PromptsFileLegacy = "prompts.json"
	}
	if cfg.LLM.BatchPollInterval.Duration == 0 {
		cfg.LLM.BatchPollInterval.Duration = 10 * time.Second
	}
	if cfg.LLM.BatchTimeout.Duration == 0 {
		cfg.LLM.BatchTimeout.Duration = 30 * time.Minute
	}
	if cfg.LLM.BatchSize == 0 {
		cfg.LLM.BatchSize = 20
	}
	if cfg.LLM.BatchFlushEvery.Duration == 0 {
		cfg.LLM.BatchFlushEvery.Duration = 5 * time.Minute
	}

	if cfg.Taxonomy.File == "" {
		cfg.Taxonomy.File = "taxonomy.json"
	}

	if cfg.Temporal.HostPort == "" {
		cfg.Temporal.HostPort = "127.0.0.1:7233"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "engagic-task-queue"
	}

	if cfg.Health.CheckInterval.Duration == 0 {
		cfg.Health.CheckInterval.Duration = 5 * time.Minute
	}
	if cfg.Health.StatusMaxSize == 0 {
		cfg.Health.StatusMaxSize = 100
	}
}

var validVendors = map[string]bool{
	"primegov": true, "civicclerk": true, "legistar": true,
	"granicus": true, "novusagenda": true, "civicplus": true,
	"escribe": true, "iqm2": true,
}

func validate(cfg *Config) error {
	for key, city := range cfg.Cities {
		vendor := strings.ToLower(strings.TrimSpace(city.Vendor))
		if !validVendors[vendor] && !strings.HasPrefix(vendor, "custom_") {
			return fmt.Errorf("city %s: unknown vendor %q", key, city.Vendor)
		}
		if vendor == "granicus" && city.ViewID == 0 {
			return fmt.Errorf("city %s: granicus cities require view_id", key)
		}
		if strings.TrimSpace(city.Slug) == "" && vendor != "granicus" {
			return fmt.Errorf("city %s: slug is required", key)
		}
	}
	return nil
}
