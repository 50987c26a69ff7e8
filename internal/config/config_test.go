package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "engagic.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[cities.paloaltoCA]
banana = "paloaltoCA"
name = "Palo Alto"
state = "CA"
vendor = "primegov"
slug = "cityofpaloalto"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.General.SyncInterval.Duration.Hours() != 168 {
		t.Errorf("expected default sync interval of 7d, got %v", cfg.General.SyncInterval.Duration)
	}
	if cfg.RateLimits.DefaultMinDelay("primegov").Seconds() != 3 {
		t.Errorf("expected primegov min delay 3s, got %v", cfg.RateLimits.DefaultMinDelay("primegov"))
	}
	if cfg.RateLimits.DefaultMinDelay("some-other-vendor").Seconds() != 5 {
		t.Errorf("expected unknown vendor min delay 5s")
	}
	if cfg.General.MaxQueueRetries != 3 {
		t.Errorf("expected default max queue retries 3, got %d", cfg.General.MaxQueueRetries)
	}
}

func TestLoadRejectsGranicusWithoutViewID(t *testing.T) {
	path := writeConfig(t, `
[cities.boulderCO]
banana = "boulderCO"
name = "Boulder"
state = "CO"
vendor = "granicus"
slug = "boulder"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for granicus city missing view_id")
	}
}

func TestLoadRejectsUnknownVendor(t *testing.T) {
	path := writeConfig(t, `
[cities.nowhereXX]
banana = "nowhereXX"
name = "Nowhere"
state = "XX"
vendor = "bogusvendor"
slug = "nowhere"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown vendor")
	}
}

func TestConfigManagerCloneIsolatesState(t *testing.T) {
	cfg := &Config{Cities: map[string]City{"a": {Banana: "a"}}}
	mgr := NewManager(cfg)

	snap := mgr.Get()
	snap.Cities["a"] = City{Banana: "mutated"}

	again := mgr.Get()
	if again.Cities["a"].Banana != "a" {
		t.Errorf("mutation of returned snapshot leaked into manager state: %v", again.Cities["a"])
	}
}
