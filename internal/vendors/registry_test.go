package vendors

import (
	"context"
	"testing"

	"github.com/engagic/pipeline/internal/pipelineerr"
)

func TestRegistryAdapterResolvesEveryKnownVendor(t *testing.T) {
	r, err := NewRegistry(Deps{}, "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	vendors := []string{
		"primegov", "civicclerk", "legistar", "granicus", "novusagenda",
		"civicplus", "escribe", "iqm2", "custom_berkeley", "custom_chicago",
		"custom_menlopark",
	}
	for _, v := range vendors {
		adapter, err := r.Adapter(v)
		if err != nil {
			t.Errorf("Adapter(%q): %v", v, err)
			continue
		}
		if adapter.Vendor() != v {
			t.Errorf("Adapter(%q).Vendor() = %q, want %q", v, adapter.Vendor(), v)
		}
	}
}

func TestRegistryAdapterIsCaseAndSpaceInsensitive(t *testing.T) {
	r, err := NewRegistry(Deps{}, "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	adapter, err := r.Adapter("  PrimeGov  ")
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	if adapter.Vendor() != "primegov" {
		t.Errorf("Vendor() = %q, want primegov", adapter.Vendor())
	}
}

func TestRegistryAdapterUnknownVendor(t *testing.T) {
	r, err := NewRegistry(Deps{}, "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, err = r.Adapter("not_a_real_vendor")
	if err == nil {
		t.Fatal("expected error for unknown vendor")
	}
	if !pipelineerr.IsConfiguration(err) {
		t.Errorf("expected unknown-vendor error to be a configuration error, got %v", err)
	}
}

// TestGranicusMissingViewIDIsConfigurationError guards spec.md §7's "Granicus
// city without view_id: fail fast ... never re-tried" — the Conductor's sync
// loop distinguishes this from a transient network failure by errors.Is,
// so the error returned here must actually wrap pipelineerr.ErrConfiguration.
func TestGranicusMissingViewIDIsConfigurationError(t *testing.T) {
	r, err := NewRegistry(Deps{}, "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	adapter, err := r.Adapter("granicus")
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	_, err = adapter.FetchMeetings(context.Background(), "unconfigured-city")
	if err == nil {
		t.Fatal("expected error for an unconfigured Granicus city")
	}
	if !pipelineerr.IsConfiguration(err) {
		t.Errorf("expected missing view_id error to be a configuration error, got %v", err)
	}
}

func TestRegistryGranicusIsSharedAcrossLookups(t *testing.T) {
	r, err := NewRegistry(Deps{}, "")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	a1, err := r.Adapter("granicus")
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	a2, err := r.Adapter("granicus")
	if err != nil {
		t.Fatalf("Adapter: %v", err)
	}
	if a1.(*Granicus) != a2.(*Granicus) {
		t.Error("expected the same *Granicus instance across lookups")
	}
}
