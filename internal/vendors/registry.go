package vendors

import (
	"fmt"
	"strings"

	"github.com/engagic/pipeline/internal/pipelineerr"
)

// Registry constructs an Adapter for a city's configured vendor. Granicus
// is built once (its view_id map is loaded from disk) and reused across
// cities; every other vendor is stateless and built fresh per lookup.
type Registry struct {
	deps     Deps
	granicus *Granicus
}

// NewRegistry builds a Registry. granicusViewIDsPath may be empty if no
// city in this deployment uses Granicus.
func NewRegistry(deps Deps, granicusViewIDsPath string) (*Registry, error) {
	g, err := NewGranicus(deps, granicusViewIDsPath)
	if err != nil {
		return nil, fmt.Errorf("vendors: building registry: %w", err)
	}
	return &Registry{deps: deps, granicus: g}, nil
}

// Adapter returns the Adapter for vendor, or an error if it names a
// platform this pipeline doesn't implement. Unknown "custom_*" vendors
// fail the same way — each must be wired here explicitly.
func (r *Registry) Adapter(vendor string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "primegov":
		return NewPrimeGov(r.deps), nil
	case "civicclerk":
		return NewCivicClerk(r.deps), nil
	case "legistar":
		return NewLegistar(r.deps, r.deps.LegistarAPIToken), nil
	case "granicus":
		return r.granicus, nil
	case "novusagenda":
		return NewNovusAgenda(r.deps), nil
	case "civicplus":
		return NewCivicPlus(r.deps), nil
	case "escribe":
		return NewEscribe(r.deps), nil
	case "iqm2":
		return NewIQM2(r.deps), nil
	case "custom_berkeley":
		return NewCustomBerkeley(r.deps), nil
	case "custom_chicago":
		return NewCustomChicago(r.deps), nil
	case "custom_menlopark":
		return NewCustomMenloPark(r.deps), nil
	default:
		return nil, fmt.Errorf("vendors: no adapter registered for vendor %q: %w", vendor, pipelineerr.ErrConfiguration)
	}
}
