// Package phase runs the full exit-rule catalog against candidate entries.
// Every entry is simulated once per phase, so the phases stay comparable on
// an identical entry set.
package phase

import (
	"fmt"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/simulator"
)

// Phase binds a catalog label to its constructed simulator.
type Phase struct {
	Name string
	Sim  simulator.Simulator
}

// FromCatalog constructs simulators for every phase config. A single invalid
// policy fails the whole catalog; a partially constructed catalog would make
// phase comparisons silently lopsided.
func FromCatalog(catalog []domain.PhaseConfig) ([]Phase, error) {
	phases := make([]Phase, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))

	for _, cfg := range catalog {
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("phase %q: duplicate phase name", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}

		sim, err := simulator.FromConfig(cfg.Policy)
		if err != nil {
			return nil, fmt.Errorf("phase %q: %w", cfg.Name, err)
		}
		phases = append(phases, Phase{Name: cfg.Name, Sim: sim})
	}
	return phases, nil
}
