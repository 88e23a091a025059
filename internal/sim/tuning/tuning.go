package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation knobs that are tweaked between runs without
// touching server.toml.
type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	WorldHeight        int `yaml:"world_height"`
	GroundLevel        int `yaml:"ground_level"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Build BuildTuning `yaml:"build"`
}

type BuildTuning struct {
	BudgetPerTick         int `yaml:"budget_per_tick"`
	PairedPlacementCost   int `yaml:"paired_placement_cost"`
	MaxQueuedPerRequester int `yaml:"max_queued_per_requester"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		WorldHeight:        128,
		GroundLevel:        64,
		SnapshotEveryTicks: 6000,
		Build: BuildTuning{
			BudgetPerTick:         100,
			PairedPlacementCost:   1,
			MaxQueuedPerRequester: 8,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be positive")
	case t.WorldHeight <= 0 || t.WorldHeight%16 != 0:
		return fmt.Errorf("world_height must be a positive multiple of 16")
	case t.GroundLevel < 1 || t.GroundLevel >= t.WorldHeight:
		return fmt.Errorf("ground_level must be inside the world")
	case t.Build.BudgetPerTick <= 0:
		return fmt.Errorf("build.budget_per_tick must be positive")
	case t.Build.PairedPlacementCost < 1 || t.Build.PairedPlacementCost > 2:
		return fmt.Errorf("build.paired_placement_cost must be 1 or 2")
	}
	return nil
}
