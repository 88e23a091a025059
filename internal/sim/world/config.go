package world

type WorldConfig struct {
	ID          string
	TickRateHz  int
	Height      int
	GroundLevel int
	Seed        int64
	BoundaryR   int

	// Surface ponds give builds water to clear and dewater.
	PondGrid     int
	PondRadius   int
	PondPermille int

	// Operational parameters.
	SnapshotEveryTicks int
	RequestQueue       int

	// Builds.
	BuildBudget           int
	PairedPlacementCost   int
	MaxQueuedPerRequester int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.Height <= 0 {
		c.Height = 128
	}
	if c.GroundLevel <= 0 || c.GroundLevel >= c.Height {
		c.GroundLevel = c.Height / 2
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 4000
	}
	if c.PondGrid <= 0 {
		c.PondGrid = 48
	}
	if c.PondRadius <= 0 {
		c.PondRadius = 4
	}
	if c.PondPermille <= 0 {
		c.PondPermille = 250
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 6000
	}
	if c.RequestQueue <= 0 {
		c.RequestQueue = 256
	}
	if c.MaxQueuedPerRequester <= 0 {
		c.MaxQueuedPerRequester = 8
	}
	// BuildBudget and PairedPlacementCost fall back to the scheduler defaults.
}
