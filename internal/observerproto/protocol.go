package observerproto

import "voxelprefab.ai/internal/sim/structure/build"

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe        = "SUBSCRIBE"
	TypeTileEntityUpdate = "TILE_ENTITY_UPDATE"
	TypeCellsChanged     = "CELLS_CHANGED"
	TypeBuildProgress    = "BUILD_PROGRESS"
	TypeBuildComplete    = "BUILD_COMPLETE"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Requesters limits build messages to these requesters; empty means all.
	Requesters []string `json:"requesters,omitempty"`
	// Cells turns on CELLS_CHANGED messages.
	Cells bool `json:"cells,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
	BlockPalette    []string    `json:"block_palette"`
	Structures      []string    `json:"structures"`
}

type WorldParams struct {
	TickRateHz  int    `json:"tick_rate_hz"`
	ChunkSize   [3]int `json:"chunk_size"`
	Height      int    `json:"height"`
	GroundLevel int    `json:"ground_level"`
	Seed        int64  `json:"seed"`
	BoundaryR   int    `json:"boundary_r"`
}

// Server -> Client.
type TileEntityUpdateMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Pos             [3]int         `json:"pos"`
	EntityType      string         `json:"entity_type"`
	Data            map[string]any `json:"data"`
}

type CellsChangedMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Cells           []CellChange `json:"cells"`
}

type CellChange struct {
	Pos         [3]int `json:"pos"`
	Block       string `json:"block"`
	Facing      string `json:"facing,omitempty"`
	Waterlogged bool   `json:"waterlogged,omitempty"`
}

type BuildProgressMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Build           build.Progress `json:"build"`
}

type BuildCompleteMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Build           build.Completion `json:"build"`
}
