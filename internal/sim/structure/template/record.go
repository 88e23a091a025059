package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

// TierCount is the number of placement priority tiers. Tier index 2 holds
// the air placements.
const (
	TierCount = 5
	AirTier   = 2
)

// CellRecord is one pending placement. Pos is template-local; State is
// already turned to the placement facing.
type CellRecord struct {
	Pos   orient.Pos     `json:"pos"`
	State grid.CellState `json:"state"`
	// Sub is the second half of a two-cell object, placed right after this one.
	Sub *CellRecord `json:"sub,omitempty"`
}

type TileEntityRecord struct {
	Pos       orient.Pos      `json:"pos"`
	Type      string          `json:"type"`
	Blob      json.RawMessage `json:"blob"`
	Networked bool            `json:"networked,omitempty"`
}

type EntityCategory uint8

const (
	EntityGeneral EntityCategory = iota
	// EntityHanging is a wall-mounted picture sized by its sprite.
	EntityHanging
	// EntityFrame is a flat single-block-thick wall decoration.
	EntityFrame
)

func (c EntityCategory) String() string {
	switch c {
	case EntityHanging:
		return "hanging"
	case EntityFrame:
		return "frame"
	default:
		return "general"
	}
}

func ParseEntityCategory(s string) (EntityCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "general":
		return EntityGeneral, nil
	case "hanging":
		return EntityHanging, nil
	case "frame":
		return EntityFrame, nil
	default:
		return EntityGeneral, fmt.Errorf("unknown entity category %q", s)
	}
}

type EntityRecord struct {
	Type     string          `json:"type"`
	Pos      orient.Pos      `json:"pos"`
	Blob     json.RawMessage `json:"blob"`
	Offset   mgl64.Vec3      `json:"offset"`
	Category EntityCategory  `json:"category"`
	// Sprite size in pixels, used by hanging and frame entities.
	SpriteWidth  int `json:"sprite_width,omitempty"`
	SpriteHeight int `json:"sprite_height,omitempty"`
}

// Configuration is the per-build choice made by the requester.
type Configuration struct {
	HouseFacing orient.Direction  `json:"house_facing"`
	Options     map[string]string `json:"options,omitempty"`
}

func (c Configuration) Bool(key string, def bool) bool {
	v, ok := c.Options[key]
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func (c Configuration) String(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return def
}
