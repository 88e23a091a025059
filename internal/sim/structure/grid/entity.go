package grid

import (
	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/structure/orient"
)

// BBox is an axis-aligned box in world units.
type BBox struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

func NewBBox(a, b mgl64.Vec3) BBox {
	return BBox{
		Min: mgl64.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl64.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// BlockBox is the unit cube of a cell.
func BlockBox(p orient.Pos) BBox {
	lo := mgl64.Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
	return BBox{Min: lo, Max: lo.Add(mgl64.Vec3{1, 1, 1})}
}

// Intersects reports whether the two boxes overlap with positive volume.
func (b BBox) Intersects(o BBox) bool {
	return b.Min[0] < o.Max[0] && b.Max[0] > o.Min[0] &&
		b.Min[1] < o.Max[1] && b.Max[1] > o.Min[1] &&
		b.Min[2] < o.Max[2] && b.Max[2] > o.Min[2]
}

func (b BBox) Vec3Within(v mgl64.Vec3) bool {
	return v[0] >= b.Min[0] && v[0] < b.Max[0] &&
		v[1] >= b.Min[1] && v[1] < b.Max[1] &&
		v[2] >= b.Min[2] && v[2] < b.Max[2]
}

func (b BBox) Center() mgl64.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

// EntityRef is a live entity as seen by a region query.
type EntityRef struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Pos              mgl64.Vec3 `json:"pos"`
	Box              BBox       `json:"box"`
	PlayerControlled bool       `json:"player_controlled,omitempty"`
	Hanging          bool       `json:"hanging,omitempty"`
}

// EntityType is a resolved entity type identifier.
type EntityType struct {
	ID      string
	Hanging bool
	Living  bool
}

// Entity is a fully prepared entity handed to the world for spawning.
type Entity struct {
	Type   string
	Data   map[string]any
	Pos    mgl64.Vec3
	Yaw    float32
	Pitch  float32
	Facing orient.Direction
	// Box is set for wall-hanging entities; nil lets the world derive one.
	Box *BBox
}

// TileEntity is the block-attached state at one cell.
type TileEntity struct {
	Pos       orient.Pos     `json:"pos"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Networked bool           `json:"networked,omitempty"`
}
