package build

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

// hangingInset pulls a hanging entity from the cell center onto the wall.
const hangingInset = 0.46875

// HangingBox computes the position and box of a wall-hanging entity
// attached at cell with the given facing. Width and height are sprite
// pixels; 32 pixels make one block of half-extent.
func HangingBox(cell orient.Pos, facing orient.Direction, width, height int) (mgl64.Vec3, grid.BBox) {
	center := mgl64.Vec3{float64(cell.X) + 0.5, float64(cell.Y) + 0.5, float64(cell.Z) + 0.5}
	step := facing.Step()
	center[0] -= float64(step.X) * hangingInset
	center[2] -= float64(step.Z) * hangingInset

	var shiftW, shiftH float64
	if width%32 == 0 {
		shiftW = 0.5
	}
	if height%32 == 0 {
		shiftH = 0.5
	}
	center[1] += shiftH

	across := facing.CounterClockwise()
	if !facing.Horizontal() {
		across = facing.Opposite()
	}
	as := across.Step()
	center[0] += shiftW * float64(as.X)
	center[2] += shiftW * float64(as.Z)

	ex, ey, ez := float64(width), float64(height), float64(width)
	if facing.Axis() == orient.AxisZ {
		ez = 1
	} else {
		ex = 1
	}
	half := mgl64.Vec3{ex / 32, ey / 32, ez / 32}
	return center, grid.BBox{Min: center.Sub(half), Max: center.Add(half)}
}

func floor(v float64) int { return int(math.Floor(v)) }
