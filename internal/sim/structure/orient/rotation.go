package orient

// Rotation is a quarter-turn count around the Y axis, clockwise seen from above.
type Rotation uint8

const (
	None Rotation = iota
	Clockwise90
	Clockwise180
	CounterClockwise90
)

func (r Rotation) String() string {
	switch r & 3 {
	case None:
		return "none"
	case Clockwise90:
		return "clockwise_90"
	case Clockwise180:
		return "clockwise_180"
	default:
		return "counterclockwise_90"
	}
}

// NormalizeRotation converts a client-provided rotation value into a stable
// quarter-turn count.
//
// It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) Rotation {
	// Treat large multiples of 90 as degrees.
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return Rotation(r)
}

// Between returns the rotation that turns horizontal direction from onto to.
func Between(from, to Direction) Rotation {
	return NormalizeRotation(to.quarter() - from.quarter())
}

func (r Rotation) Inverse() Rotation { return NormalizeRotation(-int(r & 3)) }

// Rotate turns a horizontal direction. Up and down are unaffected.
func (r Rotation) Rotate(d Direction) Direction {
	switch r & 3 {
	case Clockwise90:
		return d.Clockwise()
	case Clockwise180:
		if d.Horizontal() {
			return d.Opposite()
		}
		return d
	case CounterClockwise90:
		return d.CounterClockwise()
	default:
		return d
	}
}

// Yaw applies the rotation to an entity yaw in degrees and wraps the result
// into [-180,180).
func (r Rotation) Yaw(yaw float32) float32 {
	switch r & 3 {
	case Clockwise90:
		yaw += 90
	case Clockwise180:
		yaw += 180
	case CounterClockwise90:
		yaw += 270
	}
	return WrapDegrees(yaw)
}

func WrapDegrees(v float32) float32 {
	for v >= 180 {
		v -= 360
	}
	for v < -180 {
		v += 360
	}
	return v
}

// RotateXZ rotates an (x,z) offset around the Y axis by r quarter turns
// clockwise, with +X east and +Z south.
func RotateXZ(x, z int, r Rotation) (rx, rz int) {
	switch r & 3 {
	case None:
		return x, z
	case Clockwise90:
		return -z, x
	case Clockwise180:
		return -x, -z
	default:
		return z, -x
	}
}

func RotateOffset(off Pos, r Rotation) Pos {
	rx, rz := RotateXZ(off.X, off.Z, r)
	return Pos{X: rx, Y: off.Y, Z: rz}
}
