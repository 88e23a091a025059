package orient

import (
	"fmt"
	"strings"
)

// Direction is one of the six cell faces. The numeric order matches the
// persisted 3D facing codes (down=0 .. east=5).
type Direction uint8

const (
	Down Direction = iota
	Up
	North
	South
	West
	East
)

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

var directionNames = [...]string{"down", "up", "north", "south", "west", "east"}

// Directions lists every face in persisted order.
var Directions = [...]Direction{Down, Up, North, South, West, East}

// Horizontals lists the four cardinal directions clockwise from north.
var Horizontals = [...]Direction{North, East, South, West}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

func (d Direction) Valid() bool { return d <= East }

func (d Direction) Horizontal() bool { return d >= North && d <= East }

func (d Direction) Axis() Axis {
	switch d {
	case Down, Up:
		return AxisY
	case North, South:
		return AxisZ
	default:
		return AxisX
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case Down:
		return Up
	case Up:
		return Down
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// Clockwise turns a horizontal direction a quarter turn clockwise seen from
// above. Vertical directions are returned unchanged.
func (d Direction) Clockwise() Direction {
	switch d {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	case West:
		return North
	default:
		return d
	}
}

// CounterClockwise is the inverse of Clockwise.
func (d Direction) CounterClockwise() Direction {
	switch d {
	case North:
		return West
	case West:
		return South
	case South:
		return East
	case East:
		return North
	default:
		return d
	}
}

// Step is the unit offset of the face: +X east, +Y up, +Z south.
func (d Direction) Step() Pos {
	switch d {
	case Down:
		return Pos{Y: -1}
	case Up:
		return Pos{Y: 1}
	case North:
		return Pos{Z: -1}
	case South:
		return Pos{Z: 1}
	case West:
		return Pos{X: -1}
	default:
		return Pos{X: 1}
	}
}

// quarter is the clockwise quarter-turn index from north. Only meaningful
// for horizontal directions.
func (d Direction) quarter() int {
	switch d {
	case East:
		return 1
	case South:
		return 2
	case West:
		return 3
	default:
		return 0
	}
}

// Data2D is the persisted horizontal facing code (south=0 west=1 north=2 east=3).
func (d Direction) Data2D() int {
	switch d {
	case South:
		return 0
	case West:
		return 1
	case North:
		return 2
	case East:
		return 3
	default:
		return -1
	}
}

func FromData2D(v int) (Direction, bool) {
	switch v {
	case 0:
		return South, true
	case 1:
		return West, true
	case 2:
		return North, true
	case 3:
		return East, true
	default:
		return North, false
	}
}

// Data3D is the persisted face code (down=0 up=1 north=2 south=3 west=4 east=5).
func (d Direction) Data3D() int { return int(d) }

func FromData3D(v int) (Direction, bool) {
	if v < 0 || v > int(East) {
		return North, false
	}
	return Direction(v), true
}

func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range directionNames {
		if n == s {
			return Direction(i), nil
		}
	}
	return North, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid direction %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
