package orient

import "fmt"

// Pos is an integer cell position.
type Pos struct {
	X, Y, Z int
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z) }

func (p Pos) Add(o Pos) Pos { return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z} }

func (p Pos) Sub(o Pos) Pos { return Pos{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z} }

// Offset moves n cells along d.
func (p Pos) Offset(d Direction, n int) Pos {
	s := d.Step()
	return Pos{X: p.X + s.X*n, Y: p.Y + s.Y*n, Z: p.Z + s.Z*n}
}

func (p Pos) Side(d Direction) Pos { return p.Offset(d, 1) }

func (p Pos) Up() Pos { return p.Offset(Up, 1) }

func (p Pos) Down() Pos { return p.Offset(Down, 1) }

// Neighbors returns the six face-adjacent cells in Directions order.
func (p Pos) Neighbors() [6]Pos {
	var out [6]Pos
	for i, d := range Directions {
		out[i] = p.Side(d)
	}
	return out
}

func (p Pos) Array() [3]int { return [3]int{p.X, p.Y, p.Z} }

func PosFromArray(a [3]int) Pos { return Pos{X: a[0], Y: a[1], Z: a[2]} }
