package orient

import "testing"

func TestNormalizeRotation_AcceptsDegreesAndQuarterTurns(t *testing.T) {
	cases := []struct {
		in   int
		want Rotation
	}{
		{in: 0, want: None},
		{in: 1, want: Clockwise90},
		{in: 2, want: Clockwise180},
		{in: 3, want: CounterClockwise90},
		{in: 4, want: None},
		{in: -1, want: CounterClockwise90},
		{in: 90, want: Clockwise90},
		{in: 180, want: Clockwise180},
		{in: 270, want: CounterClockwise90},
		{in: 360, want: None},
		{in: -90, want: CounterClockwise90},
	}
	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.want {
			t.Fatalf("NormalizeRotation(%d)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestRotateXZ_QuarterTurnsMatchDirections(t *testing.T) {
	for _, r := range []Rotation{None, Clockwise90, Clockwise180, CounterClockwise90} {
		for _, d := range Horizontals {
			s := d.Step()
			x, z := RotateXZ(s.X, s.Z, r)
			want := r.Rotate(d).Step()
			if x != want.X || z != want.Z {
				t.Fatalf("rotate %v by %v: got (%d,%d) want %v", d, r, x, z, want)
			}
		}
	}
}

func TestBetween(t *testing.T) {
	cases := []struct {
		from, to Direction
		want     Rotation
	}{
		{North, North, None},
		{North, East, Clockwise90},
		{North, South, Clockwise180},
		{North, West, CounterClockwise90},
		{East, North, CounterClockwise90},
		{West, East, Clockwise180},
		{South, West, Clockwise90},
	}
	for _, c := range cases {
		got := Between(c.from, c.to)
		if got != c.want {
			t.Fatalf("Between(%v,%v)=%v want %v", c.from, c.to, got, c.want)
		}
		if got.Rotate(c.from) != c.to {
			t.Fatalf("Between(%v,%v) does not rotate onto target", c.from, c.to)
		}
	}
}

func TestRotateLeavesVerticalFaces(t *testing.T) {
	for _, r := range []Rotation{Clockwise90, Clockwise180, CounterClockwise90} {
		if r.Rotate(Up) != Up || r.Rotate(Down) != Down {
			t.Fatalf("rotation %v moved a vertical face", r)
		}
	}
}

func TestYawWraps(t *testing.T) {
	cases := []struct {
		r    Rotation
		in   float32
		want float32
	}{
		{None, 45, 45},
		{Clockwise90, 0, 90},
		{Clockwise90, 135, -135},
		{Clockwise180, 90, -90},
		{CounterClockwise90, 0, -90},
	}
	for _, c := range cases {
		if got := c.r.Yaw(c.in); got != c.want {
			t.Fatalf("%v.Yaw(%v)=%v want %v", c.r, c.in, got, c.want)
		}
	}
}
