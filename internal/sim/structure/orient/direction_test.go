package orient

import "testing"

func TestDirectionCodesRoundTrip(t *testing.T) {
	for _, d := range Horizontals {
		got, ok := FromData2D(d.Data2D())
		if !ok || got != d {
			t.Fatalf("2D code for %v: got %v ok=%v", d, got, ok)
		}
	}
	for _, d := range Directions {
		got, ok := FromData3D(d.Data3D())
		if !ok || got != d {
			t.Fatalf("3D code for %v: got %v ok=%v", d, got, ok)
		}
	}
	if _, ok := FromData2D(7); ok {
		t.Fatalf("expected invalid 2D code")
	}
}

func TestClockwiseCycle(t *testing.T) {
	for _, d := range Horizontals {
		if d.Clockwise().CounterClockwise() != d {
			t.Fatalf("cw/ccw not inverse for %v", d)
		}
		if d.Clockwise().Clockwise() != d.Opposite() {
			t.Fatalf("two clockwise turns of %v != opposite", d)
		}
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" North ")
	if err != nil || d != North {
		t.Fatalf("got %v err=%v", d, err)
	}
	if _, err := ParseDirection("northeast"); err == nil {
		t.Fatalf("expected error")
	}
}
