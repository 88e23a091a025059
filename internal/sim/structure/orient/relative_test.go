package orient

import "testing"

func TestRelativePosition_IdentityWhenFacingMatches(t *testing.T) {
	anchor := Pos{X: 100, Y: 64, Z: -20}
	local := Pos{X: 3, Y: 1, Z: -5}
	got := RelativePosition(local, anchor, North, North)
	want := Pos{X: 103, Y: 65, Z: -25}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRelativePosition_Clockwise(t *testing.T) {
	anchor := Pos{}
	// One cell forward (north) becomes one cell east when the house faces east.
	got := RelativePosition(Pos{Z: -1}, anchor, North, East)
	if got != (Pos{X: 1}) {
		t.Fatalf("got %v want (1,0,0)", got)
	}
	got = RelativePosition(Pos{Z: -1}, anchor, North, West)
	if got != (Pos{X: -1}) {
		t.Fatalf("got %v want (-1,0,0)", got)
	}
}

func TestRelativePosition_RoundTrip(t *testing.T) {
	anchor := Pos{X: -7, Y: 70, Z: 13}
	locals := []Pos{{}, {X: 1}, {Z: 1}, {X: -4, Y: 2, Z: 9}, {X: 15, Y: -3, Z: -11}}
	for _, clear := range Horizontals {
		for _, facing := range Horizontals {
			for _, l := range locals {
				w := RelativePosition(l, anchor, clear, facing)
				back := LocalPosition(w, anchor, clear, facing)
				if back != l {
					t.Fatalf("clear=%v facing=%v local=%v: round trip gave %v", clear, facing, l, back)
				}
			}
		}
	}
}
