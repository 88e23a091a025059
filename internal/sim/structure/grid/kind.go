package grid

import (
	"fmt"
	"strings"
)

// Kind classifies a cell state. It is resolved once from the block catalog
// and never re-derived while building.
type Kind uint8

const (
	KindSolid Kind = iota
	KindAir
	KindWater
	KindFalling
	KindFurnace
	KindChest
	KindTrapdoor
	KindSponge

	// Attachment-dependent kinds: invalid without an adjacent support.
	KindTorch
	KindSign
	KindLever
	KindButton
	KindBed
	KindCarpet
	KindFlowerPot
	KindSugarCane
	KindPressurePlate
	KindDoor
	KindLadder
	KindVine
	KindRedstoneWire
	KindDiode
	KindBanner
	KindLantern
	KindRail
)

var kindNames = map[Kind]string{
	KindSolid:         "solid",
	KindAir:           "air",
	KindWater:         "water",
	KindFalling:       "falling",
	KindFurnace:       "furnace",
	KindChest:         "chest",
	KindTrapdoor:      "trapdoor",
	KindSponge:        "sponge",
	KindTorch:         "torch",
	KindSign:          "sign",
	KindLever:         "lever",
	KindButton:        "button",
	KindBed:           "bed",
	KindCarpet:        "carpet",
	KindFlowerPot:     "flower_pot",
	KindSugarCane:     "sugar_cane",
	KindPressurePlate: "pressure_plate",
	KindDoor:          "door",
	KindLadder:        "ladder",
	KindVine:          "vine",
	KindRedstoneWire:  "redstone_wire",
	KindDiode:         "diode",
	KindBanner:        "banner",
	KindLantern:       "lantern",
	KindRail:          "rail",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindSolid, nil
	}
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return KindSolid, fmt.Errorf("unknown block kind %q", s)
}

// AttachmentDependent reports whether the kind needs a neighboring support
// cell to stay valid.
func (k Kind) AttachmentDependent() bool { return k >= KindTorch && k <= KindRail }

// Paired reports whether cells of this kind always come as two halves.
func (k Kind) Paired() bool { return k == KindDoor || k == KindBed }
