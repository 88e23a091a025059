package grid

import "voxelprefab.ai/internal/sim/structure/orient"

type Half uint8

const (
	HalfNone Half = iota
	HalfLower
	HalfUpper
)

type BedPart uint8

const (
	PartNone BedPart = iota
	PartFoot
	PartHead
)

// CellState is the full state of one cell. It is a comparable value so
// world stores can intern it.
type CellState struct {
	Block  string           `json:"block"`
	Kind   Kind             `json:"kind"`
	Facing orient.Direction `json:"facing,omitempty"`
	Half   Half             `json:"half,omitempty"`
	Part   BedPart          `json:"part,omitempty"`

	Waterloggable bool `json:"waterloggable,omitempty"`
	Waterlogged   bool `json:"waterlogged,omitempty"`
}

// Air is the empty cell.
var Air = CellState{Block: "air", Kind: KindAir}

func (s CellState) IsAir() bool { return s.Kind == KindAir }

func (s CellState) IsWater() bool { return s.Kind == KindWater }

// WithWaterlogged returns a copy with the waterlogged flag set to v. States
// that cannot hold water are returned unchanged.
func (s CellState) WithWaterlogged(v bool) CellState {
	if !s.Waterloggable {
		return s
	}
	s.Waterlogged = v
	return s
}

// Rotated turns the facing of a horizontal-facing state.
func (s CellState) Rotated(r orient.Rotation) CellState {
	s.Facing = r.Rotate(s.Facing)
	return s
}

// BedPartner is the direction from this bed half to the other one.
func (s CellState) BedPartner() orient.Direction {
	if s.Part == PartHead {
		return s.Facing.Opposite()
	}
	return s.Facing
}

// UpdateFlags controls side effects of a cell write.
type UpdateFlags uint8

const (
	FlagNotifyNeighbors UpdateFlags = 1 << 0
	FlagSendToClients   UpdateFlags = 1 << 1
	FlagNoDrops         UpdateFlags = 1 << 5

	// FlagsDefault notifies neighbors and clients.
	FlagsDefault = FlagNotifyNeighbors | FlagSendToClients
	// FlagsQuiet is used for companion halves removed during clearing.
	FlagsQuiet = FlagNotifyNeighbors | FlagSendToClients | FlagNoDrops
)
