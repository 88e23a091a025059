package build

import "fmt"

// Stage is the observable state of one build.
type Stage uint8

const (
	StageClearing Stage = iota
	StagePlacing
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageClearing:
		return "clearing"
	case StagePlacing:
		return "placing"
	case StageComplete:
		return "complete"
	default:
		return "failed"
	}
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	for _, v := range []Stage{StageClearing, StagePlacing, StageComplete, StageFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown build stage %q", b)
}

// Progress is the per-tick account of one build.
type Progress struct {
	Tick        uint64 `json:"tick"`
	BuildID     string `json:"build_id"`
	Requester   string `json:"requester"`
	StructureID string `json:"structure_id"`
	Stage       Stage  `json:"stage"`

	// Work done this tick.
	Cleared    int `json:"cleared"`
	SkippedAir int `json:"skipped_air,omitempty"`
	Placed     int `json:"placed"`
	Units      int `json:"units"`
	Evicted    int `json:"evicted,omitempty"`
	Dewatered  int `json:"dewatered,omitempty"`

	PendingClear int    `json:"pending_clear"`
	PendingCells int    `json:"pending_cells"`
	Err          string `json:"error,omitempty"`
}

// Completion is reported once per build, when it leaves the queue.
type Completion struct {
	Tick         uint64 `json:"tick"`
	BuildID      string `json:"build_id"`
	Requester    string `json:"requester"`
	StructureID  string `json:"structure_id"`
	EnqueuedTick uint64 `json:"enqueued_tick"`
	Ticks        uint64 `json:"ticks"`
	TileEntities int    `json:"tile_entities"`
	Entities     int    `json:"entities"`
	Skipped      int    `json:"skipped_entities,omitempty"`
	OK           bool   `json:"ok"`
	Err          string `json:"error,omitempty"`
}

type TickReport struct {
	Tick      uint64       `json:"tick"`
	Builds    []Progress   `json:"builds,omitempty"`
	Completed []Completion `json:"completed,omitempty"`
}

// Sink receives build reports. It is called from the tick goroutine and
// must not block.
type Sink interface {
	BuildProgress(p Progress)
	BuildCompleted(c Completion)
}

// MultiSink fans reports out to several sinks.
type MultiSink []Sink

func (m MultiSink) BuildProgress(p Progress) {
	for _, s := range m {
		if s != nil {
			s.BuildProgress(p)
		}
	}
}

func (m MultiSink) BuildCompleted(c Completion) {
	for _, s := range m {
		if s != nil {
			s.BuildCompleted(c)
		}
	}
}
