package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// Suffix is the file suffix of snapshot files; the name is the tick.
const Suffix = ".snap.zst"

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed        int64 `json:"seed"`
	TickRate    int   `json:"tick_rate_hz"`
	Height      int   `json:"height"`
	GroundLevel int   `json:"ground_level"`

	// States interns cell states; chunk cells index into it and index 0 is
	// air.
	States       []StateV1      `json:"states"`
	Chunks       []ChunkV1      `json:"chunks"`
	TileEntities []TileEntityV1 `json:"tile_entities,omitempty"`
	Entities     []EntityV1     `json:"entities,omitempty"`

	StarterHouses []string   `json:"starter_houses,omitempty"`
	Counters      CountersV1 `json:"counters"`
}

type StateV1 struct {
	Block         string `json:"block"`
	Kind          uint8  `json:"kind"`
	Facing        uint8  `json:"facing,omitempty"`
	Half          uint8  `json:"half,omitempty"`
	Part          uint8  `json:"part,omitempty"`
	Waterloggable bool   `json:"waterloggable,omitempty"`
	Waterlogged   bool   `json:"waterlogged,omitempty"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Height int      `json:"height"`
	Cells  []uint16 `json:"cells"`
}

// TileEntityV1 carries its data as JSON so arbitrary blob trees survive gob.
type TileEntityV1 struct {
	Pos       [3]int `json:"pos"`
	Type      string `json:"type"`
	Networked bool   `json:"networked,omitempty"`
	Data      []byte `json:"data"`
}

type EntityV1 struct {
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	Pos              [3]float64    `json:"pos"`
	Box              [2][3]float64 `json:"box"`
	Yaw              float32       `json:"yaw"`
	Pitch            float32       `json:"pitch"`
	Facing           uint8         `json:"facing"`
	Hanging          bool          `json:"hanging,omitempty"`
	PlayerControlled bool          `json:"player_controlled,omitempty"`
	Data             []byte        `json:"data"`
}

type CountersV1 struct {
	NextBuild uint64 `json:"next_build"`
}

func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}

// PathFor names the snapshot of tick under dir.
func PathFor(dir string, tick uint64) string {
	return filepath.Join(dir, strconv.FormatUint(tick, 10)+Suffix)
}

// Latest returns the snapshot with the highest tick in dir, or "" if none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, Suffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, Suffix), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
