package store

import (
	"crypto/sha256"
	"encoding/binary"
)

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a 16x16 column of cells from y=0 up to Height. Cells hold
// palette ids owned by the caller.
type Chunk struct {
	CX, CZ int
	Height int
	Cells  []uint16 // len = 16*16*Height

	dirty   bool // digest is stale
	unsaved bool // changed since the last snapshot
	hash    [32]byte
}

func newChunk(cx, cz, height int) *Chunk {
	return &Chunk{CX: cx, CZ: cz, Height: height, Cells: make([]uint16, 16*16*height)}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*16 + y*256
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Cells[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Cells[i] == b {
		return
	}
	c.Cells[i] = b
	c.dirty = true
	c.unsaved = true
}

func (c *Chunk) Unsaved() bool { return c.unsaved }

// Touch marks the chunk changed without a cell write, e.g. after a tile
// entity update.
func (c *Chunk) Touch() { c.unsaved = true }

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Cells {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

type WorldGen struct {
	Seed        int64
	Height      int
	GroundLevel int // first air layer
	BoundaryR   int // blocks; 0 is unbounded

	PondGrid     int
	PondRadius   int
	PondPermille uint64

	Air     uint16
	Bedrock uint16
	Stone   uint16
	Dirt    uint16
	Grass   uint16
	Water   uint16
	Gravel  uint16
}

type ChunkStore struct {
	Gen    WorldGen
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	return &ChunkStore{
		Gen:    gen,
		Chunks: map[ChunkKey]*Chunk{},
	}
}
