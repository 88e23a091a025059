package store

import (
	"sort"

	genpkg "voxelprefab.ai/internal/sim/world/terrain/gen"
)

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if y < 0 || y >= s.Gen.Height {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// UnsavedChunkKeys lists chunks changed since the last MarkSaved.
func (s *ChunkStore) UnsavedChunkKeys() []ChunkKey {
	var keys []ChunkKey
	for k, ch := range s.Chunks {
		if ch.unsaved {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

func (s *ChunkStore) MarkSaved() {
	for _, ch := range s.Chunks {
		ch.unsaved = false
	}
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}

// GetBlock reads a cell; anything out of bounds is air.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return s.Gen.Air
	}
	ch := s.ChunkAt(x, z)
	return ch.Get(genpkg.Mod(x, 16), y, genpkg.Mod(z, 16))
}

// SetBlock writes a cell and reports whether it was in bounds.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) bool {
	if !s.InBounds(x, y, z) {
		return false
	}
	ch := s.ChunkAt(x, z)
	ch.Set(genpkg.Mod(x, 16), y, genpkg.Mod(z, 16), b)
	return true
}

// ChunkAt returns the chunk holding world column (x,z), generating it on
// first use.
func (s *ChunkStore) ChunkAt(x, z int) *Chunk {
	return s.GetOrGenChunk(genpkg.FloorDiv(x, 16), genpkg.FloorDiv(z, 16))
}

func (s *ChunkStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := newChunk(cx, cz, s.Gen.Height)
	s.GenerateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}
