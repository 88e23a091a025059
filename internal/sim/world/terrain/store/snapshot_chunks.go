package store

import (
	"fmt"

	snapv1 "voxelprefab.ai/internal/persistence/snapshot"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(chunks map[ChunkKey]*Chunk, keys []ChunkKey) []snapv1.ChunkV1 {
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := chunks[k]
		if ch == nil {
			continue
		}
		cells := make([]uint16, len(ch.Cells))
		copy(cells, ch.Cells)
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Height: ch.Height,
			Cells:  cells,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(gen WorldGen, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(gen)
	for _, ch := range chunks {
		if ch.Height != gen.Height {
			return nil, fmt.Errorf("snapshot chunk height mismatch: got %d want %d", ch.Height, gen.Height)
		}
		if len(ch.Cells) != 16*16*gen.Height {
			return nil, fmt.Errorf("snapshot chunk cells length mismatch: got %d want %d", len(ch.Cells), 16*16*gen.Height)
		}
		k := ChunkKey{CX: ch.CX, CZ: ch.CZ}
		c := newChunk(ch.CX, ch.CZ, ch.Height)
		copy(c.Cells, ch.Cells)
		_ = c.Digest()
		store.Chunks[k] = c
	}
	return store, nil
}
