package store

import genpkg "voxelprefab.ai/internal/sim/world/terrain/gen"

// GenerateChunk lays flat terrain: bedrock, stone, three layers of dirt
// under grass, with the odd pond and gravel patch on the surface.
func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	g := s.Gen
	top := g.GroundLevel - 1
	for z := 0; z < 16; z++ {
		for x := 0; x < 16; x++ {
			wx := ch.CX*16 + x
			wz := ch.CZ*16 + z

			pond := genpkg.InCluster(g.Seed+11, wx, wz, g.PondGrid, g.PondRadius, g.PondPermille)
			gravel := !pond && genpkg.InCluster(g.Seed+12, wx, wz, 64, 3, 300)

			for y := 0; y <= top && y < ch.Height; y++ {
				b := g.Stone
				switch {
				case y == 0:
					b = g.Bedrock
				case pond && y >= top-1:
					b = g.Water
				case y == top && gravel:
					b = g.Gravel
				case y == top:
					b = g.Grass
				case y >= top-3:
					b = g.Dirt
				}
				ch.Cells[ch.index(x, y, z)] = b
			}
			for y := top + 1; y < ch.Height; y++ {
				ch.Cells[ch.index(x, y, z)] = g.Air
			}
		}
	}
}
