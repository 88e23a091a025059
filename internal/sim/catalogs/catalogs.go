package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelprefab.ai/internal/sim/structure/grid"
)

var ErrUnknownStructure = errors.New("unknown structure")

type Catalogs struct {
	Blocks     BlockCatalog
	Entities   EntityCatalog
	Structures StructureCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Waterloggable bool   `json:"waterloggable,omitempty"`
	TileEntity    string `json:"tile_entity,omitempty"`
	Networked     bool   `json:"networked,omitempty"`

	kind grid.Kind
}

type EntityCatalog struct {
	ByID   map[string]EntityDef
	Digest string
}

type EntityDef struct {
	ID       string            `json:"id"`
	Category string            `json:"category"`
	Living   bool              `json:"living,omitempty"`
	Width    int               `json:"width,omitempty"`
	Height   int               `json:"height,omitempty"`
	Motives  map[string][2]int `json:"motives,omitempty"`
}

// SpriteSize resolves the pixel size of a hanging entity. Paintings carry a
// motive; frames have a fixed size.
func (d EntityDef) SpriteSize(motive string) (w, h int) {
	if sz, ok := d.Motives[motive]; ok {
		return sz[0], sz[1]
	}
	return d.Width, d.Height
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadEntities(filepath.Join(configDir, "entities.json"), &c.Entities); err != nil {
		return nil, err
	}
	if err := loadStructures(filepath.Join(configDir, "structures"), &c.Blocks, &c.Structures); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	c, err := NewBlockCatalog(defs)
	if err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	c.DefsDigest = sha256Hex(raw)
	*out = c
	return nil
}

// NewBlockCatalog indexes block definitions. Air must be present and gets
// palette id 0.
func NewBlockCatalog(defs []BlockDef) (BlockCatalog, error) {
	var out BlockCatalog
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return out, fmt.Errorf("empty id")
		}
		k, err := grid.ParseKind(d.Kind)
		if err != nil {
			return out, fmt.Errorf("%s: %w", d.ID, err)
		}
		d.kind = k
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if d, ok := out.Defs["air"]; !ok || d.kind != grid.KindAir {
		return out, fmt.Errorf("missing air")
	}
	ids = append([]string{"air"}, filterOut(ids, "air")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return out, nil
}

// State returns the default cell state of a block id.
func (c *BlockCatalog) State(id string) (grid.CellState, error) {
	d, ok := c.Defs[id]
	if !ok {
		return grid.CellState{}, fmt.Errorf("unknown block %q", id)
	}
	return grid.CellState{
		Block:         d.ID,
		Kind:          d.kind,
		Waterloggable: d.Waterloggable,
	}, nil
}

func (c *BlockCatalog) KindOf(id string) grid.Kind {
	return c.Defs[id].kind
}

func loadEntities(path string, out *EntityCatalog) error {
	out.ByID = map[string]EntityDef{}
	raw, err := os.ReadFile(path)
	if err != nil {
		// Entities are optional: structures without entities don't need them.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []EntityDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("entities.json: %w", err)
	}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("entities.json: empty id")
		}
		switch strings.ToLower(d.Category) {
		case "", "general", "hanging", "frame":
		default:
			return fmt.Errorf("entities.json: %s: unknown category %q", d.ID, d.Category)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
