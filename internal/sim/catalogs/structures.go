package catalogs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/structure.schema.json
var structureSchemaJSON string

type StructureCatalog struct {
	ByID   map[string]StructureDef
	Digest string
}

// StructureDef is a scanned structure: cells, tile entities and entities on
// local axes where CanonicalNorth is the forward direction.
type StructureDef struct {
	ID             string            `json:"id"`
	Version        string            `json:"version"`
	Hooks          string            `json:"hooks,omitempty"`
	CanonicalNorth string            `json:"canonical_north"`
	Clear          *[2][3]int        `json:"clear,omitempty"`
	Blocks         []BPBlock         `json:"blocks"`
	TileEntities   []BPTileEntity    `json:"tile_entities,omitempty"`
	Entities       []BPEntity        `json:"entities,omitempty"`
	Options        map[string]string `json:"options,omitempty"`
}

type BPBlock struct {
	Pos         [3]int   `json:"pos"`
	Block       string   `json:"block"`
	Facing      string   `json:"facing,omitempty"`
	Half        string   `json:"half,omitempty"`
	Part        string   `json:"part,omitempty"`
	Waterlogged bool     `json:"waterlogged,omitempty"`
	Tier        int      `json:"tier,omitempty"`
	Sub         *BPBlock `json:"sub,omitempty"`
}

type BPTileEntity struct {
	Pos  [3]int          `json:"pos"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type BPEntity struct {
	Type   string          `json:"type"`
	Pos    [3]int          `json:"pos"`
	Offset [3]float64      `json:"offset,omitempty"`
	Data   json.RawMessage `json:"data"`
}

func (c *StructureCatalog) Get(id string) (StructureDef, error) {
	d, ok := c.ByID[id]
	if !ok {
		return StructureDef{}, fmt.Errorf("%w: %s", ErrUnknownStructure, id)
	}
	return d, nil
}

func (c *StructureCatalog) IDs() []string {
	ids := make([]string, 0, len(c.ByID))
	for id := range c.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func compileStructureSchema() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("structure.schema.json", structureSchemaJSON)
}

func loadStructures(dir string, blocks *BlockCatalog, out *StructureCatalog) error {
	out.ByID = map[string]StructureDef{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".json.zst") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	schema, err := compileStructureSchema()
	if err != nil {
		return fmt.Errorf("structure schema: %w", err)
	}

	var concat bytes.Buffer
	for _, p := range files {
		b, err := readStructureFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		def, err := ParseStructure(schema, b)
		if err != nil {
			return fmt.Errorf("structure %s: %w", filepath.Base(p), err)
		}
		if err := checkBlocks(blocks, def.Blocks); err != nil {
			return fmt.Errorf("structure %s: %w", filepath.Base(p), err)
		}
		if _, dup := out.ByID[def.ID]; dup {
			return fmt.Errorf("structure %s: duplicate id %s", filepath.Base(p), def.ID)
		}
		out.ByID[def.ID] = def
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

// readStructureFile reads a plain or zstd-compressed structure file.
func readStructureFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	b, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd %s: %w", filepath.Base(path), err)
	}
	return b, nil
}

// ParseStructure validates raw JSON against the structure schema and decodes it.
func ParseStructure(schema *jsonschema.Schema, raw []byte) (StructureDef, error) {
	var def StructureDef
	if schema != nil {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return def, err
		}
		if err := schema.Validate(doc); err != nil {
			return def, err
		}
	}
	if err := json.Unmarshal(raw, &def); err != nil {
		return def, err
	}
	if def.ID == "" {
		return def, fmt.Errorf("missing id")
	}
	return def, nil
}

func checkBlocks(blocks *BlockCatalog, bs []BPBlock) error {
	for _, b := range bs {
		if _, ok := blocks.Defs[b.Block]; !ok {
			return fmt.Errorf("unknown block %q at %v", b.Block, b.Pos)
		}
		if b.Sub != nil {
			if err := checkBlocks(blocks, []BPBlock{*b.Sub}); err != nil {
				return err
			}
		}
	}
	return nil
}
