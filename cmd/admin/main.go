package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "voxelprefab.ai/internal/persistence/log"
	"voxelprefab.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "active":
			activeCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

type snapshotSummary struct {
	Path          string          `json:"path"`
	Header        snapshot.Header `json:"header"`
	Seed          int64           `json:"seed"`
	Height        int             `json:"height"`
	GroundLevel   int             `json:"ground_level"`
	States        int             `json:"states"`
	Chunks        int             `json:"chunks"`
	TileEntities  map[string]int  `json:"tile_entities"`
	Entities      map[string]int  `json:"entities"`
	StarterHouses []string        `json:"starter_houses,omitempty"`
	NextBuild     uint64          `json:"next_build"`
}

// inspectCmd prints a summary of one snapshot file.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used when no path is given)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(fs.Arg(0))
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing snapshot path or -world")
			os.Exit(2)
		}
		path = snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID, "snapshots"))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshots found")
			os.Exit(2)
		}
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(path, snap))
}

func summarize(path string, snap snapshot.SnapshotV1) snapshotSummary {
	s := snapshotSummary{
		Path:          path,
		Header:        snap.Header,
		Seed:          snap.Seed,
		Height:        snap.Height,
		GroundLevel:   snap.GroundLevel,
		States:        len(snap.States),
		Chunks:        len(snap.Chunks),
		TileEntities:  map[string]int{},
		Entities:      map[string]int{},
		StarterHouses: snap.StarterHouses,
		NextBuild:     snap.Counters.NextBuild,
	}
	for _, te := range snap.TileEntities {
		s.TileEntities[te.Type]++
	}
	for _, e := range snap.Entities {
		s.Entities[e.Type]++
	}
	return s
}

type journalSummary struct {
	Files       int            `json:"files"`
	Progress    int            `json:"progress"`
	Completed   int            `json:"completed"`
	Failed      int            `json:"failed"`
	Units       int            `json:"units"`
	ByStructure map[string]int `json:"completed_by_structure"`
	Errors      []string       `json:"errors,omitempty"`
}

// journalCmd folds the build journal of a world into totals.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	files, err := persistlog.JournalFiles(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	sum, err := foldJournal(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	printJSON(sum)
}

func foldJournal(files []string) (journalSummary, error) {
	sum := journalSummary{Files: len(files), ByStructure: map[string]int{}}
	for _, f := range files {
		entries, err := persistlog.ReadJournal(f)
		if err != nil {
			return sum, err
		}
		for _, e := range entries {
			switch {
			case e.Progress != nil:
				sum.Progress++
				sum.Units += e.Progress.Units
			case e.Completion != nil:
				c := e.Completion
				if !c.OK {
					sum.Failed++
					sum.Errors = append(sum.Errors, fmt.Sprintf("%s (%s): %s", c.BuildID, c.StructureID, c.Err))
					continue
				}
				sum.Completed++
				sum.ByStructure[c.StructureID]++
			}
		}
	}
	sort.Strings(sum.Errors)
	return sum, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
