package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"voxelprefab.ai/internal/persistence/snapshot"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/tuning"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteIndex is a queryable secondary index of builds and snapshots. Writes
// are queued and applied by a single writer goroutine; the build journal
// remains the source of truth.
type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropProgress atomic.Uint64
	dropComplete atomic.Uint64
	dropSnapshot atomic.Uint64
}

var _ build.Sink = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqProgress reqKind = iota + 1
	reqComplete
	reqSnapshot
)

type req struct {
	kind reqKind

	progress build.Progress
	complete build.Completion
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick         uint64
	Path         string
	WorldID      string
	Seed         int64
	Height       int
	Chunks       int
	TileEntities int
	Entities     int
}

func OpenSQLite(path string, log *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: log,
		// High buffer: progress rows come in bursts of one per build per tick.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// BuildProgress records one tick of work. Idle ticks are not indexed.
func (s *SQLiteIndex) BuildProgress(p build.Progress) {
	if s == nil || s.closed.Load() {
		return
	}
	if p.Units == 0 && p.SkippedAir == 0 && p.Evicted == 0 && p.Dewatered == 0 && p.Err == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqProgress, progress: p}:
	default:
		// Drop if the indexer falls behind; the journal remains the source of truth.
		s.dropProgress.Add(1)
	}
}

func (s *SQLiteIndex) BuildCompleted(c build.Completion) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqComplete, complete: c}:
	default:
		s.dropComplete.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:         snap.Header.Tick,
		Path:         path,
		WorldID:      snap.Header.WorldID,
		Seed:         snap.Seed,
		Height:       snap.Height,
		Chunks:       len(snap.Chunks),
		TileEntities: len(snap.TileEntities),
		Entities:     len(snap.Entities),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

type Stats struct {
	DropProgressTotal uint64 `json:"drop_progress_total"`
	DropCompleteTotal uint64 `json:"drop_complete_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropProgressTotal: s.dropProgress.Load(),
		DropCompleteTotal: s.dropComplete.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

// UpsertCatalogs stores the catalogs and tuning the server booted with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "entities.json")); err == nil {
			rows = append(rows, kv{name: "entities", digest: cats.Entities.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Structures.IDs()); len(b) > 0 {
		rows = append(rows, kv{name: "structures", digest: cats.Structures.Digest, json: b})
	}

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	upsertBuild, _ := s.db.Prepare(`INSERT INTO builds(build_id,requester,structure,first_tick,last_tick,stage) VALUES(?,?,?,?,?,?)
		ON CONFLICT(build_id) DO UPDATE SET last_tick=excluded.last_tick, stage=excluded.stage`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO build_ticks(build_id,tick,stage,cleared,skipped_air,placed,units,evicted,dewatered,pending_clear,pending_cells,error) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	completeBuild, _ := s.db.Prepare(`INSERT INTO builds(build_id,requester,structure,first_tick,last_tick,stage,ok,ticks,tile_entities,entities,skipped_entities,error) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(build_id) DO UPDATE SET last_tick=excluded.last_tick, stage=excluded.stage, ok=excluded.ok, ticks=excluded.ticks,
		tile_entities=excluded.tile_entities, entities=excluded.entities, skipped_entities=excluded.skipped_entities, error=excluded.error`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,world_id,seed,height,chunks,tile_entities,entities) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{upsertBuild, insertTick, completeBuild, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Warn("index commit failed", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.log.Warn("index write failed", zap.Error(err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqProgress:
			p := r.progress
			if upsertBuild == nil || insertTick == nil {
				continue
			}
			if _, err := tx.Stmt(upsertBuild).Exec(p.BuildID, p.Requester, p.StructureID, int64(p.Tick), int64(p.Tick), p.Stage.String()); err != nil {
				rollback(err)
				continue
			}
			if _, err := tx.Stmt(insertTick).Exec(
				p.BuildID,
				int64(p.Tick),
				p.Stage.String(),
				p.Cleared,
				p.SkippedAir,
				p.Placed,
				p.Units,
				p.Evicted,
				p.Dewatered,
				p.PendingClear,
				p.PendingCells,
				nullString(p.Err),
			); err != nil {
				rollback(err)
				continue
			}
			opCount += 2

		case reqComplete:
			c := r.complete
			if completeBuild == nil {
				continue
			}
			stage := build.StageComplete
			if !c.OK {
				stage = build.StageFailed
			}
			if _, err := tx.Stmt(completeBuild).Exec(
				c.BuildID,
				c.Requester,
				c.StructureID,
				int64(c.EnqueuedTick),
				int64(c.Tick),
				stage.String(),
				c.OK,
				int64(c.Ticks),
				c.TileEntities,
				c.Entities,
				c.Skipped,
				nullString(c.Err),
			); err != nil {
				rollback(err)
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil {
				continue
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(
				int64(sn.Tick),
				sn.Path,
				sn.WorldID,
				sn.Seed,
				sn.Height,
				sn.Chunks,
				sn.TileEntities,
				sn.Entities,
			); err != nil {
				rollback(err)
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
