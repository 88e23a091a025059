package indexdb

import (
	"context"
	"database/sql"
)

type BuildRow struct {
	BuildID         string `json:"build_id"`
	Requester       string `json:"requester"`
	Structure       string `json:"structure"`
	FirstTick       uint64 `json:"first_tick"`
	LastTick        uint64 `json:"last_tick"`
	Stage           string `json:"stage"`
	OK              *bool  `json:"ok,omitempty"`
	Ticks           uint64 `json:"ticks"`
	TileEntities    int    `json:"tile_entities"`
	Entities        int    `json:"entities"`
	SkippedEntities int    `json:"skipped_entities"`
	Error           string `json:"error,omitempty"`
}

type SnapshotRow struct {
	Tick         uint64 `json:"tick"`
	Path         string `json:"path"`
	WorldID      string `json:"world_id"`
	Chunks       int    `json:"chunks"`
	TileEntities int    `json:"tile_entities"`
	Entities     int    `json:"entities"`
}

// Builds lists indexed builds, newest first. An empty requester matches all.
func (s *SQLiteIndex) Builds(ctx context.Context, requester string, limit int) ([]BuildRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT build_id,requester,structure,first_tick,last_tick,stage,ok,ticks,tile_entities,entities,skipped_entities,error
		FROM builds WHERE (?='' OR requester=?) ORDER BY last_tick DESC, build_id DESC LIMIT ?`, requester, requester, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BuildRow
	for rows.Next() {
		var (
			r    BuildRow
			ok   sql.NullBool
			errS sql.NullString
		)
		if err := rows.Scan(&r.BuildID, &r.Requester, &r.Structure, &r.FirstTick, &r.LastTick, &r.Stage, &ok, &r.Ticks,
			&r.TileEntities, &r.Entities, &r.SkippedEntities, &errS); err != nil {
			return nil, err
		}
		if ok.Valid {
			v := ok.Bool
			r.OK = &v
		}
		r.Error = errS.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// BuildTicks is the number of indexed work ticks of one build.
func (s *SQLiteIndex) BuildTicks(ctx context.Context, buildID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM build_ticks WHERE build_id=?`, buildID).Scan(&n)
	return n, err
}

// Snapshots lists recorded snapshots, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT tick,path,world_id,chunks,tile_entities,entities FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		if err := rows.Scan(&r.Tick, &r.Path, &r.WorldID, &r.Chunks, &r.TileEntities, &r.Entities); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
