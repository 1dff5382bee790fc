package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wattwise/internal"
)

const (
	RunStatusOK       = "ok"
	RunStatusRejected = "rejected"
	RunStatusFailed   = "failed"
)

func (d *DB) InsertRun(ctx context.Context, run internal.RunRow) error {
	rejected := run.Stats.Rejected
	if rejected == nil {
		rejected = map[internal.RejectReason]int{}
	}
	timings := run.Timings
	if timings == nil {
		timings = map[string]float64{}
	}
	rejectedJSON, _ := json.Marshal(rejected)
	timingsJSON, _ := json.Marshal(timings)
	createdAt := run.CreatedAt
	if createdAt == "" {
		createdAt = d.timestamp()
	}

	_, err := d.conn.ExecContext(ctx, d.rebind(`
INSERT INTO runs (id, source, status, error, seen, accepted, rejected_json, timings_json, published, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`), run.ID, run.Source, run.Status, run.Error, run.Stats.Seen, run.Stats.Accepted,
		string(rejectedJSON), string(timingsJSON), run.Published, createdAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns ErrNotFound when no run was recorded yet.
func (d *DB) LatestRun(ctx context.Context) (internal.RunRow, error) {
	runs, err := d.ListRuns(ctx, 1)
	if err != nil {
		return internal.RunRow{}, err
	}
	if len(runs) == 0 {
		return internal.RunRow{}, ErrNotFound
	}
	return runs[0], nil
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.QueryContext(ctx, d.rebind(`
SELECT id, source, status, error, seen, accepted, rejected_json, timings_json, published, created_at
FROM runs ORDER BY created_at DESC LIMIT ?
`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var (
			run                       internal.RunRow
			rejectedJSON, timingsJSON string
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Status, &run.Error, &run.Stats.Seen, &run.Stats.Accepted,
			&rejectedJSON, &timingsJSON, &run.Published, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Stats.Rejected = map[internal.RejectReason]int{}
		_ = json.Unmarshal([]byte(rejectedJSON), &run.Stats.Rejected)
		run.Timings = map[string]float64{}
		_ = json.Unmarshal([]byte(timingsJSON), &run.Timings)
		out = append(out, run)
	}
	return out, rows.Err()
}

// InsertSnapshot records a fetched export. Re-fetching identical content
// only refreshes fetched_at; the bool reports whether the hash was new.
func (d *DB) InsertSnapshot(ctx context.Context, snap internal.SnapshotRow) (bool, error) {
	if _, err := d.GetSnapshot(ctx, snap.Hash); err == nil {
		_, err := d.conn.ExecContext(ctx, d.rebind(`UPDATE snapshots SET fetched_at = ? WHERE hash = ?`), snap.FetchedAt, snap.Hash)
		return false, err
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	_, err := d.conn.ExecContext(ctx, d.rebind(`
INSERT INTO snapshots (hash, source, raw_ref, size_bytes, fetched_at) VALUES (?, ?, ?, ?, ?)
`), snap.Hash, snap.Source, snap.RawRef, snap.SizeBytes, snap.FetchedAt)
	if err != nil {
		return false, fmt.Errorf("insert snapshot %s: %w", snap.Hash, err)
	}
	return true, nil
}

func (d *DB) GetSnapshot(ctx context.Context, hash string) (internal.SnapshotRow, error) {
	return d.scanSnapshot(d.conn.QueryRowContext(ctx, d.rebind(`
SELECT hash, source, raw_ref, size_bytes, fetched_at FROM snapshots WHERE hash = ?
`), hash))
}

func (d *DB) LatestSnapshot(ctx context.Context, source string) (internal.SnapshotRow, error) {
	return d.scanSnapshot(d.conn.QueryRowContext(ctx, d.rebind(`
SELECT hash, source, raw_ref, size_bytes, fetched_at FROM snapshots WHERE source = ?
ORDER BY fetched_at DESC LIMIT 1
`), source))
}

func (d *DB) scanSnapshot(row *sql.Row) (internal.SnapshotRow, error) {
	var snap internal.SnapshotRow
	err := row.Scan(&snap.Hash, &snap.Source, &snap.RawRef, &snap.SizeBytes, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.SnapshotRow{}, ErrNotFound
	}
	return snap, err
}

// SaveMarketData keeps a single current market payload.
func (d *DB) SaveMarketData(ctx context.Context, payload []byte) error {
	_, err := d.conn.ExecContext(ctx, d.rebind(`
INSERT INTO market_data (id, payload, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
`), string(payload), d.timestamp())
	return err
}

func (d *DB) LatestMarketData(ctx context.Context) ([]byte, string, error) {
	var payload, updatedAt string
	err := d.conn.QueryRowContext(ctx, `SELECT payload, updated_at FROM market_data WHERE id = 1`).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return []byte(payload), updatedAt, nil
}

// Timestamp formats the store's current time the way it persists timestamps.
func (d *DB) Timestamp() string { return d.timestamp() }
