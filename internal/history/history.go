// internal/history/history.go
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/uplink"
)

// DB is the local cycle log. Every row carries the id of the boot that
// wrote it, so restarts show up as a change of boot id.
type DB struct {
	*sql.DB
	boot string
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			boot_id   TEXT NOT NULL,
			cycle     INTEGER NOT NULL,
			at_unix_ms INTEGER NOT NULL,
			total     INTEGER NOT NULL,
			wifi      INTEGER NOT NULL,
			ble       INTEGER NOT NULL,
			accepted  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS cycles_at ON cycles (at_unix_ms);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema (path=%s): %w", path, err)
	}

	return &DB{DB: db, boot: uuid.NewString()}, nil
}

// BootID identifies this process run.
func (db *DB) BootID() string { return db.boot }

// Record implements uplink.Recorder.
func (db *DB) Record(ctx context.Context, j uplink.Job) error {
	accepted := 0
	if j.Accepted {
		accepted = 1
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO cycles (boot_id, cycle, at_unix_ms, total, wifi, ble, accepted) VALUES (?, ?, ?, ?, ?, ?, ?)",
		db.boot, j.Cycle, j.At.UnixMilli(), j.Counts.Total, j.Counts.Wifi, j.Counts.BLE, accepted,
	)
	return err
}

// Row is one recorded cycle.
type Row struct {
	BootID   string
	Cycle    uint32
	At       time.Time
	Counts   aggregate.Counts
	Accepted bool
}

// Recent returns up to limit rows, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Row, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT boot_id, cycle, at_unix_ms, total, wifi, ble, accepted FROM cycles ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r               Row
			atMs            int64
			total, wifi, bl int64
			accepted        int64
		)
		if err := rows.Scan(&r.BootID, &r.Cycle, &atMs, &total, &wifi, &bl, &accepted); err != nil {
			return nil, err
		}
		r.At = time.UnixMilli(atMs)
		r.Counts = aggregate.Counts{Total: uint16(total), Wifi: uint16(wifi), BLE: uint16(bl)}
		r.Accepted = accepted != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge drops every recorded cycle.
func (db *DB) Purge(ctx context.Context) error {
	_, err := db.ExecContext(ctx, "DELETE FROM cycles")
	return err
}
