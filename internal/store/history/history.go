package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"giftboard/internal/model"
)

// DB wraps a SQLite database that keeps past runs and their leaderboards.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
	  id TEXT PRIMARY KEY,
	  broadcaster TEXT NOT NULL,
	  broadcaster_id TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  subscribers INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE TABLE IF NOT EXISTS entries (
	  run_id TEXT NOT NULL REFERENCES runs(id),
	  position INTEGER NOT NULL,
	  user_id TEXT NOT NULL,
	  user_name TEXT NOT NULL,
	  tier TEXT NOT NULL,
	  gift_count INTEGER NOT NULL,
	  badge TEXT NOT NULL,
	  PRIMARY KEY (run_id, position)
	);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`)
	return err
}

// Run is one fetch of the subscriber list.
type Run struct {
	ID            string
	Broadcaster   string
	BroadcasterID string
	CreatedAt     time.Time
	Subscribers   int
}

// StartRun records a fetch and returns its generated id.
func (d *DB) StartRun(ctx context.Context, broadcaster, broadcasterID string, subscribers int, at time.Time) (Run, error) {
	r := Run{ID: uuid.NewString(), Broadcaster: broadcaster, BroadcasterID: broadcasterID, CreatedAt: at.UTC(), Subscribers: subscribers}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO runs(id, broadcaster, broadcaster_id, created_at, subscribers) VALUES(?,?,?,?,?)`,
		r.ID, r.Broadcaster, r.BroadcasterID, r.CreatedAt.UnixNano(), r.Subscribers)
	return r, err
}

// LatestRun returns the most recent run, or sql.ErrNoRows.
func (d *DB) LatestRun(ctx context.Context) (Run, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, broadcaster, broadcaster_id, created_at, subscribers FROM runs ORDER BY created_at DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, broadcaster, broadcaster_id, created_at, subscribers FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanRun(s scanner) (Run, error) {
	var r Run
	var ts int64
	if err := s.Scan(&r.ID, &r.Broadcaster, &r.BroadcasterID, &ts, &r.Subscribers); err != nil {
		return r, err
	}
	r.CreatedAt = time.Unix(0, ts).UTC()
	return r, nil
}

// Entry is a stored leaderboard line.
type Entry struct {
	Position  int
	UserID    string
	UserName  string
	Tier      string
	GiftCount int
	Badge     string
}

// PutLeaderboard replaces the entries stored for runID.
func (d *DB) PutLeaderboard(ctx context.Context, runID string, ranked []model.RankedSubscriber) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id=?`, runID); err != nil {
		return err
	}
	for i, e := range ranked {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entries(run_id, position, user_id, user_name, tier, gift_count, badge) VALUES(?,?,?,?,?,?,?)`,
			runID, i, e.UserID, e.UserName, e.Tier, e.GiftCount, e.Badge.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Leaderboard returns the entries of runID in rank order.
func (d *DB) Leaderboard(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT position, user_id, user_name, tier, gift_count, badge FROM entries WHERE run_id=? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Position, &e.UserID, &e.UserName, &e.Tier, &e.GiftCount, &e.Badge); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PutEvent stores a lifecycle event.
func (d *DB) PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error {
	pb, _ := json.Marshal(payload)
	_, err := d.sql.ExecContext(ctx, `INSERT INTO events(ts, type, payload) VALUES(?,?,?)`, ts.UnixNano(), typ, string(pb))
	return err
}

// Event is a stored lifecycle event
type Event struct {
	TS      time.Time
	Type    string
	Payload string
}

// RecentEvents returns up to limit events, newest first. A non-empty prefix
// keeps only types starting with it, e.g. "token_".
func (d *DB) RecentEvents(ctx context.Context, prefix string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT ts, type, payload FROM events WHERE substr(type, 1, ?) = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		len(prefix), prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ts int64
		var e Event
		if err := rows.Scan(&ts, &e.Type, &e.Payload); err != nil {
			return nil, err
		}
		e.TS = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
