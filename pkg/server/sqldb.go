package server

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLStore manages the SQLite database used for room scrollback. Writes are
// serialized; SQLite tolerates that fine at MUD traffic rates.
type SQLStore struct {
	db      *sql.DB
	mu      sync.Mutex
	path    string
	timeout time.Duration
}

// OpenSQLStore opens a SQLite database, sets WAL mode and busy timeout.
func OpenSQLStore(path string, timeoutSec int) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeoutSec*1000)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	return &SQLStore{
		db:      db,
		path:    path,
		timeout: time.Duration(timeoutSec) * time.Second,
	}, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the SQLite database.
func (s *SQLStore) Path() string { return s.path }

// InitScrollbackTables creates the scrollback schema if absent.
func (s *SQLStore) InitScrollbackTables() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS scrollback (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			ts       INTEGER NOT NULL,
			room     TEXT NOT NULL,
			event    TEXT NOT NULL,
			sender   TEXT NOT NULL,
			message  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_scrollback_room_ts ON scrollback(room, ts);
	`)
	if err != nil {
		return fmt.Errorf("creating scrollback tables: %w", err)
	}
	return nil
}

// InsertScrollback records one room event.
func (s *SQLStore) InsertScrollback(room, event, sender, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrollback (ts, room, event, sender, message) VALUES (?, ?, ?, ?, ?)`,
		time.Now().Unix(), room, event, sender, message)
	return err
}

// ScrollbackEntry is one stored room event.
type ScrollbackEntry struct {
	Timestamp time.Time
	Room      string
	Event     string
	Sender    string
	Message   string
}

// RecentScrollback returns the newest entries for a room, oldest first.
func (s *SQLStore) RecentScrollback(room string, limit int) ([]ScrollbackEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, room, event, sender, message FROM scrollback
		 WHERE room = ? ORDER BY ts DESC, id DESC LIMIT ?`, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ScrollbackEntry
	for rows.Next() {
		var e ScrollbackEntry
		var ts int64
		if err := rows.Scan(&ts, &e.Room, &e.Event, &e.Sender, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// PurgeOldScrollback deletes entries older than the retention window and
// reports how many went.
func (s *SQLStore) PurgeOldScrollback(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM scrollback WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
