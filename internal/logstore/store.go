// Package logstore persists interaction events into an append-only SQLite
// table and rebuilds recent dialogue windows from it on startup.
package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"relaybot/internal/llm"
)

// TimeLayout is the fixed-width UTC timestamp format stored in the logs
// table. Fixed width keeps lexicographic and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

type EventType string

const (
	EventCommand   EventType = "command"
	EventMessage   EventType = "message"
	EventResponse  EventType = "response"
	EventTranslate EventType = "translate"
	EventCallback  EventType = "callback"
	EventError     EventType = "error"
)

// Entry is one recorded interaction event. Entries are immutable once
// written: the logs table is append-only, rows are never updated or deleted.
type Entry struct {
	Timestamp string
	UserID    int64
	EventType EventType
	Prompt    string
	Response  string
}

// Store wraps the SQLite database holding the interaction log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the logs table
// exists. Safe to call on every process start.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer by design. A single shared connection lets
	// database/sql serialize callers instead of them fighting for write locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT,
			user_id INTEGER,
			event_type TEXT,
			prompt TEXT,
			response TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create logs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBatch appends all entries in a single transaction, preserving input
// order as insertion order. An empty batch is a no-op and opens no
// transaction.
func (s *Store) InsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO logs (timestamp, user_id, event_type, prompt, response)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Timestamp, e.UserID, string(e.EventType), e.Prompt, e.Response); err != nil {
			return fmt.Errorf("failed to insert log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// DistinctUsersWithHistory returns every user_id that has at least one
// message or response entry. Used once at startup by the restorer.
func (s *Store) DistinctUsersWithHistory(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM logs
		WHERE event_type IN ('message', 'response')
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with history: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// RecentDialogue reconstructs up to 2×limit of the most recent message and
// response entries for a user, ordered oldest-first. Every reconstructed turn
// gets role "user", including prior assistant replies (see DESIGN.md on the
// restore relabeling).
func (s *Store) RecentDialogue(ctx context.Context, userID int64, limit int) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, prompt, response FROM logs
		WHERE user_id = ? AND event_type IN ('message', 'response')
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit*2) // one exchange = question + answer
	if err != nil {
		return nil, fmt.Errorf("failed to query recent dialogue: %w", err)
	}
	defer rows.Close()

	var recent []llm.Message
	for rows.Next() {
		var eventType, prompt, response string
		if err := rows.Scan(&eventType, &prompt, &response); err != nil {
			return nil, fmt.Errorf("failed to scan dialogue row: %w", err)
		}
		switch EventType(eventType) {
		case EventMessage:
			recent = append(recent, llm.Message{Role: "user", Content: prompt})
		case EventResponse:
			recent = append(recent, llm.Message{Role: "user", Content: response})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dialogue rows: %w", err)
	}

	// Rows arrive newest-first; flip to chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// CountByEventTypeSince returns per-event-type entry counts for everything
// logged at or after since. Used by the daily activity digest.
func (s *Store) CountByEventTypeSince(ctx context.Context, since time.Time) (map[EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM logs
		WHERE timestamp >= ?
		GROUP BY event_type
	`, since.UTC().Format(TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[EventType]int)
	for rows.Next() {
		var et string
		var n int
		if err := rows.Scan(&et, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[EventType(et)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event counts: %w", err)
	}
	return counts, nil
}
