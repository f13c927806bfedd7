// Package store archives conversation transcripts in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/cv-screener/internal/screening"
)

//go:embed schema.sql
var schemaSQL string

const memoryPath = ":memory:"

// Archive is an append-only store of transcript turns.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive database at path.
func Open(path string) (*Archive, error) {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == memoryPath {
		// Every connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Sink returns a TurnSink that archives the turns of one conversation.
func (a *Archive) Sink(conversationID string) screening.TurnSink {
	return sink{archive: a, id: conversationID}
}

type sink struct {
	archive *Archive
	id      string
}

func (s sink) Record(ctx context.Context, seq int, turn screening.Turn) error {
	return s.archive.Append(ctx, s.id, seq, turn)
}

// Append stores one turn. A sequence number can be written only once.
func (a *Archive) Append(ctx context.Context, conversationID string, seq int, turn screening.Turn) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, seq, sender, text, at) VALUES (?, ?, ?, ?, ?)`,
		conversationID, seq, string(turn.Sender), turn.Text, turn.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive turn %d of %s: %w", seq, conversationID, err)
	}
	return nil
}

// Turns returns the archived transcript of a conversation in order.
func (a *Archive) Turns(ctx context.Context, conversationID string) ([]screening.Turn, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT sender, text, at FROM turns WHERE conversation_id = ? ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []screening.Turn
	for rows.Next() {
		var (
			sender string
			turn   screening.Turn
			at     time.Time
		)
		if err := rows.Scan(&sender, &turn.Text, &at); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Sender = screening.Sender(sender)
		turn.At = at.UTC()
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Conversations lists archived conversation ids, most recently active first.
func (a *Archive) Conversations(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT conversation_id FROM turns GROUP BY conversation_id ORDER BY MAX(at) DESC, conversation_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
