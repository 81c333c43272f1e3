// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history persists conversation turns. The store is the durable
// source of truth for past SQL: the in-memory query cache is only an
// optimization that can always be rebuilt from here by re-execution.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/teradata-labs/quill/pkg/types"
)

// MaxBotResponseLength bounds stored bot text. Longer responses are
// truncated with a "..." marker at write time.
const MaxBotResponseLength = 500

// Store is the conversation history contract the pipeline depends on.
type Store interface {
	// Recent returns up to limit most-recent turns for a thread in
	// chronological order (oldest first).
	Recent(ctx context.Context, threadID string, limit int) ([]types.Turn, error)

	// Append persists one completed turn and returns it with ID and
	// CreatedAt populated.
	Append(ctx context.Context, threadID, userMessage, botResponse string, intent types.Intent, sqlText string) (*types.Turn, error)

	// RecentWithSQL returns up to limit most-recent turns that carry SQL,
	// oldest first. Used to rebuild the query cache by re-execution.
	RecentWithSQL(ctx context.Context, threadID string, limit int) ([]types.Turn, error)

	// MostRecentSQL returns the newest SQL statement for a thread, or
	// sql.ErrNoRows-equivalent ErrNoSQL when the thread has none.
	MostRecentSQL(ctx context.Context, threadID string) (string, error)
}

// ErrNoSQL indicates a thread has no turn with a SQL statement.
var ErrNoSQL = errors.New("no SQL in thread history")

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the history database at path.
// WAL mode and a busy timeout are set for concurrent webhook handlers.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			intent TEXT NOT NULL,
			sql_query TEXT,
			created_at INTEGER NOT NULL
		)
	`
	if _, err := s.db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create conversation_turns: %w", err)
	}

	indexSQL := `
		CREATE INDEX IF NOT EXISTS idx_conversation_turns_thread_created
		ON conversation_turns(thread_id, created_at)
	`
	if _, err := s.db.Exec(indexSQL); err != nil {
		return fmt.Errorf("failed to create history index: %w", err)
	}
	return nil
}

// Append persists one turn, truncating the bot response.
func (s *SQLiteStore) Append(ctx context.Context, threadID, userMessage, botResponse string, intent types.Intent, sqlText string) (*types.Turn, error) {
	// Truncate by runes so a multi-byte character is never split.
	truncated := botResponse
	if runes := []rune(truncated); len(runes) > MaxBotResponseLength {
		truncated = string(runes[:MaxBotResponseLength]) + "..."
	}

	now := time.Now().UTC()
	var sqlValue interface{}
	if sqlText != "" {
		sqlValue = sqlText
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (thread_id, user_message, bot_response, intent, sql_query, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, threadID, userMessage, truncated, string(intent), sqlValue, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read turn id: %w", err)
	}

	return &types.Turn{
		ID:          id,
		ThreadID:    threadID,
		UserMessage: userMessage,
		BotResponse: truncated,
		Intent:      intent,
		SQL:         sqlText,
		CreatedAt:   now,
	}, nil
}

// Recent returns the last limit turns, oldest first. The query selects
// newest-first and the slice is reversed afterwards, matching the bounded
// -window contract.
func (s *SQLiteStore) Recent(ctx context.Context, threadID string, limit int) ([]types.Turn, error) {
	return s.query(ctx, `
		SELECT id, thread_id, user_message, bot_response, intent, sql_query, created_at
		FROM conversation_turns
		WHERE thread_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, threadID, limit)
}

// RecentWithSQL returns the last limit SQL-bearing turns, oldest first.
func (s *SQLiteStore) RecentWithSQL(ctx context.Context, threadID string, limit int) ([]types.Turn, error) {
	return s.query(ctx, `
		SELECT id, thread_id, user_message, bot_response, intent, sql_query, created_at
		FROM conversation_turns
		WHERE thread_id = ? AND sql_query IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, threadID, limit)
}

func (s *SQLiteStore) query(ctx context.Context, querySQL string, args ...interface{}) ([]types.Turn, error) {
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var t types.Turn
		var intent string
		var sqlText sql.NullString
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.UserMessage, &t.BotResponse, &intent, &sqlText, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Intent = types.Intent(intent)
		t.SQL = sqlText.String
		t.CreatedAt = time.UnixMilli(createdAt).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("turn iteration error: %w", err)
	}

	// Reverse newest-first to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// MostRecentSQL returns the newest SQL statement in the thread.
func (s *SQLiteStore) MostRecentSQL(ctx context.Context, threadID string) (string, error) {
	var sqlText string
	err := s.db.QueryRowContext(ctx, `
		SELECT sql_query
		FROM conversation_turns
		WHERE thread_id = ? AND sql_query IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, threadID).Scan(&sqlText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSQL
	}
	if err != nil {
		return "", fmt.Errorf("failed to query most recent SQL: %w", err)
	}
	return sqlText, nil
}

// CleanupOlderThan deletes turns older than maxAge and returns the count.
func (s *SQLiteStore) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).UnixMilli()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_turns WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up turns: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("history cleanup", zap.Int64("deleted_turns", deleted))
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
