package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the token in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	key string
	mu  sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath and stores the token under key.
func NewSQLiteStore(dbPath, key string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStore, err)
	}

	if _, err := database.ExecContext(context.Background(), "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrStore, err)
	}

	if key == "" {
		key = DefaultKey
	}

	store := &SQLiteStore{db: database, key: key}
	if err := store.initialize(); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(context.Background(), Schema); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrStore, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Token returns the row stored under the key, or ErrNoToken.
func (s *SQLiteStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var token string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT token FROM session_tokens WHERE key = ?`, s.key,
	).Scan(&token)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken upserts the row stored under the key.
func (s *SQLiteStore) SaveToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO session_tokens (key, token, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		s.key, token, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// RemoveToken deletes the row stored under the key.
func (s *SQLiteStore) RemoveToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(context.Background(),
		`DELETE FROM session_tokens WHERE key = ?`, s.key,
	); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}
