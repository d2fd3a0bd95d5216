package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// FileStore keeps the token in a single file so it survives process restarts.
// Deleting the file (or its directory) ends the session.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	sealer Sealer
}

// NewFileStore returns a store backed by path. A nil sealer stores the token in clear.
func NewFileStore(path string, sealer Sealer) *FileStore {
	return &FileStore{path: path, sealer: sealer}
}

// Path returns the token file location.
func (f *FileStore) Path() string {
	return f.path
}

// Token reads the token file. A missing or empty file means ErrNoToken.
func (f *FileStore) Token() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read token file: %w", ErrStore, err)
	}

	if f.sealer != nil && len(data) > 0 {
		if data, err = f.sealer.Open(data); err != nil {
			return "", err
		}
	}

	token := string(bytes.TrimSpace(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SaveToken writes the token to a temp file and renames it into place.
func (f *FileStore) SaveToken(token string) error {
	data := []byte(token)
	if f.sealer != nil {
		sealed, err := f.sealer.Seal(data)
		if err != nil {
			return err
		}
		data = sealed
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: failed to create token directory: %w", ErrStore, err)
	}

	// Write-then-rename so a reader never sees a half written token.
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %w", ErrStore, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to write token: %w", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: failed to replace token file: %w", ErrStore, err)
	}
	return nil
}

// RemoveToken deletes the token file. A missing file is not an error.
func (f *FileStore) RemoveToken() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to remove token file: %w", ErrStore, err)
	}
	return nil
}
