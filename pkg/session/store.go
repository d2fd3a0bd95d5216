package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const (
	// DefaultKey is the storage key the token lives under.
	DefaultKey = "token"

	appDirName    = "soxmon"
	tokenFileName = "token"
	dbFileName    = "session.db"
)

// Store is the single source of truth for the current session token.
// Implementations are safe for concurrent use and perform no validation
// of the token's shape or expiry.
type Store interface {
	// Token returns the held token, or ErrNoToken.
	Token() (string, error)

	// SaveToken replaces any previously held token.
	SaveToken(token string) error

	// RemoveToken clears the token. Clearing an empty store is not an error.
	RemoveToken() error
}

// Options selects and configures a Store backend.
type Options struct {
	Backend       string
	Path          string
	Key           string
	Passphrase    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open builds the Store described by opts.
func Open(opts Options) (Store, error) {
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}

	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case "", BackendFile:
		path, err := defaultPath(opts.Path, tokenFileName)
		if err != nil {
			return nil, err
		}
		var sealer Sealer
		if opts.Passphrase != "" {
			sealer = NewSecretSealer(opts.Passphrase)
		}
		return NewFileStore(path, sealer), nil
	case BackendSQLite:
		path, err := defaultPath(opts.Path, dbFileName)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		return NewSQLiteStore(path, key)
	case BackendRedis:
		return NewRedisStore(RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Key:      key,
			TTL:      opts.TTL,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
}

// Close releases resources held by store, if it holds any.
func Close(store Store) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func defaultPath(path, fileName string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: no config directory: %w", ErrStore, err)
	}
	return filepath.Join(dir, appDirName, fileName), nil
}
