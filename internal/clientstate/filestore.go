package clientstate

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStore is the durable store tier: one JSON value per file under a
// state directory, written atomically via temp file and rename.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a durable store rooted at baseDir.
// If baseDir is empty, uses ~/.huddle/state/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".huddle", "state")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("client state store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

var _ Store = (*FileStore)(nil)

// path maps a logical key to a file. Keys contain ':' and user-supplied
// room names, so the key is escaped before touching the filesystem.
func (f *FileStore) path(key string) string {
	return filepath.Join(f.baseDir, url.PathEscape(key)+".json")
}

func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrMiss
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), nil
}

func (f *FileStore) Set(ctx context.Context, key string, value string) error {
	path := f.path(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	return nil
}

func (f *FileStore) Del(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Resilient wraps a store so persistence failures degrade to no-ops
// instead of propagating: a failed Get reads as a miss, failed writes are
// dropped. The first failure is logged at Warn, later ones at Debug.
func Resilient(inner Store) Store {
	return &resilientStore{inner: inner}
}

type resilientStore struct {
	inner Store
	once  sync.Once
}

func (r *resilientStore) logFailure(op, key string, err error) {
	logged := false
	r.once.Do(func() {
		log.Warn().Err(err).Str("op", op).Str("key", key).
			Msg("client state storage unavailable, degrading to no-op")
		logged = true
	})
	if !logged {
		log.Debug().Err(err).Str("op", op).Str("key", key).Msg("client state storage failure")
	}
}

func (r *resilientStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.inner.Get(ctx, key)
	if err != nil && err != ErrMiss {
		r.logFailure("get", key, err)
		return "", ErrMiss
	}
	return value, err
}

func (r *resilientStore) Set(ctx context.Context, key string, value string) error {
	if err := r.inner.Set(ctx, key, value); err != nil {
		r.logFailure("set", key, err)
	}
	return nil
}

func (r *resilientStore) Del(ctx context.Context, key string) error {
	if err := r.inner.Del(ctx, key); err != nil {
		r.logFailure("del", key, err)
	}
	return nil
}
