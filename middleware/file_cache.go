package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
)

// FileCache caches read results as files under Dir, one file per statement.
type FileCache struct {
	Dir        string
	DefaultTTL time.Duration
	Logger     logger.Logger
}

type fileCacheEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewFileCache creates dir if needed. defaultTTL defaults to 5 minutes.
func NewFileCache(dir string, defaultTTL ...time.Duration) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &FileCache{Dir: dir, DefaultTTL: ttl}, nil
}

func (m *FileCache) Name() string {
	return "FileCache"
}

func (m *FileCache) Wrap(next core.Executor) core.Executor {
	return &cachingExecutor{
		name:       m.Name(),
		next:       next,
		store:      m,
		defaultTTL: m.DefaultTTL,
		logger:     defaultLogger(m.Logger),
	}
}

func (m *FileCache) filename(key string) string {
	return filepath.Join(m.Dir, strings.TrimPrefix(key, KeyPrefix)+".json")
}

func (m *FileCache) get(_ context.Context, key string) ([]byte, bool, error) {
	filename := m.filename(key)
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(filename)
		return nil, false, err
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(filename)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (m *FileCache) set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileCacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(m.filename(key), b, 0o644)
}

func (m *FileCache) flush(context.Context) error {
	matches, err := filepath.Glob(filepath.Join(m.Dir, "*.json"))
	if err != nil {
		return err
	}
	var errs []error
	for _, f := range matches {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
