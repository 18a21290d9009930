package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
)

// MemoryCache caches read results in process memory.
// Reads opt in with Query.Cache (or core.WithCacheTTL).
type MemoryCache struct {
	DefaultTTL time.Duration
	Logger     logger.Logger

	items     map[string]memoryCacheEntry
	mu        sync.RWMutex
	stopClean chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type memoryCacheEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

// NewMemoryCache creates a memory cache; defaultTTL (5 minutes when omitted)
// applies to Cache() without a lifetime. A zero lifetime keeps entries
// until the next write.
func NewMemoryCache(defaultTTL ...time.Duration) *MemoryCache {
	ttl := 5 * time.Minute
	if len(defaultTTL) > 0 {
		ttl = defaultTTL[0]
	}
	return &MemoryCache{
		DefaultTTL: ttl,
		items:      make(map[string]memoryCacheEntry),
		stopClean:  make(chan struct{}),
	}
}

func (m *MemoryCache) Name() string {
	return "MemoryCache"
}

func (m *MemoryCache) Wrap(next core.Executor) core.Executor {
	m.startOnce.Do(func() { go m.cleanupLoop() })
	return &cachingExecutor{
		name:       m.Name(),
		next:       next,
		store:      m,
		defaultTTL: m.DefaultTTL,
		logger:     defaultLogger(m.Logger),
	}
}

func (m *MemoryCache) Shutdown() error {
	m.stopOnce.Do(func() { close(m.stopClean) })
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryCache) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, v := range m.items {
		if !v.ExpiresAt.IsZero() && now.After(v.ExpiresAt) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCache) get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, found := m.items[key]
	m.mu.RUnlock()
	if !found {
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		// lazy delete
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (m *MemoryCache) set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	entry := memoryCacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) flush(context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryCacheEntry)
	m.mu.Unlock()
	return nil
}
