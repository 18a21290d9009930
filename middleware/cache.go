// Package middleware provides executor decorators for core.DB.Use: result
// caching (memory, file, redis), slow query logging, a circuit breaker and
// OpenTelemetry tracing.
package middleware

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "blockbite:cache:"

// cacheStore is the storage behind a cache middleware. A zero ttl means the
// entry never expires.
type cacheStore interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	flush(ctx context.Context) error
}

// cachingExecutor answers reads marked with core.WithCacheTTL from store and
// flushes the store after every successful write, including writes that
// return rows through Select.
type cachingExecutor struct {
	name       string
	next       core.Executor
	store      cacheStore
	defaultTTL time.Duration
	logger     logger.Logger
}

func (e *cachingExecutor) Select(ctx context.Context, query string, args ...any) ([]core.Row, error) {
	if DetectOperation(query) != "SELECT" {
		// INSERT ... RETURNING and the like write through Select.
		rows, err := e.next.Select(ctx, query, args...)
		if err == nil {
			e.invalidate(ctx)
		}
		return rows, err
	}

	ttl, ok := resolveTTL(ctx, e.defaultTTL)
	if !ok {
		return e.next.Select(ctx, query, args...)
	}

	key := cacheKey(query, args)
	data, hit, err := e.store.get(ctx, key)
	if err != nil {
		e.logger.Warn("%s get failed: %v", e.name, err)
	}
	if hit {
		rows, err := decodeRows(data)
		if err == nil {
			return rows, nil
		}
		e.logger.Warn("%s entry %s unreadable: %v", e.name, key, err)
	}

	rows, err := e.next.Select(ctx, query, args...)
	if err != nil {
		return rows, err
	}

	data, err = json.Marshal(rows)
	if err != nil {
		e.logger.Warn("%s encode failed: %v", e.name, err)
		return rows, nil
	}
	if err := e.store.set(ctx, key, data, ttl); err != nil {
		e.logger.Warn("%s set failed: %v", e.name, err)
	}
	return rows, nil
}

func (e *cachingExecutor) Exec(ctx context.Context, query string, args ...any) (core.WriteResult, error) {
	res, err := e.next.Exec(ctx, query, args...)
	if err != nil {
		return res, err
	}
	e.invalidate(ctx)
	return res, nil
}

func (e *cachingExecutor) invalidate(ctx context.Context) {
	if err := e.store.flush(ctx); err != nil {
		e.logger.Warn("%s flush failed: %v", e.name, err)
	}
}

// resolveTTL reads the lifetime requested on ctx. ok is false when the read
// should bypass the cache.
func resolveTTL(ctx context.Context, defaultTTL time.Duration) (time.Duration, bool) {
	ttl, ok := core.CacheTTL(ctx)
	switch {
	case !ok || ttl == 0:
		return 0, false
	case ttl == core.CacheDefaultTTL:
		return max(defaultTTL, 0), true
	case ttl < 0:
		return 0, false
	}
	return ttl, true
}

func cacheKey(query string, args []any) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%v", query, args)))
	return KeyPrefix + hex.EncodeToString(sum[:])
}

// decodeRows restores rows cached as JSON. Numbers come back as int64 when
// they are integral and float64 otherwise.
func decodeRows(data []byte) ([]core.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	rows := make([]core.Row, len(raw))
	for i, r := range raw {
		for k, v := range r {
			r[k] = restoreNumbers(v)
		}
		rows[i] = r
	}
	return rows, nil
}

func restoreNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if !strings.ContainsAny(val.String(), ".eE") {
			if n, err := val.Int64(); err == nil {
				return n
			}
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, inner := range val {
			val[k] = restoreNumbers(inner)
		}
	case []any:
		for i, inner := range val {
			val[i] = restoreNumbers(inner)
		}
	}
	return v
}

func defaultLogger(l logger.Logger) logger.Logger {
	if l != nil {
		return l
	}
	l = logger.NewStdLogger()
	l.SetLevel(logger.LogLevelWarn)
	return l
}
