package core

import (
	"context"
	"time"
)

// Middleware decorates the executor of a DB. See DB.Use.
type Middleware interface {
	Name() string
	Wrap(next Executor) Executor
}

// Shutdowner is implemented by middleware holding resources released on DB.Close.
type Shutdowner interface {
	Shutdown() error
}

// CacheDefaultTTL asks cache middleware to use its own default lifetime.
const CacheDefaultTTL time.Duration = -1

type cacheTTLKey struct{}

// WithCacheTTL marks reads issued with ctx as cacheable for ttl.
// A ttl of 0 disables caching; CacheDefaultTTL defers to the middleware.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

// CacheTTL returns the cache lifetime requested on ctx.
func CacheTTL(ctx context.Context) (time.Duration, bool) {
	ttl, ok := ctx.Value(cacheTTLKey{}).(time.Duration)
	return ttl, ok
}
