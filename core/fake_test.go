package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/block-bite/blockbite-orm/logger"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind string
	sql  string
	args []any
}

// recordingExecutor records every statement and answers from callbacks.
type recordingExecutor struct {
	mu       sync.Mutex
	calls    []call
	selectFn func(sql string, args []any) ([]Row, error)
	execFn   func(sql string, args []any) (WriteResult, error)
}

func (r *recordingExecutor) Select(_ context.Context, sql string, args ...any) ([]Row, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{kind: "select", sql: sql, args: args})
	fn := r.selectFn
	r.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(sql, args)
}

func (r *recordingExecutor) Exec(_ context.Context, sql string, args ...any) (WriteResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{kind: "exec", sql: sql, args: args})
	fn := r.execFn
	r.mu.Unlock()
	if fn == nil {
		return WriteResult{RowsAffected: 1, LastInsertID: 1, HasID: true}, nil
	}
	return fn(sql, args)
}

func (r *recordingExecutor) all() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recordingExecutor) count(kind, contains string) int {
	n := 0
	for _, c := range r.all() {
		if c.kind == kind && strings.Contains(c.sql, contains) {
			n++
		}
	}
	return n
}

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newFakeDB(t *testing.T, exec Executor, dialectName string, opts *Options) *DB {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	db, err := New(exec, dialectName, opts)
	require.NoError(t, err)
	db.now = func() time.Time { return fixedNow }
	return db
}
