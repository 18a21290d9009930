package core

import (
	"context"
	"fmt"

	"github.com/block-bite/blockbite-orm/pool"
)

// WriteResult is what the store reports for an INSERT, UPDATE or DELETE.
type WriteResult struct {
	RowsAffected int64
	LastInsertID int64
	// HasID is false when the driver cannot report LastInsertID.
	HasID bool
}

// Executor runs fully bound statements against the backing store. SQL passed
// in already uses the dialect's placeholder style.
type Executor interface {
	Select(ctx context.Context, query string, args ...any) ([]Row, error)
	Exec(ctx context.Context, query string, args ...any) (WriteResult, error)
}

// ExecutorFuncs adapts a pair of functions to Executor. A nil function
// returns an error when called.
type ExecutorFuncs struct {
	SelectFunc func(ctx context.Context, query string, args ...any) ([]Row, error)
	ExecFunc   func(ctx context.Context, query string, args ...any) (WriteResult, error)
}

func (f ExecutorFuncs) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	if f.SelectFunc == nil {
		return nil, fmt.Errorf("%w: select not supported", ErrInvalidQuery)
	}
	return f.SelectFunc(ctx, query, args...)
}

func (f ExecutorFuncs) Exec(ctx context.Context, query string, args ...any) (WriteResult, error) {
	if f.ExecFunc == nil {
		return WriteResult{}, fmt.Errorf("%w: exec not supported", ErrInvalidQuery)
	}
	return f.ExecFunc(ctx, query, args...)
}

// SQLExecutor is the Executor backed by a database/sql pool.
type SQLExecutor struct {
	pool pool.Pool
}

// NewSQLExecutor creates an executor over p.
func NewSQLExecutor(p pool.Pool) *SQLExecutor {
	return &SQLExecutor{pool: p}
}

// Select runs query and scans every row into a Row. []byte values become
// strings so JSON columns decode the same on every driver.
func (e *SQLExecutor) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := e.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec runs a write statement.
func (e *SQLExecutor) Exec(ctx context.Context, query string, args ...any) (WriteResult, error) {
	res, err := e.pool.ExecContext(ctx, query, args...)
	if err != nil {
		return WriteResult{}, err
	}

	var wr WriteResult
	if n, err := res.RowsAffected(); err == nil {
		wr.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		wr.LastInsertID = id
		wr.HasID = true
	}
	return wr, nil
}
