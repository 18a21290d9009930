package core

import (
	"errors"
	"strings"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_RequiresConditions(t *testing.T) {
	exec := &recordingExecutor{}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("posts").Update(map[string]any{"title": "x"})

	assert.False(t, out.Success())
	assert.Nil(t, out.ID())
	assert.Nil(t, out.Row())
	assert.ErrorIs(t, out.Err(), ErrNoConditions)
	assert.Empty(t, exec.all(), "no statement is issued")
}

func TestDelete_RequiresConditions(t *testing.T) {
	exec := &recordingExecutor{}
	db := newFakeDB(t, exec, "mysql", nil)

	_, err := db.Table("posts").Delete()
	assert.ErrorIs(t, err, ErrUnconditionalDelete)
	assert.Empty(t, exec.all())
}

func TestDeleteByID(t *testing.T) {
	exec := &recordingExecutor{
		execFn: func(string, []any) (WriteResult, error) { return WriteResult{RowsAffected: 1}, nil },
	}
	db := newFakeDB(t, exec, "postgres", nil)

	n, err := db.Table("posts").Where("status", "draft").DeleteByID(9)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, `DELETE FROM "posts" WHERE id = $1`, exec.all()[0].sql)
	assert.Equal(t, []any{9}, exec.all()[0].args)
}

func TestUpdate_MergesOverExistingRow(t *testing.T) {
	exec := &recordingExecutor{
		selectFn: func(sql string, args []any) ([]Row, error) {
			return []Row{{"id": int64(3), "title": "old", "data": `{"a":1}`, "handle": "h", "updated_at": "2020-01-01 00:00:00"}}, nil
		},
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("posts").Where("handle", "h").Update(map[string]any{
		"title": "new",
		"id":    99,
		"data":  map[string]any{"b": 2},
	})
	require.True(t, out.Success())
	assert.True(t, out.Verified())

	var update call
	for _, c := range exec.all() {
		if c.kind == "exec" {
			update = c
		}
	}
	assert.Equal(t, "UPDATE `posts` SET `data` = ?, `handle` = ?, `title` = ?, `updated_at` = ? WHERE id = ?", update.sql)
	assert.Equal(t, []any{`{"b":2}`, "h", "new", "2024-05-01 12:30:00", int64(3)}, update.args)

	calls := exec.all()
	last := calls[len(calls)-1]
	assert.Equal(t, "select", last.kind, "update reads the row back")
	assert.Equal(t, []any{int64(3)}, last.args)
}

func TestUpdate_KeepsSuppliedTimestamp(t *testing.T) {
	exec := &recordingExecutor{
		selectFn: func(string, []any) ([]Row, error) {
			return []Row{{"id": int64(3), "updated_at": "2020-01-01 00:00:00"}}, nil
		},
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("posts").WhereID(3).Update(map[string]any{"updated_at": "1999-12-31 23:59:59"})
	require.True(t, out.Success())

	for _, c := range exec.all() {
		if c.kind == "exec" {
			assert.Contains(t, c.args, "1999-12-31 23:59:59")
		}
	}
}

func TestUpdate_MissingRow(t *testing.T) {
	exec := &recordingExecutor{}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("posts").WhereID(3).Update(map[string]any{"title": "x"})
	assert.False(t, out.Success())
	assert.ErrorIs(t, out.Err(), ErrRecordNotFound)
	assert.Zero(t, exec.count("exec", ""))
}

func TestInsert_Defaults(t *testing.T) {
	exec := &recordingExecutor{
		execFn: func(string, []any) (WriteResult, error) {
			return WriteResult{RowsAffected: 1, LastInsertID: 42, HasID: true}, nil
		},
		selectFn: func(sql string, args []any) ([]Row, error) {
			return []Row{{"id": args[0], "name": "x", "data": "{}"}}, nil
		},
	}
	db := newFakeDB(t, exec, "mysql", &Options{Prefix: "wp_"})

	out := db.Table("").Insert(map[string]any{"name": "x"})
	require.True(t, out.Success())
	assert.Equal(t, int64(42), out.ID())

	calls := exec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "INSERT INTO `wp_blockbite` (data, name, updated_at) VALUES (?, ?, ?)", calls[0].sql)
	assert.Equal(t, []any{"{}", "x", "2024-05-01 12:30:00"}, calls[0].args)
	assert.Equal(t, "SELECT * FROM `wp_blockbite` WHERE id = ? LIMIT 1", calls[1].sql)
}

func TestInsert_DisableTimestamps(t *testing.T) {
	exec := &recordingExecutor{
		selectFn: func(sql string, args []any) ([]Row, error) { return []Row{{"id": args[0]}}, nil },
	}
	db := newFakeDB(t, exec, "mysql", &Options{DisableTimestamps: true, JSONColumns: []string{"meta"}})

	out := db.Table("t").Insert(map[string]any{"name": "x"})
	require.True(t, out.Success())
	assert.Equal(t, "INSERT INTO `t` (meta, name) VALUES (?, ?)", exec.all()[0].sql)
}

func TestInsert_ReturningDialect(t *testing.T) {
	exec := &recordingExecutor{
		selectFn: func(sql string, args []any) ([]Row, error) {
			if strings.HasPrefix(sql, "INSERT") {
				return []Row{{"id": int64(7)}}, nil
			}
			return []Row{{"id": int64(7), "name": "x"}}, nil
		},
	}
	db := newFakeDB(t, exec, "postgres", nil)

	out := db.Table("t").Insert(map[string]any{"name": "x"})
	require.True(t, out.Success())
	assert.Equal(t, int64(7), out.ID())

	calls := exec.all()
	assert.Equal(t, `INSERT INTO "t" (data, name, updated_at) VALUES ($1, $2, $3) RETURNING id`, calls[0].sql)
	assert.Equal(t, `SELECT * FROM "t" WHERE id = $1 LIMIT 1`, calls[1].sql)
	assert.Zero(t, exec.count("exec", ""))
}

func TestInsert_Rejected(t *testing.T) {
	dup := &driver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	exec := &recordingExecutor{
		execFn: func(string, []any) (WriteResult, error) { return WriteResult{}, dup },
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("t").Insert(map[string]any{"handle": "h"})
	assert.False(t, out.Success())
	assert.ErrorIs(t, out.Err(), ErrDuplicateKey)
	assert.True(t, errors.Is(out.Err(), dup))
	assert.Nil(t, out.JSON())
	assert.False(t, out.Verified())

	exec.execFn = func(string, []any) (WriteResult, error) { return WriteResult{RowsAffected: 1}, nil }
	out = db.Table("t").Insert(map[string]any{"handle": "h"})
	assert.ErrorIs(t, out.Err(), ErrInsertRejected)
}

func TestUpsertHandle_ExistingIssuesOneUpdateAndNoReread(t *testing.T) {
	exec := &recordingExecutor{
		selectFn: func(string, []any) ([]Row, error) {
			return []Row{{"id": int64(5), "handle": "theme", "data": `{"old":true}`, "updated_at": "2020-01-01 00:00:00"}}, nil
		},
	}
	db := newFakeDB(t, exec, "mysql", &Options{Prefix: "wp_"})

	out := db.Table("").UpsertHandle(map[string]any{"data": map[string]any{"new": true}}, "theme")
	require.True(t, out.Success())
	assert.False(t, out.Verified())
	assert.Equal(t, int64(5), out.ID())
	assert.Equal(t, map[string]any{"new": true}, out.JSON()["data"])

	calls := exec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "SELECT * FROM `wp_blockbite` WHERE handle = ? ORDER BY updated_at DESC LIMIT 1", calls[0].sql)
	assert.Equal(t, "exec", calls[1].kind)
	assert.True(t, strings.HasPrefix(calls[1].sql, "UPDATE `wp_blockbite` SET"))
	assert.Equal(t, 1, exec.count("exec", "UPDATE"))
}

func TestUpsertHandle_InsertsWithoutReread(t *testing.T) {
	exec := &recordingExecutor{
		execFn: func(string, []any) (WriteResult, error) {
			return WriteResult{RowsAffected: 1, LastInsertID: 12, HasID: true}, nil
		},
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("settings").UpsertHandle(map[string]any{"title": "t"}, "fresh")
	require.True(t, out.Success())
	assert.False(t, out.Verified())
	assert.Equal(t, Row{"title": "t", "handle": "fresh", "id": int64(12)}, out.Row())

	calls := exec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "select", calls[0].kind)
	assert.Equal(t, "INSERT INTO `settings` (data, handle, title, updated_at) VALUES (?, ?, ?, ?)", calls[1].sql)
}

func TestUpsert_PathSelection(t *testing.T) {
	var existing []Row
	exec := &recordingExecutor{
		execFn: func(string, []any) (WriteResult, error) {
			return WriteResult{RowsAffected: 1, LastInsertID: 30, HasID: true}, nil
		},
	}
	exec.selectFn = func(sql string, args []any) ([]Row, error) {
		if strings.Contains(sql, "WHERE id = ?") {
			return []Row{{"id": args[0]}}, nil
		}
		return existing, nil
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("t").Upsert(map[string]any{"title": "a"}, map[string]any{"slug": "s"})
	require.True(t, out.Success())
	assert.Equal(t, int64(30), out.ID())
	assert.Equal(t, 1, exec.count("exec", "INSERT INTO `t` (data, slug, title, updated_at)"))

	existing = []Row{{"id": int64(8), "slug": "s", "title": "old"}}
	out = db.Table("t").Upsert(map[string]any{"title": "b"}, map[string]any{"slug": "s"})
	require.True(t, out.Success())
	assert.Equal(t, int64(8), out.ID())
	assert.Equal(t, 1, exec.count("exec", "UPDATE `t`"))

	out = db.Table("t").Upsert(map[string]any{"title": "b"}, nil)
	assert.ErrorIs(t, out.Err(), ErrNoConditions)
}

func TestUpsertWhere_InsertsScalarEntries(t *testing.T) {
	exec := &recordingExecutor{}
	exec.selectFn = func(sql string, args []any) ([]Row, error) {
		if strings.Contains(sql, "WHERE id = ?") {
			return []Row{{"id": args[0]}}, nil
		}
		return nil, nil
	}
	db := newFakeDB(t, exec, "mysql", nil)

	out := db.Table("t").UpsertWhere(
		map[string]any{"title": "a"},
		map[string]any{"kind": []any{"x", "y"}, "owner": 3},
	)
	require.True(t, out.Success())

	calls := exec.all()
	assert.Equal(t, "SELECT * FROM `t` WHERE kind IN (?, ?) AND owner = ? LIMIT 1", calls[0].sql)
	assert.Equal(t, "INSERT INTO `t` (data, owner, title, updated_at) VALUES (?, ?, ?, ?)", calls[1].sql)
}

func TestOutcome_NilSafe(t *testing.T) {
	var o *Outcome
	assert.False(t, o.Success())
	assert.Nil(t, o.ID())
	assert.Nil(t, o.Row())
	assert.Nil(t, o.JSON())
	assert.NoError(t, o.Err())
	assert.False(t, o.Verified())
}
