package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	status TEXT,
	handle TEXT,
	data TEXT,
	updated_at TEXT
);
CREATE TABLE comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER,
	body TEXT,
	data TEXT,
	updated_at TEXT
);`

func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return path
}

// run executes bbquery against the sqlite file at path.
func run(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--driver", "sqlite", "--dsn", path))
	err := cmd.Execute()
	return buf.String(), err
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestInsertAndGet(t *testing.T) {
	path := newTestDB(t)

	out, err := run(t, path, "insert", "posts", "-d", `{"title":"hello","status":"draft","data":{"tags":["go"]}}`, "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	view := resp.Data.(map[string]any)
	assert.Equal(t, true, view["success"])
	assert.Equal(t, float64(1), view["id"])
	assert.Equal(t, true, view["verified"])

	_, err = run(t, path, "insert", "comments", "-d", `{"post_id":1,"body":"first"}`)
	require.NoError(t, err)

	out, err = run(t, path, "get", "posts", "-w", "status=draft", "--json",
		"--with", `{"name":"comments","table":"comments","type":"many","local_key":"id","foreign_key":"post_id"}`)
	require.NoError(t, err)

	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &row), out)
	assert.Equal(t, "hello", row["title"])
	assert.Equal(t, map[string]any{"tags": []any{"go"}}, row["data"])
	comments := row["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].(map[string]any)["body"])
	assert.Equal(t, map[string]any{}, comments[0].(map[string]any)["data"])
}

func TestGetDryRun(t *testing.T) {
	path := newTestDB(t)

	out, err := run(t, path, "get", "posts", "-w", "status=draft", "--or-where", "status=archived",
		"--order", "id DESC", "--limit", "2", "--dry-run")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "dry_run", []byte(out))
}

func TestGetDryRun_KeepsConditionOrder(t *testing.T) {
	path := newTestDB(t)

	out, err := run(t, path, "get", "posts", "-w", "status=draft", "--or-where", "status=archived",
		"-w", "handle=x", "--in", "kind=a,b", "--raw", "deleted_at IS NULL", "--dry-run")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "dry_run_mixed", []byte(out))
}

func TestGetCached(t *testing.T) {
	path := newTestDB(t)
	_, err := run(t, path, "insert", "posts", "-d", `{"title":"c","status":"draft"}`)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out, err := run(t, path, "get", "posts", "-w", "status=draft", "--cache")
		require.NoError(t, err)
		assert.Contains(t, out, `"title":"c"`)
	}
}

func TestUpdate(t *testing.T) {
	path := newTestDB(t)
	_, err := run(t, path, "insert", "posts", "-d", `{"title":"a","status":"draft"}`)
	require.NoError(t, err)

	out, err := run(t, path, "update", "posts", "-d", `{"status":"published"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"success":false`)
	assert.Contains(t, out, "requires at least one condition")

	out, err = run(t, path, "update", "posts", "-w", "title=a", "-d", `{"status":"published"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"published"`)
	assert.Contains(t, out, `"title":"a"`)
}

func TestUpsertHandleAndCount(t *testing.T) {
	path := newTestDB(t)

	for _, title := range []string{"one", "two"} {
		out, err := run(t, path, "upsert", "posts", "--handle", "theme", "-d", `{"title":"`+title+`"}`)
		require.NoError(t, err)
		assert.Contains(t, out, `"verified":false`)
	}

	out, err := run(t, path, "count", "posts", "-w", "handle=theme")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = run(t, path, "first", "posts", "-w", "handle=theme")
	require.NoError(t, err)
	assert.Contains(t, out, `"title":"two"`)

	_, err = run(t, path, "upsert", "posts", "--handle", "x", "--unique", `{"a":1}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUpsertUniqueAndMatch(t *testing.T) {
	path := newTestDB(t)

	_, err := run(t, path, "upsert", "posts", "--unique", `{"handle":"a"}`, "-d", `{"title":"x"}`)
	require.NoError(t, err)
	_, err = run(t, path, "upsert", "posts", "--unique", `{"handle":"a"}`, "-d", `{"title":"y"}`)
	require.NoError(t, err)
	_, err = run(t, path, "upsert", "posts", "--match", `{"handle":"b","id":[7,8]}`, "-d", `{"title":"z"}`)
	require.NoError(t, err)

	out, err := run(t, path, "get", "posts", "--order", "id", "--select", "handle,title")
	require.NoError(t, err)
	assert.Equal(t, "{\"handle\":\"a\",\"title\":\"y\"}\n{\"handle\":\"b\",\"title\":\"z\"}\n", out)
}

func TestDelete(t *testing.T) {
	path := newTestDB(t)
	for _, s := range []string{"draft", "draft", "live"} {
		_, err := run(t, path, "insert", "posts", "-d", `{"status":"`+s+`"}`)
		require.NoError(t, err)
	}

	_, err := run(t, path, "delete", "posts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := run(t, path, "delete", "posts", "-w", "status=draft")
	require.NoError(t, err)
	assert.Equal(t, "{\"deleted\":2}\n", out)

	out, err = run(t, path, "delete", "posts", "--id", "3")
	require.NoError(t, err)
	assert.Equal(t, "{\"deleted\":1}\n", out)
}

func TestFirstMissing(t *testing.T) {
	path := newTestDB(t)
	_, err := run(t, path, "first", "posts", "-w", "id=42")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInvalidInput(t *testing.T) {
	path := newTestDB(t)

	_, err := run(t, path, "get", "posts", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")

	_, err = run(t, path, "get", "posts", "-w", "nonsense")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, path, "insert", "posts", "-d", "[1,2]")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, path, "get", "posts", "--with", `{"name":"x","table":"bad table","type":"one","foreign_key":"a"}`)
	require.Error(t, err)
}

func TestDecodeObject(t *testing.T) {
	m, err := decodeObject(`{"n":3,"f":1.5,"nested":{"list":[1,"a"]}}`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m["n"])
	assert.Equal(t, 1.5, m["f"])
	assert.Equal(t, map[string]any{"list": []any{int64(1), "a"}}, m["nested"])
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", nil)))
}
