package dialect

import (
	"fmt"
	"strings"
)

// SQLite dialect implementation, shared by mattn/go-sqlite3 and modernc.org/sqlite.
type sqlite3 struct{}

func (d *sqlite3) Name() string {
	return "sqlite"
}

func (d *sqlite3) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}

func (d *sqlite3) InsertSQL(table string, columns []string) string {
	return insertSQL(d.Quote(table), columns, "", "")
}

func (d *sqlite3) InsertReturnsID() bool {
	return false
}

func (d *sqlite3) LimitSQL(n int, ordered bool) string {
	return limitSQL(n)
}

// JSONContains matches when the candidate equals an element (or member value)
// of the document at path. SQLite has no JSON_CONTAINS, so object candidates
// only match equal scalars. The CASE keeps json_each away from non-JSON text.
func (d *sqlite3) JSONContains(column, path, candidate string) (string, []any) {
	sql := fmt.Sprintf("CASE WHEN json_valid(%s) THEN EXISTS (SELECT 1 FROM json_each(%s, ?) WHERE json_each.value = json_extract(?, '$')) ELSE 0 END", column, column)
	return sql, []any{jsonPath(path), candidate}
}

func (d *sqlite3) JSONExtract(column, field string) (string, []any) {
	return fmt.Sprintf("json_extract(%s, ?)", column), []any{"$." + field}
}

// IsDuplicateKey matches on the message so both sqlite drivers are covered.
func (d *sqlite3) IsDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
