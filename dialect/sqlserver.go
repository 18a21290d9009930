package dialect

import (
	"fmt"
	"strings"
)

type sqlserver struct{}

func (d *sqlserver) Name() string {
	return "sqlserver"
}

func (d *sqlserver) Quote(name string) string {
	return fmt.Sprintf("[%s]", name)
}

func (d *sqlserver) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

func (d *sqlserver) InsertSQL(table string, columns []string) string {
	return insertSQL(d.Quote(table), columns, "OUTPUT INSERTED.id", "")
}

func (d *sqlserver) InsertReturnsID() bool {
	return true
}

// LimitSQL uses OFFSET/FETCH, which requires an ORDER BY.
func (d *sqlserver) LimitSQL(n int, ordered bool) string {
	fetch := fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
	if ordered {
		return fetch
	}
	return "ORDER BY (SELECT NULL) " + fetch
}

func (d *sqlserver) JSONContains(column, path, candidate string) (string, []any) {
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM OPENJSON(%s, ?) WHERE [value] = JSON_VALUE(CONCAT('[', ?, ']'), '$[0]'))", column)
	return sql, []any{jsonPath(path), candidate}
}

func (d *sqlserver) JSONExtract(column, field string) (string, []any) {
	return fmt.Sprintf("JSON_QUERY(%s, ?)", column), []any{"$." + field}
}

// IsDuplicateKey covers errors 2627 and 2601, both reported as "duplicate key".
func (d *sqlserver) IsDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate key")
}
