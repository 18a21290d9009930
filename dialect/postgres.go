package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgreSQL dialect implementation
type postgres struct{}

func (d *postgres) Name() string {
	return "postgres"
}

func (d *postgres) Quote(name string) string {
	// PostgreSQL uses double quotes for identifiers
	return fmt.Sprintf(`"%s"`, name)
}

func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// InsertSQL appends RETURNING id; lib/pq does not implement LastInsertId.
func (d *postgres) InsertSQL(table string, columns []string) string {
	return insertSQL(d.Quote(table), columns, "", "RETURNING id")
}

func (d *postgres) InsertReturnsID() bool {
	return true
}

func (d *postgres) LimitSQL(n int, ordered bool) string {
	return limitSQL(n)
}

func (d *postgres) JSONContains(column, path, candidate string) (string, []any) {
	if path == "" || path == "$" {
		return fmt.Sprintf("(%s)::jsonb @> (?)::jsonb", column), []any{candidate}
	}
	return fmt.Sprintf("(%s)::jsonb #> (?)::text[] @> (?)::jsonb", column), []any{pgPath(path), candidate}
}

func (d *postgres) JSONExtract(column, field string) (string, []any) {
	return fmt.Sprintf("(%s)::jsonb -> ?", column), []any{field}
}

func (d *postgres) IsDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// pgPath converts a "$.a.b" JSON path into the "{a,b}" text array literal
// expected by the #> operator.
func pgPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "{}"
	}
	return "{" + strings.Join(strings.Split(path, "."), ",") + "}"
}
