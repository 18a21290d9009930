package dialect

import (
	"errors"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// MySQL dialect implementation
type mysql struct{}

func (d *mysql) Name() string {
	return "mysql"
}

func (d *mysql) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}

func (d *mysql) InsertSQL(table string, columns []string) string {
	return insertSQL(d.Quote(table), columns, "", "")
}

func (d *mysql) InsertReturnsID() bool {
	return false
}

func (d *mysql) LimitSQL(n int, ordered bool) string {
	return limitSQL(n)
}

func (d *mysql) JSONContains(column, path, candidate string) (string, []any) {
	if path == "" {
		return fmt.Sprintf("JSON_CONTAINS(%s, ?)", column), []any{candidate}
	}
	return fmt.Sprintf("JSON_CONTAINS(%s, ?, ?)", column), []any{candidate, path}
}

func (d *mysql) JSONExtract(column, field string) (string, []any) {
	return fmt.Sprintf("JSON_EXTRACT(%s, ?)", column), []any{"$." + field}
}

func (d *mysql) IsDuplicateKey(err error) bool {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return false
}

func limitSQL(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

// insertSQL builds INSERT INTO table (cols) [output] VALUES (?, ...) [suffix].
func insertSQL(quotedTable string, columns []string, output, suffix string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quotedTable)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(")")
	if output != "" {
		sb.WriteString(" ")
		sb.WriteString(output)
	}
	sb.WriteString(" VALUES (")
	sb.WriteString(strings.Join(placeholders, ", "))
	sb.WriteString(")")
	if suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(suffix)
	}
	return sb.String()
}
