package core

import (
	"sort"
	"strings"
	"sync"

	"github.com/block-bite/blockbite-orm/dialect"
)

// selectParts is everything a SELECT statement is assembled from.
type selectParts struct {
	table      string
	columns    []string
	columnArgs []any // arguments of placeholders inside columns, bound first
	where      string
	whereArgs  []any
	orderBy    string
	limit      int
}

// sqlBuilder assembles statements from compiled parts. Conditions arrive
// with "?" placeholders; every Build method rewrites them to the dialect's
// positional form exactly once, as its last step.
type sqlBuilder struct {
	dialect dialect.Dialect
	sb      strings.Builder
}

var builderPool = sync.Pool{
	New: func() any {
		return &sqlBuilder{}
	},
}

func newBuilder(d dialect.Dialect) *sqlBuilder {
	b := builderPool.Get().(*sqlBuilder)
	b.dialect = d
	b.sb.Reset()
	return b
}

func putBuilder(b *sqlBuilder) {
	b.dialect = nil
	b.sb.Reset()
	builderPool.Put(b)
}

func (b *sqlBuilder) replacePlaceholders(sql string) string {
	if !strings.Contains(sql, "?") || b.dialect.Placeholder(1) == "?" {
		return sql
	}

	b.sb.Reset()

	index := 1
	for {
		idx := strings.Index(sql, "?")
		if idx == -1 {
			b.sb.WriteString(sql)
			break
		}

		b.sb.WriteString(sql[:idx])
		b.sb.WriteString(b.dialect.Placeholder(index))
		sql = sql[idx+1:]
		index++
	}
	return b.sb.String()
}

// BuildSelect generates the complete SELECT statement and its arguments.
func (b *sqlBuilder) BuildSelect(p selectParts) (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(p.columnArgs)+len(p.whereArgs))

	b.sb.WriteString("SELECT ")
	if len(p.columns) > 0 {
		b.sb.WriteString(strings.Join(p.columns, ", "))
		args = append(args, p.columnArgs...)
	} else {
		b.sb.WriteString("*")
	}

	b.sb.WriteString(" FROM ")
	b.sb.WriteString(b.dialect.Quote(p.table))

	if p.where != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(p.where)
		args = append(args, p.whereArgs...)
	}

	if p.orderBy != "" {
		b.sb.WriteString(" ORDER BY ")
		b.sb.WriteString(p.orderBy)
	}

	if p.limit > 0 {
		b.sb.WriteString(" ")
		b.sb.WriteString(b.dialect.LimitSQL(p.limit, p.orderBy != ""))
	}

	return b.replacePlaceholders(b.sb.String()), args
}

// BuildInsert generates the INSERT statement for data, columns in sorted order.
func (b *sqlBuilder) BuildInsert(table string, data map[string]any) (string, []any) {
	columns := sortedColumns(data)
	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = data[col]
	}
	return b.replacePlaceholders(b.dialect.InsertSQL(table, columns)), args
}

// BuildUpdate generates the UPDATE statement.
func (b *sqlBuilder) BuildUpdate(table string, data map[string]any, where string, whereArgs []any) (string, []any) {
	b.sb.Reset()

	args := make([]any, 0, len(data)+len(whereArgs))

	b.sb.WriteString("UPDATE ")
	b.sb.WriteString(b.dialect.Quote(table))
	b.sb.WriteString(" SET ")

	for i, col := range sortedColumns(data) {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.sb.WriteString(b.dialect.Quote(col))
		b.sb.WriteString(" = ?")
		args = append(args, data[col])
	}

	if where != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(where)
		args = append(args, whereArgs...)
	}

	return b.replacePlaceholders(b.sb.String()), args
}

// BuildDelete generates the DELETE statement.
func (b *sqlBuilder) BuildDelete(table, where string, whereArgs []any) (string, []any) {
	b.sb.Reset()
	args := make([]any, 0, len(whereArgs))

	b.sb.WriteString("DELETE FROM ")
	b.sb.WriteString(b.dialect.Quote(table))

	if where != "" {
		b.sb.WriteString(" WHERE ")
		b.sb.WriteString(where)
		args = append(args, whereArgs...)
	}

	return b.replacePlaceholders(b.sb.String()), args
}

// sortedColumns sorts columns to ensure deterministic SQL generation.
func sortedColumns(data map[string]any) []string {
	columns := make([]string, 0, len(data))
	for col := range data {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
