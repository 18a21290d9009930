package core

import (
	"fmt"

	"github.com/block-bite/blockbite-orm/codec"
)

// ToSQL returns the SELECT statement Get would run, bound for the dialect.
func (q *Query) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	parts, err := q.selectParts()
	if err != nil {
		return "", nil, err
	}
	b := newBuilder(q.db.dialect)
	defer putBuilder(b)
	sql, args := b.BuildSelect(parts)
	return sql, args, nil
}

// Get runs the query and resolves its relations. JSON columns are returned
// as stored; see GetJSON.
func (q *Query) Get() ([]Row, error) {
	rows, err := q.getRows()
	if err != nil {
		return nil, err
	}
	if len(q.relations) > 0 {
		loader := &eagerLoader{db: q.db, ctx: q.ctx}
		if err := loader.resolve(rows, q.relations); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// getRows runs the SELECT without resolving relations.
func (q *Query) getRows() ([]Row, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	return q.db.selectRows(q.ctx, sql, args)
}

// First returns the first matching row, or nil when nothing matches.
func (q *Query) First() (Row, error) {
	rows, err := q.Limit(1).Get()
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// GetJSON is Get followed by decoding of fields (the query's JSON columns
// when none are given) in every row and every attached relation row.
func (q *Query) GetJSON(fields ...string) ([]Row, error) {
	rows, err := q.Get()
	if err != nil {
		return nil, err
	}
	materialize(rows, q.decodeFields(fields), q.relations)
	return rows, nil
}

// FirstJSON is First followed by the decoding GetJSON applies.
func (q *Query) FirstJSON(fields ...string) (Row, error) {
	row, err := q.First()
	if err != nil || row == nil {
		return nil, err
	}
	materialize([]Row{row}, q.decodeFields(fields), q.relations)
	return row, nil
}

func (q *Query) decodeFields(fields []string) []string {
	if len(fields) > 0 {
		return fields
	}
	if len(q.jsonCols) > 0 {
		return q.jsonCols
	}
	return DefaultJSONColumns
}

// Count returns the number of matching rows. Order and limit are ignored.
func (q *Query) Count() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	parts, err := q.selectParts()
	if err != nil {
		return 0, err
	}
	parts.columns = []string{"COUNT(*) AS total"}
	parts.orderBy = ""
	parts.limit = 0

	b := newBuilder(q.db.dialect)
	sql, args := b.BuildSelect(parts)
	putBuilder(b)

	rows, err := q.db.selectRows(q.ctx, sql, args)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt64(rows[0]["total"])
}

// ExtractJSON reads the top-level field of the first JSON column across all
// matching rows and merges the decoded objects into one map. Later rows
// override keys of earlier ones; values that are not JSON objects are skipped.
func (q *Query) ExtractJSON(field string) (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	parts, err := q.selectParts()
	if err != nil {
		return nil, err
	}

	expr, exprArgs := q.db.dialect.JSONExtract(q.decodeFields(nil)[0], field)
	parts.columns = []string{expr + " AS extracted"}
	parts.columnArgs = exprArgs

	b := newBuilder(q.db.dialect)
	sql, args := b.BuildSelect(parts)
	putBuilder(b)

	rows, err := q.db.selectRows(q.ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", field, err)
	}

	merged := make(map[string]any)
	for _, row := range rows {
		var raw string
		switch v := row["extracted"].(type) {
		case string:
			raw = v
		case []byte:
			raw = string(v)
		default:
			continue
		}
		decoded, ok := codec.DecodeString(raw)
		if !ok {
			continue
		}
		if obj, ok := decoded.(map[string]any); ok {
			for k, v := range obj {
				merged[k] = v
			}
		}
	}
	return merged, nil
}
