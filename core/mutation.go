package core

import (
	"fmt"

	"github.com/block-bite/blockbite-orm/codec"
)

// prepareWrite copies data, encodes the query's JSON columns present in it
// and stamps the timestamp column unless stamped is false or data sets it.
func (q *Query) prepareWrite(data map[string]any, explicit map[string]any) map[string]any {
	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		row[k] = v
	}
	codec.Normalize(row, q.jsonCols)
	if ts := q.db.timestampColumn(); ts != "" {
		if _, ok := explicit[ts]; !ok {
			row[ts] = q.db.now().Format(TimeLayout)
		}
	}
	return row
}

// insertRow writes data (already prepared) and returns the new id.
func (q *Query) insertRow(data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	b := newBuilder(q.db.dialect)
	sql, args := b.BuildInsert(q.table, data)
	putBuilder(b)

	if q.db.dialect.InsertReturnsID() {
		// RETURNING travels through Select; it must never be answered from cache.
		rows, err := q.db.selectRows(WithCacheTTL(q.ctx, 0), sql, args)
		if err != nil {
			if q.db.dialect.IsDuplicateKey(err) {
				err = fmt.Errorf("%w: %w", ErrDuplicateKey, err)
			}
			return nil, err
		}
		if len(rows) == 0 || rows[0].ID() == nil {
			return nil, ErrInsertRejected
		}
		return rows[0].ID(), nil
	}

	res, err := q.db.execWrite(q.ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if !res.HasID {
		return nil, ErrInsertRejected
	}
	return res.LastInsertID, nil
}

// updateByID writes data to the row with the given id.
func (q *Query) updateByID(id any, data map[string]any) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	b := newBuilder(q.db.dialect)
	sql, args := b.BuildUpdate(q.table, data, "id = ?", []any{id})
	putBuilder(b)

	_, err := q.db.execWrite(q.ctx, sql, args)
	return err
}

// reread fetches the row by id, relations included.
func (q *Query) reread(id any) *Outcome {
	row, err := q.fresh().WhereID(id).First()
	if err != nil {
		return q.failed(fmt.Errorf("read back id %v: %w", id, err))
	}
	if row == nil {
		return q.failed(fmt.Errorf("read back id %v: %w", id, ErrRecordNotFound))
	}
	return q.succeeded(row, true)
}

func (q *Query) logFailure(op string, err error) {
	q.db.logger.Warn("%s on %s failed: %v", op, q.table, err)
}

// Insert writes data as a new row. JSON columns are encoded, JSON columns
// missing from data default to "{}", and the timestamp column is stamped
// unless data sets it. On success the Outcome holds the row read back by
// its new id.
func (q *Query) Insert(data map[string]any) *Outcome {
	if q.err != nil {
		return q.failed(q.err)
	}
	row := q.prepareWrite(data, data)
	codec.Defaults(row, q.jsonCols)

	id, err := q.insertRow(row)
	if err != nil {
		q.logFailure("insert", err)
		return q.failed(err)
	}
	return q.reread(id)
}

// Update changes the first row matching the query. The stored row is the
// base and data overrides it; the id is never rewritten. Without any
// condition Update refuses to run and issues no statement.
func (q *Query) Update(data map[string]any) *Outcome {
	if q.err != nil {
		return q.failed(q.err)
	}
	if len(q.conds) == 0 {
		return q.failed(ErrNoConditions)
	}

	existing, err := q.withoutRelations().Select().First()
	if err != nil {
		q.logFailure("update", err)
		return q.failed(err)
	}
	if existing == nil {
		return q.failed(ErrRecordNotFound)
	}
	return q.updateExisting(existing, data)
}

func (q *Query) updateExisting(existing Row, data map[string]any) *Outcome {
	id := existing.ID()
	if id == nil {
		return q.failed(ErrMissingID)
	}

	merged := mergeRow(existing, data)
	if err := q.updateByID(id, q.prepareWrite(merged, data)); err != nil {
		q.logFailure("update", err)
		return q.failed(err)
	}
	return q.reread(id)
}

// mergeRow overlays data on existing and drops the id.
func mergeRow(existing Row, data map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(data))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	delete(merged, "id")
	return merged
}

func (q *Query) withoutRelations() *Query {
	c := q.clone()
	c.relations = nil
	return c
}

// Delete removes the rows matching the query and returns how many were
// removed. Without any condition it refuses with ErrUnconditionalDelete.
func (q *Query) Delete() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.conds) == 0 {
		return 0, ErrUnconditionalDelete
	}
	where, whereArgs, err := q.compileWhere()
	if err != nil {
		return 0, err
	}

	b := newBuilder(q.db.dialect)
	sql, args := b.BuildDelete(q.table, where, whereArgs)
	putBuilder(b)

	res, err := q.db.execWrite(q.ctx, sql, args)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// DeleteByID removes the row with the given id, ignoring the query's conditions.
func (q *Query) DeleteByID(id any) (int64, error) {
	return q.fresh().WhereID(id).Delete()
}

// Upsert updates the row whose columns equal unique, or inserts data merged
// with unique when there is none. Both paths read the row back.
func (q *Query) Upsert(data map[string]any, unique map[string]any) *Outcome {
	return q.upsert("upsert", data, unique, unique)
}

// UpsertWhere is Upsert with an arbitrary condition map: a []any value
// matches with IN. When nothing matches, the scalar entries of where are
// merged into the inserted row.
func (q *Query) UpsertWhere(data map[string]any, where map[string]any) *Outcome {
	scalars := make(map[string]any, len(where))
	for k, v := range where {
		if _, isList := v.([]any); !isList {
			scalars[k] = v
		}
	}
	return q.upsert("upsertWhere", data, where, scalars)
}

func (q *Query) upsert(op string, data, match, insertExtra map[string]any) *Outcome {
	if q.err != nil {
		return q.failed(q.err)
	}
	if len(match) == 0 {
		return q.failed(fmt.Errorf("%s: %w", op, ErrNoConditions))
	}

	existing, err := q.fresh().withoutRelations().WhereMap(match).First()
	if err != nil {
		q.logFailure(op, err)
		return q.failed(err)
	}
	if existing != nil {
		return q.updateExisting(existing, data)
	}

	insert := make(map[string]any, len(data)+len(insertExtra))
	for k, v := range data {
		insert[k] = v
	}
	for k, v := range insertExtra {
		insert[k] = v
	}
	return q.Insert(insert)
}

// UpsertHandle updates the most recently stamped row with the given handle,
// or inserts data with the handle when there is none.
//
// Unlike the other writes it does not read the row back: the Outcome holds
// the merged row (update) or data plus handle and new id (insert), and
// Verified reports false.
func (q *Query) UpsertHandle(data map[string]any, handle string) *Outcome {
	if q.err != nil {
		return q.failed(q.err)
	}

	lookup := q.fresh().withoutRelations().Where("handle", handle)
	if ts := q.db.timestampColumn(); ts != "" {
		lookup = lookup.OrderBy(ts, "DESC")
	} else {
		lookup = lookup.OrderBy("id", "DESC")
	}
	existing, err := lookup.First()
	if err != nil {
		q.logFailure("upsertHandle", err)
		return q.failed(err)
	}

	if existing != nil {
		id := existing.ID()
		if id == nil {
			return q.failed(ErrMissingID)
		}
		merged := q.prepareWrite(mergeRow(existing, data), data)
		if err := q.updateByID(id, merged); err != nil {
			q.logFailure("upsertHandle", err)
			return q.failed(err)
		}
		merged["id"] = id
		return q.succeeded(merged, false)
	}

	input := make(map[string]any, len(data)+2)
	for k, v := range data {
		input[k] = v
	}
	input["handle"] = handle

	row := q.prepareWrite(input, input)
	codec.Defaults(row, q.jsonCols)
	id, err := q.insertRow(row)
	if err != nil {
		q.logFailure("upsertHandle", err)
		return q.failed(err)
	}
	input["id"] = id
	return q.succeeded(input, false)
}
