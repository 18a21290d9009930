package core

// Outcome is the result of a write. A failed write is not returned as an
// error: it yields an Outcome whose Success is false, and Err says why.
type Outcome struct {
	row       Row
	err       error
	verified  bool
	jsonCols  []string
	relations []Relation
}

func (q *Query) failed(err error) *Outcome {
	return &Outcome{err: err, jsonCols: q.jsonCols, relations: q.relations}
}

func (q *Query) succeeded(row Row, verified bool) *Outcome {
	return &Outcome{row: row, verified: verified, jsonCols: q.jsonCols, relations: q.relations}
}

// Success reports whether the write produced a row.
func (o *Outcome) Success() bool {
	return o != nil && o.row != nil
}

// ID returns the id of the written row, or nil on failure.
func (o *Outcome) ID() any {
	if !o.Success() {
		return nil
	}
	return o.row.ID()
}

// Row returns the written row as stored, or nil on failure.
func (o *Outcome) Row() Row {
	if o == nil {
		return nil
	}
	return o.row
}

// JSON returns a copy of the written row with fields (the query's JSON
// columns when none are given) decoded, including in attached relation rows.
func (o *Outcome) JSON(fields ...string) Row {
	if !o.Success() {
		return nil
	}
	cols := fields
	if len(cols) == 0 {
		cols = o.jsonCols
	}
	row := o.row.Clone()
	materialize([]Row{row}, cols, o.relations)
	return row
}

// Err returns why the write failed. It is nil on success.
func (o *Outcome) Err() error {
	if o == nil {
		return nil
	}
	return o.err
}

// Verified reports whether Row was read back from the store after the
// write. UpsertHandle builds its row from the written values instead.
func (o *Outcome) Verified() bool {
	return o.Success() && o.verified
}
