package core

import (
	"errors"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidQuery is returned when a fluent call received an argument that cannot be compiled.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidRelation is returned when a relation specification is malformed.
	ErrInvalidRelation = errors.New("invalid relation")
	// ErrDuplicateRelation is returned when two relations on one query share a name.
	ErrDuplicateRelation = errors.New("duplicate relation name")
	// ErrNoConditions is returned when an update is attempted without any WHERE condition.
	ErrNoConditions = errors.New("update requires at least one condition")
	// ErrUnconditionalDelete is returned when a delete is attempted without any WHERE condition.
	ErrUnconditionalDelete = errors.New("delete requires at least one condition")
	// ErrUnknownDialect is returned when no dialect is registered for a driver name.
	ErrUnknownDialect = errors.New("unknown dialect")
	// ErrInsertRejected is returned when the store accepted an insert but reported no identifier.
	ErrInsertRejected = errors.New("insert rejected")
	// ErrDuplicateKey is returned when a database unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrMissingID is returned when a row that must be addressed by id has none.
	ErrMissingID = errors.New("row has no id")
	// ErrEmptyData is returned when a write has no columns.
	ErrEmptyData = errors.New("no columns to write")
)
