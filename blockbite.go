// Package blockbite is a fluent query builder and row mapper for tables that
// keep structured data in JSON columns.
//
//	db, err := blockbite.Open("mysql", dsn, &blockbite.Options{Prefix: "wp_"})
//	rows, err := db.Table("posts").Where("status", "draft").GetJSON()
//	out := db.Table("").UpsertHandle(map[string]any{"data": settings}, "theme")
package blockbite

import (
	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/query"
	"github.com/block-bite/blockbite-orm/validator"
)

// Re-export core types and functions
type DB = core.DB
type Query = core.Query
type Options = core.Options
type Row = core.Row
type Outcome = core.Outcome
type Relation = core.Relation
type RelationType = core.RelationType
type RelationMode = core.RelationMode
type Executor = core.Executor
type ExecutorFuncs = core.ExecutorFuncs
type WriteResult = core.WriteResult
type Middleware = core.Middleware

const (
	One          = core.One
	Many         = core.Many
	ModeRelation = core.ModeRelation
	ModeQuery    = core.ModeQuery
)

var (
	Open          = core.Open
	New           = core.New
	DecodeRows    = core.DecodeRows
	ParseRelation = core.ParseRelation
	WithCacheTTL  = core.WithCacheTTL

	// Relations
	HasOne    = core.HasOne
	HasMany   = core.HasMany
	BelongsTo = core.BelongsTo
	Load      = core.Load

	// Errors
	ErrRecordNotFound      = core.ErrRecordNotFound
	ErrInvalidQuery        = core.ErrInvalidQuery
	ErrInvalidRelation     = core.ErrInvalidRelation
	ErrNoConditions        = core.ErrNoConditions
	ErrUnconditionalDelete = core.ErrUnconditionalDelete
	ErrDuplicateKey        = core.ErrDuplicateKey
	ErrInsertRejected      = core.ErrInsertRejected
)

// Re-export condition constructors
type Condition = query.Condition

var (
	Eq       = query.Eq
	Compare  = query.Compare
	In       = query.In
	Raw      = query.Raw
	Contains = query.Contains
	Hash     = query.Hash
)

// Re-export validator types and functions
type ValidationErrors = validator.ValidationErrors
type Rules = validator.Rules
type Rule = validator.Rule

var (
	Validate   = validator.Validate
	Required   = validator.Required
	Identifier = validator.Identifier
	OneOf      = validator.In
	Each       = validator.Each
)
