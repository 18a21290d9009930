package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/block-bite/blockbite-orm/query"
	"github.com/block-bite/blockbite-orm/validator"
)

// Query is the chainable query specification.
//
// Every fluent method returns a new *Query and leaves the receiver untouched,
// so a base query can be shared and extended safely. Terminal methods (Get,
// First, Insert, ...) never modify the query either; writes report through
// the *Outcome they return.
type Query struct {
	db        *DB
	ctx       context.Context
	table     string
	columns   []string
	conds     []query.Condition
	orderBy   string
	limit     int
	relations []Relation
	jsonCols  []string
	err       error
}

func (q *Query) clone() *Query {
	c := *q
	c.columns = append([]string(nil), q.columns...)
	c.conds = append([]query.Condition(nil), q.conds...)
	c.relations = append([]Relation(nil), q.relations...)
	c.jsonCols = append([]string(nil), q.jsonCols...)
	return &c
}

func (q *Query) withErr(err error) *Query {
	c := q.clone()
	if c.err == nil {
		c.err = err
	}
	return c
}

func (q *Query) addConds(conds ...query.Condition) *Query {
	c := q.clone()
	c.conds = append(c.conds, conds...)
	return c
}

// TableName returns the resolved (prefixed) table name.
func (q *Query) TableName() string {
	return q.table
}

// Conditions returns a copy of the accumulated conditions.
func (q *Query) Conditions() []query.Condition {
	return append([]query.Condition(nil), q.conds...)
}

// Err returns the first configuration error recorded by a fluent call.
func (q *Query) Err() error {
	return q.err
}

// Select sets the columns to retrieve. No columns means all columns.
func (q *Query) Select(columns ...string) *Query {
	c := q.clone()
	c.columns = append([]string(nil), columns...)
	return c
}

// Where adds column = value, joined with AND.
func (q *Query) Where(column string, value any) *Query {
	return q.addConds(query.Eq(column, value))
}

// OrWhere adds column = value, joined with OR.
//
// Conditions are not grouped: Where(a).OrWhere(b).Where(c) means
// a OR (b AND c), because AND binds tighter than OR.
func (q *Query) OrWhere(column string, value any) *Query {
	return q.addConds(query.Eq(column, value).Or())
}

// WhereMap adds one equality per entry, in column order, joined with AND.
// A []any value becomes an IN condition.
func (q *Query) WhereMap(m map[string]any) *Query {
	return q.addConds(query.Hash(m)...)
}

// OrWhereMap adds the entries of m like WhereMap, except that the first one
// is joined with OR.
func (q *Query) OrWhereMap(m map[string]any) *Query {
	conds := query.Hash(m)
	if len(conds) > 0 {
		conds[0] = conds[0].Or()
	}
	return q.addConds(conds...)
}

// WhereID adds id = value.
func (q *Query) WhereID(id any) *Query {
	return q.Where("id", id)
}

// WhereIn adds column IN (values...). An empty list matches nothing.
func (q *Query) WhereIn(column string, values ...any) *Query {
	return q.addConds(query.In(column, values...))
}

// OrWhereIn is WhereIn joined with OR.
func (q *Query) OrWhereIn(column string, values ...any) *Query {
	return q.addConds(query.In(column, values...).Or())
}

// WhereRaw adds a SQL fragment with "?" placeholders, joined with AND.
// Every "?" is a placeholder, even inside quotes; see query.Raw.
func (q *Query) WhereRaw(fragment string, args ...any) *Query {
	return q.addConds(query.Raw(fragment, args...))
}

// OrWhereRaw is WhereRaw joined with OR.
func (q *Query) OrWhereRaw(fragment string, args ...any) *Query {
	return q.addConds(query.Raw(fragment, args...).Or())
}

// WhereContains adds a JSON-containment check: the document in column, or
// the value at path within it, contains value.
func (q *Query) WhereContains(column string, value any, path ...string) *Query {
	return q.addConds(query.Contains(column, value, path...))
}

// WhereOp adds column <op> value for a comparison operator such as ">" or "LIKE".
func (q *Query) WhereOp(column, op string, value any) *Query {
	if !validComparator(op) {
		return q.withErr(fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, op))
	}
	return q.addConds(query.Compare(column, strings.ToUpper(strings.TrimSpace(op)), value))
}

// WhereCond adds prebuilt conditions as they are.
func (q *Query) WhereCond(conds ...query.Condition) *Query {
	return q.addConds(conds...)
}

// OrderBy sets the ORDER BY clause. direction defaults to ASC.
func (q *Query) OrderBy(column string, direction ...string) *Query {
	spec := column
	if len(direction) > 0 {
		spec += " " + direction[0]
	}
	orderBy, err := parseOrder(spec)
	if err != nil {
		return q.withErr(err)
	}
	c := q.clone()
	c.orderBy = orderBy
	return c
}

// Limit sets the maximum number of rows. n <= 0 removes the limit.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = max(n, 0)
	return c
}

// JSONColumns replaces the JSON columns for this query.
func (q *Query) JSONColumns(columns ...string) *Query {
	c := q.clone()
	c.jsonCols = append([]string(nil), columns...)
	return c
}

// WithContext sets the context for the query execution.
func (q *Query) WithContext(ctx context.Context) *Query {
	c := q.clone()
	c.ctx = ctx
	return c
}

// Cache marks reads of this query as cacheable by cache middleware. Without
// an argument the middleware's default lifetime applies.
func (q *Query) Cache(ttl ...time.Duration) *Query {
	d := CacheDefaultTTL
	if len(ttl) > 0 {
		d = ttl[0]
	}
	return q.WithContext(WithCacheTTL(q.ctx, d))
}

// With adds eager-loaded relations. Specifications are validated here, so a
// malformed relation fails at configuration time rather than on Get.
func (q *Query) With(relations ...Relation) (*Query, error) {
	c := q.clone()
	seen := make(map[string]bool, len(c.relations)+len(relations))
	for _, r := range c.relations {
		seen[r.Name] = true
	}
	for _, r := range relations {
		nr, err := r.normalize()
		if err != nil {
			return nil, err
		}
		if seen[nr.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRelation, nr.Name)
		}
		seen[nr.Name] = true
		c.relations = append(c.relations, nr)
	}
	return c, nil
}

// WithSpec parses array-shaped relation specifications and adds them. See ParseRelation.
func (q *Query) WithSpec(specs ...map[string]any) (*Query, error) {
	relations := make([]Relation, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRelation(s)
		if err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	return q.With(relations...)
}

// MustWith is like With but panics on an invalid relation.
func (q *Query) MustWith(relations ...Relation) *Query {
	c, err := q.With(relations...)
	if err != nil {
		panic(err)
	}
	return c
}

// fresh returns a query on the same table with the same context, JSON
// columns and relations, but no conditions, selection, order or limit.
func (q *Query) fresh() *Query {
	return &Query{
		db:        q.db,
		ctx:       q.ctx,
		table:     q.table,
		relations: append([]Relation(nil), q.relations...),
		jsonCols:  append([]string(nil), q.jsonCols...),
	}
}

func (q *Query) compileWhere() (string, []any, error) {
	return query.Compiler{Dialect: q.db.dialect}.Compile(q.conds)
}

func (q *Query) selectParts() (selectParts, error) {
	where, args, err := q.compileWhere()
	if err != nil {
		return selectParts{}, err
	}
	return selectParts{
		table:     q.table,
		columns:   q.columns,
		where:     where,
		whereArgs: args,
		orderBy:   q.orderBy,
		limit:     q.limit,
	}, nil
}

var comparators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "NOT LIKE": true,
}

func validComparator(op string) bool {
	return comparators[strings.ToUpper(strings.TrimSpace(op))]
}

// parseOrder validates "column [ASC|DESC]" and returns it normalized.
func parseOrder(spec string) (string, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 || len(fields) > 2 {
		return "", fmt.Errorf("%w: order %q", ErrInvalidQuery, spec)
	}
	if err := validator.Identifier.Validate(fields[0]); err != nil {
		return "", fmt.Errorf("%w: order column: %w", ErrInvalidQuery, err)
	}
	dir := "ASC"
	if len(fields) == 2 {
		dir = strings.ToUpper(fields[1])
		if dir != "ASC" && dir != "DESC" {
			return "", fmt.Errorf("%w: order direction %q", ErrInvalidQuery, fields[1])
		}
	}
	return fields[0] + " " + dir, nil
}
