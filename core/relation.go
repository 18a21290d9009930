package core

import (
	"fmt"
	"strings"

	"github.com/block-bite/blockbite-orm/query"
	"github.com/block-bite/blockbite-orm/validator"
)

// RelationType fixes the shape attached under a relation's name.
type RelationType string

const (
	// One attaches a single Row, or nil when nothing matches.
	One RelationType = "one"
	// Many attaches a []Row, empty when nothing matches.
	Many RelationType = "many"
)

// RelationMode selects how a relation is resolved.
type RelationMode string

const (
	// ModeRelation batches one IN lookup on ForeignKey with the LocalKey
	// values of every base row.
	ModeRelation RelationMode = "relation"
	// ModeQuery runs one independent filtered query and attaches the same
	// result to every base row.
	ModeQuery RelationMode = "query"
)

// Relation describes rows to eager-load alongside a query's result.
type Relation struct {
	Name    string
	Table   string
	Type    RelationType
	Mode    RelationMode
	Columns []string

	// LocalKey is the base-row column, ForeignKey the related-row column.
	LocalKey   string
	ForeignKey string

	// Where filters the related table. In relation mode it is ANDed after
	// the key lookup.
	Where   []query.Condition
	OrderBy string
}

// HasOne relates one row of table whose foreignKey equals the base row's
// localKey ("id" when omitted).
func HasOne(name, table, foreignKey string, localKey ...string) Relation {
	return Relation{Name: name, Table: table, Type: One, Mode: ModeRelation, ForeignKey: foreignKey, LocalKey: firstOr(localKey, "id")}
}

// HasMany relates every row of table whose foreignKey equals the base row's
// localKey ("id" when omitted).
func HasMany(name, table, foreignKey string, localKey ...string) Relation {
	return Relation{Name: name, Table: table, Type: Many, Mode: ModeRelation, ForeignKey: foreignKey, LocalKey: firstOr(localKey, "id")}
}

// BelongsTo relates the row of table whose ownerKey ("id" when omitted)
// equals the base row's localKey.
func BelongsTo(name, table, localKey string, ownerKey ...string) Relation {
	return Relation{Name: name, Table: table, Type: One, Mode: ModeRelation, LocalKey: localKey, ForeignKey: firstOr(ownerKey, "id")}
}

// Load relates the rows of table matching where, independent of the base rows.
func Load(name, table string, typ RelationType, where ...query.Condition) Relation {
	return Relation{Name: name, Table: table, Type: typ, Mode: ModeQuery, Where: where}
}

// Select restricts the related columns.
func (r Relation) Select(columns ...string) Relation {
	r.Columns = columns
	return r
}

// Order sets the related rows' order, e.g. "updated_at DESC". It decides
// which row a One relation attaches when several match.
func (r Relation) Order(orderBy string) Relation {
	r.OrderBy = orderBy
	return r
}

// Filter appends conditions to the related query.
func (r Relation) Filter(conds ...query.Condition) Relation {
	r.Where = append(append([]query.Condition(nil), r.Where...), conds...)
	return r
}

func firstOr(values []string, def string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return def
}

var relationRules = validator.Rules{
	"Name":    {validator.Required, validator.Identifier.Optional()},
	"Table":   {validator.Required, validator.Identifier.Optional()},
	"Type":    {validator.In(One, Many)},
	"Mode":    {validator.In(ModeRelation, ModeQuery)},
	"Columns": {validator.Each(validator.Identifier).Optional()},
}

var relationKeyRules = validator.Rules{
	"LocalKey":   {validator.Required, validator.Identifier.Optional()},
	"ForeignKey": {validator.Required, validator.Identifier.Optional()},
}

// normalize fills defaults and validates r.
func (r Relation) normalize() (Relation, error) {
	if r.Mode == "" {
		r.Mode = ModeRelation
	}
	if len(r.Columns) == 1 && r.Columns[0] == "*" {
		r.Columns = nil
	}

	if err := relationRules.Validate(r); err != nil {
		return r, fmt.Errorf("%w %q: %w", ErrInvalidRelation, r.Name, err)
	}
	if r.Mode == ModeRelation {
		if err := relationKeyRules.Validate(r); err != nil {
			return r, fmt.Errorf("%w %q: %w", ErrInvalidRelation, r.Name, err)
		}
	}
	if r.OrderBy != "" {
		orderBy, err := parseOrder(r.OrderBy)
		if err != nil {
			return r, fmt.Errorf("%w %q: %w", ErrInvalidRelation, r.Name, err)
		}
		r.OrderBy = orderBy
	}
	return r, nil
}

// selectColumns returns the related columns to fetch. A restricted list in
// relation mode always carries the foreign key, which the index is built on.
func (r Relation) selectColumns() []string {
	if len(r.Columns) == 0 {
		return nil
	}
	cols := append([]string(nil), r.Columns...)
	if r.Mode == ModeRelation {
		for _, c := range cols {
			if c == r.ForeignKey {
				return cols
			}
		}
		cols = append(cols, r.ForeignKey)
	}
	return cols
}

// ParseRelation builds a Relation from its array-shaped form:
//
//	{"name": "author", "table": "users", "type": "one",
//	 "local_key": "user_id", "foreign_key": "id", "columns": []string{"id", "name"}}
//	{"name": "featured", "table": "posts", "type": "many", "mode": "query",
//	 "where": []any{[]any{"tags", "JSON_CONTAINS", "featured"}, []any{"id", "IN", []any{1, 2}}}}
//
// "where" may also be a column/value map. The result is validated.
func ParseRelation(spec map[string]any) (Relation, error) {
	var r Relation
	var err error

	if r.Name, err = stringKey(spec, "name"); err != nil {
		return r, err
	}
	if r.Table, err = stringKey(spec, "table"); err != nil {
		return r, err
	}
	typ, err := stringKey(spec, "type")
	if err != nil {
		return r, err
	}
	r.Type = RelationType(strings.ToLower(typ))
	mode, err := stringKey(spec, "mode")
	if err != nil {
		return r, err
	}
	r.Mode = RelationMode(strings.ToLower(mode))
	if r.LocalKey, err = stringKey(spec, "local_key"); err != nil {
		return r, err
	}
	if r.ForeignKey, err = stringKey(spec, "foreign_key"); err != nil {
		return r, err
	}
	if r.OrderBy, err = stringKey(spec, "order_by"); err != nil {
		return r, err
	}

	switch cols := spec["columns"].(type) {
	case nil:
	case string:
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				r.Columns = append(r.Columns, c)
			}
		}
	case []string:
		r.Columns = cols
	case []any:
		for _, c := range cols {
			s, ok := c.(string)
			if !ok {
				return r, fmt.Errorf("%w %q: column %v is not a string", ErrInvalidRelation, r.Name, c)
			}
			r.Columns = append(r.Columns, s)
		}
	default:
		return r, fmt.Errorf("%w %q: columns has type %T", ErrInvalidRelation, r.Name, cols)
	}

	if r.Where, err = parseWhere(spec["where"]); err != nil {
		return r, fmt.Errorf("%w %q: %w", ErrInvalidRelation, r.Name, err)
	}

	return r.normalize()
}

func stringKey(spec map[string]any, key string) (string, error) {
	v, ok := spec[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s has type %T", ErrInvalidRelation, key, v)
	}
	return s, nil
}

// parseWhere accepts a column/value map or a list of
// [column, operator, value(, path)] triples.
func parseWhere(where any) ([]query.Condition, error) {
	switch w := where.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return query.Hash(w), nil
	case []any:
		conds := make([]query.Condition, 0, len(w))
		for i, item := range w {
			triple, ok := item.([]any)
			if !ok || len(triple) < 3 {
				return nil, fmt.Errorf("where[%d]: want [column, operator, value]", i)
			}
			cond, err := parseTriple(triple)
			if err != nil {
				return nil, fmt.Errorf("where[%d]: %w", i, err)
			}
			conds = append(conds, cond)
		}
		return conds, nil
	}
	return nil, fmt.Errorf("where has type %T", where)
}

func parseTriple(triple []any) (query.Condition, error) {
	column, ok := triple[0].(string)
	if !ok || column == "" {
		return query.Condition{}, fmt.Errorf("column %v is not a string", triple[0])
	}
	op, ok := triple[1].(string)
	if !ok {
		return query.Condition{}, fmt.Errorf("operator %v is not a string", triple[1])
	}
	value := triple[2]

	switch strings.ToUpper(strings.TrimSpace(op)) {
	case "IN":
		values, ok := value.([]any)
		if !ok {
			return query.Condition{}, fmt.Errorf("IN on %s needs a list, got %T", column, value)
		}
		return query.In(column, values...), nil
	case "JSON_CONTAINS", "CONTAINS":
		var path []string
		if len(triple) > 3 {
			if p, ok := triple[3].(string); ok {
				path = append(path, p)
			}
		}
		return query.Contains(column, value, path...), nil
	default:
		if !validComparator(op) {
			return query.Condition{}, fmt.Errorf("unsupported operator %q", op)
		}
		return query.Compare(column, strings.ToUpper(strings.TrimSpace(op)), value), nil
	}
}
