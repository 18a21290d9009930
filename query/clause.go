package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrPlaceholderMismatch is returned when a raw fragment's "?" count differs from its argument count.
	ErrPlaceholderMismatch = errors.New("placeholder count does not match argument count")
	// ErrEmptyColumn is returned when a non-raw condition has no column.
	ErrEmptyColumn = errors.New("condition column is empty")
)

// Operator tags the shape of a condition.
type Operator int

const (
	OpEq Operator = iota
	OpIn
	OpRaw
	OpContains
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "EQ"
	case OpIn:
		return "IN"
	case OpRaw:
		return "RAW"
	case OpContains:
		return "CONTAINS"
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Connector joins a condition to the one before it.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Condition is a single entry of a WHERE clause.
//
// Conditions are compiled in insertion order without grouping, so the target
// database's precedence (AND binds tighter than OR) decides the meaning of a
// mixed list: Eq("a",1), Eq("b",2).Or(), Eq("c",3) reads as a = ? OR (b = ? AND c = ?).
type Condition struct {
	Column     string    // column name, or the SQL fragment for OpRaw
	Op         Operator  // shape of the condition
	Comparator string    // comparison operator for OpEq, "=" when empty
	Value      any       // single value (OpEq, OpContains)
	Args       []any     // IN values or raw fragment arguments
	Path       string    // optional JSON path for OpContains
	Connector  Connector // ignored for the first condition
}

// Eq creates a column = value condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Comparator: "=", Value: value, Connector: And}
}

// Compare creates a column <comparator> value condition, e.g. Compare("age", ">", 18).
func Compare(column, comparator string, value any) Condition {
	return Condition{Column: column, Op: OpEq, Comparator: comparator, Value: value, Connector: And}
}

// In creates a column IN (...) condition.
func In(column string, values ...any) Condition {
	return Condition{Column: column, Op: OpIn, Args: values, Connector: And}
}

// Raw creates a condition from a SQL fragment with "?" placeholders.
//
// Every "?" in fragment counts as a placeholder, including one inside a
// quoted literal, and dialects with numbered placeholders rewrite each of
// them. Pass literals containing "?" as arguments; operators spelled "?"
// (the postgres jsonb key test) are not usable, write jsonb_exists instead.
func Raw(fragment string, args ...any) Condition {
	return Condition{Column: fragment, Op: OpRaw, Args: args, Connector: And}
}

// Contains creates a JSON-containment condition: the JSON document stored in
// column (optionally at path, e.g. "$.tags") contains value.
func Contains(column string, value any, path ...string) Condition {
	c := Condition{Column: column, Op: OpContains, Value: value, Connector: And}
	if len(path) > 0 {
		c.Path = path[0]
	}
	return c
}

// Or returns a copy of c joined with OR.
func (c Condition) Or() Condition {
	c.Connector = Or
	return c
}

// Hash expands a column/value map into equality conditions ordered by column
// name. An []any value becomes an IN condition.
func Hash(m map[string]any) []Condition {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		if values, ok := m[k].([]any); ok {
			conds = append(conds, In(k, values...))
			continue
		}
		conds = append(conds, Eq(k, m[k]))
	}
	return conds
}

// JSONDialect renders JSON-containment predicates. candidate is the
// JSON-encoded value; the returned args must line up with the fragment's
// "?" placeholders.
type JSONDialect interface {
	JSONContains(column, path, candidate string) (string, []any)
}

// Compiler turns conditions into a WHERE fragment and its parameters.
type Compiler struct {
	Dialect JSONDialect
}

// Compile compiles conds with the default compiler.
func Compile(conds []Condition) (string, []any, error) {
	return Compiler{}.Compile(conds)
}

// Compile returns the space-joined fragment for conds and the positional
// parameters in the same left-to-right order. An empty list yields "".
func (c Compiler) Compile(conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	params := make([]any, 0, len(conds))

	for i, cond := range conds {
		fragment, args, err := c.compileOne(cond)
		if err != nil {
			return "", nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if i > 0 {
			connector := cond.Connector
			if connector == "" {
				connector = And
			}
			sb.WriteString(" ")
			sb.WriteString(string(connector))
			sb.WriteString(" ")
		}
		sb.WriteString(fragment)
		params = append(params, args...)
	}

	return sb.String(), params, nil
}

func (c Compiler) compileOne(cond Condition) (string, []any, error) {
	if cond.Column == "" {
		return "", nil, ErrEmptyColumn
	}

	switch cond.Op {
	case OpRaw:
		if n := strings.Count(cond.Column, "?"); n != len(cond.Args) {
			return "", nil, fmt.Errorf("%w: %q has %d, got %d args", ErrPlaceholderMismatch, cond.Column, n, len(cond.Args))
		}
		return cond.Column, cond.Args, nil

	case OpIn:
		if len(cond.Args) == 0 {
			// IN () is a syntax error; an empty set matches nothing.
			return "1 = 0", nil, nil
		}
		placeholders := make([]string, len(cond.Args))
		for i := range placeholders {
			placeholders[i] = "?"
		}
		return cond.Column + " IN (" + strings.Join(placeholders, ", ") + ")", cond.Args, nil

	case OpContains:
		candidate, err := json.Marshal(cond.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encode containment value for %s: %w", cond.Column, err)
		}
		if c.Dialect != nil {
			fragment, args := c.Dialect.JSONContains(cond.Column, cond.Path, string(candidate))
			return fragment, args, nil
		}
		if cond.Path != "" {
			return "JSON_CONTAINS(" + cond.Column + ", ?, ?)", []any{string(candidate), cond.Path}, nil
		}
		return "JSON_CONTAINS(" + cond.Column + ", ?)", []any{string(candidate)}, nil

	default:
		comparator := cond.Comparator
		if comparator == "" {
			comparator = "="
		}
		return cond.Column + " " + comparator + " ?", []any{cond.Value}, nil
	}
}
