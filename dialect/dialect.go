package dialect

// Dialect represents the interface for database-specific SQL generation.
// Each database (MySQL, SQLite, etc.) must implement this interface to be supported.
type Dialect interface {
	// Name returns the dialect name used in logs and traces
	Name() string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the positional placeholder for the 1-based index
	Placeholder(index int) string
	// InsertSQL generates the INSERT statement for the given table and columns, with "?" placeholders
	InsertSQL(table string, columns []string) string
	// InsertReturnsID reports whether InsertSQL yields the new id as a result row
	// instead of through the driver's LastInsertId
	InsertReturnsID() bool
	// LimitSQL renders the row-limit suffix; ordered reports whether an ORDER BY precedes it
	LimitSQL(n int, ordered bool) string
	// JSONContains renders a JSON-containment predicate; candidate is JSON-encoded
	JSONContains(column, path, candidate string) (string, []any)
	// JSONExtract renders an expression selecting a top-level field of a JSON column
	JSONExtract(column, field string) (string, []any)
	// IsDuplicateKey reports whether err is a unique-constraint violation
	IsDuplicateKey(err error) bool
}

var dialects = make(map[string]Dialect)

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

func init() {
	Register("mysql", &mysql{})
	Register("postgres", &postgres{})
	Register("sqlite3", &sqlite3{})
	// modernc.org/sqlite registers itself as "sqlite"
	Register("sqlite", &sqlite3{})
	Register("sqlserver", &sqlserver{})
}

// jsonPath returns path, or the document root when path is empty.
func jsonPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
