package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/block-bite/blockbite-orm/core"
)

// condKind names the flag a condition came from.
type condKind string

const (
	condWhere   condKind = "where"
	condOrWhere condKind = "or-where"
	condIn      condKind = "in"
	condRaw     condKind = "raw"
)

type condArg struct {
	kind  condKind
	value string
}

// condFlag is a repeatable flag appending to a list shared by every
// condition flag, so conditions keep their command-line order.
type condFlag struct {
	kind condKind
	list *[]condArg
}

func (c condFlag) String() string {
	var vals []string
	for _, a := range *c.list {
		if a.kind == c.kind {
			vals = append(vals, a.value)
		}
	}
	return "[" + strings.Join(vals, ",") + "]"
}

func (c condFlag) Set(v string) error {
	*c.list = append(*c.list, condArg{kind: c.kind, value: v})
	return nil
}

func (c condFlag) Type() string {
	return "stringArray"
}

// QueryFlags are the condition and shape flags shared by read and write commands.
type QueryFlags struct {
	Conds  []condArg
	Order  string
	Limit  int
	Select []string
	With   []string
	JSON   bool
	DryRun bool
	Cache  bool
}

func (f *QueryFlags) bindConditions(cmd *cobra.Command) {
	cmd.Flags().VarP(condFlag{condWhere, &f.Conds}, "where", "w", "column=value condition, ANDed (repeatable)")
	cmd.Flags().Var(condFlag{condOrWhere, &f.Conds}, "or-where", "column=value condition, ORed (repeatable)")
	cmd.Flags().Var(condFlag{condIn, &f.Conds}, "in", "column=v1,v2 membership condition (repeatable)")
	cmd.Flags().Var(condFlag{condRaw, &f.Conds}, "raw", "raw SQL condition without arguments (repeatable)")
}

func (f *QueryFlags) bindRead(cmd *cobra.Command) {
	f.bindConditions(cmd)
	cmd.Flags().StringVar(&f.Order, "order", "", `order clause, e.g. "id DESC"`)
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of rows")
	cmd.Flags().StringSliceVar(&f.Select, "select", nil, "columns to select")
	cmd.Flags().StringArrayVar(&f.With, "with", nil, `relation as JSON, e.g. '{"name":"comments","table":"comments","type":"many","local_key":"id","foreign_key":"post_id"}'`)
	cmd.Flags().BoolVar(&f.JSON, "json", false, "decode JSON columns")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "print the SELECT statement instead of running it")
	cmd.Flags().BoolVar(&f.Cache, "cache", false, "answer from the redis cache when redis_addr is configured")
}

// apply adds the flags to q. Conditions are added in command-line order:
// AND binds tighter than OR, so reordering them would change the result.
func (f *QueryFlags) apply(q *core.Query) (*core.Query, error) {
	for _, c := range f.Conds {
		if c.kind == condRaw {
			q = q.WhereRaw(c.value)
			continue
		}
		col, val, err := splitPair(c.value)
		if err != nil {
			return nil, err
		}
		switch c.kind {
		case condWhere:
			q = q.Where(col, val)
		case condOrWhere:
			q = q.OrWhere(col, val)
		case condIn:
			var values []any
			for _, v := range strings.Split(val, ",") {
				values = append(values, strings.TrimSpace(v))
			}
			q = q.WhereIn(col, values...)
		}
	}
	if f.Order != "" {
		col, dir, _ := strings.Cut(strings.TrimSpace(f.Order), " ")
		q = q.OrderBy(col, strings.TrimSpace(dir))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if len(f.Select) > 0 {
		q = q.Select(f.Select...)
	}
	if f.Cache {
		q = q.Cache()
	}
	for _, w := range f.With {
		spec, err := decodeObject(w)
		if err != nil {
			return nil, fmt.Errorf("--with: %w", err)
		}
		if q, err = q.WithSpec(spec); err != nil {
			return nil, err
		}
	}
	return q, q.Err()
}

func splitPair(p string) (string, string, error) {
	col, val, ok := strings.Cut(p, "=")
	if !ok || strings.TrimSpace(col) == "" {
		return "", "", fmt.Errorf("expected column=value, got %q", p)
	}
	return strings.TrimSpace(col), val, nil
}

// decodeObject parses a JSON object. Integral numbers become int64.
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	for k, v := range m {
		m[k] = numbers(v)
	}
	return m, nil
}

func numbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		for k, inner := range val {
			val[k] = numbers(inner)
		}
	case []any:
		for i, inner := range val {
			val[i] = numbers(inner)
		}
	}
	return v
}

// runQuery opens the database, builds the query for table and hands it to fn.
func runQuery(cmd *cobra.Command, opts *RootOptions, table string, flags *QueryFlags, fn func(q *core.Query, out *OutputFormatter) error) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	q, err := flags.apply(db.Table(table))
	if err != nil {
		return WrapExitError(ExitCommandError, "query", err)
	}

	if flags.DryRun {
		sql, args, err := q.ToSQL()
		if err != nil {
			return WrapExitError(ExitCommandError, "query", err)
		}
		return out.Success(fmt.Sprintf("%s\nargs: %v", sql, args))
	}
	return fn(q, out)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &QueryFlags{}
	cmd := &cobra.Command{
		Use:   "get <table>",
		Short: "List matching rows",
		Long: `List the rows of <table> matching the conditions.

Example:
  bbquery get posts -w status=draft --or-where status=archived --order "id DESC" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, args[0], flags, func(q *core.Query, out *OutputFormatter) error {
				var rows []core.Row
				var err error
				if flags.JSON {
					rows, err = q.GetJSON()
				} else {
					rows, err = q.Get()
				}
				if err != nil {
					return err
				}
				if rows == nil {
					rows = []core.Row{}
				}
				return out.Success(rows)
			})
		},
	}
	flags.bindRead(cmd)
	return cmd
}

// NewFirstCommand creates the first command.
func NewFirstCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &QueryFlags{}
	cmd := &cobra.Command{
		Use:   "first <table>",
		Short: "Show the first matching row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, args[0], flags, func(q *core.Query, out *OutputFormatter) error {
				var row core.Row
				var err error
				if flags.JSON {
					row, err = q.FirstJSON()
				} else {
					row, err = q.First()
				}
				if err != nil {
					return err
				}
				if row == nil {
					return WrapExitError(ExitFailure, "first", core.ErrRecordNotFound)
				}
				return out.Success(row)
			})
		},
	}
	flags.bindRead(cmd)
	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &QueryFlags{}
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count matching rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, args[0], flags, func(q *core.Query, out *OutputFormatter) error {
				n, err := q.Count()
				if err != nil {
					return err
				}
				return out.Success(n)
			})
		},
	}
	flags.bindConditions(cmd)
	return cmd
}
