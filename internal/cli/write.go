package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/block-bite/blockbite-orm/core"
)

// WriteFlags holds flags for insert, update and upsert.
type WriteFlags struct {
	QueryFlags
	Data   string
	Unique string
	Match  string
	Handle string
	JSON   bool
}

func (f *WriteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Data, "data", "d", "{}", "row data as a JSON object")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "decode JSON columns of the written row")
}

// printOutcome reports o and turns a failed write into ExitFailure.
func printOutcome(out *OutputFormatter, o *core.Outcome, decode bool) error {
	if err := out.Success(viewOutcome(o, decode)); err != nil {
		return err
	}
	if !o.Success() {
		return WrapExitError(ExitFailure, "write failed", o.Err())
	}
	return nil
}

func writeCommand(rootOpts *RootOptions, flags *WriteFlags, write func(q *core.Query, data map[string]any) (*core.Outcome, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		data, err := decodeObject(flags.Data)
		if err != nil {
			return WrapExitError(ExitCommandError, "--data", err)
		}
		return runQuery(cmd, rootOpts, args[0], &flags.QueryFlags, func(q *core.Query, out *OutputFormatter) error {
			o, err := write(q, data)
			if err != nil {
				return WrapExitError(ExitCommandError, cmd.Name(), err)
			}
			return printOutcome(out, o, flags.JSON)
		})
	}
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &WriteFlags{}
	cmd := &cobra.Command{
		Use:   "insert <table>",
		Short: "Insert a row",
		Long: `Insert a row and print it as read back.

Example:
  bbquery insert posts -d '{"title":"hello","data":{"tags":["go"]}}'`,
		Args: cobra.ExactArgs(1),
		RunE: writeCommand(rootOpts, flags, func(q *core.Query, data map[string]any) (*core.Outcome, error) {
			return q.Insert(data), nil
		}),
	}
	flags.bind(cmd)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &WriteFlags{}
	cmd := &cobra.Command{
		Use:   "update <table>",
		Short: "Update the first matching row",
		Long: `Merge --data over the first row matching the conditions. At least one
condition is required.`,
		Args: cobra.ExactArgs(1),
		RunE: writeCommand(rootOpts, flags, func(q *core.Query, data map[string]any) (*core.Outcome, error) {
			return q.Update(data), nil
		}),
	}
	flags.bind(cmd)
	flags.bindConditions(cmd)
	return cmd
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &WriteFlags{}
	cmd := &cobra.Command{
		Use:   "upsert <table>",
		Short: "Update or insert a row",
		Long: `Update the row identified by exactly one of --unique, --match or --handle,
or insert it when there is none.

  --unique  JSON object of column equalities, merged into an inserted row
  --match   JSON object of conditions; arrays match with IN
  --handle  the row with this handle, most recently updated first`,
		Args: cobra.ExactArgs(1),
		RunE: writeCommand(rootOpts, flags, func(q *core.Query, data map[string]any) (*core.Outcome, error) {
			set := 0
			for _, s := range []string{flags.Unique, flags.Match, flags.Handle} {
				if s != "" {
					set++
				}
			}
			if set != 1 {
				return nil, errors.New("exactly one of --unique, --match or --handle is required")
			}

			switch {
			case flags.Handle != "":
				return q.UpsertHandle(data, flags.Handle), nil
			case flags.Unique != "":
				unique, err := decodeObject(flags.Unique)
				if err != nil {
					return nil, fmt.Errorf("--unique: %w", err)
				}
				return q.Upsert(data, unique), nil
			default:
				match, err := decodeObject(flags.Match)
				if err != nil {
					return nil, fmt.Errorf("--match: %w", err)
				}
				return q.UpsertWhere(data, match), nil
			}
		}),
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&flags.Unique, "unique", "", "unique columns as a JSON object")
	cmd.Flags().StringVar(&flags.Match, "match", "", "conditions as a JSON object")
	cmd.Flags().StringVar(&flags.Handle, "handle", "", "handle of the row")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &QueryFlags{}
	var id string
	cmd := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete matching rows",
		Long:  `Delete the rows matching the conditions, or the row given by --id. At least one condition is required.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, args[0], flags, func(q *core.Query, out *OutputFormatter) error {
				var n int64
				var err error
				if id != "" {
					var key any = id
					if i, perr := strconv.ParseInt(id, 10, 64); perr == nil {
						key = i
					}
					n, err = q.DeleteByID(key)
				} else {
					n, err = q.Delete()
				}
				if errors.Is(err, core.ErrUnconditionalDelete) {
					return WrapExitError(ExitCommandError, "delete", err)
				}
				if err != nil {
					return err
				}
				return out.Success(map[string]int64{"deleted": n})
			})
		},
	}
	flags.bindConditions(cmd)
	cmd.Flags().StringVar(&id, "id", "", "delete the row with this id")
	return cmd
}
