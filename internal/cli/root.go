// Package cli implements the bbquery command line: ad-hoc reads and writes
// against a database through the query builder.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Driver     string
	DSN        string
	Prefix     string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for bbquery.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bbquery",
		Short: "Query and write rows through the blockbite builder",
		Long: `bbquery runs the builder's read and write operations from the shell.

Connection settings come from blockbite.yaml, .env files and BLOCKBITE_*
variables; the flags below override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: blockbite.yaml in ., $HOME, ~/.config/blockbite)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (mysql|postgres|sqlite3|sqlite|sqlserver)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.PersistentFlags().StringVar(&opts.Prefix, "prefix", "", "table prefix")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log every statement")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewFirstCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}
