package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/block-bite/blockbite-orm/core"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The operation ran but did not succeed (write rejected, no row)
	ExitCommandError = 2 // Command error (bad flags, config, connection)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope of every result.
type CLIResponse struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OutcomeView is how a write Outcome is printed.
type OutcomeView struct {
	Success  bool     `json:"success"`
	ID       any      `json:"id,omitempty"`
	Verified bool     `json:"verified"`
	Row      core.Row `json:"row,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func viewOutcome(o *core.Outcome, decode bool) OutcomeView {
	v := OutcomeView{Success: o.Success(), ID: o.ID(), Verified: o.Verified(), Row: o.Row()}
	if decode {
		v.Row = o.JSON()
	}
	if err := o.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success prints data. Text output is one compact JSON document per row.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}

	enc := json.NewEncoder(f.Writer)
	switch v := data.(type) {
	case []core.Row:
		for _, row := range v {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	case string:
		_, err := fmt.Fprintln(f.Writer, v)
		return err
	}
	return enc.Encode(data)
}
