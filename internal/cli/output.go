package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/flowlog/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Check, scenario or replay failure
	ExitCommandError = 2 // Command error (invalid paths, bad program, database errors)
)

// Check marks used in text output.
const (
	markPass = "\u2713"
	markFail = "\u2717"
)

// ExitError is an error carrying a process exit code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional underlying error
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error: ExitSuccess for nil,
// ExitCommandError for errors that carry no code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// CLIResponse is the JSON envelope of every command in --format json.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeJSON encodes resp as indented JSON.
func writeJSON(w io.Writer, resp CLIResponse) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// writeOK writes a successful response.
func writeOK(w io.Writer, data any) error {
	return writeJSON(w, CLIResponse{Status: "ok", Data: data})
}

// writeFailure writes an error response carrying data and returns an
// ExitError with the given code, so callers can `return writeFailure(...)`.
func writeFailure(w io.Writer, exitCode int, code, message string, data any) error {
	if err := writeJSON(w, CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	}); err != nil {
		return err
	}
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// reportError prints err in the selected format and returns an ExitError.
// LoadError codes are kept; other errors get ErrCodeGeneric.
func reportError(w io.Writer, format string, exitCode int, err error) error {
	code := ErrCodeGeneric
	message := err.Error()
	var details any
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
		message = loadErr.describe()
		if len(loadErr.Problems) > 0 {
			details = loadErr.Problems
		}
	}

	if format == "json" {
		if werr := writeJSON(w, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		}); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
	}
	return WrapExitError(exitCode, code, err)
}

// printRows prints one row per line as rel(a, b).
func printRows(w io.Writer, relation string, rows []ir.Row) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s\n", relation, row)
	}
}

// rowsJSON converts rows to plain JSON values.
func rowsJSON(rows []ir.Row) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, d := range row {
			switch v := d.(type) {
			case ir.Int:
				cells[j] = int64(v)
			case ir.String:
				cells[j] = string(v)
			case ir.Bool:
				cells[j] = bool(v)
			}
		}
		out[i] = cells
	}
	return out
}
