package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/dealbook/internal/apperr"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected input: validation, schema, not-found, permission, failed scenarios
	ExitCommandError = 2 // Command error (bad flags, unreadable files, storage failures)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the output.
	Reported bool
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

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written by a formatter, so
// the caller should not print it again.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// ExitCodeFor maps an apperr kind to an exit code. Storage failures are
// command errors; every other kind means the input was rejected.
func ExitCodeFor(err error) int {
	if _, ok := apperr.As(err); !ok || apperr.IsStorage(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // apperr code, e.g. "LABEL_REQUIRED"
	Message string `json:"message"`           // sanitized, human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// Text output prints data with fmt; commands with structured results
// render their own text and only call Success for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError. Only the sanitized message is printed; details appear with
// --verbose (text) or in the JSON envelope.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code := string(apperr.CodeOf(err))
	message := apperr.UserMessage(err)
	var details any
	if ae, ok := apperr.As(err); ok && len(ae.Details) > 0 {
		details = ae.Details
	}
	if writeErr := f.Error(code, message, details); writeErr != nil {
		return writeErr
	}
	f.VerboseLog("cause: %v", err)
	exitErr = WrapExitError(ExitCodeFor(err), message, err)
	exitErr.Reported = true
	return exitErr
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
