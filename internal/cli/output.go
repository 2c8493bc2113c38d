package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/promptc/internal/compiler"
	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A document or scenario failed
	ExitCommandError = 2 // Command error (bad config, missing file, I/O failure)
)

// CLI-level error codes. Document failures carry the compiler's own codes
// (E1xx validation, E2xx compile).
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeConfig         = "E002" // promptc.cue could not be loaded
	ErrCodeNoDocuments    = "E003" // No documents found
	ErrCodeNotFound       = "E005" // Path not found or outside the project
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeScenarioFailed = "E010" // A test scenario failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics; defaults to Writer
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
	Code     string `json:"code"`               // "E205", "E002", etc.
	Message  string `json:"message"`            // human-readable message
	Source   string `json:"source,omitempty"`   // document the error belongs to
	Position string `json:"position,omitempty"` // file:line:col
	Details  any    `json:"details,omitempty"`  // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs a single error in the configured format.
func (f *OutputFormatter) Error(e CLIError) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "error", Error: &e})
	}
	f.writeError(e)
	return nil
}

// Failures outputs document errors. JSON carries the first in error and
// all of them in data.
func (f *OutputFormatter) Failures(errs []CLIError, data any) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "error", Data: data}
		if len(errs) > 0 {
			resp.Error = &errs[0]
		}
		return f.encode(resp)
	}
	for _, e := range errs {
		f.writeError(e)
	}
	return nil
}

func (f *OutputFormatter) writeError(e CLIError) {
	w := f.GetErrWriter()
	switch {
	case e.Position != "":
		fmt.Fprintf(w, "%s: %s: %s\n", e.Position, e.Code, e.Message)
	case e.Source != "":
		fmt.Fprintf(w, "%s: %s: %s\n", e.Source, e.Code, e.Message)
	default:
		fmt.Fprintf(w, "Error [%s]: %s\n", e.Code, e.Message)
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(w, "  Details: %v\n", e.Details)
	}
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// describeError maps an error to its code, position and message.
func describeError(err error) CLIError {
	var docErr *compiler.DocumentError
	source := ""
	if errors.As(err, &docErr) {
		source = docErr.Source
	}

	var ce *ir.CompileError
	if errors.As(err, &ce) {
		out := CLIError{Code: string(ce.Code), Message: ce.Code.Name() + ": " + ce.Message, Source: source}
		if ce.Pos.IsValid() {
			out.Position = ce.Pos.String()
		}
		if ce.Construct != "" {
			out.Details = map[string]any{"construct": ce.Construct}
		}
		if len(ce.Missing) > 0 {
			out.Details = map[string]any{"missing": ce.Missing}
		}
		return out
	}

	var ve compiler.ValidationError
	if errors.As(err, &ve) {
		return CLIError{Code: ve.Code, Message: ve.Field + ": " + ve.Message, Source: source}
	}

	var pathErr *PathError
	if errors.As(err, &pathErr) {
		return CLIError{Code: ErrCodeNotFound, Message: pathErr.Error()}
	}

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		out := CLIError{Code: ErrCodeConfig, Message: cfgErr.Message}
		if cfgErr.Pos.IsValid() {
			out.Position = fmt.Sprintf("%s:%d:%d", cfgErr.Pos.Filename(), cfgErr.Pos.Line(), cfgErr.Pos.Column())
		}
		return out
	}

	code := ErrCodeGeneric
	if errors.Is(err, fs.ErrNotExist) {
		code = ErrCodeNotFound
	}
	return CLIError{Code: code, Message: err.Error(), Source: source}
}

// documentErrors describes every document error.
func documentErrors(errs []*compiler.DocumentError) []CLIError {
	out := make([]CLIError, len(errs))
	for i, e := range errs {
		out[i] = describeError(e)
	}
	return out
}
