// Package cli provides shared configuration and utilities for the
// fieldshift CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitConfig     = 2
	ExitValidation = 3
	ExitDBConnect  = 4
)

// ExitError couples a process exit code to the failure that caused it.
// The cause stays on the error chain, so errors.Is/As see through it.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func exitError(code int, msg string, err error) *ExitError {
	if err == nil {
		return &ExitError{Code: code, Err: errors.New(msg)}
	}
	return &ExitError{Code: code, Err: fmt.Errorf("%s: %w", msg, err)}
}

// ConfigError wraps a configuration failure (exit code 2).
func ConfigError(msg string, err error) *ExitError {
	return exitError(ExitConfig, msg, err)
}

// ValidationError wraps an input validation failure (exit code 3).
func ValidationError(msg string, err error) *ExitError {
	return exitError(ExitValidation, msg, err)
}

// DBConnectError wraps a database connection failure (exit code 4).
func DBConnectError(msg string, err error) *ExitError {
	return exitError(ExitDBConnect, msg, err)
}

// GeneralError wraps any other failure (exit code 1).
func GeneralError(msg string, err error) *ExitError {
	return exitError(ExitGeneral, msg, err)
}

// ExitCode returns the process exit code for err: the carried code when
// err is or wraps an ExitError, ExitGeneral otherwise.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneral
}

// ExitWithError prints the error and terminates the process.
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}
