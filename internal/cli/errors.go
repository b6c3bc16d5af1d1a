// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes and error display for enomcrypt commands.
//
// Commands always return errors and never print and swallow them. Run maps
// the returned error to an exit code and displays it once.

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/enomcrypt/internal/engine"
	"github.com/jeranaias/enomcrypt/internal/security"
	"github.com/jeranaias/enomcrypt/internal/walk"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage, arguments or credentials
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitSecurityError indicates a refused location, an already encrypted
	// tree or key material that survived a clear
	ExitSecurityError = 6
	// ExitPartialFailure indicates the run finished but some files failed
	ExitPartialFailure = 9
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// UsageError wraps argument and flag parsing failures.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ConfigError wraps a failure to load or validate the configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PartialFailureError is returned after a run in which at least one file
// failed. The result has already been displayed.
type PartialFailureError struct {
	Failed uint64
	Total  uint64
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d file(s) failed", e.Failed, e.Total)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr    *ConfigError
		usageErr  *UsageError
		validErr  *ValidationError
		optErrs   engine.ValidationErrors
		illegal   *walk.IllegalPathError
		encrypted *walk.AlreadyEncryptedError
		partial   *PartialFailureError
		kdErr     *security.KeyDerivationError
	)

	switch {
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &illegal), errors.As(err, &encrypted), errors.Is(err, security.ErrKeyNotCleared):
		return ExitSecurityError
	case errors.As(err, &partial):
		return ExitPartialFailure
	case errors.As(err, &usageErr), errors.As(err, &validErr), errors.As(err, &optErrs),
		errors.As(err, &kdErr), errors.Is(err, engine.ErrMissingCredentials):
		return ExitUsageError
	case isCobraUsage(err):
		return ExitUsageError
	default:
		return ExitGeneralError
	}
}

// isCobraUsage recognizes the unwrapped errors cobra returns for unknown
// commands.
func isCobraUsage(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError displays an error in a consistent format.
//
// In JSON mode, outputs structured JSON error.
// In normal mode, displays formatted error message.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse(command, err).Print(w)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())

	var illegal *walk.IllegalPathError
	switch {
	case errors.As(err, &illegal):
		fmt.Fprintln(w, DimStyle.Render("System locations cannot be processed. Choose a directory you own."))
	case errors.Is(err, engine.ErrMissingCredentials):
		fmt.Fprintln(w, DimStyle.Render("Supply --password-file or run from a terminal to be prompted."))
	}
}
