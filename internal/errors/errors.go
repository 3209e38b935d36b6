// Package errors provides structured error types for the dotnet-dap pipeline.
// Every failure carries a machine-readable code, a message and a hint that
// tells the user what to do next. Diagnostic text captured from external
// tools (build stderr, build stdout) is kept verbatim in the message.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling
type ErrorCode string

const (
	// Pipeline errors
	CodeParse            ErrorCode = "PARSE_ERROR"
	CodeLookup           ErrorCode = "LOOKUP_ERROR"
	CodeConfig           ErrorCode = "CONFIG_ERROR"
	CodeBuild            ErrorCode = "BUILD_ERROR"
	CodeBuildSpawn       ErrorCode = "BUILD_SPAWN_FAILED"
	CodeArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"

	// Parameter errors
	CodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// Surface errors
	CodeScenarioNotFound ErrorCode = "SCENARIO_NOT_FOUND"
	CodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	CodeDAPProtocolError ErrorCode = "DAP_PROTOCOL_ERROR"
)

// DebugError is a structured error type that includes helpful information
// for the user to understand what went wrong and how to fix it.
type DebugError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., exit code, offending path)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DebugError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *DebugError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *DebugError) WithDetails(key string, value interface{}) *DebugError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *DebugError) WithCause(err error) *DebugError {
	e.Cause = err
	return e
}

// HasCode reports whether any DebugError in err's chain has the given code
func HasCode(err error, code ErrorCode) bool {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// --- Pipeline Errors ---

// ParseError creates an error for an unterminated markup construct
func ParseError(construct string, offset int) *DebugError {
	return &DebugError{
		Code:    CodeParse,
		Message: fmt.Sprintf("invalid markup: unclosed %s tag at offset %d", construct, offset),
		Hint:    "The file ends before the tag is closed. Check the file for truncation or a missing '>'.",
		Details: map[string]interface{}{
			"construct": construct,
			"offset":    offset,
		},
	}
}

// LookupError creates an error when a debugger binary cannot be found
func LookupError(binary, adapter, installHint string) *DebugError {
	return &DebugError{
		Code:    CodeLookup,
		Message: fmt.Sprintf("%s not found on PATH or in the %s adapter cache", binary, adapter),
		Hint:    installHint,
		Details: map[string]interface{}{
			"binary":  binary,
			"adapter": adapter,
		},
	}
}

// ConfigError creates an error for a missing or invalid configuration field
func ConfigError(field, reason string) *DebugError {
	return &DebugError{
		Code:    CodeConfig,
		Message: fmt.Sprintf("'%s' %s", field, reason),
		Hint:    "Check the debug configuration and ensure all required fields are present.",
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// BuildSpawnFailed creates an error when the build tool could not be started
func BuildSpawnFailed(program string, err error) *DebugError {
	return &DebugError{
		Code:    CodeBuildSpawn,
		Message: fmt.Sprintf("failed to spawn %s build: %v", program, err),
		Hint:    "Ensure the .NET SDK is installed and the dotnet executable is on PATH.",
		Cause:   err,
		Details: map[string]interface{}{
			"program": program,
		},
	}
}

// BuildError creates an error for a build that exited with a non-zero status.
// The captured stderr is surfaced verbatim.
func BuildError(program string, exitCode int, stderr string) *DebugError {
	return &DebugError{
		Code:    CodeBuild,
		Message: fmt.Sprintf("%s build failed with exit code %d\nstderr: %s", program, exitCode, stderr),
		Hint:    "Fix the build errors reported above and start the debug session again.",
		Details: map[string]interface{}{
			"exitCode": exitCode,
			"stderr":   stderr,
		},
	}
}

// ArtifactNotFound creates an error when a successful build produced no
// locatable assembly. The full build stdout is surfaced verbatim.
func ArtifactNotFound(cwd, stdout string) *DebugError {
	return &DebugError{
		Code:    CodeArtifactNotFound,
		Message: fmt.Sprintf("could not find compiled assembly in build output.\nBuild output was:\n%s", stdout),
		Hint:    "Check that the project produces a .dll and that the build ran in the project directory.",
		Details: map[string]interface{}{
			"cwd":    cwd,
			"stdout": stdout,
		},
	}
}

// --- Parameter Errors ---

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *DebugError {
	return &DebugError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(paramName string, value interface{}, expected string) *DebugError {
	return &DebugError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid value for parameter '%s': %v", paramName, value),
		Hint:    fmt.Sprintf("Expected: %s", expected),
		Details: map[string]interface{}{
			"parameter": paramName,
			"value":     value,
			"expected":  expected,
		},
	}
}

// --- Surface Errors ---

// ScenarioNotFound creates an error for an unknown or evicted scenario id
func ScenarioNotFound(id string) *DebugError {
	return &DebugError{
		Code:    CodeScenarioNotFound,
		Message: fmt.Sprintf("scenario '%s' not found", id),
		Hint:    "Scenarios are kept in a bounded store. Call task_create_scenario again to get a fresh id.",
		Details: map[string]interface{}{
			"scenarioId": id,
		},
	}
}

// SessionNotFound creates an error for when a session ID doesn't exist
func SessionNotFound(sessionID string) *DebugError {
	return &DebugError{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session '%s' not found", sessionID),
		Hint:    "Use debug_start to create a new session.",
		Details: map[string]interface{}{
			"sessionId": sessionID,
		},
	}
}

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *DebugError {
	return &DebugError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a DebugError from a generic error, attempting to preserve any existing structure
func FromError(err error) *DebugError {
	var de *DebugError
	if stderrors.As(err, &de) {
		return de
	}
	return &DebugError{
		Code:    "UNKNOWN_ERROR",
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}
