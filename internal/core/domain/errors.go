package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent pipeline failures.
// Adapters wrap them so callers can branch with errors.Is.
var (
	// ErrInputNotFound indicates a source file does not exist.
	ErrInputNotFound = errors.New("input not found")

	// ErrEngineExecutionFailed indicates an external engine exited non-zero or timed out.
	ErrEngineExecutionFailed = errors.New("engine execution failed")

	// ErrDimensionMismatch indicates a raster and mask are not pixel-congruent.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDegradedCapability indicates a preferred path was unavailable
	// and a slower or less precise one was used instead.
	ErrDegradedCapability = errors.New("degraded capability")

	// ErrInvalidInput indicates malformed or out-of-range parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a write-once record was written twice.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnsupportedFormat indicates a file or geometry format the engine cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEngineUnavailable indicates the engine binary or capability is missing.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrNotImplemented indicates an optional collaborator was not configured.
	ErrNotImplemented = errors.New("not implemented")

	// ErrEmptyFootprint indicates vectorisation produced no polygons.
	ErrEmptyFootprint = errors.New("empty footprint")
)

// EngineError describes a failed external engine invocation.
// It unwraps to ErrEngineExecutionFailed.
type EngineError struct {
	Engine    string
	Operation string
	ExitCode  int
	Stderr    string
	TimedOut  bool
	Err       error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Engine, e.Operation)
	if e.TimedOut {
		b.WriteString(" (timed out)")
	} else if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	return b.String()
}

// Unwrap allows errors.Is to match ErrEngineExecutionFailed and the cause.
func (e *EngineError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEngineExecutionFailed}
	}
	return []error{ErrEngineExecutionFailed, e.Err}
}
