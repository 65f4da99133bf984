// Package fault defines the single error type used across the simulation.
//
// Every domain failure is a *Error carrying a Code (what went wrong) and a
// Fatal flag (whether the simulation can continue). Callers decide between
// propagation and local recovery from the flag instead of from the call site:
//
//	if fault.IsFatal(err) {
//	    return err // commit could not be rolled back
//	}
//	report(err) // delegate failure, skip the cell for this cycle
package fault

import (
	"errors"
	"fmt"
)

// Code categorizes simulation errors.
type Code string

const (
	// CodeNoDelegate indicates a delegate name lookup miss on a part.
	CodeNoDelegate Code = "NO_DELEGATE"

	// CodeDuplicateDelegate indicates two delegates registered under one name.
	CodeDuplicateDelegate Code = "DUPLICATE_DELEGATE"

	// CodeCellNotInitialized indicates access to a cell before placement.
	CodeCellNotInitialized Code = "CELL_NOT_INITIALIZED"

	// CodeInvalidDirection indicates a malformed direction where strict parsing is required.
	CodeInvalidDirection Code = "INVALID_DIRECTION"

	// CodeInvalidCast indicates a category mismatch on a view downcast.
	CodeInvalidCast Code = "INVALID_CAST"

	// CodeTypeMismatch indicates a value read or written as the wrong variant.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeUnknownProperty indicates a property id the cell's part does not declare.
	CodeUnknownProperty Code = "UNKNOWN_PROPERTY"

	// CodeDuplicateProperty indicates a part schema declaring one property id twice.
	CodeDuplicateProperty Code = "DUPLICATE_PROPERTY"

	// CodeUnknownPart indicates a part id that is not registered.
	CodeUnknownPart Code = "UNKNOWN_PART"

	// CodeDuplicatePart indicates a second registration of one part id.
	CodeDuplicatePart Code = "DUPLICATE_PART"

	// CodeInvalidHandle indicates a stale or foreign handle.
	CodeInvalidHandle Code = "INVALID_HANDLE"

	// CodeInvalidPlacement indicates a part placed where its traits forbid it.
	CodeInvalidPlacement Code = "INVALID_PLACEMENT"

	// CodeDelegateFailed wraps a failure raised by a part delegate.
	CodeDelegateFailed Code = "DELEGATE_FAILED"

	// CodeCommitFailed indicates a failure while applying staged state.
	CodeCommitFailed Code = "COMMIT_FAILED"

	// CodeStopped indicates an operation on a simulation that has terminated.
	CodeStopped Code = "STOPPED"
)

// Error is the simulation error type.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Fatal is true when the simulation cannot continue after this error.
	Fatal bool

	// Cell identifies the affected cell handle, zero if none.
	Cell uint64

	// Part identifies the affected part id, empty if none.
	Part string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Part != "" {
		msg += fmt.Sprintf(" (part=%s)", e.Part)
	}
	if e.Cell != 0 {
		msg += fmt.Sprintf(" (cell=%#x)", e.Cell)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so sentinel
// comparisons such as errors.Is(err, &fault.Error{Code: fault.CodeNoDelegate})
// work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a non-fatal error with the given code.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a non-fatal error with the given code around a cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Fatalf creates a fatal error with the given code.
func Fatalf(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Fatal: true, Err: err}
}

// WithCell returns a copy of e annotated with a cell handle.
func (e *Error) WithCell(cell uint64) *Error {
	c := *e
	c.Cell = cell
	return &c
}

// WithPart returns a copy of e annotated with a part id.
func (e *Error) WithPart(part string) *Error {
	c := *e
	c.Part = part
	return &c
}

// Is reports whether err, or any *Error it wraps, carries the code.
func Is(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

// IsFatal reports whether err (or anything it wraps) is a fatal *Error.
func IsFatal(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fatal
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
